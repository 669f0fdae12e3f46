// Package generate runs the derive pipeline for record descriptors and
// assembles the resulting fragments into a formatted Go file.
//
// Generate is a pure function of its inputs. Many calls may run at once; see
// All for the bounded fan-out used by the CLI.
package generate

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/sghaida/oderive/internal/bounds"
	"github.com/sghaida/oderive/internal/builder"
	"github.com/sghaida/oderive/internal/debug"
	"github.com/sghaida/oderive/internal/directive"
	"github.com/sghaida/oderive/internal/schema"
)

// Options configures one generation run.
type Options struct {
	Builder builder.Options

	// Bound is the constraint referenced type parameters should satisfy.
	// Empty means bounds.DefaultBound.
	Bound string

	// StrictBounds turns an unsatisfied bound into an error instead of a
	// warning carried on the fragment.
	StrictBounds bool

	// Wrappers names generic types, besides pointer and slice, that bound
	// inference looks through.
	Wrappers []string
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{Builder: builder.DefaultOptions(), Bound: bounds.DefaultBound}
}

// Fragment is the generated code for one record. Builder and Debug are empty
// when the protocol was not requested.
type Fragment struct {
	Record  string
	Builder string
	Debug   string

	// Methods lists the builder's methods, in emission order.
	Methods []builder.Method

	// Bounds lists the type parameters the Format method relies on.
	Bounds []bounds.Bound

	// Unsatisfied lists bounds whose declared constraint does not embed the
	// bound. Always empty with StrictBounds.
	Unsatisfied []*bounds.UnsatisfiedBoundError
}

// Empty reports whether nothing was generated.
func (f Fragment) Empty() bool { return f.Builder == "" && f.Debug == "" }

// ErrConflict matches every *ConflictError via errors.Is.
var ErrConflict = errors.New("generate: method name conflict")

// ConflictError reports two generated methods that would share a name.
// An empty field means the method is not tied to a field (Build, MustBuild,
// Format).
type ConflictError struct {
	Record string
	Method string
	First  string
	Second string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	// Example: generate: Point method "X" would be generated for field "x" and field "X"
	return "generate: " + e.Record + " method " + strconv.Quote(e.Method) +
		" would be generated for " + owner(e.First) + " and " + owner(e.Second)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func owner(field string) string {
	if field == "" {
		return "the generated type itself"
	}
	return "field " + strconv.Quote(field)
}

// ErrShadow matches every *ShadowError via errors.Is.
var ErrShadow = errors.New("generate: type parameter shadows a generated identifier")

// ShadowError reports a type parameter whose name hides an identifier the
// generated code refers to inside the parameter's scope.
type ShadowError struct {
	Record string
	Param  string
}

// Error implements the error interface.
func (e *ShadowError) Error() string {
	// Example: generate: Box type parameter "fmt" hides an identifier the generated code uses
	return "generate: " + e.Record + " type parameter " + strconv.Quote(e.Param) +
		" hides an identifier the generated code uses"
}

// Is reports whether target is ErrShadow.
func (e *ShadowError) Is(target error) bool { return target == ErrShadow }

// referenced lists the package names and predeclared identifiers the
// generated methods use.
var referenced = []string{"derive", "fmt", "error", "nil", "panic", "rune"}

func checkShadowing(td *schema.TypeDescriptor, opts Options) error {
	names := append([]string{td.Name}, referenced...)
	if td.Derives(schema.Builder) {
		names = append(names, builder.TypeName(td.Name, opts.Builder))
	}
	for _, p := range td.Params {
		if slices.Contains(names, p.Name) {
			return &ShadowError{Record: td.Name, Param: p.Name}
		}
	}
	return nil
}

// Generate produces the requested protocols for td.
//
// Shape and directive errors stop the record before anything is synthesized.
func Generate(td *schema.TypeDescriptor, opts Options) (Fragment, error) {
	if err := td.CheckShape(); err != nil {
		return Fragment{}, err
	}
	if err := checkShadowing(td, opts); err != nil {
		return Fragment{}, err
	}

	sets := make([]directive.Set, len(td.Fields))
	for i, f := range td.Fields {
		set, err := directive.Parse(f.Annotations)
		if err != nil {
			return Fragment{}, fmt.Errorf("generate %s.%s: %w", td.Name, f.Name, err)
		}
		sets[i] = set
	}

	frag := Fragment{Record: td.Name}

	if td.Derives(schema.Builder) {
		out, err := builder.Synthesize(td, sets, opts.Builder)
		if err != nil {
			return Fragment{}, fmt.Errorf("generate %s: %w", td.Name, err)
		}
		if err := checkConflicts(td.Name, out.Methods); err != nil {
			return Fragment{}, err
		}
		frag.Builder = out.Source
		frag.Methods = out.Methods
	}

	if td.Derives(schema.Debug) {
		for _, f := range td.Fields {
			if f.Name == "Format" {
				return Fragment{}, &ConflictError{Record: td.Name, Method: "Format", First: f.Name}
			}
		}

		fieldTypes := make([]ast.Expr, len(td.Fields))
		for i, f := range td.Fields {
			fieldTypes[i] = f.Type
		}
		frag.Bounds = bounds.Infer(td.Params, fieldTypes, bounds.Recognized(opts.Wrappers...), opts.Bound)

		if unsatisfied := bounds.Audit(td.Name, td.Params, frag.Bounds); len(unsatisfied) > 0 {
			if opts.StrictBounds {
				return Fragment{}, fmt.Errorf("generate %s: %w", td.Name, unsatisfied[0])
			}
			frag.Unsatisfied = unsatisfied
		}

		out, err := debug.Synthesize(td, sets, frag.Bounds)
		if err != nil {
			return Fragment{}, fmt.Errorf("generate %s: %w", td.Name, err)
		}
		frag.Debug = out.Source
	}

	return frag, nil
}

func checkConflicts(record string, methods []builder.Method) error {
	seen := make(map[string]string, len(methods))
	for _, m := range methods {
		if first, dup := seen[m.Name]; dup {
			return &ConflictError{Record: record, Method: m.Name, First: first, Second: m.Field}
		}
		seen[m.Name] = m.Field
	}
	return nil
}

// All generates every descriptor with at most jobs running at once (no limit
// when jobs <= 0). Fragments come back in input order. The first error cancels
// the remaining work.
func All(ctx context.Context, tds []*schema.TypeDescriptor, opts Options, jobs int) ([]Fragment, error) {
	frags := make([]Fragment, len(tds))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, td := range tds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frag, err := Generate(td, opts)
			if err != nil {
				return err
			}
			frags[i] = frag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frags, nil
}
