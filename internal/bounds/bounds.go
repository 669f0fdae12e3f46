// Package bounds decides which type parameters of a record need the
// formatting constraint for the generated Format method to be meaningful.
//
// A parameter is bounded when some field type is the parameter itself or a
// recognized wrapper directly around it. Anything deeper is not examined.
package bounds

import (
	"errors"
	"go/ast"
	"strconv"
	"strings"

	"github.com/sghaida/oderive/internal/schema"
	"github.com/sghaida/oderive/internal/typeshape"
)

// DefaultBound is the constraint every referenced parameter should satisfy.
// fmt renders any value, so by default every constraint satisfies it; a
// stricter bound such as fmt.Formatter can be configured.
const DefaultBound = "any"

// Bound pairs a type parameter with the constraint it needs.
type Bound struct {
	Param      string
	Constraint string
}

func (b Bound) String() string { return b.Param + ": " + b.Constraint }

// Recognized returns the built-in wrappers followed by the named extras.
// Blank and duplicate names are skipped.
func Recognized(extra ...string) []typeshape.Wrapper {
	out := []typeshape.Wrapper{typeshape.Pointer, typeshape.Slice}
	seen := map[string]bool{string(typeshape.Pointer): true, string(typeshape.Slice): true}
	for _, name := range extra {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, typeshape.Wrapper(name))
	}
	return out
}

// Infer returns one Bound per referenced parameter, in parameter declaration
// order. bound defaults to DefaultBound.
func Infer(params []schema.GenericParam, fieldTypes []ast.Expr, recognized []typeshape.Wrapper, bound string) []Bound {
	if bound == "" {
		bound = DefaultBound
	}

	var out []Bound
	for _, p := range params {
		for _, ft := range fieldTypes {
			if typeshape.References(ft, p.Name, recognized) {
				out = append(out, Bound{Param: p.Name, Constraint: bound})
				break
			}
		}
	}
	return out
}

// ErrUnsatisfiedBound matches every *UnsatisfiedBoundError via errors.Is.
var ErrUnsatisfiedBound = errors.New("bounds: unsatisfied bound")

// UnsatisfiedBoundError reports a bounded parameter whose declared constraint
// does not mention the required bound.
type UnsatisfiedBoundError struct {
	Record   string
	Param    string
	Declared string
	Bound    string
}

// Error implements the error interface.
func (e *UnsatisfiedBoundError) Error() string {
	// Example: bounds: Pair type parameter "V" is constrained by any, which does not embed fmt.Formatter
	return "bounds: " + e.Record + " type parameter " + strconv.Quote(e.Param) +
		" is constrained by " + e.Declared + ", which does not embed " + e.Bound
}

// Is reports whether target is ErrUnsatisfiedBound.
func (e *UnsatisfiedBoundError) Is(target error) bool { return target == ErrUnsatisfiedBound }

// Audit checks each bound against the declared constraint of its parameter.
// The check is textual: the constraint must be the bound itself or an
// interface literal embedding it. An "any" bound is always satisfied.
func Audit(record string, params []schema.GenericParam, bounds []Bound) []*UnsatisfiedBoundError {
	byName := make(map[string]schema.GenericParam, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}

	var out []*UnsatisfiedBoundError
	for _, b := range bounds {
		p, ok := byName[b.Param]
		if ok && embeds(p.Constraint, b.Constraint) {
			continue
		}
		out = append(out, &UnsatisfiedBoundError{
			Record:   record,
			Param:    b.Param,
			Declared: p.ConstraintString(),
			Bound:    b.Constraint,
		})
	}
	return out
}

func embeds(constraint ast.Expr, bound string) bool {
	if bound == DefaultBound {
		return true
	}
	if constraint == nil {
		return false
	}
	if schema.ExprString(constraint) == bound {
		return true
	}
	iface, ok := constraint.(*ast.InterfaceType)
	if !ok || iface.Methods == nil {
		return false
	}
	for _, m := range iface.Methods.List {
		if len(m.Names) == 0 && schema.ExprString(m.Type) == bound {
			return true
		}
	}
	return false
}
