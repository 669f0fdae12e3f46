// Package builder synthesizes the builder construction protocol for a record:
// a holder type, its constructor, one setter per field, element-appending
// accessors for repeated fields, Build and MustBuild.
//
// The generated code lives in the record's own package and imports the
// runtime package under the name "derive".
package builder

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"strconv"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/sghaida/oderive/internal/directive"
	"github.com/sghaida/oderive/internal/schema"
	"github.com/sghaida/oderive/internal/typeshape"
)

// Options tunes the generated names.
type Options struct {
	// Suffix is appended to the record name to name the builder type.
	Suffix string

	// ConstructorPrefix is prepended to the builder type name to name the
	// constructor.
	ConstructorPrefix string

	// MustBuild emits the panicking MustBuild wrapper.
	MustBuild bool
}

// DefaultOptions returns RecordBuilder / NewRecordBuilder naming with
// MustBuild enabled.
func DefaultOptions() Options {
	return Options{Suffix: "Builder", ConstructorPrefix: "New", MustBuild: true}
}

// TypeName returns the name of record's builder type under o.
func TypeName(record string, o Options) string {
	applyDefaults(&o)
	return record + o.Suffix
}

func applyDefaults(o *Options) {
	if o.Suffix == "" {
		o.Suffix = "Builder"
	}
	if o.ConstructorPrefix == "" {
		o.ConstructorPrefix = "New"
	}
}

// Method is one generated method and the field it serves. Field is empty for
// Build and MustBuild.
type Method struct {
	Name  string
	Field string
}

// Output is the synthesized builder.
type Output struct {
	TypeName    string
	Constructor string
	Methods     []Method
	Source      string
}

// ErrShape matches every *ShapeError via errors.Is.
var ErrShape = errors.New("builder: shape error")

// ShapeError reports an each accessor on a field that is not a slice.
type ShapeError struct {
	Record string
	Field  string
	Each   string
	Type   string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	// Example: builder: Command field "name": each accessor "arg" needs a slice field, have string
	return "builder: " + e.Record + " field " + strconv.Quote(e.Field) +
		": each accessor " + strconv.Quote(e.Each) + " needs a slice field, have " + e.Type
}

// Is reports whether target is ErrShape.
func (e *ShapeError) Is(target error) bool { return target == ErrShape }

type fieldPlan struct {
	Name       string
	Holder     string
	HolderType string
	Setter     string
	Each       string
	Elem       string
	Bulk       bool
	Required   bool
	Value      string
}

type plan struct {
	Record      string
	RecordType  string
	Builder     string
	BuilderType string
	Constructor string
	TypeParams  string
	Fields      []fieldPlan
	MustBuild   bool
	HasRequired bool

	// Local identifiers, renamed away from the record's type parameters.
	Recv string
	Arg  string
	Res  string
	Err  string
}

// Synthesize generates the builder for td. sets holds the parsed directives of
// each field, index-aligned with td.Fields.
func Synthesize(td *schema.TypeDescriptor, sets []directive.Set, opts Options) (Output, error) {
	applyDefaults(&opts)
	if len(sets) != len(td.Fields) {
		return Output{}, fmt.Errorf("builder: %s: %d directive sets for %d fields", td.Name, len(sets), len(td.Fields))
	}

	p := plan{
		Record:      td.Name,
		RecordType:  td.Name + td.TypeArgs(),
		Builder:     td.Name + opts.Suffix,
		TypeParams:  td.TypeParams(),
		MustBuild:   opts.MustBuild,
		Constructor: opts.ConstructorPrefix + td.Name + opts.Suffix,
		Recv:        td.LocalName("b"),
		Arg:         td.LocalName("v"),
		Res:         td.LocalName("r"),
		Err:         td.LocalName("err"),
	}
	p.BuilderType = p.Builder + td.TypeArgs()

	out := Output{TypeName: p.Builder, Constructor: p.Constructor}

	for i, f := range td.Fields {
		fp, err := planField(td.Name, p.Recv, f, sets[i])
		if err != nil {
			return Output{}, err
		}
		p.Fields = append(p.Fields, fp)
		p.HasRequired = p.HasRequired || fp.Required

		if fp.Each != "" {
			out.Methods = append(out.Methods, Method{Name: fp.Each, Field: f.Name})
			if fp.Bulk {
				out.Methods = append(out.Methods, Method{Name: fp.Setter, Field: f.Name})
			}
			continue
		}
		out.Methods = append(out.Methods, Method{Name: fp.Setter, Field: f.Name})
	}

	out.Methods = append(out.Methods, Method{Name: "Build"})
	if opts.MustBuild {
		out.Methods = append(out.Methods, Method{Name: "MustBuild"})
	}

	var buf bytes.Buffer
	if err := builderTpl.Execute(&buf, p); err != nil {
		return Output{}, fmt.Errorf("builder: %s: %w", td.Name, err)
	}
	out.Source = buf.String()
	return out, nil
}

func planField(record, recv string, f schema.FieldDescriptor, set directive.Set) (fieldPlan, error) {
	fp := fieldPlan{
		Name:       f.Name,
		Setter:     Export(f.Name),
		HolderType: f.TypeString(),
	}
	fp.Holder = holderName(f.Name, fp.Setter)

	if set.Each != nil {
		elem, ok := typeshape.Unwrap(f.Type, typeshape.Slice)
		if !ok {
			return fieldPlan{}, &ShapeError{Record: record, Field: f.Name, Each: set.Each.Name, Type: f.TypeString()}
		}
		fp.Each = Export(set.Each.Name)
		fp.Elem = schema.ExprString(elem)
		fp.Bulk = fp.Each != fp.Setter
		fp.Value = "derive.Elements(" + recv + "." + fp.Holder + ")"
		return fp, nil
	}

	if inner, ok := typeshape.Unwrap(f.Type, typeshape.Pointer); ok {
		fp.HolderType = schema.ExprString(inner)
		fp.Value = recv + "." + fp.Holder + ".Ptr()"
		return fp, nil
	}

	fp.Required = true
	fp.Value = recv + "." + fp.Holder + ".Value()"
	return fp, nil
}

// Export upper-cases the first rune of name.
func Export(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// holderName lower-cases the first rune so the holder never shares a name with
// the exported setter.
func holderName(name, setter string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	h := string(unicode.ToLower(r)) + name[size:]
	if token.IsKeyword(h) || h == setter {
		h += "_"
	}
	return h
}

var builderTpl = template.Must(
	template.New("builder").
		Funcs(template.FuncMap{
			"quote": strconv.Quote,
		}).
		Parse(`
// {{.Builder}} assembles a {{.Record}} one field at a time.
type {{.Builder}}{{.TypeParams}} struct {
{{- range .Fields }}
	{{ .Holder }} derive.Opt[{{ .HolderType }}]
{{- end }}
}

// {{.Constructor}} returns a {{.Builder}} with every field unset.
func {{.Constructor}}{{.TypeParams}}() *{{.BuilderType}} {
	return &{{.BuilderType}}{}
}
{{ range .Fields }}
{{- if .Each }}
// {{ .Each }} appends one element to {{ .Name }}.
func ({{ $.Recv }} *{{ $.BuilderType }}) {{ .Each }}({{ $.Arg }} {{ .Elem }}) *{{ $.BuilderType }} {
	derive.Append(&{{ $.Recv }}.{{ .Holder }}, {{ $.Arg }})
	return {{ $.Recv }}
}
{{- if .Bulk }}

// {{ .Setter }} replaces every element of {{ .Name }}.
func ({{ $.Recv }} *{{ $.BuilderType }}) {{ .Setter }}({{ $.Arg }} {{ .HolderType }}) *{{ $.BuilderType }} {
	derive.Replace(&{{ $.Recv }}.{{ .Holder }}, {{ $.Arg }})
	return {{ $.Recv }}
}
{{- end }}
{{- else }}
// {{ .Setter }} sets {{ .Name }}.
func ({{ $.Recv }} *{{ $.BuilderType }}) {{ .Setter }}({{ $.Arg }} {{ .HolderType }}) *{{ $.BuilderType }} {
	{{ $.Recv }}.{{ .Holder }}.Set({{ $.Arg }})
	return {{ $.Recv }}
}
{{- end }}
{{ end }}
{{- if .HasRequired }}
// Build returns the assembled {{.Record}}, or a *derive.UnsetFieldError naming
// the first required field that was never set.
{{- else }}
// Build returns the assembled {{.Record}}. It never fails.
{{- end }}
func ({{.Recv}} *{{.BuilderType}}) Build() ({{.RecordType}}, error) {
{{- range .Fields }}
{{- if .Required }}
	if !{{ $.Recv }}.{{ .Holder }}.IsSet() {
		return {{ $.RecordType }}{}, &derive.UnsetFieldError{Record: {{ quote $.Record }}, Field: {{ quote .Name }}}
	}
{{- end }}
{{- end }}
	return {{.RecordType}}{
{{- range .Fields }}
		{{ .Name }}: {{ .Value }},
{{- end }}
	}, nil
}
{{- if .MustBuild }}

// MustBuild is like Build but panics on error.
func ({{.Recv}} *{{.BuilderType}}) MustBuild() {{.RecordType}} {
	{{.Res}}, {{.Err}} := {{.Recv}}.Build()
	if {{.Err}} != nil {
		panic({{.Err}})
	}
	return {{.Res}}
}
{{- end }}
`))
