// Package debug synthesizes the Format method that makes a record satisfy
// fmt.Formatter with a structured "Name { field: value }" rendering.
package debug

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/sghaida/oderive/internal/bounds"
	"github.com/sghaida/oderive/internal/directive"
	"github.com/sghaida/oderive/internal/schema"
)

// Output is the synthesized Format method.
type Output struct {
	Source string
}

type fieldPlan struct {
	Name   string
	Format string // quoted; empty means the caller's format
}

type plan struct {
	Record     string
	RecordType string
	Bounds     string
	Fields     []fieldPlan

	// Local identifiers, renamed away from the record's type parameters.
	Recv  string
	State string
	Verb  string
}

// Synthesize generates the Format method for td. sets holds the parsed
// directives of each field, index-aligned with td.Fields. bs is recorded in the
// method's doc comment.
func Synthesize(td *schema.TypeDescriptor, sets []directive.Set, bs []bounds.Bound) (Output, error) {
	if len(sets) != len(td.Fields) {
		return Output{}, fmt.Errorf("debug: %s: %d directive sets for %d fields", td.Name, len(sets), len(td.Fields))
	}

	p := plan{
		Record:     td.Name,
		RecordType: td.Name + td.TypeArgs(),
		Recv:       td.LocalName("r"),
		State:      td.LocalName("f"),
		Verb:       td.LocalName("verb"),
	}
	if len(bs) > 0 {
		parts := make([]string, len(bs))
		for i, b := range bs {
			parts[i] = b.String()
		}
		p.Bounds = strings.Join(parts, ", ")
	}

	for i, f := range td.Fields {
		fp := fieldPlan{Name: f.Name}
		if o := sets[i].Format; o != nil {
			fp.Format = strconv.Quote(o.Format)
		}
		p.Fields = append(p.Fields, fp)
	}

	var buf bytes.Buffer
	if err := formatTpl.Execute(&buf, p); err != nil {
		return Output{}, fmt.Errorf("debug: %s: %w", td.Name, err)
	}
	return Output{Source: buf.String()}, nil
}

var formatTpl = template.Must(
	template.New("format").
		Funcs(template.FuncMap{"quote": strconv.Quote}).
		Parse(`
// Format renders {{.Record}} as {{.Record}} { field: value, ... }. The '#' flag
// selects the multi-line form.
{{- if .Bounds }}
//
// Bounds: {{ .Bounds }}
{{- end }}
func ({{.Recv}} {{.RecordType}}) Format({{.State}} fmt.State, {{.Verb}} rune) {
	derive.DebugStruct({{.State}}, {{.Verb}}, {{ quote .Record }}).
{{- range .Fields }}
{{- if .Format }}
		FieldFormat({{ quote .Name }}, {{ .Format }}, {{ $.Recv }}.{{ .Name }}).
{{- else }}
		Field({{ quote .Name }}, {{ $.Recv }}.{{ .Name }}).
{{- end }}
{{- end }}
		Finish()
}
`))
