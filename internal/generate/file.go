package generate

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/sghaida/oderive/internal/schema"
)

// DefaultRuntime is the import path of the package generated code calls into.
const DefaultRuntime = "github.com/sghaida/oderive/derive"

// runtimeName is the name generated code uses for the runtime package.
const runtimeName = "derive"

// FileSpec describes the file that fragments are assembled into.
type FileSpec struct {
	// Package is the package clause of the generated file.
	Package string

	// OutPath is the path the file will be written to. imports uses it to
	// resolve anything still missing.
	OutPath string

	// Source names the input in the header; SourceHash is its SHA-256.
	Source     string
	SourceHash string

	// Imports are the imports of the source file. Those the generated code
	// does not use are dropped during formatting.
	Imports []schema.Import

	// Runtime overrides DefaultRuntime.
	Runtime string
}

// Assemble renders frags, in order, into one gofmt-ed file with its imports
// fixed.
func Assemble(spec FileSpec, frags []Fragment) ([]byte, error) {
	if spec.Package == "" {
		return nil, fmt.Errorf("generate: assemble %s: empty package name", spec.OutPath)
	}
	runtime := spec.Runtime
	if runtime == "" {
		runtime = DefaultRuntime
	}

	data := struct {
		FileSpec
		Imports []schema.Import
		Frags   []Fragment
	}{
		FileSpec: spec,
		Imports:  mergeImports(runtime, spec.Imports),
		Frags:    frags,
	}

	var buf bytes.Buffer
	if err := fileTpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("generate: assemble %s: %w", spec.OutPath, err)
	}

	out, err := imports.Process(spec.OutPath, buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: format %s: %w", spec.OutPath, err)
	}
	return out, nil
}

// mergeImports puts fmt and the runtime in front of the source imports,
// dropping blank imports, duplicates and anything already named derive.
func mergeImports(runtime string, src []schema.Import) []schema.Import {
	out := []schema.Import{{Path: "fmt"}, {Name: runtimeName, Path: runtime}}
	seen := map[string]bool{"fmt": true, runtime: true}

	var rest []schema.Import
	for _, imp := range src {
		switch {
		case imp.Name == "_", seen[imp.Path]:
			continue
		case imp.Name == runtimeName, imp.Name == "" && path.Base(imp.Path) == runtimeName:
			continue
		}
		seen[imp.Path] = true
		rest = append(rest, imp)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Path < rest[j].Path })
	return append(out, rest...)
}

var fileTpl = template.Must(template.New("file").Parse(`// Code generated by oderive; DO NOT EDIT.
{{- if .Source }}
// Source: {{ .Source }}
{{- end }}
{{- if .SourceHash }}
// Source-SHA256: {{ .SourceHash }}
{{- end }}

package {{ .Package }}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)
{{ range .Frags }}
{{- if .Builder }}
{{ .Builder }}
{{- end }}
{{- if .Debug }}
{{ .Debug }}
{{- end }}
{{- end }}
`))
