// Package extract turns Go source files and YAML/JSON spec files into record
// descriptors.
//
// In Go source a struct opts in with a //derive:builder and/or //derive:debug
// line in its doc comment; field annotations are //derive: lines in the
// field's doc or trailing comment:
//
//	//derive:builder debug
//	type Command struct {
//		//derive:builder(each = "arg")
//		args []string
//		mode int //derive:debug = "%o"
//	}
package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sghaida/oderive/internal/schema"
)

// Prefix starts every derive comment line.
const Prefix = "//derive:"

// File is everything extracted from one input.
type File struct {
	Path    string
	Package string
	Hash    string
	Imports []schema.Import
	Records []*schema.TypeDescriptor

	// Generated is set for files carrying the standard generated-code header.
	// They are never scanned for records.
	Generated bool
}

// Source extracts records from Go source.
func Source(path string, src []byte, log *zap.Logger) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("extract: parse %s: %w", path, err)
	}

	out := &File{Path: path, Package: f.Name.Name}
	if ast.IsGenerated(f) {
		out.Generated = true
		log.Debug("skipping generated file", zap.String("path", path))
		return out, nil
	}

	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return nil, fmt.Errorf("extract: %s: import %s: %w", path, imp.Path.Value, err)
		}
		i := schema.Import{Path: p}
		if imp.Name != nil {
			i.Name = imp.Name.Name
		}
		out.Imports = append(out.Imports, i)
	}

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)

			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			protocols, err := protocolsOf(fset, doc)
			if err != nil {
				return nil, err
			}
			if len(protocols) == 0 {
				continue
			}

			td := describe(fset, f.Name.Name, ts)
			td.Derive = protocols
			out.Records = append(out.Records, td)

			log.Debug("extracted record",
				zap.String("path", path),
				zap.String("record", td.Name),
				zap.Stringer("kind", td.Kind),
				zap.Int("fields", len(td.Fields)),
				zap.Int("params", len(td.Params)))
		}
	}
	return out, nil
}

// protocolsOf reads type-level directives. A line may name several protocols
// separated by spaces or commas.
func protocolsOf(fset *token.FileSet, doc *ast.CommentGroup) ([]schema.Protocol, error) {
	if doc == nil {
		return nil, nil
	}
	var out []schema.Protocol
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, Prefix)
		if !ok {
			continue
		}
		words := strings.FieldsFunc(rest, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
		if len(words) == 0 {
			return nil, fmt.Errorf("extract: %s: empty derive directive", fset.Position(c.Pos()))
		}
		for _, w := range words {
			p, ok := schema.ParseProtocol(w)
			if !ok {
				return nil, fmt.Errorf("extract: %s: unknown protocol %q, want %q or %q",
					fset.Position(c.Pos()), w, schema.Builder, schema.Debug)
			}
			if !containsProtocol(out, p) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func containsProtocol(ps []schema.Protocol, p schema.Protocol) bool {
	for _, have := range ps {
		if have == p {
			return true
		}
	}
	return false
}

func describe(fset *token.FileSet, pkg string, ts *ast.TypeSpec) *schema.TypeDescriptor {
	td := &schema.TypeDescriptor{
		Package: pkg,
		Name:    ts.Name.Name,
		Pos:     fset.Position(ts.Name.Pos()),
	}

	if ts.TypeParams != nil {
		for _, field := range ts.TypeParams.List {
			for _, name := range field.Names {
				td.Params = append(td.Params, schema.GenericParam{Name: name.Name, Constraint: field.Type})
			}
		}
	}

	switch t := ts.Type.(type) {
	case *ast.StructType:
		td.Kind = schema.KindStruct
		for _, field := range t.Fields.List {
			if len(field.Names) == 0 {
				td.Kind = schema.KindPositional
				td.Fields = nil
				return td
			}
			anns := annotations(fset, field.Doc, field.Comment)
			for _, name := range field.Names {
				td.Fields = append(td.Fields, schema.FieldDescriptor{
					Name:        name.Name,
					Type:        field.Type,
					Annotations: anns,
				})
			}
		}
	case *ast.InterfaceType:
		td.Kind = schema.KindUnion
	default:
		td.Kind = schema.KindOther
	}
	if ts.Assign.IsValid() {
		td.Kind = schema.KindOther
	}
	return td
}

// annotations collects //derive: lines. Positions point just past the prefix
// so directive errors land on the offending token.
func annotations(fset *token.FileSet, groups ...*ast.CommentGroup) []schema.Annotation {
	var out []schema.Annotation
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			rest, ok := strings.CutPrefix(c.Text, Prefix)
			if !ok {
				continue
			}
			pos := fset.Position(c.Pos())
			pos.Offset += len(Prefix)
			pos.Column += len(Prefix)
			out = append(out, schema.Annotation{Text: rest, Pos: pos})
		}
	}
	return out
}
