// Package schema is the record-type model consumed by the generators.
//
// A TypeDescriptor is produced by an extractor (Go source or spec file) and is
// treated as immutable from then on. Field types are structural go/ast
// expressions; nothing here resolves names or aliases.
package schema

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"strings"
)

// Kind classifies the top-level shape of a declared type.
type Kind int

const (
	// KindStruct is a plain struct whose fields all have names.
	KindStruct Kind = iota
	// KindUnion is an interface used as a sum type.
	KindUnion
	// KindPositional is a struct with embedded (unnamed) fields.
	KindPositional
	// KindOther is any other named type.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindPositional:
		return "positional struct"
	default:
		return "non-struct type"
	}
}

// Protocol names one family of generated code.
type Protocol string

const (
	Builder Protocol = "builder"
	Debug   Protocol = "debug"
)

// ParseProtocol maps a directive keyword onto a Protocol.
func ParseProtocol(s string) (Protocol, bool) {
	switch Protocol(strings.TrimSpace(s)) {
	case Builder:
		return Builder, true
	case Debug:
		return Debug, true
	}
	return "", false
}

// TypeDescriptor describes one record type.
type TypeDescriptor struct {
	Package string
	Name    string
	Kind    Kind
	Params  []GenericParam
	Fields  []FieldDescriptor
	Derive  []Protocol
	Pos     token.Position
}

// GenericParam is a type parameter of the record. Constraint is the declared
// constraint expression; nil means any.
type GenericParam struct {
	Name       string
	Constraint ast.Expr
}

// FieldDescriptor is one named field of the record, in declaration order.
type FieldDescriptor struct {
	Name        string
	Type        ast.Expr
	Annotations []Annotation
}

// Annotation is the raw text of one //derive: line attached to a field, with
// the prefix stripped.
type Annotation struct {
	Text string
	Pos  token.Position
}

// Import is one import of the file a record was declared in. Name is empty
// for an unnamed import.
type Import struct {
	Name string
	Path string
}

// Derives reports whether p was requested for the record.
func (d *TypeDescriptor) Derives(p Protocol) bool {
	for _, have := range d.Derive {
		if have == p {
			return true
		}
	}
	return false
}

// TypeParams renders the declaration form of the parameter list, e.g.
// "[K comparable, V any]", or "" for a non-generic record.
func (d *TypeDescriptor) TypeParams() string {
	if len(d.Params) == 0 {
		return ""
	}
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		parts[i] = p.Name + " " + p.ConstraintString()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TypeArgs renders the instantiation form of the parameter list, e.g.
// "[K, V]", or "" for a non-generic record.
func (d *TypeDescriptor) TypeArgs() string {
	if len(d.Params) == 0 {
		return ""
	}
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// ParamNames returns the type parameter names in declaration order.
func (d *TypeDescriptor) ParamNames() []string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return names
}

// LocalName returns base, followed by as many underscores as it takes to
// differ from every type parameter name.
func (d *TypeDescriptor) LocalName(base string) string {
	name := base
	for d.hasParam(name) {
		name += "_"
	}
	return name
}

func (d *TypeDescriptor) hasParam(name string) bool {
	for _, p := range d.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ConstraintString renders the declared constraint, defaulting to "any".
func (p GenericParam) ConstraintString() string {
	if p.Constraint == nil {
		return "any"
	}
	return ExprString(p.Constraint)
}

// TypeString renders the declared field type as written.
func (f FieldDescriptor) TypeString() string { return ExprString(f.Type) }

// ExprString prints a go/ast expression back to source form.
func ExprString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, token.NewFileSet(), expr); err != nil {
		return ""
	}
	return buf.String()
}
