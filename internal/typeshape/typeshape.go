// Package typeshape classifies declared field types by their outermost
// single-argument wrapper.
//
// Matching is purely structural on the go/ast expression as written. A local
// alias of a wrapper is not recognised, and only one wrapper layer is ever
// looked through.
package typeshape

import (
	"go/ast"
)

// Wrapper names a single-argument type constructor.
//
// Pointer and Slice are Go's built-in spellings. Any other value names a
// generic type written as a bare identifier with exactly one type argument,
// e.g. Wrapper("Option") matches Option[T].
type Wrapper string

const (
	Pointer Wrapper = "*"
	Slice   Wrapper = "[]"
)

// Unwrap returns the sole type argument of expr if expr's outermost form is w.
func Unwrap(expr ast.Expr, w Wrapper) (ast.Expr, bool) {
	expr = unparen(expr)
	switch w {
	case Pointer:
		if star, ok := expr.(*ast.StarExpr); ok {
			return star.X, true
		}
	case Slice:
		if arr, ok := expr.(*ast.ArrayType); ok && arr.Len == nil {
			return arr.Elt, true
		}
	default:
		// IndexListExpr (two or more arguments) and SelectorExpr (pkg.Name)
		// deliberately fall through to no match.
		if idx, ok := expr.(*ast.IndexExpr); ok {
			if id, ok := idx.X.(*ast.Ident); ok && id.Name == string(w) {
				return idx.Index, true
			}
		}
	}
	return nil, false
}

// Kind classifies a field for the builder.
type Kind int

const (
	Plain Kind = iota
	Optional
	Sequence
)

func (k Kind) String() string {
	switch k {
	case Optional:
		return "optional"
	case Sequence:
		return "sequence"
	default:
		return "plain"
	}
}

// Shape is a field type after at most one wrapper layer was removed.
// Inner is the declared type itself for Plain.
type Shape struct {
	Kind  Kind
	Inner ast.Expr
}

// Classify returns Optional when expr matches optional, else Sequence when it
// matches sequence, else Plain.
func Classify(expr ast.Expr, optional, sequence Wrapper) Shape {
	if inner, ok := Unwrap(expr, optional); ok {
		return Shape{Kind: Optional, Inner: inner}
	}
	if inner, ok := Unwrap(expr, sequence); ok {
		return Shape{Kind: Sequence, Inner: inner}
	}
	return Shape{Kind: Plain, Inner: expr}
}

// References reports whether expr uses the type parameter named param either
// directly or as the sole argument of one of the recognized wrappers.
//
// Exactly one level is inspected: [][]T or Option[*T] do not reference T.
func References(expr ast.Expr, param string, recognized []Wrapper) bool {
	if isIdent(expr, param) {
		return true
	}
	for _, w := range recognized {
		if inner, ok := Unwrap(expr, w); ok && isIdent(inner, param) {
			return true
		}
	}
	return false
}

func isIdent(expr ast.Expr, name string) bool {
	id, ok := unparen(expr).(*ast.Ident)
	return ok && id.Name == name
}

func unparen(expr ast.Expr) ast.Expr {
	for {
		p, ok := expr.(*ast.ParenExpr)
		if !ok {
			return expr
		}
		expr = p.X
	}
}
