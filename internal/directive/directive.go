// Package directive parses the //derive: annotations attached to record fields.
//
// Two shapes are recognised:
//
//	debug = "%b"             // bare assignment: format override
//	builder(each = "arg")    // nested call: repeated-element accessor
//
// A bare each = "arg" is accepted as well. A format override must consume
// exactly one value. Anything else is a *SyntaxError
// carrying the annotation's position.
package directive

import (
	"go/token"

	"github.com/sghaida/oderive/internal/schema"
)

// Reserved keywords of the annotation surface.
const (
	FormatKey   = "debug"
	BuilderCall = "builder"
	EachKey     = "each"
)

// Directive is either a FormatOverride or an EachAccessor.
type Directive interface {
	Position() token.Position
	directive()
}

// FormatOverride replaces a field's default rendering with Format, a fmt
// format string applied to the field's value.
type FormatOverride struct {
	Format string
	Pos    token.Position
}

// EachAccessor marks a sequence field and names its element-appending setter.
type EachAccessor struct {
	Name string
	Pos  token.Position
}

func (d FormatOverride) Position() token.Position { return d.Pos }
func (d EachAccessor) Position() token.Position   { return d.Pos }

func (FormatOverride) directive() {}
func (EachAccessor) directive()   {}

// Set is the parsed directives of one field. Each tag appears at most once.
type Set struct {
	Format *FormatOverride
	Each   *EachAccessor
}

// Empty reports whether the field carries no directives.
func (s Set) Empty() bool { return s.Format == nil && s.Each == nil }

// Parse parses every annotation of one field. It fails on the first malformed
// annotation or on a repeated directive tag.
func Parse(annotations []schema.Annotation) (Set, error) {
	var set Set
	for _, a := range annotations {
		d, err := ParseOne(a)
		if err != nil {
			return Set{}, err
		}
		switch d := d.(type) {
		case FormatOverride:
			if set.Format != nil {
				return Set{}, duplicateError(a, FormatKey, set.Format.Pos)
			}
			set.Format = &d
		case EachAccessor:
			if set.Each != nil {
				return Set{}, duplicateError(a, EachKey, set.Each.Pos)
			}
			set.Each = &d
		}
	}
	return set, nil
}
