package schema

import (
	"errors"
	"go/token"
	"strconv"
)

// ErrUnsupportedShape matches every *UnsupportedShapeError via errors.Is.
var ErrUnsupportedShape = errors.New("schema: unsupported record shape")

// UnsupportedShapeError reports a record that is not a plain named-field
// struct. Generation for the record stops; no partial output is produced.
type UnsupportedShapeError struct {
	Record string
	Kind   Kind
	Reason string
	Pos    token.Position
}

// Error implements the error interface.
func (e *UnsupportedShapeError) Error() string {
	// Example: schema: main.go:12:6: "Shape" is a union, only named-field structs are supported
	msg := "schema: "
	if e.Pos.IsValid() {
		msg += e.Pos.String() + ": "
	}
	msg += strconv.Quote(e.Record) + " is a " + e.Kind.String() + ", only named-field structs are supported"
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is reports whether target is ErrUnsupportedShape.
func (e *UnsupportedShapeError) Is(target error) bool { return target == ErrUnsupportedShape }

// CheckShape returns an *UnsupportedShapeError unless d is a plain named-field
// struct whose fields can each carry a generated setter.
func (d *TypeDescriptor) CheckShape() error {
	if d.Kind != KindStruct {
		return &UnsupportedShapeError{Record: d.Name, Kind: d.Kind, Pos: d.Pos}
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		switch {
		case f.Name == "_":
			return &UnsupportedShapeError{Record: d.Name, Kind: KindPositional, Reason: "blank field", Pos: d.Pos}
		case !token.IsIdentifier(f.Name):
			return &UnsupportedShapeError{Record: d.Name, Kind: KindPositional, Reason: "invalid field name " + strconv.Quote(f.Name), Pos: d.Pos}
		case f.Type == nil:
			return &UnsupportedShapeError{Record: d.Name, Kind: KindStruct, Reason: "field " + strconv.Quote(f.Name) + " has no type", Pos: d.Pos}
		}
		if _, dup := seen[f.Name]; dup {
			return &UnsupportedShapeError{Record: d.Name, Kind: KindStruct, Reason: "duplicate field " + strconv.Quote(f.Name), Pos: d.Pos}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
