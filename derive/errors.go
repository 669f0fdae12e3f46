package derive

import (
	"errors"
	"strconv"
)

// ErrUnsetField matches every *UnsetFieldError via errors.Is.
var ErrUnsetField = errors.New("derive: required field not set")

// UnsetFieldError is returned by a generated Build method when a required
// field's holder was never populated.
//
// It is an ordinary result value: callers may set the field and call Build
// again.
type UnsetFieldError struct {
	// Record is the name of the record type being built.
	Record string

	// Field is the record field whose setter was never called.
	Field string
}

// Error implements the error interface.
func (e *UnsetFieldError) Error() string {
	// Example: derive: Command field "executable" is not set
	return "derive: " + e.Record + " field " + strconv.Quote(e.Field) + " is not set"
}

// Is reports whether target is ErrUnsetField.
func (e *UnsetFieldError) Is(target error) bool { return target == ErrUnsetField }
