package derive

import (
	"bytes"
	"fmt"
	"io"
)

const indent = "    "

// DebugBuilder renders one record as a named aggregate of field/value pairs.
// Obtain one with DebugStruct, add fields in declaration order, then Finish.
type DebugBuilder struct {
	f         fmt.State
	format    string
	alternate bool
	fields    int
}

// DebugStruct starts rendering a record called name onto f.
//
// Field values are printed with the caller's own verb and flags, so %v, %+v
// and %x all propagate into the fields. The '#' flag selects the multi-line
// alternate form.
func DebugStruct(f fmt.State, verb rune, name string) *DebugBuilder {
	_, _ = io.WriteString(f, name)
	return &DebugBuilder{
		f:         f,
		format:    fmt.FormatString(f, verb),
		alternate: f.Flag('#'),
	}
}

// Field renders name: value using the caller's format.
func (d *DebugBuilder) Field(name string, value any) *DebugBuilder {
	return d.FieldFormat(name, d.format, value)
}

// FieldFormat renders name: value using format in place of the caller's.
func (d *DebugBuilder) FieldFormat(name, format string, value any) *DebugBuilder {
	if d.alternate {
		if d.fields == 0 {
			_, _ = io.WriteString(d.f, " {\n")
		}
		pw := &padWriter{w: d.f, onNewline: true}
		_, _ = fmt.Fprintf(pw, "%s: ", name)
		_, _ = fmt.Fprintf(pw, format, value)
		_, _ = io.WriteString(pw, ",\n")
	} else {
		if d.fields == 0 {
			_, _ = io.WriteString(d.f, " { ")
		} else {
			_, _ = io.WriteString(d.f, ", ")
		}
		_, _ = fmt.Fprintf(d.f, "%s: ", name)
		_, _ = fmt.Fprintf(d.f, format, value)
	}
	d.fields++
	return d
}

// Finish closes the aggregate. A record without fields renders as its bare
// name.
func (d *DebugBuilder) Finish() {
	if d.fields == 0 {
		return
	}
	if d.alternate {
		_, _ = io.WriteString(d.f, "}")
		return
	}
	_, _ = io.WriteString(d.f, " }")
}

// padWriter indents every line written through it. Nested alternate output
// therefore lines up under its field label.
type padWriter struct {
	w         io.Writer
	onNewline bool
}

func (p *padWriter) Write(b []byte) (int, error) {
	written := 0
	for len(b) > 0 {
		if p.onNewline {
			if _, err := io.WriteString(p.w, indent); err != nil {
				return written, err
			}
		}

		chunk := b
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			chunk = b[:i+1]
			p.onNewline = true
		} else {
			p.onNewline = false
		}

		n, err := p.w.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		b = b[len(chunk):]
	}
	return written, nil
}
