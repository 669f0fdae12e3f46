package directive

import (
	"errors"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sghaida/oderive/internal/schema"
)

// ErrSyntax matches every *SyntaxError via errors.Is.
var ErrSyntax = errors.New("directive: syntax error")

// SyntaxError reports an annotation that does not match a recognised
// directive shape.
type SyntaxError struct {
	// Annotation is the raw annotation text.
	Annotation string

	// Expected names the form the parser wanted.
	Expected string

	// Detail describes what was found instead.
	Detail string

	Pos token.Position
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	// Example: directive: cmd.go:9:2: expected builder(each = "..."): inner key is "foo", want "each"
	msg := "directive: "
	if e.Pos.IsValid() {
		msg += e.Pos.String() + ": "
	}
	msg += "expected " + e.Expected
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports whether target is ErrSyntax.
func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

const (
	nestedForm = BuilderCall + `(` + EachKey + ` = "...")`
	bareForms  = FormatKey + ` = "..." or ` + nestedForm
)

type lexeme struct {
	tok token.Token
	lit string
	off int
}

// ParseOne parses a single annotation into a Directive.
func ParseOne(a schema.Annotation) (Directive, error) {
	lexemes, err := scan(a)
	if err != nil {
		return nil, err
	}

	p := &parser{ann: a, lexemes: lexemes}
	key, ok := p.expect(token.IDENT)
	if !ok {
		return nil, p.fail(bareForms, "annotation must start with an identifier")
	}

	switch {
	case p.peek(token.ASSIGN):
		return p.bare(key)
	case p.peek(token.LPAREN):
		return p.nested(key)
	default:
		return nil, p.fail(bareForms, "missing '=' or '(' after "+strconv.Quote(key.lit))
	}
}

// bare parses `key = "literal"`.
func (p *parser) bare(key lexeme) (Directive, error) {
	p.next()
	val, err := p.stringLiteral(bareForms)
	if err != nil {
		return nil, err
	}
	if err := p.end(bareForms); err != nil {
		return nil, err
	}

	pos := p.position(key.off)
	switch key.lit {
	case FormatKey:
		if detail := checkFormat(val); detail != "" {
			return nil, p.fail(FormatKey+` = "..."`, detail)
		}
		return FormatOverride{Format: val, Pos: pos}, nil
	case EachKey:
		if detail := checkEachName(val); detail != "" {
			return nil, p.fail(EachKey+` = "..."`, detail)
		}
		return EachAccessor{Name: val, Pos: pos}, nil
	default:
		return nil, p.failAt(key.off, bareForms, "unknown key "+strconv.Quote(key.lit))
	}
}

// nested parses `builder(each = "literal")`.
func (p *parser) nested(call lexeme) (Directive, error) {
	if call.lit != BuilderCall {
		return nil, p.failAt(call.off, nestedForm, "unknown directive "+strconv.Quote(call.lit))
	}
	p.next()

	inner, ok := p.expect(token.IDENT)
	if !ok {
		return nil, p.fail(nestedForm, "argument must be an assignment")
	}
	if inner.lit != EachKey {
		return nil, p.failAt(inner.off, nestedForm, "inner key is "+strconv.Quote(inner.lit)+", want "+strconv.Quote(EachKey))
	}
	if _, ok := p.expect(token.ASSIGN); !ok {
		return nil, p.fail(nestedForm, "missing '=' after "+strconv.Quote(EachKey))
	}
	val, err := p.stringLiteral(nestedForm)
	if err != nil {
		return nil, err
	}
	if _, ok := p.expect(token.RPAREN); !ok {
		return nil, p.fail(nestedForm, "missing ')'")
	}
	if err := p.end(nestedForm); err != nil {
		return nil, err
	}
	if detail := checkEachName(val); detail != "" {
		return nil, p.fail(nestedForm, detail)
	}
	return EachAccessor{Name: val, Pos: p.position(call.off)}, nil
}

// checkEachName returns why name cannot be an accessor method, or "".
func checkEachName(name string) string {
	switch {
	case !token.IsIdentifier(name):
		return strconv.Quote(name) + " is not a valid identifier"
	case name == "_":
		return "the blank identifier cannot name an accessor"
	}
	return ""
}

// checkFormat returns why format cannot render exactly one field value, or "".
func checkFormat(format string) string {
	if format == "" {
		return "format string is empty"
	}
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		for i < len(format) && strings.IndexByte("+-# 0", format[i]) >= 0 {
			i++
		}
		for i < len(format) && isDigit(format[i]) {
			i++
		}
		if i < len(format) && format[i] == '.' {
			i++
			for i < len(format) && isDigit(format[i]) {
				i++
			}
		}
		if i == len(format) {
			return "format string " + strconv.Quote(format) + " ends inside a verb"
		}
		switch format[i] {
		case '%':
			continue
		case '*', '[':
			return "format string " + strconv.Quote(format) + " uses '*' or an argument index"
		}
		_, size := utf8.DecodeRuneInString(format[i:])
		i += size - 1
		n++
	}
	if n != 1 {
		return "format string " + strconv.Quote(format) + " must consume exactly one value, consumes " + strconv.Itoa(n)
	}
	return ""
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

type parser struct {
	ann     schema.Annotation
	lexemes []lexeme
	i       int
}

func (p *parser) cur() lexeme {
	if p.i < len(p.lexemes) {
		return p.lexemes[p.i]
	}
	return lexeme{tok: token.EOF, off: len(p.ann.Text)}
}

func (p *parser) next() { p.i++ }

func (p *parser) peek(tok token.Token) bool { return p.cur().tok == tok }

func (p *parser) expect(tok token.Token) (lexeme, bool) {
	l := p.cur()
	if l.tok != tok {
		return l, false
	}
	p.next()
	return l, true
}

func (p *parser) stringLiteral(expected string) (string, error) {
	l, ok := p.expect(token.STRING)
	if !ok {
		return "", p.fail(expected, "right-hand side must be a string literal")
	}
	val, err := strconv.Unquote(l.lit)
	if err != nil {
		return "", p.fail(expected, "malformed string literal "+l.lit)
	}
	return val, nil
}

func (p *parser) end(expected string) error {
	if !p.peek(token.EOF) {
		return p.fail(expected, "unexpected "+describe(p.cur()))
	}
	return nil
}

func (p *parser) fail(expected, detail string) error {
	return p.failAt(p.cur().off, expected, detail)
}

func (p *parser) failAt(off int, expected, detail string) error {
	return &SyntaxError{
		Annotation: p.ann.Text,
		Expected:   expected,
		Detail:     detail,
		Pos:        p.position(off),
	}
}

// position maps a byte offset within the annotation text onto the source.
func (p *parser) position(off int) token.Position {
	pos := p.ann.Pos
	if pos.IsValid() {
		pos.Offset += off
		pos.Column += off
	}
	return pos
}

func describe(l lexeme) string {
	if l.lit != "" {
		return strconv.Quote(l.lit)
	}
	return strconv.Quote(l.tok.String())
}

// scan tokenises the annotation with the Go scanner. The trailing automatic
// semicolon is dropped; an explicit one is kept so it fails as trailing input.
func scan(a schema.Annotation) ([]lexeme, error) {
	src := []byte(strings.TrimRight(a.Text, " \t"))

	fset := token.NewFileSet()
	file := fset.AddFile(a.Pos.Filename, -1, len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, src, func(pos token.Position, msg string) { errs.Add(pos, msg) }, 0)

	var out []lexeme
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		out = append(out, lexeme{tok: tok, lit: lit, off: file.Offset(pos)})
	}

	if len(errs) > 0 {
		first := errs[0]
		p := &parser{ann: a}
		return nil, &SyntaxError{
			Annotation: a.Text,
			Expected:   bareForms,
			Detail:     first.Msg,
			Pos:        p.position(first.Pos.Offset),
		}
	}
	return out, nil
}

func duplicateError(a schema.Annotation, key string, first token.Position) error {
	p := &parser{ann: a}
	detail := "duplicate " + strconv.Quote(key) + " directive"
	if first.IsValid() {
		detail += ", first declared at " + first.String()
	}
	return &SyntaxError{
		Annotation: a.Text,
		Expected:   "at most one " + strconv.Quote(key) + " directive per field",
		Detail:     detail,
		Pos:        p.position(0),
	}
}
