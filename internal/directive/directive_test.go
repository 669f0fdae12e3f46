package directive

import (
	"errors"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/oderive/internal/schema"
)

func ann(text string) schema.Annotation {
	return schema.Annotation{
		Text: text,
		Pos:  token.Position{Filename: "cmd.go", Offset: 100, Line: 9, Column: 11},
	}
}

//
// -----------------------------------------------------------------------------
// ParseOne: accepted forms
// -----------------------------------------------------------------------------

func TestParseOne_Accepted(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		want Directive
	}{
		{
			name: "format override",
			text: `debug = "%b"`,
			want: FormatOverride{Format: "%b", Pos: token.Position{Filename: "cmd.go", Offset: 100, Line: 9, Column: 11}},
		},
		{
			name: "format override raw string",
			text: "debug = `0x%08x`",
			want: FormatOverride{Format: "0x%08x", Pos: token.Position{Filename: "cmd.go", Offset: 100, Line: 9, Column: 11}},
		},
		{
			name: "nested each",
			text: `builder(each = "arg")`,
			want: EachAccessor{Name: "arg", Pos: token.Position{Filename: "cmd.go", Offset: 100, Line: 9, Column: 11}},
		},
		{
			name: "nested each with spacing",
			text: `  builder( each="env" )  `,
			want: EachAccessor{Name: "env", Pos: token.Position{Filename: "cmd.go", Offset: 102, Line: 9, Column: 13}},
		},
		{
			name: "format override with literal percent and precision",
			text: `debug = "%.2f%%"`,
			want: FormatOverride{Format: "%.2f%%", Pos: token.Position{Filename: "cmd.go", Offset: 100, Line: 9, Column: 11}},
		},
		{
			name: "bare each",
			text: `each = "item"`,
			want: EachAccessor{Name: "item", Pos: token.Position{Filename: "cmd.go", Offset: 100, Line: 9, Column: 11}},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOne(ann(tc.text))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

//
// -----------------------------------------------------------------------------
// ParseOne: syntax errors
// -----------------------------------------------------------------------------

func TestParseOne_SyntaxErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		text       string
		wantSubstr string
		wantColumn int
	}{
		{
			name:       "nested inner key must be each",
			text:       `builder(foo = "x")`,
			wantSubstr: `expected builder(each = "..."): inner key is "foo", want "each"`,
			wantColumn: 19,
		},
		{
			name:       "unknown nested call",
			text:       `serde(each = "x")`,
			wantSubstr: `unknown directive "serde"`,
			wantColumn: 11,
		},
		{
			name:       "unknown bare key",
			text:       `rename = "x"`,
			wantSubstr: `unknown key "rename"`,
			wantColumn: 11,
		},
		{
			name:       "non literal right-hand side",
			text:       `debug = fmtBinary`,
			wantSubstr: "right-hand side must be a string literal",
			wantColumn: 19,
		},
		{
			name:       "non identifier left-hand side",
			text:       `"debug" = "%b"`,
			wantSubstr: "annotation must start with an identifier",
			wantColumn: 11,
		},
		{
			name:       "nested argument not an assignment",
			text:       `builder("arg")`,
			wantSubstr: "argument must be an assignment",
		},
		{
			name:       "nested missing assign",
			text:       `builder(each "arg")`,
			wantSubstr: `missing '=' after "each"`,
		},
		{
			name:       "nested missing close paren",
			text:       `builder(each = "arg"`,
			wantSubstr: "missing ')'",
		},
		{
			name:       "nested trailing tokens",
			text:       `builder(each = "arg"), debug`,
			wantSubstr: `unexpected ","`,
		},
		{
			name:       "bare trailing tokens",
			text:       `debug = "%b" "%x"`,
			wantSubstr: `unexpected "\"%x\""`,
		},
		{
			name:       "neither assign nor call",
			text:       `debug`,
			wantSubstr: `missing '=' or '(' after "debug"`,
		},
		{
			name:       "empty annotation",
			text:       ``,
			wantSubstr: "annotation must start with an identifier",
		},
		{
			name:       "empty format",
			text:       `debug = ""`,
			wantSubstr: "format string is empty",
		},
		{
			name:       "each name must be identifier",
			text:       `builder(each = "two words")`,
			wantSubstr: `"two words" is not a valid identifier`,
		},
		{
			name:       "bare each name must be identifier",
			text:       `each = "1st"`,
			wantSubstr: `"1st" is not a valid identifier`,
		},
		{
			name:       "format without a verb",
			text:       `debug = "hello"`,
			wantSubstr: `format string "hello" must consume exactly one value, consumes 0`,
		},
		{
			name:       "format with only a literal percent",
			text:       `debug = "100%%"`,
			wantSubstr: "consumes 0",
		},
		{
			name:       "format with two verbs",
			text:       `debug = "%v %v"`,
			wantSubstr: `format string "%v %v" must consume exactly one value, consumes 2`,
		},
		{
			name:       "format ending inside a verb",
			text:       `debug = "%5"`,
			wantSubstr: "ends inside a verb",
		},
		{
			name:       "format with star width",
			text:       `debug = "%*d"`,
			wantSubstr: "uses '*' or an argument index",
		},
		{
			name:       "format with argument index",
			text:       `debug = "%[1]d"`,
			wantSubstr: "uses '*' or an argument index",
		},
		{
			name:       "nested each blank identifier",
			text:       `builder(each = "_")`,
			wantSubstr: "the blank identifier cannot name an accessor",
		},
		{
			name:       "bare each blank identifier",
			text:       `each = "_"`,
			wantSubstr: "the blank identifier cannot name an accessor",
		},
		{
			name:       "scanner error",
			text:       `debug = "unterminated`,
			wantSubstr: "string literal not terminated",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOne(ann(tc.text))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Contains(t, err.Error(), tc.wantSubstr)
			assert.True(t, errors.Is(err, ErrSyntax))

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tc.text, syntaxErr.Annotation)
			assert.Equal(t, "cmd.go", syntaxErr.Pos.Filename)
			assert.Equal(t, 9, syntaxErr.Pos.Line)
			if tc.wantColumn != 0 {
				assert.Equal(t, tc.wantColumn, syntaxErr.Pos.Column)
			}
		})
	}
}

// TestSyntaxError_WithoutPosition verifies the message omits the location prefix when none is known.
func TestSyntaxError_WithoutPosition(t *testing.T) {
	t.Parallel()

	_, err := ParseOne(schema.Annotation{Text: `builder(foo = "x")`})
	require.EqualError(t, err, `directive: expected builder(each = "..."): inner key is "foo", want "each"`)
}

//
// -----------------------------------------------------------------------------
// Parse
// -----------------------------------------------------------------------------

func TestParse_CollectsBothTags(t *testing.T) {
	t.Parallel()

	set, err := Parse([]schema.Annotation{ann(`builder(each = "arg")`), ann(`debug = "%q"`)})
	require.NoError(t, err)
	require.NotNil(t, set.Each)
	require.NotNil(t, set.Format)
	assert.Equal(t, "arg", set.Each.Name)
	assert.Equal(t, "%q", set.Format.Format)
	assert.False(t, set.Empty())
}

func TestParse_NoAnnotations(t *testing.T) {
	t.Parallel()

	set, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestParse_RejectsDuplicateTags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		anns []schema.Annotation
		want string
	}{
		{
			name: "duplicate format",
			anns: []schema.Annotation{ann(`debug = "%b"`), ann(`debug = "%x"`)},
			want: `duplicate "debug" directive, first declared at cmd.go:9:11`,
		},
		{
			name: "duplicate each across forms",
			anns: []schema.Annotation{ann(`builder(each = "a")`), ann(`each = "b"`)},
			want: `duplicate "each" directive`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			set, err := Parse(tc.anns)
			require.Error(t, err)
			assert.True(t, set.Empty())
			assert.Contains(t, err.Error(), tc.want)
			assert.True(t, errors.Is(err, ErrSyntax))
		})
	}
}

func TestParse_StopsAtFirstMalformed(t *testing.T) {
	t.Parallel()

	_, err := Parse([]schema.Annotation{ann(`debug = "%b"`), ann(`builder(foo = "x")`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `want "each"`)
}
