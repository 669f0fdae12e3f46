package generate

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sghaida/oderive/internal/bounds"
	"github.com/sghaida/oderive/internal/builder"
	"github.com/sghaida/oderive/internal/directive"
	"github.com/sghaida/oderive/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fieldDef struct {
	name string
	typ  string
	anns []string
}

func record(t *testing.T, name string, derive []schema.Protocol, fields ...fieldDef) *schema.TypeDescriptor {
	t.Helper()
	td := &schema.TypeDescriptor{Package: "p", Name: name, Kind: schema.KindStruct, Derive: derive}
	for _, f := range fields {
		e, err := parser.ParseExpr(f.typ)
		require.NoError(t, err)
		fd := schema.FieldDescriptor{Name: f.name, Type: e}
		for _, a := range f.anns {
			fd.Annotations = append(fd.Annotations, schema.Annotation{Text: a})
		}
		td.Fields = append(td.Fields, fd)
	}
	return td
}

func withParams(t *testing.T, td *schema.TypeDescriptor, params ...[2]string) *schema.TypeDescriptor {
	t.Helper()
	for _, p := range params {
		gp := schema.GenericParam{Name: p[0]}
		if p[1] != "" {
			e, err := parser.ParseExpr(p[1])
			require.NoError(t, err)
			gp.Constraint = e
		}
		td.Params = append(td.Params, gp)
	}
	return td
}

var both = []schema.Protocol{schema.Builder, schema.Debug}

func commandRecord(t *testing.T) *schema.TypeDescriptor {
	t.Helper()
	return record(t, "Command", both,
		fieldDef{name: "executable", typ: "string"},
		fieldDef{name: "args", typ: "[]string", anns: []string{`builder(each = "arg")`}},
		fieldDef{name: "env", typ: "[]string", anns: []string{`builder(each = "env")`}},
		fieldDef{name: "currentDir", typ: "*string"},
	)
}

//
// -----------------------------------------------------------------------------
// Generate
// -----------------------------------------------------------------------------

// TestGenerate_BothProtocols verifies a record requesting both protocols gets both fragments.
func TestGenerate_BothProtocols(t *testing.T) {
	t.Parallel()

	frag, err := Generate(commandRecord(t), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Command", frag.Record)
	assert.False(t, frag.Empty())
	assert.Contains(t, frag.Builder, "type CommandBuilder struct {")
	assert.Contains(t, frag.Builder, "func (b *CommandBuilder) MustBuild() Command {")
	assert.Contains(t, frag.Debug, "func (r Command) Format(f fmt.State, verb rune) {")
	assert.Empty(t, frag.Bounds)
	assert.Empty(t, frag.Unsatisfied)
	assert.Len(t, frag.Methods, 7)
}

// TestGenerate_SingleProtocol verifies protocols are independent.
func TestGenerate_SingleProtocol(t *testing.T) {
	t.Parallel()

	td := record(t, "Point", []schema.Protocol{schema.Debug},
		fieldDef{name: "x", typ: "int"},
		fieldDef{name: "y", typ: "int", anns: []string{`debug = "%b"`}},
	)
	frag, err := Generate(td, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, frag.Builder)
	assert.Empty(t, frag.Methods)
	assert.Contains(t, frag.Debug, `FieldFormat("y", "%b", r.y)`)

	td.Derive = []schema.Protocol{schema.Builder}
	frag, err = Generate(td, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, frag.Debug)
	assert.NotEmpty(t, frag.Builder)

	td.Derive = nil
	frag, err = Generate(td, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, frag.Empty())
}

// TestGenerate_UnsupportedShape verifies non-struct records fail before any synthesis.
func TestGenerate_UnsupportedShape(t *testing.T) {
	t.Parallel()

	td := record(t, "Shape", both)
	td.Kind = schema.KindUnion

	frag, err := Generate(td, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnsupportedShape))
	assert.True(t, frag.Empty())
}

// TestGenerate_DirectiveErrorNamesField verifies directive errors are wrapped with record and field.
func TestGenerate_DirectiveErrorNamesField(t *testing.T) {
	t.Parallel()

	td := record(t, "Command", both,
		fieldDef{name: "args", typ: "[]string", anns: []string{`builder(foo = "arg")`}},
	)
	_, err := Generate(td, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, directive.ErrSyntax))
	assert.Contains(t, err.Error(), "generate Command.args: directive: ")
	assert.Contains(t, err.Error(), `builder(each = "...")`)
}

// TestGenerate_EachOnScalar verifies the builder's shape error surfaces.
func TestGenerate_EachOnScalar(t *testing.T) {
	t.Parallel()

	td := record(t, "Command", both,
		fieldDef{name: "name", typ: "string", anns: []string{`each = "n"`}},
	)
	_, err := Generate(td, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, builder.ErrShape))
}

// TestGenerate_Conflicts verifies colliding generated names are rejected.
func TestGenerate_Conflicts(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		td     func(t *testing.T) *schema.TypeDescriptor
		want   ConflictError
		substr string
	}{
		{
			name: "fields exporting to the same setter",
			td: func(t *testing.T) *schema.TypeDescriptor {
				return record(t, "Point", both, fieldDef{name: "x", typ: "int"}, fieldDef{name: "X", typ: "int"})
			},
			want:   ConflictError{Record: "Point", Method: "X", First: "x", Second: "X"},
			substr: `generate: Point method "X" would be generated for field "x" and field "X"`,
		},
		{
			name: "field named build",
			td: func(t *testing.T) *schema.TypeDescriptor {
				return record(t, "Job", both, fieldDef{name: "build", typ: "int"})
			},
			want:   ConflictError{Record: "Job", Method: "Build", First: "build"},
			substr: "the generated type itself",
		},
		{
			name: "each name colliding with another setter",
			td: func(t *testing.T) *schema.TypeDescriptor {
				return record(t, "Command", both,
					fieldDef{name: "args", typ: "[]string", anns: []string{`each = "env"`}},
					fieldDef{name: "env", typ: "string"},
				)
			},
			want: ConflictError{Record: "Command", Method: "Env", First: "args", Second: "env"},
		},
		{
			name: "field named Format on a debug record",
			td: func(t *testing.T) *schema.TypeDescriptor {
				return record(t, "Doc", []schema.Protocol{schema.Debug}, fieldDef{name: "Format", typ: "string"})
			},
			want: ConflictError{Record: "Doc", Method: "Format", First: "Format"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Generate(tc.td(t), DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConflict))

			var conflict *ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tc.want, *conflict)
			if tc.substr != "" {
				assert.Contains(t, err.Error(), tc.substr)
			}
		})
	}
}

// TestGenerate_MustBuildDisabled verifies a field named MustBuild is fine when MustBuild is not emitted.
func TestGenerate_MustBuildDisabled(t *testing.T) {
	t.Parallel()

	td := record(t, "Job", []schema.Protocol{schema.Builder}, fieldDef{name: "mustBuild", typ: "bool"})

	_, err := Generate(td, DefaultOptions())
	require.True(t, errors.Is(err, ErrConflict))

	opts := DefaultOptions()
	opts.Builder.MustBuild = false
	frag, err := Generate(td, opts)
	require.NoError(t, err)
	assert.Contains(t, frag.Builder, "func (b *JobBuilder) MustBuild(v bool) *JobBuilder {")
}

//
// -----------------------------------------------------------------------------
// Type parameter names
// -----------------------------------------------------------------------------

// TestGenerate_TypeParamsNamedLikeLocals verifies receivers and arguments are
// renamed around type parameters that share their names.
func TestGenerate_TypeParamsNamedLikeLocals(t *testing.T) {
	t.Parallel()

	td := withParams(t,
		record(t, "R", both, fieldDef{name: "x", typ: "v"}, fieldDef{name: "y", typ: "*b"}),
		[2]string{"v", ""}, [2]string{"v_", ""}, [2]string{"b", ""}, [2]string{"r", ""},
		[2]string{"err", ""}, [2]string{"f", ""}, [2]string{"verb", ""},
	)
	frag, err := Generate(td, DefaultOptions())
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "r.go", "package p\n"+frag.Builder+frag.Debug, 0)
	require.NoError(t, err)

	const bt = "RBuilder[v, v_, b, r, err, f, verb]"
	assert.Contains(t, frag.Builder, "func (b_ *"+bt+") X(v__ v) *"+bt+" {")
	assert.Contains(t, frag.Builder, "b_.x.Set(v__)")
	assert.Contains(t, frag.Builder, "y: b_.y.Ptr(),")
	assert.Contains(t, frag.Builder, "r_, err_ := b_.Build()")
	assert.Contains(t, frag.Builder, "panic(err_)")
	assert.Contains(t, frag.Debug, "func (r_ R[v, v_, b, r, err, f, verb]) Format(f_ fmt.State, verb_ rune) {")
	assert.Contains(t, frag.Debug, "derive.DebugStruct(f_, verb_, \"R\").")
	assert.Contains(t, frag.Debug, `Field("x", r_.x).`)
}

// TestGenerate_ShadowedIdentifiers verifies type parameters that would hide a
// name the generated code refers to are rejected.
func TestGenerate_ShadowedIdentifiers(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"derive", "fmt", "error", "nil", "panic", "rune", "Box", "BoxBuilder"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			td := withParams(t, record(t, "Box", both, fieldDef{name: "v", typ: "int"}), [2]string{name, ""})
			frag, err := Generate(td, DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShadow))
			assert.EqualError(t, err, `generate: Box type parameter "`+name+`" hides an identifier the generated code uses`)
			assert.True(t, frag.Empty())
		})
	}

	// The builder type name only matters when a builder is generated.
	td := withParams(t, record(t, "Box", []schema.Protocol{schema.Debug}, fieldDef{name: "v", typ: "int"}), [2]string{"BoxBuilder", ""})
	_, err := Generate(td, DefaultOptions())
	require.NoError(t, err)
}

//
// -----------------------------------------------------------------------------
// Bounds
// -----------------------------------------------------------------------------

// TestGenerate_Bounds verifies inferred bounds, the audit and the strict switch.
func TestGenerate_Bounds(t *testing.T) {
	t.Parallel()

	pair := func(t *testing.T) *schema.TypeDescriptor {
		return withParams(t,
			record(t, "Pair", both, fieldDef{name: "key", typ: "K"}, fieldDef{name: "value", typ: "[]V"}),
			[2]string{"K", "comparable"}, [2]string{"V", "fmt.Formatter"},
		)
	}

	// The default bound holds for every constraint, even under strict audits.
	opts := DefaultOptions()
	opts.StrictBounds = true
	frag, err := Generate(pair(t), opts)
	require.NoError(t, err)
	assert.Equal(t, []bounds.Bound{{Param: "K", Constraint: "any"}, {Param: "V", Constraint: "any"}}, frag.Bounds)
	assert.Empty(t, frag.Unsatisfied)
	assert.Contains(t, frag.Debug, "// Bounds: K: any, V: any")

	opts = DefaultOptions()
	opts.Bound = "fmt.Formatter"
	frag, err = Generate(pair(t), opts)
	require.NoError(t, err)

	want := []bounds.Bound{{Param: "K", Constraint: "fmt.Formatter"}, {Param: "V", Constraint: "fmt.Formatter"}}
	if diff := cmp.Diff(want, frag.Bounds); diff != "" {
		t.Fatalf("bounds mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, frag.Unsatisfied, 1)
	assert.Equal(t, "K", frag.Unsatisfied[0].Param)
	assert.Contains(t, frag.Debug, "// Bounds: K: fmt.Formatter, V: fmt.Formatter")

	opts.StrictBounds = true
	_, err = Generate(pair(t), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bounds.ErrUnsatisfiedBound))
	assert.Contains(t, err.Error(), "generate Pair: bounds: ")
}

// TestGenerate_PhantomParameter pins that a parameter used only through an unrecognized wrapper is not bounded.
func TestGenerate_PhantomParameter(t *testing.T) {
	t.Parallel()

	td := withParams(t,
		record(t, "Tagged", both, fieldDef{name: "id", typ: "string"}, fieldDef{name: "tag", typ: "Marker[T]"}),
		[2]string{"T", ""},
	)

	opts := DefaultOptions()
	opts.Bound = "fmt.Formatter"
	opts.StrictBounds = true
	frag, err := Generate(td, opts)
	require.NoError(t, err)
	assert.Empty(t, frag.Bounds)
	assert.NotContains(t, frag.Debug, "Bounds:")

	opts.Wrappers = []string{"Marker"}
	frag, err = Generate(td, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bounds.ErrUnsatisfiedBound))

	opts.StrictBounds = false
	frag, err = Generate(td, opts)
	require.NoError(t, err)
	assert.Equal(t, []bounds.Bound{{Param: "T", Constraint: "fmt.Formatter"}}, frag.Bounds)
}

//
// -----------------------------------------------------------------------------
// All
// -----------------------------------------------------------------------------

// TestAll_PreservesOrder verifies concurrent generation returns fragments in input order.
func TestAll_PreservesOrder(t *testing.T) {
	t.Parallel()

	var tds []*schema.TypeDescriptor
	names := []string{"A", "B", "C", "D", "E", "F"}
	for _, n := range names {
		tds = append(tds, record(t, n, both, fieldDef{name: "v", typ: "int"}))
	}

	frags, err := All(context.Background(), tds, DefaultOptions(), 2)
	require.NoError(t, err)
	require.Len(t, frags, len(names))
	for i, n := range names {
		assert.Equal(t, n, frags[i].Record)
	}

	frags, err = All(context.Background(), tds, DefaultOptions(), 0)
	require.NoError(t, err)
	assert.Len(t, frags, len(names))
}

// TestAll_FirstErrorWins verifies a failing record fails the whole batch.
func TestAll_FirstErrorWins(t *testing.T) {
	t.Parallel()

	bad := record(t, "Bad", both)
	bad.Kind = schema.KindOther
	tds := []*schema.TypeDescriptor{record(t, "Good", both, fieldDef{name: "v", typ: "int"}), bad}

	frags, err := All(context.Background(), tds, DefaultOptions(), 1)
	require.Error(t, err)
	assert.Nil(t, frags)
	assert.True(t, errors.Is(err, schema.ErrUnsupportedShape))
}

// TestAll_CanceledContext verifies no work starts once the context is done.
func TestAll_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := All(ctx, []*schema.TypeDescriptor{commandRecord(t)}, DefaultOptions(), 1)
	require.ErrorIs(t, err, context.Canceled)
}
