package script

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/source"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

func testNamespace() *Namespace {
	return NewNamespace(map[string]function.Function{
		"max": stdlib.MaxFunc,
		"abs": stdlib.AbsoluteFunc,
	}, nil)
}

func TestCompile_Valid(t *testing.T) {
	src := "def forward(self, x, y):\n    # comment\n    s = x + y\n\n    return s * 2\n"
	prog, err := Compile("<generated:0>", src)
	require.NoError(t, err)
	require.Len(t, prog.Funcs, 1)

	def := prog.Funcs[0]
	assert.Equal(t, "forward", def.Name)
	assert.Equal(t, []string{"self", "x", "y"}, def.Params)
	assert.Equal(t, []string{"x", "y"}, def.FreeParams())
	require.Len(t, def.Stmts, 1)
	assert.Equal(t, "s", def.Stmts[0].Target)
	assert.Equal(t, "<generated:0>", def.Stmts[0].Range.Filename)
	assert.Equal(t, 3, def.Stmts[0].Range.Start.Line)
	assert.Equal(t, 5, def.Result.Range().Start.Line)
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "missing return", src: "def forward(self):\n    a = 1\n"},
		{name: "bare return", src: "def forward(self):\n    return\n"},
		{name: "no self", src: "def forward(x):\n    return x\n"},
		{name: "duplicate param", src: "def forward(self, x, x):\n    return x\n"},
		{name: "bad header", src: "forward(self):\n    return 1\n"},
		{name: "stray indent", src: "    a = 1\n"},
		{name: "after return", src: "def forward(self):\n    return 1\n    a = 2\n"},
		{name: "bad expression", src: "def forward(self):\n    return 1 +\n"},
		{name: "self assignment", src: "def forward(self):\n    self = 1\n    return 1\n"},
		{name: "comparison not assignment", src: "def forward(self, x):\n    x == 1\n    return x\n"},
		{name: "duplicate function", src: "def f(self):\n    return 1\ndef f(self):\n    return 2\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile("<generated:1>", tc.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCompile))

			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "<generated:1>", ce.Key)
			assert.True(t, ce.Diags.HasErrors())
		})
	}
}

func TestBind_RegistersBeforeCompiling(t *testing.T) {
	reg := source.New()
	_, err := Bind(context.Background(), reg, "def forward(self):\n    return )\n", testNamespace())
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, reg.Owns(ce.Key))
}

func TestBind_MissingEntryPoint(t *testing.T) {
	reg := source.New()
	_, err := Bind(context.Background(), reg, "def helper(self):\n    return 1\n", testNamespace())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBind))

	var be *BindError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, EntryPoint, be.Symbol)
}

func TestBind_ChildNamespaceIsolated(t *testing.T) {
	ns := testNamespace()
	fn, err := Bind(context.Background(), source.New(), "def forward(self):\n    return 1\n", ns)
	require.NoError(t, err)

	assert.Empty(t, ns.Defined())
	assert.Equal(t, []string{"forward"}, fn.Namespace().Defined())
	assert.True(t, fn.Namespace().HasFunction("max"))
}

func TestFunc_CallUsesLibraryAndParams(t *testing.T) {
	ctx := context.Background()
	root := container.New("root")
	require.NoError(t, root.Set("scale", container.NewParam(cty.NumberIntVal(3))))

	fn, err := Bind(ctx, source.New(), "def forward(self, x):\n    m = max(abs(x), 1)\n    return m * self.scale\n", testNamespace())
	require.NoError(t, err)

	out, err := fn.Call(ctx, root, []cty.Value{cty.NumberIntVal(-4)})
	require.NoError(t, err)
	assert.True(t, out.Equals(cty.NumberIntVal(12)).True(), "got %#v", out)
}

func TestFunc_CallNestedModules(t *testing.T) {
	ctx := context.Background()

	inner := container.New("double")
	inner.SetMethod(container.MethodFunc(func(_ context.Context, _ *container.Container, args []cty.Value) (cty.Value, error) {
		return args[0].Multiply(cty.NumberIntVal(2)), nil
	}))
	block := container.New("block")
	require.NoError(t, block.Set("inner", inner))
	root := container.New("root")
	require.NoError(t, root.Set("block", block))
	require.NoError(t, root.Set("alias", inner))

	fn, err := Bind(ctx, source.New(), "def forward(self, x):\n    a = self::block::inner(x)\n    return self::alias(a)\n", testNamespace())
	require.NoError(t, err)

	out, err := fn.Call(ctx, root, []cty.Value{cty.NumberIntVal(5)})
	require.NoError(t, err)
	assert.True(t, out.Equals(cty.NumberIntVal(20)).True(), "got %#v", out)
}

func TestFunc_CallArityMismatch(t *testing.T) {
	ctx := context.Background()
	fn, err := Bind(ctx, source.New(), "def forward(self, x):\n    return x\n", testNamespace())
	require.NoError(t, err)

	_, err = fn.Call(ctx, container.New("root"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExec))
}

func TestFunc_CallUnknownFunction(t *testing.T) {
	ctx := context.Background()
	reg := source.New()
	fn, err := Bind(ctx, reg, "def forward(self, x):\n    y = boom(x)\n    return y\n", testNamespace())
	require.NoError(t, err)

	_, err = fn.Call(ctx, container.New("root"), []cty.Value{cty.NumberIntVal(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExec))

	var ee *ExecError
	require.True(t, errors.As(err, &ee))
	require.NotEmpty(t, ee.Diags)
	assert.Equal(t, fn.Key(), ee.Diags[0].Subject.Filename)
	assert.Equal(t, 2, ee.Diags[0].Subject.Start.Line)
}

func TestFunc_InstalledAsMethod(t *testing.T) {
	ctx := context.Background()
	fn, err := Bind(ctx, source.New(), "def forward(self, x):\n    return x + 1\n", testNamespace())
	require.NoError(t, err)

	c := container.New("root")
	c.SetMethod(fn)
	out, err := c.Call(ctx, cty.NumberIntVal(1))
	require.NoError(t, err)
	assert.True(t, out.Equals(cty.NumberIntVal(2)).True())
}
