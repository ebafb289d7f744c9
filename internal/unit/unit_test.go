package unit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/graph"
	"github.com/vk/graphunit/internal/node"
	"github.com/vk/graphunit/internal/numeric"
	"github.com/vk/graphunit/internal/script"
	"github.com/vk/graphunit/internal/source"
	"github.com/zclconf/go-cty/cty"
)

func vec(vs ...int64) cty.Value {
	out := make([]cty.Value, len(vs))
	for i, v := range vs {
		out[i] = cty.NumberIntVal(v)
	}
	return cty.ListVal(out)
}

func assertValue(t *testing.T, want, got cty.Value) {
	t.Helper()
	assert.True(t, want.Equals(got).True(), "want %#v, got %#v", want, got)
}

// linearModule is a container whose method applies its weight and optional
// bias to the input.
func linearModule(t *testing.T, weight cty.Value) (*container.Container, *container.Param) {
	t.Helper()
	w := container.NewParam(weight)
	c := container.New("linear")
	require.NoError(t, c.Set("weight", w))
	c.SetMethod(container.MethodFunc(func(_ context.Context, self *container.Container, args []cty.Value) (cty.Value, error) {
		p, _ := self.Param("weight")
		return numeric.Linear(args[0], p.Value(), cty.NullVal(cty.DynamicPseudoType))
	}))
	return c, w
}

// callGraph is x -> call_module target -> output.
func callGraph(t *testing.T, target string) *graph.Manager {
	t.Helper()
	g := graph.New()
	x, err := g.Placeholder("x")
	require.NoError(t, err)
	r, err := g.Create("r", node.CallModule, target, node.Ref(x))
	require.NoError(t, err)
	_, err = g.Output(node.Ref(r))
	require.NoError(t, err)
	return g
}

func TestNew_LinearScenario(t *testing.T) {
	ctx := context.Background()
	reg := source.New()

	lin, w := linearModule(t, cty.ListVal([]cty.Value{vec(1, 0), vec(0, 2)}))
	template := container.New("model")
	require.NoError(t, template.Set("linear", lin))

	u, err := New(ctx, template, callGraph(t, "linear"), WithRegistry(reg))
	require.NoError(t, err)

	assert.Equal(t, "def forward(self, x):\n    r = self::linear(x)\n    return r\n", u.Code())

	got, err := u.Container().Lookup("linear.weight")
	require.NoError(t, err)
	assert.Same(t, w, got)

	lines, err := reg.Resolve(u.SourceKey())
	require.NoError(t, err)
	assert.Equal(t, []string{"def forward(self, x):\n", "    r = self::linear(x)\n", "    return r\n"}, lines)

	out, err := u.Forward(ctx, vec(3, 4))
	require.NoError(t, err)
	assertValue(t, vec(3, 8), out)
}

func TestNew_InvalidPath(t *testing.T) {
	ctx := context.Background()
	template := container.New("model")
	require.NoError(t, template.Set("scale", container.NewParam(cty.NumberIntVal(1))))

	testCases := []struct {
		name   string
		target string
	}{
		{name: "missing", target: "missing"},
		{name: "missing prefix", target: "enc.fc"},
		{name: "through param", target: "scale.value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := graph.New()
			p, err := g.GetParam(tc.target)
			require.NoError(t, err)
			_, err = g.Output(node.Ref(p))
			require.NoError(t, err)

			u, err := New(ctx, template, g, WithRegistry(source.New()))
			require.Error(t, err)
			assert.Nil(t, u)
			assert.True(t, errors.Is(err, container.ErrInvalidPath))
		})
	}
}

func TestNew_CopiesTrainingAndKind(t *testing.T) {
	ctx := context.Background()
	template := container.New("classifier")
	template.SetMode(false)

	g := graph.New()
	_, err := g.Output(node.Const(cty.NumberIntVal(1)))
	require.NoError(t, err)

	u, err := New(ctx, template, g, WithRegistry(source.New()))
	require.NoError(t, err)
	assert.False(t, u.Training())
	assert.Equal(t, "classifier", u.Container().Kind())
	assert.NotEqual(t, [16]byte{}, [16]byte(u.ID()))

	u.Train(true)
	assert.True(t, u.Training())
	assert.False(t, template.Training())
}

func TestUnit_PerInstanceIsolation(t *testing.T) {
	ctx := context.Background()
	reg := source.New()

	template := container.New("model")
	require.NoError(t, template.Set("scale", container.NewParam(cty.NumberIntVal(10))))

	double := func() *graph.Manager {
		g := graph.New()
		x, _ := g.Placeholder("x")
		y, _ := g.CallFunction("mul", node.Ref(x), node.Const(cty.NumberIntVal(2)))
		_, _ = g.Output(node.Ref(y))
		return g
	}

	u1, err := New(ctx, template, double(), WithRegistry(reg))
	require.NoError(t, err)
	u2, err := New(ctx, template, double(), WithRegistry(reg))
	require.NoError(t, err)
	assert.NotEqual(t, u1.SourceKey(), u2.SourceKey())
	assert.Equal(t, u1.Code(), u2.Code())

	scaled := graph.New()
	x, err := scaled.Placeholder("x")
	require.NoError(t, err)
	s, err := scaled.GetParam("scale")
	require.NoError(t, err)
	y, err := scaled.CallFunction("mul", node.Ref(x), node.Ref(s))
	require.NoError(t, err)
	_, err = scaled.Output(node.Ref(y))
	require.NoError(t, err)

	// u1 has no "scale" slot, so the new graph cannot be installed on it.
	err = u1.SetGraph(ctx, scaled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, container.ErrInvalidPath))

	require.NoError(t, u1.Container().Set("scale", container.NewParam(cty.NumberIntVal(10))))
	prevKey := u1.SourceKey()
	require.NoError(t, u1.SetGraph(ctx, scaled))
	assert.NotEqual(t, prevKey, u1.SourceKey())
	assert.Same(t, scaled, u1.Graph())

	out1, err := u1.Forward(ctx, cty.NumberIntVal(3))
	require.NoError(t, err)
	out2, err := u2.Forward(ctx, cty.NumberIntVal(3))
	require.NoError(t, err)
	assertValue(t, cty.NumberIntVal(30), out1)
	assertValue(t, cty.NumberIntVal(6), out2)
	assert.NotSame(t, u1.Method(), u2.Method())
}

func TestUnit_SharedSubtreeTransplantedOnce(t *testing.T) {
	ctx := context.Background()

	lin, w := linearModule(t, cty.ListVal([]cty.Value{vec(1, 1)}))
	block := container.New("block")
	require.NoError(t, block.Set("fc", lin))
	template := container.New("model")
	require.NoError(t, template.Set("block", block))

	g := graph.New()
	x, err := g.Placeholder("x")
	require.NoError(t, err)
	_, err = g.GetParam("block.fc.weight")
	require.NoError(t, err)
	h, err := g.CallModule("block.fc", node.Ref(x))
	require.NoError(t, err)
	_, err = g.Output(node.Ref(h))
	require.NoError(t, err)

	u, err := New(ctx, template, g, WithRegistry(source.New()))
	require.NoError(t, err)

	fc, err := u.Container().Lookup("block.fc")
	require.NoError(t, err)
	assert.Same(t, lin, fc)
	got, err := u.Container().Lookup("block.fc.weight")
	require.NoError(t, err)
	assert.Same(t, w, got)

	out, err := u.Forward(ctx, vec(2, 5))
	require.NoError(t, err)
	assertValue(t, vec(7), out)
}

func TestUnit_RecompileKeepsBehaviour(t *testing.T) {
	ctx := context.Background()
	reg := source.New()
	lin, _ := linearModule(t, cty.ListVal([]cty.Value{vec(2)}))
	template := container.New("model")
	require.NoError(t, template.Set("linear", lin))

	u, err := New(ctx, template, callGraph(t, "linear"), WithRegistry(reg))
	require.NoError(t, err)
	code, key := u.Code(), u.SourceKey()

	require.NoError(t, u.Recompile(ctx))
	assert.Equal(t, code, u.Code())
	assert.NotEqual(t, key, u.SourceKey())
	assert.True(t, reg.Owns(key))

	u.Close()
	assert.False(t, reg.Owns(key))
	assert.False(t, reg.Owns(u.SourceKey()))

	out, err := u.Forward(ctx, vec(4))
	require.NoError(t, err)
	assertValue(t, vec(8), out)
}

func TestUnit_CustomNamespace(t *testing.T) {
	ctx := context.Background()
	ns := script.NewNamespace(nil, map[string]cty.Value{"offset": cty.NumberIntVal(100)})

	g := graph.New()
	x, err := g.Placeholder("x")
	require.NoError(t, err)
	_, err = g.Output(node.Ref(x))
	require.NoError(t, err)

	u, err := New(ctx, container.New("m"), g, WithRegistry(source.New()), WithNamespace(ns))
	require.NoError(t, err)
	assert.Same(t, ns, u.Namespace())

	out, err := u.Forward(ctx, cty.NumberIntVal(1))
	require.NoError(t, err)
	assertValue(t, cty.NumberIntVal(1), out)
}

func TestUnit_UnknownFunctionSurfacesAtCall(t *testing.T) {
	ctx := context.Background()
	g := graph.New()
	x, err := g.Placeholder("x")
	require.NoError(t, err)
	y, err := g.CallFunction("nosuch", node.Ref(x))
	require.NoError(t, err)
	_, err = g.Output(node.Ref(y))
	require.NoError(t, err)

	u, err := New(ctx, container.New("m"), g, WithRegistry(source.New()))
	require.NoError(t, err)

	_, err = u.Forward(ctx, cty.NumberIntVal(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, script.ErrExec))
}

func TestUnit_ConcurrentForward(t *testing.T) {
	ctx := context.Background()
	lin, _ := linearModule(t, cty.ListVal([]cty.Value{vec(1, 2)}))
	template := container.New("model")
	require.NoError(t, template.Set("linear", lin))

	u, err := New(ctx, template, callGraph(t, "linear"), WithRegistry(source.New()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := u.Forward(ctx, vec(1, 1))
			assert.NoError(t, err)
			assertValue(t, vec(3), out)
		}()
	}
	wg.Wait()
}

func TestUnit_KeywordSlotNames(t *testing.T) {
	ctx := context.Background()
	template := container.New("m")
	require.NoError(t, template.Set("null", container.NewParam(cty.NumberIntVal(1))))

	g := graph.New()
	x, err := g.Placeholder("x")
	require.NoError(t, err)
	p, err := g.GetParam("null")
	require.NoError(t, err)
	y, err := g.CallFunction("add", node.Ref(x), node.Ref(p))
	require.NoError(t, err)
	_, err = g.Output(node.Ref(y))
	require.NoError(t, err)

	u, err := New(ctx, template, g, WithRegistry(source.New()))
	require.NoError(t, err)
	assert.Equal(t, "def forward(self, x):\n    null_1 = self.null\n    add = add(x, null_1)\n    return add\n", u.Code())

	out, err := u.Forward(ctx, cty.NumberIntVal(41))
	require.NoError(t, err)
	assertValue(t, cty.NumberIntVal(42), out)
}

func TestUnit_NaNResult(t *testing.T) {
	ctx := context.Background()
	g := graph.New()
	x, err := g.Placeholder("x")
	require.NoError(t, err)
	y, err := g.CallFunction("div", node.Ref(x), node.Ref(x))
	require.NoError(t, err)
	_, err = g.Output(node.Ref(y))
	require.NoError(t, err)

	u, err := New(ctx, container.New("m"), g, WithRegistry(source.New()))
	require.NoError(t, err)

	_, err = u.Forward(ctx, cty.NumberIntVal(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, script.ErrExec))
	assert.Contains(t, err.Error(), numeric.ErrNaN.Error())
	assert.NotContains(t, err.Error(), "goroutine")
}
