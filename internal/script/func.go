package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// SelfName is the name the bound container is reachable under.
const SelfName = "self"

// Func is a compiled function bound to the namespace it was executed in. It
// implements container.Method.
type Func struct {
	def    *FuncDef
	key    string
	source string
	ns     *Namespace
}

var _ container.Method = (*Func)(nil)

// Name returns the function's name.
func (f *Func) Name() string { return f.def.Name }

// Key returns the synthetic key of the source the function was compiled from.
func (f *Func) Key() string { return f.key }

// Source returns the full source text the function was compiled from.
func (f *Func) Source() string { return f.source }

// Def returns the compiled definition.
func (f *Func) Def() *FuncDef { return f.def }

// Namespace returns the namespace the function was executed in.
func (f *Func) Namespace() *Namespace { return f.ns }

// Call runs the function with self bound to the given container. Statements
// are evaluated in order; each assignment becomes visible to the following
// statements.
func (f *Func) Call(ctx context.Context, self *container.Container, args []cty.Value) (cty.Value, error) {
	free := f.def.FreeParams()
	if len(args) != len(free) {
		return cty.NilVal, &ExecError{
			Key:  f.key,
			Func: f.def.Name,
			Msg:  fmt.Sprintf("expected %d arguments (%s), got %d", len(free), strings.Join(free, ", "), len(args)),
		}
	}

	funcs, vars := f.ns.snapshot()
	vars[SelfName] = self.Value()
	for i, name := range free {
		vars[name] = args[i]
	}
	for name, fn := range moduleFunctions(ctx, self) {
		funcs[name] = fn
	}
	evalCtx := &hcl.EvalContext{Variables: vars, Functions: funcs}

	for _, stmt := range f.def.Stmts {
		v, diags := stmt.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return cty.NilVal, &ExecError{Key: f.key, Func: f.def.Name, Diags: diags}
		}
		vars[stmt.Target] = v
	}

	result, diags := f.def.Result.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, &ExecError{Key: f.key, Func: f.def.Name, Diags: diags}
	}
	ctxlog.FromContext(ctx).Debug("Evaluated generated function.", "key", f.key, "func", f.def.Name, "statements", len(f.def.Stmts))
	return result, nil
}

// moduleFunctions exposes the method of every nested container with one
// bound as self::path::to::child. A container shared by several paths is
// exposed under each of them.
func moduleFunctions(ctx context.Context, self *container.Container) map[string]function.Function {
	out := make(map[string]function.Function)
	collectModules(ctx, SelfName, self, map[*container.Container]struct{}{self: {}}, out)
	return out
}

func collectModules(ctx context.Context, prefix string, c *container.Container, onStack map[*container.Container]struct{}, out map[string]function.Function) {
	for _, name := range c.Names() {
		child, ok := c.Child(name)
		if !ok {
			continue
		}
		if _, cyclic := onStack[child]; cyclic {
			continue
		}
		fnName := prefix + "::" + name
		if child.Method() != nil {
			out[fnName] = methodFunction(ctx, child)
		}
		onStack[child] = struct{}{}
		collectModules(ctx, fnName, child, onStack, out)
		delete(onStack, child)
	}
}

func methodFunction(ctx context.Context, c *container.Container) function.Function {
	return function.New(&function.Spec{
		Description: fmt.Sprintf("Calls the method bound on a %q container.", c.Kind()),
		VarParam: &function.Parameter{
			Name:      "args",
			Type:      cty.DynamicPseudoType,
			AllowNull: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return c.Call(ctx, args...)
		},
	})
}
