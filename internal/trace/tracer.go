// Package trace re-derives a graph from a container whose method is bound
// generated source, and builds a unit from the pair.
//
// The analysis is static: it walks the compiled statements of the bound
// function instead of running it. Each statement becomes one node named
// after the local it assigns; nested calls get nodes of their own.
//
//	h = self::fc(x)          call_module fc
//	w = self.fc.weight       get_param fc.weight
//	y = relu(add(h, 1))      call_function add, then call_function relu
//	z = h * w                call_function mul
//	return z                 output
package trace

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/graph"
	"github.com/vk/graphunit/internal/node"
	"github.com/vk/graphunit/internal/numeric"
	"github.com/vk/graphunit/internal/qualname"
	"github.com/vk/graphunit/internal/script"
	"github.com/vk/graphunit/internal/unit"
)

// ErrUnsupported marks an expression the analyzer cannot express as nodes.
var ErrUnsupported = errors.New("unsupported expression")

// Tracer turns bound containers into units.
type Tracer struct {
	opts []unit.Option
}

// New creates a Tracer. opts are applied to every unit it builds, after the
// defaults taken from the analyzed method.
func New(opts ...unit.Option) *Tracer {
	return &Tracer{opts: opts}
}

// Analyze derives a graph from the method bound on root and builds a unit
// from root and that graph.
func (t *Tracer) Analyze(ctx context.Context, root *container.Container) (*unit.Unit, error) {
	fn, ok := root.Method().(*script.Func)
	if !ok {
		return nil, fmt.Errorf("analyzing container of kind %q: method is not bound generated source", root.Kind())
	}

	g, err := Graph(fn.Def())
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", fn.Key(), err)
	}
	ctxlog.FromContext(ctx).Debug("Graph derived from bound method.", "key", fn.Key(), "nodes", len(g.Nodes()))

	opts := append([]unit.Option{unit.WithNamespace(fn.Namespace())}, t.opts...)
	return unit.New(ctx, root, g, opts...)
}

// Graph derives a graph from a compiled function definition.
func Graph(def *script.FuncDef) (*graph.Manager, error) {
	a := &analyzer{g: graph.New(), env: make(map[string]node.Arg)}

	a.g.Reserve(def.Params...)
	for _, s := range def.Stmts {
		a.g.Reserve(s.Target)
	}

	for _, p := range def.FreeParams() {
		n, err := a.g.Placeholder(p)
		if err != nil {
			return nil, err
		}
		a.env[p] = node.Ref(n)
	}

	for _, s := range def.Stmts {
		if err := checkReferences(s.Expr, a.env); err != nil {
			return nil, err
		}
		arg, err := a.lower(s.Expr, s.Target)
		if err != nil {
			return nil, err
		}
		a.env[s.Target] = arg
	}

	if err := checkReferences(def.Result, a.env); err != nil {
		return nil, err
	}
	result, err := a.lower(def.Result, "")
	if err != nil {
		return nil, err
	}
	if _, err := a.g.Output(result); err != nil {
		return nil, err
	}
	return a.g, nil
}

type analyzer struct {
	g   *graph.Manager
	env map[string]node.Arg
}

// lower converts expr into an argument, adding nodes for everything that is
// not a plain local or a constant. name, when not empty, is the preferred
// name for the node expr itself becomes.
func (a *analyzer) lower(expr hclsyntax.Expression, name string) (node.Arg, error) {
	switch e := expr.(type) {
	case *hclsyntax.ParenthesesExpr:
		return a.lower(e.Expression, name)

	case *hclsyntax.ScopeTraversalExpr:
		root := e.Traversal.RootName()
		if root == script.SelfName {
			path, err := selfPath(e.Traversal)
			if err != nil {
				return node.Arg{}, unsupported(e, err.Error())
			}
			return a.create(name, node.GetParam, path)
		}
		if len(e.Traversal) == 1 {
			if arg, ok := a.env[root]; ok {
				return arg, nil
			}
		}
		return node.Arg{}, unsupported(e, "only locals and paths rooted at self can be referenced")

	case *hclsyntax.FunctionCallExpr:
		if e.ExpandFinal {
			return node.Arg{}, unsupported(e, "argument expansion is not supported")
		}
		args := make([]node.Arg, len(e.Args))
		for i, ae := range e.Args {
			arg, err := a.lower(ae, "")
			if err != nil {
				return node.Arg{}, err
			}
			args[i] = arg
		}
		if q, ok := qualname.FromFunctionName(script.SelfName, e.Name); ok {
			return a.create(name, node.CallModule, q.String(), args...)
		}
		return a.create(name, node.CallFunction, e.Name, args...)

	case *hclsyntax.BinaryOpExpr:
		if isConstant(e) {
			return constant(e)
		}
		fn, ok := operatorFunction(e.Op)
		if !ok {
			return node.Arg{}, unsupported(e, "only + - * / operators are supported")
		}
		lhs, err := a.lower(e.LHS, "")
		if err != nil {
			return node.Arg{}, err
		}
		rhs, err := a.lower(e.RHS, "")
		if err != nil {
			return node.Arg{}, err
		}
		return a.create(name, node.CallFunction, fn, lhs, rhs)

	case *hclsyntax.UnaryOpExpr:
		if isConstant(e) {
			return constant(e)
		}
		if e.Op != hclsyntax.OpNegate {
			return node.Arg{}, unsupported(e, "only negation is supported")
		}
		v, err := a.lower(e.Val, "")
		if err != nil {
			return node.Arg{}, err
		}
		return a.create(name, node.CallFunction, "neg", v)

	default:
		if isConstant(expr) {
			return constant(expr)
		}
		return node.Arg{}, unsupported(expr, fmt.Sprintf("%T cannot be analyzed", expr))
	}
}

func (a *analyzer) create(name string, op node.Op, target string, args ...node.Arg) (node.Arg, error) {
	if name != "" {
		if _, taken := a.g.Lookup(name); taken {
			name = ""
		}
	}
	n, err := a.g.Create(name, op, target, args...)
	if err != nil {
		return node.Arg{}, err
	}
	return node.Ref(n), nil
}

func selfPath(t hcl.Traversal) (string, error) {
	var segs []string
	for _, step := range t[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			return "", fmt.Errorf("paths rooted at self may only use attribute access")
		}
		segs = append(segs, attr.Name)
	}
	if len(segs) == 0 {
		return "", fmt.Errorf("self cannot be used as a value")
	}
	name := &qualname.Name{Path: segs}
	if _, err := qualname.Parse(name.String()); err != nil {
		return "", err
	}
	return name.String(), nil
}

func operatorFunction(op *hclsyntax.Operation) (string, bool) {
	var sym string
	switch op {
	case hclsyntax.OpAdd:
		sym = "+"
	case hclsyntax.OpSubtract:
		sym = "-"
	case hclsyntax.OpMultiply:
		sym = "*"
	case hclsyntax.OpDivide:
		sym = "/"
	default:
		return "", false
	}
	fn, ok := numeric.Operators[sym]
	return fn, ok
}

func isConstant(expr hclsyntax.Expression) bool {
	refs, calls := References(expr)
	return len(refs) == 0 && len(calls) == 0
}

func constant(expr hclsyntax.Expression) (node.Arg, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return node.Arg{}, fmt.Errorf("%s: %w", expr.Range(), diags)
	}
	return node.Const(v), nil
}

func unsupported(expr hclsyntax.Expression, detail string) error {
	return fmt.Errorf("%s: %w: %s", expr.Range(), ErrUnsupported, detail)
}
