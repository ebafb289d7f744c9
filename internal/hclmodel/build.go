package hclmodel

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/graph"
	"github.com/vk/graphunit/internal/node"
	"github.com/vk/graphunit/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

type builder struct {
	ctx    context.Context
	kinds  *registry.Registry
	shares []share
}

// share is an alias resolved once the whole tree exists.
type share struct {
	parent *container.Container
	name   string
	path   string
	rng    hcl.Range
}

func (b *builder) buildModel(m *modelBlock) (*container.Container, hcl.Diagnostics) {
	kind := m.Kind
	if kind == "" {
		kind = m.Name
	}
	root, diags := b.newContainer(kind, m.Kind != "", m.DefRange)
	if diags.HasErrors() {
		return nil, diags
	}
	if m.Training != nil {
		root.SetMode(*m.Training)
	}
	diags = append(diags, b.fill(root, m.Params, m.Buffers, m.Modules)...)
	if diags.HasErrors() {
		return nil, diags
	}

	for _, s := range b.shares {
		v, err := root.Lookup(s.path)
		if err != nil {
			diags = append(diags, errorDiag("Invalid share", err.Error(), s.rng))
			continue
		}
		if err := s.parent.Set(s.name, v); err != nil {
			diags = append(diags, errorDiag("Invalid share", err.Error(), s.rng))
			continue
		}
		ctxlog.FromContext(b.ctx).Debug("Shared slot.", "name", s.name, "path", s.path)
	}
	return root, diags
}

// newContainer creates a container of kind. Declared kinds must be
// registered; the model's implicit kind need not be.
func (b *builder) newContainer(kind string, declared bool, rng hcl.Range) (*container.Container, hcl.Diagnostics) {
	if !declared || kind == "" {
		return container.New(kind), nil
	}
	if b.kinds != nil {
		if c, err := b.kinds.NewContainer(kind); err == nil {
			return c, nil
		}
	}
	return nil, hcl.Diagnostics{errorDiag("Unknown kind", fmt.Sprintf("No kind named %q is registered.", kind), rng)}
}

func (b *builder) fill(c *container.Container, params, buffers []*paramBlock, modules []*moduleBlock) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, p := range params {
		diags = append(diags, b.setParam(c, p, false)...)
	}
	for _, p := range buffers {
		diags = append(diags, b.setParam(c, p, true)...)
	}
	for _, m := range modules {
		diags = append(diags, b.setModule(c, m)...)
	}
	return diags
}

func (b *builder) setParam(c *container.Container, p *paramBlock, buffer bool) hcl.Diagnostics {
	val, diags := p.Value.Value(nil)
	if diags.HasErrors() {
		return diags
	}
	val, err := b.convertDeclared(c.Kind(), p.Name, val)
	if err != nil {
		return hcl.Diagnostics{errorDiag("Invalid parameter value", err.Error(), p.Value.Range())}
	}

	slot := container.NewParam(val)
	if buffer {
		slot = container.NewBuffer(val)
	}
	if err := c.Set(p.Name, slot); err != nil {
		return hcl.Diagnostics{errorDiag("Invalid parameter", err.Error(), p.Value.Range())}
	}
	return nil
}

// convertDeclared converts val to the type the kind declares for name, if
// any. Values of undeclared parameters are kept as written.
func (b *builder) convertDeclared(kind, name string, val cty.Value) (cty.Value, error) {
	if b.kinds == nil {
		return val, nil
	}
	k, ok := b.kinds.Lookup(kind)
	if !ok {
		return val, nil
	}
	for _, spec := range k.Params {
		if spec.Name != name || spec.Type.Equals(cty.DynamicPseudoType) {
			continue
		}
		out, err := convert.Convert(val, spec.Type)
		if err != nil {
			return cty.NilVal, fmt.Errorf("kind %q requires %s for %q: %w", kind, spec.Type.FriendlyName(), name, err)
		}
		return out, nil
	}
	return val, nil
}

func (b *builder) setModule(parent *container.Container, m *moduleBlock) hcl.Diagnostics {
	if m.Share != "" {
		if m.Kind != "" || m.Training != nil || len(m.Params)+len(m.Buffers)+len(m.Modules) > 0 {
			return hcl.Diagnostics{errorDiag("Invalid share", fmt.Sprintf("Module %q shares %q and cannot declare anything else.", m.Name, m.Share), m.DefRange)}
		}
		b.shares = append(b.shares, share{parent: parent, name: m.Name, path: m.Share, rng: m.DefRange})
		return nil
	}

	c, diags := b.newContainer(m.Kind, true, m.DefRange)
	if diags.HasErrors() {
		return diags
	}
	if m.Training != nil {
		c.SetMode(*m.Training)
	} else {
		c.SetMode(parent.Training())
	}
	diags = append(diags, b.fill(c, m.Params, m.Buffers, m.Modules)...)
	if err := parent.Set(m.Name, c); err != nil {
		diags = append(diags, errorDiag("Invalid module", err.Error(), m.DefRange))
	}
	return diags
}

// buildGraph creates the nodes in block order. An argument that is a bare
// name refers to an earlier node; any other argument is a constant.
func buildGraph(gb *graphBlock) (*graph.Manager, hcl.Diagnostics) {
	g := graph.New()
	var diags hcl.Diagnostics

	for _, nb := range gb.Nodes {
		op, err := node.ParseOp(nb.Op)
		if err != nil {
			diags = append(diags, errorDiag("Invalid operation", err.Error(), nb.DefRange))
			continue
		}

		var args []node.Arg
		if isExprDefined(nb.Args) {
			items, moreDiags := hcl.ExprList(nb.Args)
			diags = append(diags, moreDiags...)
			if moreDiags.HasErrors() {
				continue
			}
			for _, item := range items {
				arg, argDiags := nodeArg(g, item)
				diags = append(diags, argDiags...)
				args = append(args, arg)
			}
			if diags.HasErrors() {
				continue
			}
		}

		if _, err := g.Create(nb.Name, op, nb.Target, args...); err != nil {
			diags = append(diags, errorDiag("Invalid node", fmt.Sprintf("Node %q: %s.", nb.Name, err), nb.DefRange))
		}
	}
	return g, diags
}

func nodeArg(g *graph.Manager, expr hcl.Expression) (node.Arg, hcl.Diagnostics) {
	if name := hcl.ExprAsKeyword(expr); name != "" {
		n, ok := g.Lookup(name)
		if !ok {
			return node.Arg{}, hcl.Diagnostics{errorDiag("Undefined node", fmt.Sprintf("No node named %q is defined before this one.", name), expr.Range())}
		}
		return node.Ref(n), nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return node.Arg{}, diags
	}
	return node.Const(val), nil
}

// isExprDefined reports whether an optional attribute was actually written.
// gohcl fills omitted optional expressions with a zero-width placeholder.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}

func errorDiag(summary, detail string, rng hcl.Range) *hcl.Diagnostic {
	d := &hcl.Diagnostic{Severity: hcl.DiagError, Summary: summary, Detail: detail}
	if rng.Filename != "" {
		d.Subject = rng.Ptr()
	}
	return d
}
