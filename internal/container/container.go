package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/graphunit/internal/qualname"
	"github.com/zclconf/go-cty/cty"
)

// Method is the callable bound to a container. self is the container the
// method was invoked on.
type Method interface {
	Call(ctx context.Context, self *Container, args []cty.Value) (cty.Value, error)
}

// MethodFunc adapts a plain function to the Method interface.
type MethodFunc func(ctx context.Context, self *Container, args []cty.Value) (cty.Value, error)

// Call implements Method.
func (f MethodFunc) Call(ctx context.Context, self *Container, args []cty.Value) (cty.Value, error) {
	return f(ctx, self, args)
}

// Container is a tree of named slots. A slot holds either a *Param or a
// nested *Container. Slot order is insertion order.
type Container struct {
	kind string

	mu       sync.RWMutex
	order    []string
	slots    map[string]any
	training bool
	method   Method
}

// New creates an empty container of the given declared kind. Kind is a
// label only; it never carries shared state. New containers start in
// training mode.
func New(kind string) *Container {
	return &Container{
		kind:     kind,
		slots:    make(map[string]any),
		training: true,
	}
}

// Kind returns the declared kind of the container.
func (c *Container) Kind() string {
	return c.kind
}

// Get returns the slot value stored under name.
func (c *Container) Get(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.slots[name]
	return v, ok
}

// Set stores v under name. v must be a *Param or a *Container; the value is
// stored by reference.
func (c *Container) Set(name string, v any) error {
	if !hclsyntax.ValidIdentifier(name) || name == "self" {
		return fmt.Errorf("%w: slot name %q is not a valid identifier", ErrInvalidSlot, name)
	}
	switch v.(type) {
	case *Param, *Container:
	default:
		return fmt.Errorf("%w: slot %q cannot hold %T", ErrInvalidSlot, name, v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.slots[name]; !exists {
		c.order = append(c.order, name)
	}
	c.slots[name] = v
	return nil
}

// Delete removes a slot. Removing a missing slot is a no-op.
func (c *Container) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.slots[name]; !exists {
		return
	}
	delete(c.slots, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
}

// Names returns slot names in insertion order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Param returns the parameter stored under name, if any.
func (c *Container) Param(name string) (*Param, bool) {
	v, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Param)
	return p, ok
}

// Child returns the nested container stored under name, if any.
func (c *Container) Child(name string) (*Container, bool) {
	v, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Container)
	return child, ok
}

// Training reports the container's mode flag.
func (c *Container) Training() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.training
}

// SetMode sets this container's mode flag. Children are not touched; use
// Train to switch a whole tree.
func (c *Container) SetMode(training bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.training = training
}

// Train sets the mode flag on this container and every descendant.
func (c *Container) Train(training bool) {
	_ = c.Walk(func(_ string, sub *Container) error {
		sub.SetMode(training)
		return nil
	})
}

// SetMethod installs m as this container's method, replacing any previous one.
func (c *Container) SetMethod(m Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = m
}

// Method returns the bound method, or nil.
func (c *Container) Method() Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.method
}

// Call invokes the bound method with c as self.
func (c *Container) Call(ctx context.Context, args ...cty.Value) (cty.Value, error) {
	m := c.Method()
	if m == nil {
		return cty.NilVal, fmt.Errorf("%w on container of kind %q", ErrNoMethod, c.kind)
	}
	return m.Call(ctx, c, args)
}

// Lookup resolves a dotted path to the slot value it addresses.
func (c *Container) Lookup(path string) (any, error) {
	name, err := qualname.Parse(path)
	if err != nil {
		return nil, invalidPath(path, "", err.Error())
	}
	prefix, field := name.Split()

	cur := c
	for _, seg := range prefix {
		v, ok := cur.Get(seg)
		if !ok {
			return nil, invalidPath(path, seg, "does not exist")
		}
		next, ok := v.(*Container)
		if !ok {
			return nil, invalidPath(path, seg, "is not a container")
		}
		cur = next
	}
	v, ok := cur.Get(field)
	if !ok {
		return nil, invalidPath(path, field, "does not exist")
	}
	return v, nil
}

// Walk visits c and every nested container depth-first in slot order,
// passing the dotted path of each ("" for c itself). A container reachable
// through several paths is visited once, under the first path found.
func (c *Container) Walk(fn func(path string, sub *Container) error) error {
	seen := make(map[*Container]struct{})
	return c.walk("", seen, fn)
}

func (c *Container) walk(path string, seen map[*Container]struct{}, fn func(string, *Container) error) error {
	if _, ok := seen[c]; ok {
		return nil
	}
	seen[c] = struct{}{}
	if err := fn(path, c); err != nil {
		return err
	}
	for _, name := range c.Names() {
		child, ok := c.Child(name)
		if !ok {
			continue
		}
		if err := child.walk(join(path, name), seen, fn); err != nil {
			return err
		}
	}
	return nil
}

// Params returns every parameter in the tree keyed by dotted path. A
// parameter shared by several paths appears under each of them.
func (c *Container) Params() map[string]*Param {
	out := make(map[string]*Param)
	c.collectParams("", make(map[*Container]struct{}), out)
	return out
}

func (c *Container) collectParams(path string, onStack map[*Container]struct{}, out map[string]*Param) {
	if _, ok := onStack[c]; ok {
		return
	}
	onStack[c] = struct{}{}
	defer delete(onStack, c)

	for _, name := range c.Names() {
		v, _ := c.Get(name)
		switch slot := v.(type) {
		case *Param:
			out[join(path, name)] = slot
		case *Container:
			slot.collectParams(join(path, name), onStack, out)
		}
	}
}

// StateDict snapshots every parameter value keyed by dotted path.
func (c *Container) StateDict() map[string]cty.Value {
	params := c.Params()
	out := make(map[string]cty.Value, len(params))
	for k, p := range params {
		out[k] = p.Value()
	}
	return out
}

// Value renders the parameter tree as a cty object: parameters become
// attributes and nested containers become nested objects.
func (c *Container) Value() cty.Value {
	return c.value(make(map[*Container]struct{}))
}

func (c *Container) value(onStack map[*Container]struct{}) cty.Value {
	if _, ok := onStack[c]; ok {
		return cty.EmptyObjectVal
	}
	onStack[c] = struct{}{}
	defer delete(onStack, c)

	attrs := make(map[string]cty.Value)
	for _, name := range c.Names() {
		v, _ := c.Get(name)
		switch slot := v.(type) {
		case *Param:
			attrs[name] = slot.Value()
		case *Container:
			attrs[name] = slot.value(onStack)
		}
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
