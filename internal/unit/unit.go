// Package unit builds executable units: a container populated from a
// template along the paths a graph refers to, with a method generated from
// that graph bound to the unit's own root.
//
// # Lifecycle
//
// New transplants every slot the graph refers to, synthesizes the graph's
// source, binds it and installs it on the root. The result is always bound;
// construction either returns a usable unit or an error and nothing else.
// Recompile and SetGraph regenerate the method in place.
//
// # Source Keys
//
// Every generation registers its source under a fresh key. The keys a unit
// issued are released by Close, or when the unit becomes unreachable. A
// failed generation leaves its key registered so diagnostics can still be
// rendered against it.
package unit

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/graphunit/internal/codegen"
	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/graph"
	"github.com/vk/graphunit/internal/numeric"
	"github.com/vk/graphunit/internal/script"
	"github.com/vk/graphunit/internal/source"
	"github.com/zclconf/go-cty/cty"
)

// Unit is a container bound to the method generated from a graph.
type Unit struct {
	id   uuid.UUID
	root *container.Container
	reg  *source.Registry
	ns   *script.Namespace
	keys *issuedKeys

	mu    sync.RWMutex
	graph graph.Graph
	code  string
	key   string
	fn    *script.Func
}

// Option configures a Unit.
type Option func(*Unit)

// WithRegistry registers generated source in reg instead of source.Default.
func WithRegistry(reg *source.Registry) Option {
	return func(u *Unit) { u.reg = reg }
}

// WithNamespace binds generated source against ns instead of the numeric
// library.
func WithNamespace(ns *script.Namespace) Option {
	return func(u *Unit) { u.ns = ns }
}

// DefaultNamespace returns a namespace holding the numeric library.
func DefaultNamespace() *script.Namespace {
	return script.NewNamespace(numeric.Functions(), nil)
}

// New builds a unit from template and g. template is only read; the unit's
// container shares every transplanted slot with it by reference.
func New(ctx context.Context, template *container.Container, g graph.Graph, opts ...Option) (*Unit, error) {
	u := &Unit{
		id:   uuid.New(),
		root: container.New(template.Kind()),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.reg == nil {
		u.reg = source.Default
	}
	if u.ns == nil {
		u.ns = DefaultNamespace()
	}
	u.keys = &issuedKeys{reg: u.reg}

	ctx = ctxlog.With(ctx, "unit", u.id.String())
	logger := ctxlog.FromContext(ctx)

	u.root.SetMode(template.Training())
	for _, target := range graph.Targets(g) {
		if err := container.Transplant(ctx, template, u.root, target); err != nil {
			return nil, fmt.Errorf("building unit: %w", err)
		}
	}
	u.graph = g

	if err := u.generate(ctx); err != nil {
		return nil, fmt.Errorf("building unit: %w", err)
	}
	runtime.AddCleanup(u, (*issuedKeys).releaseAll, u.keys)

	logger.Debug("Unit constructed.", "key", u.key, "slots", len(u.root.Names()))
	return u, nil
}

// generate linearizes the current graph, synthesizes and binds its source
// and installs the result on the root.
func (u *Unit) generate(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	code, err := u.graph.Linearize(script.SelfName)
	if err != nil {
		return fmt.Errorf("linearizing graph: %w", err)
	}
	src := codegen.Synthesize(code.Body, code.Result, code.FreeVars)

	fn, err := script.Bind(ctx, u.reg, src, u.ns)
	if err != nil {
		return err
	}
	u.keys.add(fn.Key())

	u.root.SetMethod(fn)
	u.code, u.key, u.fn = src, fn.Key(), fn
	ctxlog.FromContext(ctx).Debug("Method generated.", "key", u.key, "lines", len(code.Body)+2)
	return nil
}

// Recompile regenerates the method from the current graph.
func (u *Unit) Recompile(ctx context.Context) error {
	return u.generate(ctxlog.With(ctx, "unit", u.id.String()))
}

// SetGraph replaces the graph and regenerates the method. Every path the new
// graph refers to must already resolve in the unit's container.
func (u *Unit) SetGraph(ctx context.Context, g graph.Graph) error {
	for _, target := range graph.Targets(g) {
		if _, err := u.root.Lookup(target); err != nil {
			return err
		}
	}
	u.mu.Lock()
	prev := u.graph
	u.graph = g
	u.mu.Unlock()

	if err := u.Recompile(ctx); err != nil {
		u.mu.Lock()
		u.graph = prev
		u.mu.Unlock()
		return err
	}
	return nil
}

// Forward calls the bound method.
func (u *Unit) Forward(ctx context.Context, args ...cty.Value) (cty.Value, error) {
	return u.root.Call(ctx, args...)
}

// Code returns the generated source of the current method.
func (u *Unit) Code() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.code
}

// SourceKey returns the key the current source is registered under.
func (u *Unit) SourceKey() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.key
}

// Graph returns the graph the current method was generated from.
func (u *Unit) Graph() graph.Graph {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.graph
}

// Method returns the current bound method.
func (u *Unit) Method() *script.Func {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.fn
}

// Container returns the unit's root container.
func (u *Unit) Container() *container.Container { return u.root }

// Registry returns the registry the unit's source is registered in.
func (u *Unit) Registry() *source.Registry { return u.reg }

// Namespace returns the namespace the unit's source is bound against.
func (u *Unit) Namespace() *script.Namespace { return u.ns }

// Training reports the root's mode flag.
func (u *Unit) Training() bool { return u.root.Training() }

// Train sets the mode flag of the root and every nested container.
func (u *Unit) Train(training bool) { u.root.Train(training) }

// ID returns the unit's identity, used to correlate log lines.
func (u *Unit) ID() uuid.UUID { return u.id }

// Close releases every source key the unit issued. The unit stays callable.
func (u *Unit) Close() {
	u.keys.releaseAll()
}

// issuedKeys tracks the keys a unit registered. It is kept apart from Unit
// so the cleanup attached to a Unit does not keep it reachable.
type issuedKeys struct {
	reg  *source.Registry
	mu   sync.Mutex
	keys []string
}

func (k *issuedKeys) add(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = append(k.keys, key)
}

func (k *issuedKeys) releaseAll() {
	k.mu.Lock()
	keys := k.keys
	k.keys = nil
	k.mu.Unlock()

	for _, key := range keys {
		k.reg.Release(key)
	}
}
