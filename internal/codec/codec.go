// Package codec persists units as their state plus their generated source,
// and restores them by rebinding the source and re-deriving the graph.
//
// The graph is never stored. A StateBundle holds the unit's top-level slots
// by reference, the source under "code" and the mode flag under "training".
// Restore builds a carrier container from the slots, binds the source onto
// it and hands the carrier to an Analyzer, which derives a fresh graph and
// builds the unit.
package codec

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/script"
	"github.com/vk/graphunit/internal/source"
	"github.com/vk/graphunit/internal/unit"
	"github.com/zclconf/go-cty/cty"
)

// Reserved bundle keys.
const (
	CodeKey     = "code"
	TrainingKey = "training"
)

// StateBundle is the flat persisted form of a unit. Slot values are
// *container.Param or *container.Container; a plain cty.Value is accepted on
// restore and becomes a new parameter.
type StateBundle map[string]any

// Code returns the stored source.
func (b StateBundle) Code() (string, bool) {
	code, ok := b[CodeKey].(string)
	return code, ok
}

// Slots returns the non-reserved keys, sorted.
func (b StateBundle) Slots() []string {
	var names []string
	for k := range b {
		if k == CodeKey || k == TrainingKey {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Analyzer derives a unit from a container whose method is bound source.
type Analyzer interface {
	Analyze(ctx context.Context, root *container.Container) (*unit.Unit, error)
}

// Kinds supplies the method of a declared kind when decoding.
type Kinds interface {
	Method(kind string) (container.Method, bool)
}

// RestoreFunc rebuilds a unit from a bundle produced by Reduce.
type RestoreFunc func(ctx context.Context, bundle StateBundle) (*unit.Unit, error)

// Codec reduces and restores units.
type Codec struct {
	analyzer Analyzer
	reg      *source.Registry
	ns       *script.Namespace
	kinds    Kinds
}

// Option configures a Codec.
type Option func(*Codec)

// WithRegistry registers restored source in reg instead of source.Default.
func WithRegistry(reg *source.Registry) Option {
	return func(c *Codec) { c.reg = reg }
}

// WithNamespace binds restored source against ns instead of the numeric
// library.
func WithNamespace(ns *script.Namespace) Option {
	return func(c *Codec) { c.ns = ns }
}

// WithKinds reattaches methods to decoded containers by kind.
func WithKinds(k Kinds) Option {
	return func(c *Codec) { c.kinds = k }
}

// New creates a Codec that re-derives graphs with analyzer.
func New(analyzer Analyzer, opts ...Option) *Codec {
	c := &Codec{analyzer: analyzer}
	for _, opt := range opts {
		opt(c)
	}
	if c.reg == nil {
		c.reg = source.Default
	}
	if c.ns == nil {
		c.ns = unit.DefaultNamespace()
	}
	return c
}

// Reduce captures u as a restore entry point and a bundle.
func (c *Codec) Reduce(u *unit.Unit) (RestoreFunc, StateBundle) {
	root := u.Container()
	bundle := StateBundle{
		CodeKey:     u.Code(),
		TrainingKey: u.Training(),
	}
	for _, name := range root.Names() {
		if v, ok := root.Get(name); ok {
			bundle[name] = v
		}
	}
	return c.Restore, bundle
}

// Restore rebuilds a unit from bundle. Any failure is returned as a
// *RestoreError carrying the bundle.
func (c *Codec) Restore(ctx context.Context, bundle StateBundle) (*unit.Unit, error) {
	logger := ctxlog.FromContext(ctx)

	code, ok := bundle.Code()
	if !ok {
		return nil, &RestoreError{Bundle: bundle, Err: fmt.Errorf("bundle has no %q string", CodeKey)}
	}

	carrier, err := carrierFrom(bundle)
	if err != nil {
		return nil, &RestoreError{Bundle: bundle, Err: err}
	}

	fn, err := script.Bind(ctx, c.reg, code, c.ns)
	if err != nil {
		return nil, &RestoreError{Bundle: bundle, Err: err}
	}
	carrier.SetMethod(fn)

	u, err := c.analyzer.Analyze(ctx, carrier)
	if err != nil {
		return nil, &RestoreError{Bundle: bundle, Err: err}
	}
	// The unit generated its own source; the carrier's is no longer called.
	c.reg.Release(fn.Key())
	logger.Debug("Unit restored.", "unit", u.ID().String(), "key", u.SourceKey(), "slots", len(bundle.Slots()))
	return u, nil
}

func carrierFrom(bundle StateBundle) (*container.Container, error) {
	carrier := container.New("")
	if v, ok := bundle[TrainingKey]; ok {
		training, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("bundle key %q must be a bool, got %T", TrainingKey, v)
		}
		carrier.SetMode(training)
	}

	for _, name := range bundle.Slots() {
		v := bundle[name]
		if val, ok := v.(cty.Value); ok {
			v = container.NewParam(val)
		}
		if err := carrier.Set(name, v); err != nil {
			return nil, fmt.Errorf("bundle slot %q: %w", name, err)
		}
	}
	return carrier, nil
}
