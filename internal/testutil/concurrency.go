package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// RecorderModule is a shared, self-contained module for concurrency tests.
// Its kind returns the first argument unchanged, after an optional delay,
// and records every call.
type RecorderModule struct {
	Kind  string
	Delay time.Duration

	mu    sync.Mutex
	calls []cty.Value
}

// NewRecorderModule creates a recorder registering under kind.
func NewRecorderModule(kind string, delay time.Duration) *RecorderModule {
	return &RecorderModule{Kind: kind, Delay: delay}
}

// Register registers the recorder kind.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:   m.Kind,
		Method: container.MethodFunc(m.forward),
	})
}

func (m *RecorderModule) forward(ctx context.Context, _ *container.Container, args []cty.Value) (cty.Value, error) {
	if len(args) != 1 {
		return cty.NilVal, fmt.Errorf("%s takes exactly one input, got %d", m.Kind, len(args))
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return cty.NilVal, ctx.Err()
		}
	}
	m.mu.Lock()
	m.calls = append(m.calls, args[0])
	m.mu.Unlock()
	return args[0], nil
}

// Calls returns a copy of the recorded inputs in call order.
func (m *RecorderModule) Calls() []cty.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cty.Value(nil), m.calls...)
}
