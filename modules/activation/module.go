// Package activation registers parameterless element-wise kinds.
package activation

import (
	"context"
	"fmt"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/numeric"
	"github.com/vk/graphunit/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Kinds lists the kinds this module registers.
var Kinds = []string{"relu", "sigmoid", "tanh", "identity"}

// Module implements the registry.Module interface for this package.
type Module struct{}

func method(kind string) container.Method {
	fn, library := numeric.Functions()[kind]
	return container.MethodFunc(func(_ context.Context, _ *container.Container, args []cty.Value) (cty.Value, error) {
		if len(args) != 1 {
			return cty.NilVal, fmt.Errorf("%s takes exactly one input, got %d", kind, len(args))
		}
		if !library {
			return args[0], nil
		}
		return fn.Call(args)
	})
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	for _, kind := range Kinds {
		r.RegisterKind(&registry.Kind{Name: kind, Method: method(kind)})
	}
}
