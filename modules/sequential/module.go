package sequential

import (
	"context"
	"fmt"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the name the module registers under.
const Kind = "sequential"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Forward feeds its input through every child container in slot order.
// Parameters held directly by the container are skipped.
func Forward(ctx context.Context, self *container.Container, args []cty.Value) (cty.Value, error) {
	if len(args) != 1 {
		return cty.NilVal, fmt.Errorf("sequential takes exactly one input, got %d", len(args))
	}
	x := args[0]
	for _, name := range self.Names() {
		child, ok := self.Child(name)
		if !ok {
			continue
		}
		var err error
		if x, err = child.Call(ctx, x); err != nil {
			return cty.NilVal, fmt.Errorf("sequential stage %q: %w", name, err)
		}
		ctxlog.FromContext(ctx).Debug("Sequential stage done.", "stage", name, "kind", child.Kind())
	}
	return x, nil
}

// Register registers the kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:   Kind,
		Method: container.MethodFunc(Forward),
	})
}
