package linear

import (
	"context"
	"fmt"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/numeric"
	"github.com/vk/graphunit/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the name the module registers under.
const Kind = "linear"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Forward applies the container's weight and, when present, its bias:
// x times the transposed weight, plus bias.
func Forward(_ context.Context, self *container.Container, args []cty.Value) (cty.Value, error) {
	if len(args) != 1 {
		return cty.NilVal, fmt.Errorf("linear takes exactly one input, got %d", len(args))
	}
	w, ok := self.Param("weight")
	if !ok {
		return cty.NilVal, fmt.Errorf("linear container has no weight")
	}
	bias := cty.NullVal(cty.DynamicPseudoType)
	if b, ok := self.Param("bias"); ok {
		bias = b.Value()
	}
	return numeric.Linear(args[0], w.Value(), bias)
}

// Register registers the kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:   Kind,
		Method: container.MethodFunc(Forward),
		Params: []registry.ParamSpec{
			{Name: "weight", Type: registry.TypeOf([][]float64{})},
			{Name: "bias", Type: registry.TypeOf([]float64{}), Optional: true},
		},
	})
}
