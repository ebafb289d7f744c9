package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/graphunit/internal/container"
	"github.com/zclconf/go-cty/cty"
)

// Kind holds the compiled Go parts of a container kind.
type Kind struct {
	Name   string
	Method container.Method
	Params []ParamSpec
}

// ParamSpec declares a parameter a kind reads from its container.
type ParamSpec struct {
	Name string
	// Type is the type the value must convert to. cty.DynamicPseudoType
	// accepts any value.
	Type     cty.Type
	Optional bool
}

// RegisterKind registers a kind. Registering the same name twice is a
// programmer error.
func (r *Registry) RegisterKind(k *Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("kind with name '%s' already registered", k.Name))
	}
	if k.Method == nil {
		panic(fmt.Sprintf("kind '%s' registered without a method", k.Name))
	}
	slog.Debug("Registering kind.", "name", k.Name, "params", len(k.Params))
	r.kinds[k.Name] = k
}
