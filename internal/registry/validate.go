package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// TypeOf implies the cty type of a Go zero value, e.g. [][]float64{} for a
// matrix parameter. It panics on types gocty cannot describe, which is a
// programmer error in a module's declaration.
func TypeOf(zero any) cty.Type {
	ty, err := gocty.ImpliedType(zero)
	if err != nil {
		panic(fmt.Sprintf("could not imply cty type from Go type %s: %v", reflect.TypeOf(zero), err))
	}
	return ty
}

// Validate performs a strict parity check between a container tree and the
// registered kinds: every container of a registered kind must hold the
// parameters the kind declares, with values convertible to the declared
// types. Containers of unregistered kinds are not checked.
func (r *Registry) Validate(ctx context.Context, root *container.Container) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	_ = root.Walk(func(path string, c *container.Container) error {
		k, ok := r.Lookup(c.Kind())
		if !ok {
			return nil
		}
		where := path
		if where == "" {
			where = "(root)"
		}

		for _, spec := range k.Params {
			p, ok := c.Param(spec.Name)
			if !ok {
				if !spec.Optional {
					errs = append(errs, fmt.Sprintf("%s (kind '%s'): missing parameter '%s'", where, k.Name, spec.Name))
				}
				continue
			}
			if spec.Type.Equals(cty.DynamicPseudoType) {
				logger.Debug("Parameter declared with dynamic type, skipping type check.", "kind", k.Name, "param", spec.Name)
				continue
			}
			if _, err := convert.Convert(p.Value(), spec.Type); err != nil {
				errs = append(errs, fmt.Sprintf("%s (kind '%s'), parameter '%s': requires %s: %v",
					where, k.Name, spec.Name, spec.Type.FriendlyName(), err))
			}
		}
		return nil
	})

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
