package container

import (
	"context"

	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/qualname"
)

// Transplant copies the slot addressed by path from template into target by
// reference, creating empty intermediate containers in target as needed.
//
// The walk stops early when an intermediate in target is already the very
// same *Container as in template: one of its ancestors was transplanted
// before, so everything below it is reachable already.
//
// template is only read.
func Transplant(ctx context.Context, template, target *Container, path string) error {
	logger := ctxlog.FromContext(ctx)

	name, err := qualname.Parse(path)
	if err != nil {
		return invalidPath(path, "", err.Error())
	}
	prefix, field := name.Split()

	from, to := template, target
	for _, seg := range prefix {
		fv, ok := from.Get(seg)
		if !ok {
			return invalidPath(path, seg, "does not exist in template")
		}
		f, ok := fv.(*Container)
		if !ok {
			return invalidPath(path, seg, "is not a container in template")
		}

		var t *Container
		if tv, ok := to.Get(seg); ok {
			t, ok = tv.(*Container)
			if !ok {
				return invalidPath(path, seg, "is not a container in target")
			}
		}
		if f == t {
			logger.Debug("Ancestor already transplanted, skipping.", "path", path, "ancestor", seg)
			return nil
		}
		if t == nil {
			t = New("")
			if err := to.Set(seg, t); err != nil {
				return err
			}
		}
		from, to = f, t
	}

	v, ok := from.Get(field)
	if !ok {
		return invalidPath(path, field, "does not exist in template")
	}
	if err := to.Set(field, v); err != nil {
		return err
	}
	logger.Debug("Transplanted slot.", "path", path)
	return nil
}
