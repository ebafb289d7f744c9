package script

import (
	"context"

	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/source"
)

// EntryPoint is the function Bind extracts from the compiled source.
const EntryPoint = "forward"

// Bind compiles src under a fresh key of reg, executes it into a child of ns
// and returns its forward function. The source is registered before it is
// compiled so that compile diagnostics already resolve to the generated text.
// On failure the key stays registered; the caller decides whether to release it.
func Bind(ctx context.Context, reg *source.Registry, src string, ns *Namespace) (*Func, error) {
	if reg == nil {
		reg = source.Default
	}
	key := reg.Register(src)
	logger := ctxlog.FromContext(ctx).With("key", key)

	prog, err := Compile(key, src)
	if err != nil {
		logger.Debug("Generated source failed to compile.", "error", err)
		return nil, err
	}

	scope := ns.Child()
	Exec(prog, scope)

	fn, ok := scope.Lookup(EntryPoint)
	if !ok {
		return nil, &BindError{Key: key, Symbol: EntryPoint}
	}
	logger.Debug("Bound generated function.", "func", fn.Name(), "params", fn.def.FreeParams())
	return fn, nil
}
