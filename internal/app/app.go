package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/graphunit/internal/codec"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/registry"
	"github.com/vk/graphunit/internal/source"
	"github.com/vk/graphunit/internal/trace"
	"github.com/vk/graphunit/internal/unit"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	errW    io.Writer
	logger  *slog.Logger
	config  *Config
	kinds   *registry.Registry
	sources *source.Registry
	codec   *codec.Codec
}

// NewApp is the constructor for the main application. Results are written
// to outW; logs and diagnostics go to errW. Each App has its own logger,
// kind registry and source registry. Without modules the core kinds are
// registered.
func NewApp(outW, errW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	kinds := registry.NewWith(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", kinds.Kinds())

	sources := source.New()
	tracer := trace.New(unit.WithRegistry(sources))
	c := codec.New(tracer, codec.WithRegistry(sources), codec.WithKinds(kinds))
	ctxlog.FromContext(ctx).Debug("Codec configured.")

	return &App{
		outW:    outW,
		errW:    errW,
		logger:  logger,
		config:  cfg,
		kinds:   kinds,
		sources: sources,
		codec:   c,
	}
}

// Registry returns the application's kind registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.kinds
}

// Sources returns the registry generated source is kept in.
func (a *App) Sources() *source.Registry {
	return a.sources
}
