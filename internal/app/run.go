package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/hclmodel"
	"github.com/vk/graphunit/internal/numeric"
	"github.com/vk/graphunit/internal/unit"
	"github.com/zclconf/go-cty/cty"
)

// Run obtains the unit and performs the configured actions in order: print
// the code, describe the unit, run forward on the inputs, save the bundle.
// Errors carrying HCL diagnostics are also rendered to the error writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	files := make(map[string]*hcl.File)
	err := a.run(ctx, files)
	if err != nil {
		var diags hcl.Diagnostics
		if errors.As(err, &diags) {
			maps.Copy(files, a.sources.Files())
			wr := hcl.NewDiagnosticTextWriter(a.errW, files, 0, false)
			if werr := wr.WriteDiagnostics(diags); werr != nil {
				a.logger.Warn("Could not render diagnostics.", "error", werr)
			}
		}
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) run(ctx context.Context, files map[string]*hcl.File) (err error) {
	u, err := a.obtainUnit(ctx, files)
	if err != nil {
		return err
	}
	defer u.Close()
	// Snapshot generated source before Close releases it.
	defer func() {
		if err != nil {
			maps.Copy(files, a.sources.Files())
		}
	}()
	ctx = ctxlog.With(ctx, "unit", u.ID().String())
	logger := ctxlog.FromContext(ctx)
	logger.Info("Unit ready.", "key", u.SourceKey(), "training", u.Training())

	if a.config.PrintCode {
		if _, err := fmt.Fprint(a.outW, u.Code()); err != nil {
			return err
		}
	}
	if a.config.Describe {
		if err := a.describe(u); err != nil {
			return fmt.Errorf("failed to describe unit: %w", err)
		}
	}
	if len(a.config.Inputs) > 0 {
		out, err := a.forward(ctx, u)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(a.outW, "%s\n", hclwrite.TokensForValue(out).Bytes()); err != nil {
			return err
		}
	}
	if a.config.SavePath != "" {
		if err := a.save(ctx, u); err != nil {
			return fmt.Errorf("failed to save unit: %w", err)
		}
		logger.Info("Unit saved.", "path", a.config.SavePath)
	}
	return nil
}

func (a *App) obtainUnit(ctx context.Context, files map[string]*hcl.File) (*unit.Unit, error) {
	if a.config.RestorePath != "" {
		f, err := os.Open(a.config.RestorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bundle: %w", err)
		}
		defer f.Close()

		bundle, err := a.codec.Decode(ctx, f)
		if err != nil {
			return nil, err
		}
		return a.codec.Restore(ctx, bundle)
	}

	m, err := hclmodel.NewLoader(a.kinds).Load(ctx, a.config.ModelPath)
	if m != nil {
		maps.Copy(files, m.Files)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return m.Unit(ctx, unit.WithRegistry(a.sources))
}

// forward evaluates the configured inputs and calls the unit with them in
// parameter order.
func (a *App) forward(ctx context.Context, u *unit.Unit) (cty.Value, error) {
	exprs := make(map[string]string, len(a.config.Inputs))
	for _, in := range a.config.Inputs {
		name, expr, err := splitInput(in)
		if err != nil {
			return cty.NilVal, err
		}
		exprs[name] = expr
	}

	evalCtx := &hcl.EvalContext{Functions: numeric.Functions()}
	params := u.Method().Def().FreeParams()
	args := make([]cty.Value, 0, len(params))
	for _, p := range params {
		src, ok := exprs[p]
		if !ok {
			return cty.NilVal, fmt.Errorf("missing input %q", p)
		}
		delete(exprs, p)

		expr, diags := hclsyntax.ParseExpression([]byte(src), "input."+p, hcl.InitialPos)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("input %q: %w", p, diags)
		}
		v, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("input %q: %w", p, diags)
		}
		args = append(args, v)
	}
	if len(exprs) > 0 {
		extra := slices.Sorted(maps.Keys(exprs))
		return cty.NilVal, fmt.Errorf("unknown input %q: forward takes %v", extra[0], params)
	}

	ctxlog.FromContext(ctx).Debug("Calling forward.", "inputs", len(args))
	return u.Forward(ctx, args...)
}

func (a *App) save(ctx context.Context, u *unit.Unit) error {
	_, bundle := a.codec.Reduce(u)
	f, err := os.Create(a.config.SavePath)
	if err != nil {
		return err
	}
	if err := a.codec.Encode(f, bundle); err != nil {
		f.Close()
		return err
	}
	ctxlog.FromContext(ctx).Debug("Bundle encoded.", "slots", len(bundle.Slots()))
	return f.Close()
}
