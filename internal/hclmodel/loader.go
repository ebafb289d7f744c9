package hclmodel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/fsutil"
	"github.com/vk/graphunit/internal/graph"
	"github.com/vk/graphunit/internal/registry"
	"github.com/vk/graphunit/internal/unit"
)

// Model is a loaded template container and the graph to run over it.
type Model struct {
	Name  string
	Root  *container.Container
	Graph *graph.Manager
	// Files holds the parsed sources, for rendering diagnostics.
	Files map[string]*hcl.File
}

// Unit builds a unit from the model.
func (m *Model) Unit(ctx context.Context, opts ...unit.Option) (*unit.Unit, error) {
	return unit.New(ctx, m.Root, m.Graph, opts...)
}

// Loader reads models from .hcl files.
type Loader struct {
	kinds *registry.Registry
}

// NewLoader creates a loader that resolves module kinds through kinds.
func NewLoader(kinds *registry.Registry) *Loader {
	return &Loader{kinds: kinds}
}

// Load parses every .hcl file under paths and builds the model they
// describe. Exactly one model block and one graph block must be present
// across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL model loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var models []*modelBlock
	var graphs []*graphBlock
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		models = append(models, root.Models...)
		graphs = append(graphs, root.Graphs...)
	}

	if len(models) != 1 {
		return nil, fmt.Errorf("expected exactly one model block, found %d", len(models))
	}
	if len(graphs) != 1 {
		return nil, fmt.Errorf("expected exactly one graph block, found %d", len(graphs))
	}

	b := &builder{ctx: ctx, kinds: l.kinds}
	root, diags := b.buildModel(models[0])
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to build model %q: %w", models[0].Name, diags)
	}
	if l.kinds != nil {
		if err := l.kinds.Validate(ctx, root); err != nil {
			return nil, err
		}
	}

	g, diags := buildGraph(graphs[0])
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to build graph: %w", diags)
	}

	logger.Debug("HCL model loaded.", "model", models[0].Name, "slots", len(root.Names()), "nodes", len(g.Nodes()))
	return &Model{Name: models[0].Name, Root: root, Graph: g, Files: parser.Files()}, nil
}

// findAllHCLFiles expands paths into a flat, duplicate-free list of .hcl
// files. Directories are searched recursively.
func findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}
