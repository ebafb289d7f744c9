package app

import (
	"sort"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/graph"
	"github.com/vk/graphunit/internal/unit"
	"gopkg.in/yaml.v3"
)

type description struct {
	Unit      string             `yaml:"unit"`
	Kind      string             `yaml:"kind"`
	Training  bool               `yaml:"training"`
	SourceKey string             `yaml:"source_key"`
	Inputs    []string           `yaml:"inputs"`
	Modules   map[string]string  `yaml:"modules,omitempty"`
	Params    []paramDescription `yaml:"params,omitempty"`
	Nodes     []nodeDescription  `yaml:"nodes"`
}

type paramDescription struct {
	Path   string `yaml:"path"`
	Type   string `yaml:"type"`
	Buffer bool   `yaml:"buffer,omitempty"`
}

type nodeDescription struct {
	Name   string   `yaml:"name,omitempty"`
	Op     string   `yaml:"op"`
	Target string   `yaml:"target,omitempty"`
	Args   []string `yaml:"args,omitempty"`
}

// describe writes a YAML summary of u.
func (a *App) describe(u *unit.Unit) error {
	root := u.Container()
	d := description{
		Unit:      u.ID().String(),
		Kind:      root.Kind(),
		Training:  u.Training(),
		SourceKey: u.SourceKey(),
		Inputs:    u.Method().Def().FreeParams(),
		Modules:   make(map[string]string),
	}

	_ = root.Walk(func(path string, c *container.Container) error {
		if path != "" {
			d.Modules[path] = c.Kind()
		}
		return nil
	})

	params := root.Params()
	paths := make([]string, 0, len(params))
	for p := range params {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		d.Params = append(d.Params, paramDescription{
			Path:   p,
			Type:   params[p].Value().Type().FriendlyName(),
			Buffer: params[p].IsBuffer(),
		})
	}

	for _, n := range u.Graph().Nodes() {
		nd := nodeDescription{Name: n.Name, Op: string(n.Op), Target: n.Target}
		for _, arg := range n.Args {
			if arg.IsRef() {
				nd.Args = append(nd.Args, arg.Ref.Name)
				continue
			}
			text, err := graph.ValueText(arg.Const)
			if err != nil {
				text = arg.Const.Type().FriendlyName()
			}
			nd.Args = append(nd.Args, text)
		}
		d.Nodes = append(d.Nodes, nd)
	}

	enc := yaml.NewEncoder(a.outW)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}
