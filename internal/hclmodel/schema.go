package hclmodel

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes the top-level blocks any model file may hold.
type fileRoot struct {
	Models []*modelBlock `hcl:"model,block"`
	Graphs []*graphBlock `hcl:"graph,block"`
	Remain hcl.Body      `hcl:",remain"`
}

// modelBlock is the root container of a model.
type modelBlock struct {
	Name     string         `hcl:"name,label"`
	Kind     string         `hcl:"kind,optional"`
	Training *bool          `hcl:"training,optional"`
	Params   []*paramBlock  `hcl:"param,block"`
	Buffers  []*paramBlock  `hcl:"buffer,block"`
	Modules  []*moduleBlock `hcl:"module,block"`
	DefRange hcl.Range      `hcl:",def_range"`
}

// moduleBlock is a nested container. With share set it instead aliases the
// slot at that path, and no other attribute or block is allowed.
type moduleBlock struct {
	Name     string         `hcl:"name,label"`
	Kind     string         `hcl:"kind,optional"`
	Share    string         `hcl:"share,optional"`
	Training *bool          `hcl:"training,optional"`
	Params   []*paramBlock  `hcl:"param,block"`
	Buffers  []*paramBlock  `hcl:"buffer,block"`
	Modules  []*moduleBlock `hcl:"module,block"`
	DefRange hcl.Range      `hcl:",def_range"`
}

type paramBlock struct {
	Name  string         `hcl:"name,label"`
	Value hcl.Expression `hcl:"value"`
}

type graphBlock struct {
	Nodes    []*nodeBlock `hcl:"node,block"`
	DefRange hcl.Range    `hcl:",def_range"`
}

type nodeBlock struct {
	Name     string         `hcl:"name,label"`
	Op       string         `hcl:"op"`
	Target   string         `hcl:"target,optional"`
	Args     hcl.Expression `hcl:"args,optional"`
	DefRange hcl.Range      `hcl:",def_range"`
}
