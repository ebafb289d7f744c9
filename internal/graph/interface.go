package graph

import (
	"github.com/vk/graphunit/internal/node"
)

// Code is the linearized form of a graph: the assignment lines of the body,
// the result expression and the free variables, in parameter order.
type Code struct {
	Body     []string
	Result   string
	FreeVars []string
}

// Graph is the interface units consume.
//
// # Usage Patterns
//
// **Unit construction** iterates Nodes() and transplants the Target of every
// node whose Op has a path, then calls Linearize("self") and synthesizes the
// result.
//
// **Analyzer** builds a Manager from an already bound program.
//
// Implementations must be safe to call concurrently.
type Graph interface {
	// Nodes returns the nodes in emission order. The returned slice must be
	// safe for the caller to iterate.
	Nodes() []*node.Node

	// Linearize renders the graph as source lines in which paths into the
	// container tree are rooted at root.
	Linearize(root string) (Code, error)
}
