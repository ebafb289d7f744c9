package graph

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/graphunit/internal/node"
	"github.com/vk/graphunit/internal/qualname"
	"github.com/zclconf/go-cty/cty"
)

// Manager is an in-memory, append-only graph.
type Manager struct {
	mu       sync.RWMutex
	nodes    []*node.Node
	byName   map[string]*node.Node
	reserved map[string]struct{}
	output   *node.Node
}

var _ Graph = (*Manager)(nil)

// keywords cannot name a node: generated source would read them as
// literals, the receiver, or its own syntax.
var keywords = map[string]struct{}{
	"self": {}, "def": {}, "return": {},
	"true": {}, "false": {}, "null": {},
	"for": {}, "in": {},
}

// New creates an empty graph.
func New() *Manager {
	return &Manager{
		byName:   make(map[string]*node.Node),
		reserved: make(map[string]struct{}),
	}
}

// Reserve keeps names from being picked by automatic naming. Nodes may
// still be created under a reserved name explicitly.
func (m *Manager) Reserve(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.reserved[n] = struct{}{}
	}
}

// Placeholder adds a free input named name.
func (m *Manager) Placeholder(name string) (*node.Node, error) {
	return m.Create(name, node.Placeholder, "")
}

// GetParam adds a fetch of the slot at target. The node is named after the
// path, e.g. fc_weight for fc.weight.
func (m *Manager) GetParam(target string) (*node.Node, error) {
	return m.Create("", node.GetParam, target)
}

// CallModule adds a call to the method of the container at target.
func (m *Manager) CallModule(target string, args ...node.Arg) (*node.Node, error) {
	return m.Create("", node.CallModule, target, args...)
}

// CallFunction adds a call to the library function fn.
func (m *Manager) CallFunction(fn string, args ...node.Arg) (*node.Node, error) {
	return m.Create("", node.CallFunction, fn, args...)
}

// Output sets the graph's result.
func (m *Manager) Output(arg node.Arg) (*node.Node, error) {
	return m.Create("output", node.Output, "", arg)
}

// Create validates and appends a node. An empty name is replaced by a unique
// name derived from the target.
func (m *Manager) Create(name string, op node.Op, target string, args ...node.Arg) (*node.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.output != nil {
		return nil, fmt.Errorf("graph already has an output node %q", m.output.Name)
	}
	if err := validateTarget(op, target); err != nil {
		return nil, err
	}
	if err := m.validateArgs(op, args); err != nil {
		return nil, err
	}

	switch {
	case op == node.Output:
		// The output is never referenced by name.
	case name == "":
		name = m.uniqueName(baseName(op, target))
	default:
		if !hclsyntax.ValidIdentifier(name) {
			return nil, fmt.Errorf("invalid node name %q", name)
		}
		if _, ok := keywords[name]; ok {
			return nil, fmt.Errorf("invalid node name %q: reserved word in generated source", name)
		}
		if _, exists := m.byName[name]; exists {
			return nil, fmt.Errorf("duplicate node name %q", name)
		}
	}

	n := &node.Node{Name: name, Op: op, Target: target, Args: args}
	m.nodes = append(m.nodes, n)
	if op == node.Output {
		m.output = n
	} else {
		m.byName[name] = n
	}
	return n, nil
}

// Lookup returns the node named name.
func (m *Manager) Lookup(name string) (*node.Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.byName[name]
	return n, ok
}

// Nodes implements Graph.
func (m *Manager) Nodes() []*node.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*node.Node(nil), m.nodes...)
}

// Targets returns the distinct path targets in node order.
func (m *Manager) Targets() []string {
	return Targets(m)
}

// Linearize implements Graph.
func (m *Manager) Linearize(root string) (Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.output == nil {
		return Code{}, fmt.Errorf("graph has no output node")
	}

	var code Code
	for _, n := range m.nodes {
		switch n.Op {
		case node.Placeholder:
			code.FreeVars = append(code.FreeVars, n.Name)
		case node.Output:
			result, err := renderArg(n.Args[0])
			if err != nil {
				return Code{}, fmt.Errorf("rendering output: %w", err)
			}
			code.Result = result
		default:
			rhs, err := renderNode(root, n)
			if err != nil {
				return Code{}, fmt.Errorf("rendering node %s: %w", n, err)
			}
			code.Body = append(code.Body, n.Name+" = "+rhs)
		}
	}
	return code, nil
}

// Targets returns the distinct path targets of g in node order.
func Targets(g Graph) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, n := range g.Nodes() {
		if !n.Op.HasPath() {
			continue
		}
		if _, dup := seen[n.Target]; dup {
			continue
		}
		seen[n.Target] = struct{}{}
		out = append(out, n.Target)
	}
	return out
}

func validateTarget(op node.Op, target string) error {
	switch op {
	case node.GetParam, node.CallModule:
		if _, err := qualname.Parse(target); err != nil {
			return fmt.Errorf("invalid %s target: %w", op, err)
		}
	case node.CallFunction:
		if !hclsyntax.ValidIdentifier(target) {
			return fmt.Errorf("invalid function name %q", target)
		}
	case node.Placeholder, node.Output:
		if target != "" {
			return fmt.Errorf("%s nodes take no target", op)
		}
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
	return nil
}

func (m *Manager) validateArgs(op node.Op, args []node.Arg) error {
	switch op {
	case node.Placeholder, node.GetParam:
		if len(args) != 0 {
			return fmt.Errorf("%s nodes take no arguments", op)
		}
	case node.Output:
		if len(args) != 1 {
			return fmt.Errorf("output takes exactly one argument, got %d", len(args))
		}
	}
	for i, a := range args {
		if !a.IsRef() {
			if a.Const.Type() == cty.NilType {
				return fmt.Errorf("argument %d is neither a reference nor a constant", i)
			}
			continue
		}
		if m.byName[a.Ref.Name] != a.Ref {
			return fmt.Errorf("argument %d refers to %q, which is not an earlier node of this graph", i, a.Ref.Name)
		}
	}
	return nil
}

func (m *Manager) uniqueName(base string) string {
	taken := func(n string) bool {
		_, used := m.byName[n]
		_, reserved := m.reserved[n]
		_, keyword := keywords[n]
		return used || reserved || keyword
	}
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}

func baseName(op node.Op, target string) string {
	if target == "" {
		return string(op)
	}
	return strings.NewReplacer(".", "_", "-", "_").Replace(target)
}
