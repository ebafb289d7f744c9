// Package node defines the operation records a graph is made of.
package node

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Op is the operation tag of a node.
type Op string

const (
	// Placeholder is a free input of the graph. It becomes a parameter of the
	// generated function.
	Placeholder Op = "placeholder"
	// GetParam fetches a parameter or buffer addressed by a dotted path.
	GetParam Op = "get_param"
	// CallModule calls the method of a nested container addressed by a
	// dotted path.
	CallModule Op = "call_module"
	// CallFunction calls a library function by name.
	CallFunction Op = "call_function"
	// Output is the graph's result. A graph has exactly one.
	Output Op = "output"
)

// ParseOp converts the textual tag into an Op.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case Placeholder, GetParam, CallModule, CallFunction, Output:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// HasPath reports whether the node's Target is a dotted path into the
// container tree. Only such targets are transplanted.
func (o Op) HasPath() bool {
	return o == GetParam || o == CallModule
}

// Node is a single operation of a graph.
type Node struct {
	// Name is the local the node's result is bound to in generated source.
	// Example: "h1"
	Name string
	// Op is the operation tag.
	Op Op
	// Target is a dotted path for GetParam and CallModule, a function name
	// for CallFunction and empty otherwise.
	Target string
	// Args are the operands, in call order.
	Args []Arg
}

// Arg is an operand: either the result of an earlier node or a constant.
type Arg struct {
	// Ref is the node whose result is used. Nil for constants.
	Ref *Node
	// Const is the constant value used when Ref is nil.
	Const cty.Value
}

// Ref returns an argument referring to n.
func Ref(n *Node) Arg {
	return Arg{Ref: n}
}

// Const returns a constant argument.
func Const(v cty.Value) Arg {
	return Arg{Const: v}
}

// IsRef reports whether the argument refers to another node.
func (a Arg) IsRef() bool {
	return a.Ref != nil
}

func (n *Node) String() string {
	if n.Target == "" {
		return fmt.Sprintf("%s[%s]", n.Name, n.Op)
	}
	return fmt.Sprintf("%s[%s %s]", n.Name, n.Op, n.Target)
}
