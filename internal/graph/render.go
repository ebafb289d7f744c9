package graph

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/graphunit/internal/node"
	"github.com/vk/graphunit/internal/qualname"
	"github.com/zclconf/go-cty/cty"
)

// TraversalText renders an hcl.Traversal in its canonical source form,
// e.g. self.fc.weight.
func TraversalText(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// ValueText renders a constant as an HCL literal.
func ValueText(v cty.Value) (string, error) {
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("constant must be known")
	}
	text := strings.TrimSpace(string(hclwrite.TokensForValue(v).Bytes()))
	if strings.Contains(text, "\n") {
		return "", fmt.Errorf("constant of type %s does not fit on one line", v.Type().FriendlyName())
	}
	return text, nil
}

func renderNode(root string, n *node.Node) (string, error) {
	switch n.Op {
	case node.GetParam:
		name, err := qualname.Parse(n.Target)
		if err != nil {
			return "", err
		}
		return TraversalText(name.Traversal(root)), nil
	case node.CallModule:
		name, err := qualname.Parse(n.Target)
		if err != nil {
			return "", err
		}
		return renderCall(name.FunctionName(root), n.Args)
	case node.CallFunction:
		return renderCall(n.Target, n.Args)
	default:
		return "", fmt.Errorf("operation %q has no assignment form", n.Op)
	}
}

func renderCall(fn string, args []node.Arg) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := renderArg(a)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		parts[i] = s
	}
	return fn + "(" + strings.Join(parts, ", ") + ")", nil
}

func renderArg(a node.Arg) (string, error) {
	if a.IsRef() {
		return a.Ref.Name, nil
	}
	return ValueText(a.Const)
}
