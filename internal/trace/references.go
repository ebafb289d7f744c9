package trace

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/graphunit/internal/graph"
	"github.com/vk/graphunit/internal/node"
	"github.com/vk/graphunit/internal/script"
)

// References returns the unique variable traversals and called function
// names found in expr, both sorted for deterministic output.
func References(expr hclsyntax.Expression) ([]hcl.Traversal, []string) {
	traversals := make(map[string]hcl.Traversal)
	for _, t := range expr.Variables() {
		traversals[graph.TraversalText(t)] = t
	}

	functions := make(map[string]struct{})
	walkForFunctions(expr, functions)

	keys := make([]string, 0, len(traversals))
	for k := range traversals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	refs := make([]hcl.Traversal, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, traversals[k])
	}

	calls := make([]string, 0, len(functions))
	for f := range functions {
		calls = append(calls, f)
	}
	sort.Strings(calls)
	return refs, calls
}

// walkForFunctions walks the syntax tree collecting function call names,
// which Variables() does not report.
func walkForFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		for _, arg := range e.Args {
			walkForFunctions(arg, functions)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, functions)
		walkForFunctions(e.RHS, functions)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, functions)
		walkForFunctions(e.TrueResult, functions)
		walkForFunctions(e.FalseResult, functions)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, functions)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, functions)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, functions)
			walkForFunctions(item.ValueExpr, functions)
		}
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, functions)
		walkForFunctions(e.Key, functions)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, functions)
	}
}

// checkReferences reports the first variable expr uses that is neither self
// nor a local defined so far.
func checkReferences(expr hclsyntax.Expression, env map[string]node.Arg) error {
	refs, _ := References(expr)
	for _, t := range refs {
		root := t.RootName()
		if root == script.SelfName {
			continue
		}
		if _, ok := env[root]; !ok {
			return fmt.Errorf("%s: reference to undefined local %q", t.SourceRange(), root)
		}
	}
	return nil
}
