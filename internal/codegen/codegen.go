// Package codegen synthesizes the source text of a unit's forward method
// from a linearized graph.
package codegen

import (
	"strings"
)

// Indent is the indentation used for one nesting level.
const Indent = "    "

// FuncName is the name of the synthesized function.
const FuncName = "forward"

// Synthesize returns the definition of a function named forward whose
// parameters are self followed by free in order. Every body line is
// indented one level and followed by a return of result.
//
// The output depends only on its inputs.
func Synthesize(body []string, result string, free []string) string {
	var sb strings.Builder

	sb.WriteString("def ")
	sb.WriteString(FuncName)
	sb.WriteString("(")
	sb.WriteString(strings.Join(append([]string{"self"}, free...), ", "))
	sb.WriteString("):\n")

	for _, line := range body {
		for _, sub := range strings.Split(line, "\n") {
			if strings.TrimSpace(sub) == "" {
				sb.WriteString("\n")
				continue
			}
			sb.WriteString(Indent)
			sb.WriteString(sub)
			sb.WriteString("\n")
		}
	}

	sb.WriteString(Indent)
	sb.WriteString("return ")
	sb.WriteString(result)
	sb.WriteString("\n")
	return sb.String()
}
