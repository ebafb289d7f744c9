// internal/qualname/parser.go
package qualname

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// segmentRegex matches a single segment; the stricter identifier rules are
// delegated to hclsyntax.ValidIdentifier.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// reserved names cannot appear as the first segment because they collide
// with names the generated source defines for itself.
var reserved = map[string]struct{}{
	"self": {},
}

// Parse creates a Name by parsing its canonical dotted representation.
func Parse(raw string) (*Name, error) {
	if raw == "" {
		return nil, fmt.Errorf("qualified name cannot be empty")
	}

	n := &Name{}
	for i, seg := range strings.Split(raw, ".") {
		if seg == "" {
			return nil, fmt.Errorf("qualified name %q contains empty segment", raw)
		}
		if !segmentRegex.MatchString(seg) || !hclsyntax.ValidIdentifier(seg) {
			return nil, fmt.Errorf("invalid segment %q in qualified name %q", seg, raw)
		}
		if _, ok := reserved[seg]; ok && i == 0 {
			return nil, fmt.Errorf("qualified name %q starts with reserved segment %q", raw, seg)
		}
		n.Path = append(n.Path, seg)
	}
	return n, nil
}

// FromFunctionName parses a namespaced function name such as self::a::b
// back into the Name a.b. ok is false when fn is not rooted at root.
func FromFunctionName(root, fn string) (*Name, bool) {
	prefix := root + "::"
	if !strings.HasPrefix(fn, prefix) {
		return nil, false
	}
	n, err := Parse(strings.ReplaceAll(strings.TrimPrefix(fn, prefix), "::", "."))
	if err != nil {
		return nil, false
	}
	return n, true
}
