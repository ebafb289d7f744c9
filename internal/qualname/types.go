// internal/qualname/types.go
package qualname

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Name is the structured form of a dotted slot path.
type Name struct {
	Path []string
}

// String serializes the Name into its canonical dotted representation.
func (n *Name) String() string {
	if n == nil {
		return ""
	}
	return strings.Join(n.Path, ".")
}

// Equal reports whether both names address the same path.
func (n *Name) Equal(other *Name) bool {
	if n == nil || other == nil {
		return n == other
	}
	if len(n.Path) != len(other.Path) {
		return false
	}
	for i := range n.Path {
		if n.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// Split returns the intermediate segments and the final field.
func (n *Name) Split() (prefix []string, field string) {
	last := len(n.Path) - 1
	return n.Path[:last], n.Path[last]
}

// Traversal renders the name as an HCL traversal rooted at root,
// e.g. root.a.b for the name a.b.
func (n *Name) Traversal(root string) hcl.Traversal {
	t := hcl.Traversal{hcl.TraverseRoot{Name: root}}
	for _, seg := range n.Path {
		t = append(t, hcl.TraverseAttr{Name: seg})
	}
	return t
}

// FunctionName renders the name as an HCL namespaced function name,
// e.g. root::a::b for the name a.b.
func (n *Name) FunctionName(root string) string {
	return root + "::" + strings.Join(n.Path, "::")
}
