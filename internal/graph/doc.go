// Package graph provides the reference implementation of the graph a unit is
// built from, and the linearization that turns it into generated source.
//
// # Why Graph Package Exists
//
// Units consume graphs through the small Graph interface only: the ordered
// node list (to find which slots to transplant) and Linearize (to get the
// lines to synthesize). Manager is the in-memory builder used by the model
// loader, the analyzer and the tests.
//
// # Linearization
//
// Nodes are emitted in insertion order. Every node other than placeholders
// and the output becomes one assignment to its name:
//
//	w = self.fc.weight          // get_param fc.weight
//	h = self::fc(x)             // call_module fc
//	y = relu(h)                 // call_function relu
//
// Placeholders become the free variables, in order. The single output node
// becomes the result expression. Constant arguments are rendered as HCL
// literals with hclwrite, so the same value always renders to the same text.
//
// # Thread-Safety
//
// Manager is safe for concurrent use. Nodes returned from it must not be
// mutated once they have been added.
package graph
