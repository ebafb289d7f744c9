// Package script compiles and runs the source text synthesized for a unit.
//
// # Source Form
//
// A program is a sequence of function definitions:
//
//	def forward(self, x):
//	    h = self::fc(x)
//	    y = relu(add(h, self.bias))
//	    return y
//
// The header names the function and its parameters, the first of which must
// be self. Every body line is indented and is either an assignment to a local
// name or the final return. Right-hand sides are HCL native-syntax
// expressions. Parameters of the bound container are reachable as the object
// `self` (self.fc.weight); methods of nested containers are reachable as
// namespaced functions (self::fc(x)).
//
// # Compile, Execute, Bind
//
// Compile parses source into a Program using the synthetic key as the
// filename of every expression, so diagnostics point back into the source
// registry. Exec defines a Program's functions in a Namespace, which also
// supplies the library functions and variables the source refers to. Bind
// runs the whole sequence for one piece of source and extracts the function
// named forward.
package script
