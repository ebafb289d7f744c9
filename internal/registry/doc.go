// Package registry provides the central "glue" for the module system.
//
// The Registry maps the kind names used in model files and persisted bundles
// (e.g. "linear") to the compiled Go methods that implement them, together
// with the parameters each kind expects.
//
// Modules register their kinds at startup. Containers created through the
// registry carry the kind's method, and Validate checks a container tree
// against the parameter declarations so that a model and the Go code are
// known to agree before anything runs.
package registry
