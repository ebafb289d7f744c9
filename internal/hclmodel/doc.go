// Package hclmodel loads a template container and its graph from HCL files.
//
// A model block declares the container tree: param and buffer blocks hold
// values, module blocks nest containers of a registered kind, and a module
// with share aliases an existing slot so both paths hold the same object.
// A graph block lists nodes in order. Node arguments that are a bare name
// refer to an earlier node; anything else is evaluated as a constant.
package hclmodel
