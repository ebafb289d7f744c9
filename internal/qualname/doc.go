// internal/qualname/doc.go

/*
Package qualname provides a structured representation for qualified names
that address a slot inside a container tree, based on the canonical format
`a.b.c`.

The format is a dot-separated sequence of identifiers. Every segment must be
a valid HCL identifier, because qualified names are rendered verbatim into
generated source as traversals (`self.a.b.c`) and namespaced calls
(`self::a::b::c(...)`).
*/
package qualname
