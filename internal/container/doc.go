// Package container implements the stateful tree an executable unit is bound
// to: named slots holding parameters (*Param) or nested containers
// (*Container), plus a per-instance method slot.
//
// # Identity
//
// Containers and parameters are always handled by pointer. Two trees that
// hold the same *Param observe the same underlying value, which is how
// weight sharing survives transplantation and restoration. Transplant relies
// on pointer comparison for its ancestor short-circuit.
//
// # Methods
//
// Every Container owns its method slot. Installing a method on one container
// never affects another container of the same Kind, so there is no shared
// type-level state to collide on.
//
// # Thread-Safety
//
// Slot maps and parameter values are guarded by RW mutexes. Concurrent reads
// (for example concurrent calls into a bound method) are safe as long as no
// goroutine mutates the tree at the same time.
package container
