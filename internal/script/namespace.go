package script

import (
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Namespace is the environment source is executed in: the library functions
// and variables it may refer to, and the functions it defines.
type Namespace struct {
	mu        sync.RWMutex
	functions map[string]function.Function
	variables map[string]cty.Value
	defs      map[string]*Func
}

// NewNamespace creates a namespace pre-populated with the given functions
// and variables. Both maps are copied.
func NewNamespace(functions map[string]function.Function, variables map[string]cty.Value) *Namespace {
	ns := &Namespace{
		functions: make(map[string]function.Function, len(functions)),
		variables: make(map[string]cty.Value, len(variables)),
		defs:      make(map[string]*Func),
	}
	for k, v := range functions {
		ns.functions[k] = v
	}
	for k, v := range variables {
		ns.variables[k] = v
	}
	return ns
}

// Child returns a fresh namespace with the same library functions and
// variables but no definitions.
func (ns *Namespace) Child() *Namespace {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return NewNamespace(ns.functions, ns.variables)
}

// Lookup returns the function defined under name.
func (ns *Namespace) Lookup(name string) (*Func, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	f, ok := ns.defs[name]
	return f, ok
}

// Defined returns the names of all defined functions, sorted.
func (ns *Namespace) Defined() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	names := make([]string, 0, len(ns.defs))
	for n := range ns.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasFunction reports whether name is a library function.
func (ns *Namespace) HasFunction(name string) bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	_, ok := ns.functions[name]
	return ok
}

func (ns *Namespace) define(f *Func) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.defs[f.def.Name] = f
}

func (ns *Namespace) snapshot() (map[string]function.Function, map[string]cty.Value) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	funcs := make(map[string]function.Function, len(ns.functions))
	for k, v := range ns.functions {
		funcs[k] = v
	}
	vars := make(map[string]cty.Value, len(ns.variables))
	for k, v := range ns.variables {
		vars[k] = v
	}
	return funcs, vars
}

// Exec defines every function of prog in ns, replacing earlier definitions
// of the same name.
func Exec(prog *Program, ns *Namespace) {
	for _, def := range prog.Funcs {
		ns.define(&Func{def: def, key: prog.Key, source: prog.Source, ns: ns})
	}
}
