package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/graphunit/internal/container"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered kinds for a single application instance.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		kinds: make(map[string]*Kind),
	}
}

// NewWith creates a registry populated by the given modules.
func NewWith(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Method returns the method of the kind registered under name.
func (r *Registry) Method(name string) (container.Method, bool) {
	k, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return k.Method, true
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for n := range r.kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewContainer creates an empty container of the named kind with the kind's
// method installed.
func (r *Registry) NewContainer(kind string) (*container.Container, error) {
	k, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	c := container.New(kind)
	c.SetMethod(k.Method)
	return c, nil
}
