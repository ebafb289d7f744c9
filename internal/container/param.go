package container

import (
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Param is a leaf slot value: a trainable parameter or a buffer.
type Param struct {
	mu     sync.RWMutex
	value  cty.Value
	buffer bool
}

// NewParam creates a parameter holding v.
func NewParam(v cty.Value) *Param {
	return &Param{value: v}
}

// NewBuffer creates a non-trainable buffer holding v.
func NewBuffer(v cty.Value) *Param {
	return &Param{value: v, buffer: true}
}

// Value returns the current value.
func (p *Param) Value() cty.Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set replaces the value in place. Every tree holding this *Param observes
// the change.
func (p *Param) Set(v cty.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
}

// IsBuffer reports whether the slot was registered as a buffer.
func (p *Param) IsBuffer() bool {
	return p.buffer
}
