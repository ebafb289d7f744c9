// Package source provides the registry that retains generated source text
// under synthetic keys so that debugging and diagnostic tooling can resolve
// "file" contents for code that never existed on disk.
//
// # Keys
//
// Every Register call allocates a fresh key of the form <generated:N> from a
// monotonic counter. Keys are never reused by the same Registry.
//
// # Lifetime
//
// Entries live until they are released explicitly (Release, Reset) or until
// the owner arranges for them to be released (the unit package releases the
// keys it issued when a unit is garbage collected). A process that creates
// many short-lived units against Default without releasing them will grow
// the registry without bound.
//
// # Resolution
//
// Resolve answers for keys the registry issued and falls back to reading the
// filesystem for anything else, mirroring what a source-line cache does for
// ordinary files.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
)

// Default is the process-wide registry used when no session registry is
// supplied.
var Default = New()

// Registry maps synthetic keys to generated source text.
type Registry struct {
	mu      sync.Mutex
	next    uint64
	entries map[string]string
}

// New creates an empty registry. Use one per session to scope entries and
// tear them down together.
func New() *Registry {
	return &Registry{
		entries: make(map[string]string),
	}
}

// Register stores src under a newly allocated key and returns the key.
func (r *Registry) Register(src string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("<generated:%d>", r.next)
	r.next++
	r.entries[key] = src
	return key
}

// Owns reports whether key was issued by this registry and is still retained.
func (r *Registry) Owns(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Text returns the full source stored under key.
func (r *Registry) Text(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.entries[key]
	return src, ok
}

// Lines returns the source stored under key split into lines, each keeping
// its trailing newline.
func (r *Registry) Lines(key string) ([]string, bool) {
	src, ok := r.Text(key)
	if !ok {
		return nil, false
	}
	return splitLines(src), true
}

// Resolve returns the lines for key. Keys issued by the registry are served
// from memory; any other key is treated as a filesystem path.
func (r *Registry) Resolve(key string) ([]string, error) {
	if lines, ok := r.Lines(key); ok {
		return lines, nil
	}
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("resolving source %q: %w", key, err)
	}
	return splitLines(string(data)), nil
}

// Release drops the entry for key. Releasing an unknown key is a no-op.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Reset drops every entry. The key counter keeps counting so that keys
// issued after a reset never collide with earlier ones.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]string)
}

// Len returns the number of retained entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Files returns a snapshot of the retained entries as HCL files, suitable for
// hcl.NewDiagnosticTextWriter.
func (r *Registry) Files() map[string]*hcl.File {
	r.mu.Lock()
	defer r.mu.Unlock()

	files := make(map[string]*hcl.File, len(r.entries))
	for key, src := range r.entries {
		files[key] = &hcl.File{Bytes: []byte(src)}
	}
	return files
}

// DiagnosticWriter returns a diagnostic writer that can print snippets of
// generated code for diagnostics whose ranges point at registry keys.
func (r *Registry) DiagnosticWriter(w io.Writer, width uint, color bool) hcl.DiagnosticWriter {
	return hcl.NewDiagnosticTextWriter(w, r.Files(), width, color)
}

func splitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.SplitAfter(src, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
