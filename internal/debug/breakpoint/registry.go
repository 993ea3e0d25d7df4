// Package breakpoint tracks per-file line breakpoints for one debug session.
package breakpoint

import (
	"path/filepath"
	"strings"
	"sync"
)

// Registry holds breakpoint line sets keyed by normalized filename. It is
// read from the interpreter thread on every line event and mutated from the
// network thread, so every access takes the lock.
type Registry struct {
	mu    sync.Mutex
	lines map[string]map[int]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{lines: map[string]map[int]struct{}{}}
}

// NormalizeFile reduces a path to its lowercase basename, the form used as
// registry key and for attachment matching.
func NormalizeFile(path string) string {
	return strings.ToLower(filepath.Base(path))
}

// Set inserts a breakpoint. Idempotent: lines form a set per file. The
// client-assigned id is accepted for protocol symmetry but hit-testing is by
// file and line only.
func (r *Registry) Set(file string, line int, id int) {
	file = NormalizeFile(file)

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.lines[file]
	if !ok {
		set = map[int]struct{}{}
		r.lines[file] = set
	}
	set[line] = struct{}{}
}

// Clear empties the line set for file. Clearing an unknown file is a no-op.
func (r *Registry) Clear(file string) {
	file = NormalizeFile(file)

	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.lines[file]; ok {
		clear(set)
	}
}

// Hit reports whether a breakpoint exists at file:line.
func (r *Registry) Hit(file string, line int) bool {
	file = NormalizeFile(file)

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.lines[file]
	if !ok {
		return false
	}
	_, hit := set[line]
	return hit
}

// Lines returns the breakpoint lines currently set for file.
func (r *Registry) Lines(file string) []int {
	file = NormalizeFile(file)

	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.lines[file]
	out := make([]int, 0, len(set))
	for line := range set {
		out = append(out, line)
	}
	return out
}
