// Package plugin holds the analyzer registry and the execution contract that
// runs registered analyzers over a completed job's normalized data.
package plugin

import (
	"sort"
	"sync"

	"github.com/repofetch/repofetch/internal/core"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// Registry maps plugin identifiers to analyzers. It is populated at process
// start and treated as immutable afterwards.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]core.Analyzer
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]core.Analyzer)}
}

// Register adds an analyzer under name. Registering the same name twice is a
// conflict, never a silent overwrite.
func (r *Registry) Register(name string, fn core.Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[name]; exists {
		return apperrors.Newf(apperrors.ErrCodeConflict, "plugin %q already registered", name)
	}
	r.plugins[name] = fn
	return nil
}

// Get returns the analyzer registered under name.
func (r *Registry) Get(name string) (core.Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.plugins[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeUnknownPlugin, "plugin %q not found", name)
	}
	return fn, nil
}

// Names returns the registered plugin identifiers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
