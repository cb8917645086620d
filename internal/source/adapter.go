// Package source defines the adapter contract for external lead directories
// and the registry the orchestrator resolves adapters from. One adapter per
// source family; the set is built explicitly at startup so it is statically
// known and testable.
package source

import (
	"context"
	"sort"
	"sync"

	"github.com/reson-group/lead-radar/internal/model"
)

// FetchParams carries the per-job scan parameters into an adapter.
type FetchParams struct {
	// Countries is the expanded ISO-2 list the adapter should cover.
	Countries []string
	// MaxPerSource caps the records one adapter may return.
	MaxPerSource int
	// SinceMonths is a recency hint; adapters that cannot filter by age
	// ignore it.
	SinceMonths int
}

// Adapter fetches raw records from one external directory. Fetch must
// observe ctx between page requests so a cancelled job stops promptly, and
// may return partial results alongside an error.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error)
}

// Registry maps source names to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its own name.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter by name, or nil when unknown.
func (r *Registry) Get(name string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[name]
}

// Names returns all registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
