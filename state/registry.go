package state

import "sync"

// Registry tracks every fork prefix ever allocated, in creation order, for
// introspection. It does not participate in key resolution. Registration is
// idempotent: re-creating a prefix does not add a second entry.
type Registry struct {
	table *Table

	mu       sync.Mutex
	prefixes []string
	seen     map[string]bool
}

// NewRegistry creates a Registry issuing forks over the given table.
func NewRegistry(table *Table) *Registry {
	return &Registry{
		table: table,
		seen:  make(map[string]bool),
	}
}

// Create records the prefix and returns a root-level fork bound to it.
// Creating the same prefix twice returns an equivalent fork and leaves the
// registry unchanged.
func (r *Registry) Create(prefix string, opts ...ForkOption) *Fork {
	fork := &Fork{
		table:    r.table,
		registry: r,
		prefix:   prefix,
	}
	for _, opt := range opts {
		opt(fork)
	}

	r.register(prefix)
	r.table.emit(EventFork, map[string]any{"prefix": prefix})

	return fork
}

// List returns every prefix ever created, in first-creation order, each
// appearing once.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.prefixes))
	copy(out, r.prefixes)
	return out
}

func (r *Registry) register(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen[prefix] {
		return
	}
	r.seen[prefix] = true
	r.prefixes = append(r.prefixes, prefix)
}
