// Package state implements the process-wide hierarchical state table and
// the fork handles application code uses to read and write it without key
// collisions. All data lives in the Table; forks are lightweight prefix
// handles over it.
package state

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/statefork/statefork/observability"
	"github.com/statefork/statefork/value"
)

// Persister mirrors persist-flagged writes into durable storage.
// Implementations queue the work rather than writing synchronously; a full
// queue may briefly apply backpressure to the writer.
type Persister interface {
	Persist(key string, val any)
}

// Table is the process-wide mapping from fully-qualified key to value. It is
// the single source of truth for in-memory state: constructed once by its
// owner and passed by handle into every fork, never an implicit global.
//
// Any string is accepted as a key; no format validation is performed.
// Writes apply strictly in call order. All methods are safe for concurrent
// use.
type Table struct {
	mu        sync.RWMutex
	entries   map[string]any
	persister Persister
	sanitizer *value.Sanitizer
	observer  observability.Observer
}

// TableOption configures a Table at construction.
type TableOption func(*Table)

// WithPersister installs the persistence bridge invoked on persist-flagged
// writes. Without one, the persist flag is a no-op.
func WithPersister(p Persister) TableOption {
	return func(t *Table) { t.persister = p }
}

// WithObserver installs the observer for table events.
func WithObserver(o observability.Observer) TableOption {
	return func(t *Table) { t.observer = o }
}

// WithSanitizer overrides the sanitizer used by Snapshot.
func WithSanitizer(s *value.Sanitizer) TableOption {
	return func(t *Table) { t.sanitizer = s }
}

// NewTable creates an empty Table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		entries:  make(map[string]any),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sanitizer == nil {
		t.sanitizer = value.NewSanitizer(t.observer)
	}
	return t
}

// Get returns the value stored under key and whether the key exists.
func (t *Table) Get(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	val, exists := t.entries[key]
	return val, exists
}

// Set stores value under key. When persist is true the write is also handed
// to the persister, fire-and-forget: the in-memory write never waits on
// durable storage, and a durable failure does not roll it back.
func (t *Table) Set(key string, val any, persist bool) {
	t.mu.Lock()
	t.entries[key] = val
	t.mu.Unlock()

	t.emit(EventSet, map[string]any{"key": key, "persist": persist})

	if persist && t.persister != nil {
		t.persister.Persist(key, val)
	}
}

// Clear removes every entry. The durable snapshot, if any, is untouched.
func (t *Table) Clear() {
	t.mu.Lock()
	n := len(t.entries)
	t.entries = make(map[string]any)
	t.mu.Unlock()

	t.emit(EventClear, map[string]any{"keys": n})
}

// LoadBulk merges the incoming mapping into the table: every incoming key
// overwrites the corresponding entry, keys absent from the mapping are left
// untouched. Values are loaded as-is, with no shape validation.
func (t *Table) LoadBulk(mapping map[string]any) {
	t.mu.Lock()
	maps.Copy(t.entries, mapping)
	t.mu.Unlock()

	t.emit(EventLoad, map[string]any{"keys": len(mapping)})
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}

// Keys returns every key in sorted order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.Sorted(maps.Keys(t.entries))
}

// Snapshot returns a sanitized copy of the full table, suitable for
// persistence or cross-process transfer. Entries whose values sanitize to
// absent are dropped from the snapshot; the table itself is not modified.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	entries := maps.Clone(t.entries)
	t.mu.RUnlock()

	snap := make(Snapshot, len(entries))
	for key, val := range entries {
		if sv, present := t.sanitizer.Sanitize(val); present {
			snap[key] = sv
		}
	}
	return snap
}

func (t *Table) emit(eventType observability.EventType, data map[string]any) {
	t.observer.OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      data,
	})
}
