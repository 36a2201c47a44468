// Package persist mirrors persist-flagged state writes into a durable
// key-value backend. The backend holds one well-known key whose value is
// the cumulative persisted snapshot: it only ever grows or has individual
// keys overwritten, and clearing the in-memory table never touches it.
package persist

import (
	"context"
	"sync"

	"github.com/statefork/statefork/state"
)

// Backend is the minimal contract to the durable key-value store. The
// on-disk format is the implementation's business; callers see snapshots.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Load retrieves the snapshot stored under key.
	// Returns ErrKeyNotFound if the key has never been stored.
	Load(ctx context.Context, key string) (state.Snapshot, error)
	// Store persists the snapshot under key, overwriting any previous value.
	Store(ctx context.Context, key string, snap state.Snapshot) error
}

// MemoryBackend is an in-process Backend for tests and ephemeral runs.
// Snapshots are stored in encoded form, so stored state is isolated from
// later mutation by the caller, same as a real durable store.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(_ context.Context, key string) (state.Snapshot, error) {
	b.mu.RLock()
	data, exists := b.entries[key]
	b.mu.RUnlock()

	if !exists {
		return nil, ErrKeyNotFound
	}
	return state.DecodeSnapshot(data)
}

func (b *MemoryBackend) Store(_ context.Context, key string, snap state.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.entries[key] = data
	b.mu.Unlock()
	return nil
}
