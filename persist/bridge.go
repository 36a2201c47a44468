package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/statefork/statefork/observability"
	"github.com/statefork/statefork/state"
	"github.com/statefork/statefork/value"
)

// Persistence event types.
const (
	EventFlush observability.EventType = "persist.flush"
	EventError observability.EventType = "persist.error"
)

// DefaultSnapshotKey is the well-known backend key holding the cumulative
// persisted snapshot.
const DefaultSnapshotKey = "statefork/snapshot"

const defaultQueueSize = 64

type job struct {
	key string
	val any

	// barrier marks a Flush synchronization point: the worker closes it
	// once every job enqueued before it has been processed.
	barrier chan struct{}
}

// Bridge is the fire-and-forget path from persist-flagged writes to the
// durable backend. Each write becomes a read-modify-write of the snapshot
// key, executed by a single worker goroutine so writes land in issue order
// and never clobber each other. Backend failures are reported through the
// observer and never retried; the in-memory write they mirrored is not
// rolled back, so memory and durable storage can diverge after a failure.
type Bridge struct {
	backend   Backend
	sanitizer *value.Sanitizer
	observer  observability.Observer
	key       string

	jobs chan job
	done chan struct{}

	// mu makes the closed check and the enqueue atomic with respect to
	// Close, so Close never closes the channel under a pending send.
	mu     sync.RWMutex
	closed bool
}

// BridgeOption configures a Bridge at construction.
type BridgeOption func(*Bridge)

// WithSnapshotKey overrides the well-known snapshot key.
func WithSnapshotKey(key string) BridgeOption {
	return func(b *Bridge) { b.key = key }
}

// WithObserver installs the observer for bridge events.
func WithObserver(o observability.Observer) BridgeOption {
	return func(b *Bridge) { b.observer = o }
}

// WithSanitizer overrides the sanitizer applied before durable writes.
func WithSanitizer(s *value.Sanitizer) BridgeOption {
	return func(b *Bridge) { b.sanitizer = s }
}

// WithQueueSize sets the job queue capacity.
func WithQueueSize(n int) BridgeOption {
	return func(b *Bridge) {
		if n > 0 {
			b.jobs = make(chan job, n)
		}
	}
}

// NewBridge creates a Bridge over the given backend and starts its worker.
func NewBridge(backend Backend, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		backend:  backend,
		observer: observability.NoOpObserver{},
		key:      DefaultSnapshotKey,
		jobs:     make(chan job, defaultQueueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.sanitizer == nil {
		b.sanitizer = value.NewSanitizer(b.observer)
	}

	go b.worker()

	return b
}

// Persist queues a durable mirror of the given key and value. It never
// waits for the write to land, though a full queue applies backpressure
// until the worker drains a slot. The value is sanitized at call time, so
// later mutation by the caller does not leak into storage; values that
// sanitize to absent are persisted as null.
func (b *Bridge) Persist(key string, val any) {
	sanitized, _ := b.sanitizer.Sanitize(val)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.jobs <- job{key: key, val: sanitized}
}

// Flush blocks until every previously queued write has been handed to the
// backend, or ctx expires. It is the shutdown and test synchronization
// point; Persist itself never waits.
func (b *Bridge) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	select {
	case b.jobs <- job{barrier: barrier}:
		b.mu.RUnlock()
	case <-ctx.Done():
		b.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after draining queued jobs. Persist calls after
// Close are dropped.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.jobs)
	b.mu.Unlock()

	<-b.done
}

// SnapshotKey returns the backend key the bridge writes to.
func (b *Bridge) SnapshotKey() string {
	return b.key
}

func (b *Bridge) worker() {
	defer close(b.done)

	for j := range b.jobs {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}
		b.apply(j)
	}
}

// apply performs one read-modify-write of the snapshot key. A missing
// snapshot reads as empty; any other backend failure skips the job.
func (b *Bridge) apply(j job) {
	ctx := context.Background()

	snap, err := b.backend.Load(ctx, b.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			b.emitError("load", j.key, err)
			return
		}
		snap = state.Snapshot{}
	}

	snap[j.key] = j.val

	if err := b.backend.Store(ctx, b.key, snap); err != nil {
		b.emitError("store", j.key, err)
		return
	}

	b.observer.OnEvent(ctx, observability.Event{
		Type:      EventFlush,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "persist",
		Data:      map[string]any{"key": j.key, "snapshot_keys": len(snap)},
	})
}

func (b *Bridge) emitError(op, key string, err error) {
	b.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventError,
		Level:     observability.LevelError,
		Timestamp: time.Now(),
		Source:    "persist",
		Data:      map[string]any{"op": op, "key": key, "error": err.Error()},
	})
}
