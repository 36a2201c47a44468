// Package host assembles the state store subsystems into a single-owner
// runtime: one table, one fork registry, one persistence bridge, and the
// sync protocol endpoints, all explicitly constructed from configuration.
//
//	h, err := host.New(&cfg)
//	polls := h.Fork("polls", state.WithDefaultPersist(true))
//	polls.Set("open", 3)
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/statefork/statefork/observability"
	"github.com/statefork/statefork/persist"
	"github.com/statefork/statefork/procsync"
	"github.com/statefork/statefork/state"
	"github.com/statefork/statefork/value"
)

// Option configures a Host after config-driven initialization.
// Applied by New after cold start — overrides replace config-created defaults.
type Option func(*Host)

// WithLogger overrides the default logger (and the default SlogObserver
// built on it).
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(h *Host) { h.observer = o }
}

// WithBackend overrides the config-created durable backend.
func WithBackend(b persist.Backend) Option {
	return func(h *Host) { h.backend = b }
}

// WithSanitizer overrides the default sanitizer shared by the table and
// the bridge.
func WithSanitizer(s *value.Sanitizer) Option {
	return func(h *Host) { h.sanitizer = s }
}

// Host owns the process's state store. Construct exactly one per process
// (or per test); every fork handed out resolves into its table.
type Host struct {
	table     *state.Table
	registry  *state.Registry
	bridge    *persist.Bridge
	backend   persist.Backend
	sanitizer *value.Sanitizer
	observer  observability.Observer
	logger    *slog.Logger

	snapshotKey string
}

// New creates a Host from configuration. Subsystems are initialized from
// their config sections; functional options applied after initialization
// can override any of them for testing.
func New(cfg *Config, opts ...Option) (*Host, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	h := &Host{
		logger:      slog.Default(),
		snapshotKey: cfg.Persist.SnapshotKey,
	}
	if h.snapshotKey == "" {
		h.snapshotKey = persist.DefaultSnapshotKey
	}

	for _, opt := range opts {
		opt(h)
	}

	if cfg.Observer != "" {
		named, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("config observer: %w", err)
		}
		// A WithObserver override composes with the config-selected one
		// rather than silently shadowing it.
		h.observer = observability.Combine(named, h.observer)
	}
	if h.observer == nil {
		h.observer = observability.NewSlogObserver(h.logger)
	}
	if h.sanitizer == nil {
		h.sanitizer = value.NewSanitizer(h.observer)
	}
	if h.backend == nil {
		h.backend = persist.NewBackend(&cfg.Persist)
	}

	h.bridge = persist.NewBridge(h.backend,
		persist.WithSnapshotKey(h.snapshotKey),
		persist.WithObserver(h.observer),
		persist.WithSanitizer(h.sanitizer),
		persist.WithQueueSize(cfg.Persist.QueueSize),
	)

	h.table = state.NewTable(
		state.WithPersister(h.bridge),
		state.WithObserver(h.observer),
		state.WithSanitizer(h.sanitizer),
	)
	h.registry = state.NewRegistry(h.table)

	return h, nil
}

// Table returns the host's state table.
func (h *Host) Table() *state.Table {
	return h.table
}

// Fork creates (or re-creates, idempotently) a root-level fork.
func (h *Host) Fork(prefix string, opts ...state.ForkOption) *state.Fork {
	return h.registry.Create(prefix, opts...)
}

// Forks returns every fork prefix ever created, in creation order.
func (h *Host) Forks() []string {
	return h.registry.List()
}

// Restore loads the durable persisted snapshot into the table. A backend
// with no snapshot yet is not an error; the table is left untouched.
func (h *Host) Restore(ctx context.Context) error {
	snap, err := h.backend.Load(ctx, h.snapshotKey)
	if err != nil {
		if errors.Is(err, persist.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("restore: %w", err)
	}

	h.table.LoadBulk(snap)
	return nil
}

// Attach wires a channel to a worker process and returns the supervisor
// endpoint for it. A nil channel is allowed: Save on the returned
// supervisor resolves immediately with an empty snapshot.
func (h *Host) Attach(ch procsync.Channel) *procsync.Supervisor {
	return procsync.NewSupervisor(h.table, ch, procsync.WithObserver(h.observer))
}

// Worker returns the worker-side protocol endpoint serving this host's
// table over the channel.
func (h *Host) Worker(ch procsync.Channel) *procsync.Worker {
	return procsync.NewWorker(h.table, ch, procsync.WithObserver(h.observer))
}

// Shutdown drains the persistence bridge and stops it. The table remains
// readable; further persist-flagged writes are no longer mirrored.
func (h *Host) Shutdown(ctx context.Context) error {
	err := h.bridge.Flush(ctx)
	h.bridge.Close()
	return err
}
