package procsync

import (
	"context"
	"fmt"
	"time"

	"github.com/statefork/statefork/observability"
	"github.com/statefork/statefork/state"
)

// Sync protocol event types.
const (
	EventSave    observability.EventType = "sync.save"
	EventLoad    observability.EventType = "sync.load"
	EventHandoff observability.EventType = "sync.handoff"
	EventError   observability.EventType = "sync.error"
)

// Supervisor is the parent-process side of the sync protocol: it snapshots
// state out of a worker it owns and loads captured snapshots into its own
// table.
type Supervisor struct {
	table    *state.Table
	ch       Channel
	observer observability.Observer
}

// SyncOption configures a Supervisor or Worker.
type SyncOption func(*syncOptions)

type syncOptions struct {
	observer observability.Observer
}

// WithObserver installs the observer for sync events.
func WithObserver(o observability.Observer) SyncOption {
	return func(opts *syncOptions) { opts.observer = o }
}

// NewSupervisor creates a Supervisor over the given table and worker
// channel. A nil channel means there is no worker: Save resolves
// immediately with an empty snapshot.
func NewSupervisor(table *state.Table, ch Channel, opts ...SyncOption) *Supervisor {
	o := syncOptions{observer: observability.NoOpObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Supervisor{table: table, ch: ch, observer: o.observer}
}

// Save requests the worker's full state snapshot and waits for it. Exactly
// one of three outcomes terminates the wait: the worker's next state-bearing
// state-save message (resolve, empty snapshot allowed), a channel fault
// (fail with it), or ctx expiry (there is no built-in timeout; the caller
// imposes any bound through ctx). If there is no worker, Save returns an
// empty snapshot immediately.
func (s *Supervisor) Save(ctx context.Context) (state.Snapshot, error) {
	if s.ch == nil {
		s.emit(ctx, EventSave, observability.LevelVerbose, map[string]any{"worker": false})
		return state.Snapshot{}, nil
	}

	if err := s.ch.Send(ctx, SaveRequest()); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	for {
		select {
		case msg, ok := <-s.ch.Messages():
			if !ok {
				return nil, ErrChannelClosed
			}
			if msg.Type != TypeStateSave || !msg.Bearing() {
				continue
			}
			snap, err := msg.Snapshot()
			if err != nil {
				return nil, fmt.Errorf("save response: %w", err)
			}
			s.emit(ctx, EventSave, observability.LevelVerbose, map[string]any{"worker": true, "keys": len(snap)})
			return snap, nil

		case err := <-s.ch.Faults():
			s.emit(ctx, EventError, observability.LevelError, map[string]any{"op": "save", "error": err.Error()})
			return nil, err

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Load merges a previously captured snapshot into the supervisor's own
// table. It never fails: values are loaded as-is.
func (s *Supervisor) Load(snap state.Snapshot) {
	s.table.LoadBulk(snap)
	s.emit(context.Background(), EventLoad, observability.LevelVerbose, map[string]any{"keys": len(snap)})
}

// SendLoad pushes a snapshot to the worker for it to bulk-load, typically
// right after spawning a replacement process.
func (s *Supervisor) SendLoad(ctx context.Context, snap state.Snapshot) error {
	if s.ch == nil {
		return ErrChannelClosed
	}

	msg, err := LoadMessage(snap)
	if err != nil {
		return err
	}
	if err := s.ch.Send(ctx, msg); err != nil {
		return fmt.Errorf("load push: %w", err)
	}

	s.emit(ctx, EventLoad, observability.LevelVerbose, map[string]any{"keys": len(snap), "pushed": true})
	return nil
}

func (s *Supervisor) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "sync",
		Data:      data,
	})
}
