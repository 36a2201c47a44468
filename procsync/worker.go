package procsync

import (
	"context"
	"fmt"
	"time"

	"github.com/statefork/statefork/observability"
	"github.com/statefork/statefork/state"
)

// Worker is the child-process side of the sync protocol. It answers the
// supervisor's snapshot requests, applies pushed loads, and can hand its
// state over unprompted before a graceful exit.
type Worker struct {
	table    *state.Table
	ch       Channel
	observer observability.Observer
}

// NewWorker creates a Worker serving the given table over the channel.
func NewWorker(table *state.Table, ch Channel, opts ...SyncOption) *Worker {
	o := syncOptions{observer: observability.NoOpObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Worker{table: table, ch: ch, observer: o.observer}
}

// Handoff sends the full sanitized table snapshot to the supervisor without
// waiting for acknowledgement. Called before a graceful restart.
func (w *Worker) Handoff(ctx context.Context) error {
	msg, err := SaveResponse(w.table.Snapshot())
	if err != nil {
		return err
	}
	if err := w.ch.Send(ctx, msg); err != nil {
		return fmt.Errorf("handoff: %w", err)
	}

	w.emit(ctx, EventHandoff, map[string]any{"keys": w.table.Len()})
	return nil
}

// Run serves the channel until it ends, a fault arrives, or ctx is
// cancelled. Snapshot requests are answered with the full table; state-load
// pushes are bulk-loaded as-is. A malformed payload is reported through the
// observer and skipped, never fatal.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case msg, ok := <-w.ch.Messages():
			if !ok {
				return nil
			}
			if err := w.handle(ctx, msg); err != nil {
				w.observer.OnEvent(ctx, observability.Event{
					Type:      EventError,
					Level:     observability.LevelError,
					Timestamp: time.Now(),
					Source:    "sync",
					Data:      map[string]any{"op": "handle", "type": string(msg.Type), "error": err.Error()},
				})
			}

		case err := <-w.ch.Faults():
			return err

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *Message) error {
	switch msg.Type {
	case TypeStateSave:
		if msg.Bearing() {
			// State-bearing save messages flow worker to supervisor;
			// receiving one here is a peer bug. Ignore it.
			return nil
		}
		response, err := SaveResponse(w.table.Snapshot())
		if err != nil {
			return err
		}
		if err := w.ch.Send(ctx, response); err != nil {
			return err
		}
		w.emit(ctx, EventSave, map[string]any{"keys": w.table.Len()})
		return nil

	case TypeStateLoad:
		snap, err := msg.Snapshot()
		if err != nil {
			return err
		}
		w.table.LoadBulk(snap)
		w.emit(ctx, EventLoad, map[string]any{"keys": len(snap)})
		return nil

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (w *Worker) emit(ctx context.Context, eventType observability.EventType, data map[string]any) {
	w.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "sync",
		Data:      data,
	})
}
