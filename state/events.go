package state

import "github.com/statefork/statefork/observability"

// State event types emitted through the table's observer.
const (
	EventSet   observability.EventType = "state.set"
	EventClear observability.EventType = "state.clear"
	EventLoad  observability.EventType = "state.load"
	EventFork  observability.EventType = "state.fork"
)
