package observability

import "context"

// NoOpObserver drops every event. Subsystems constructed without an
// observer default to it, so emit paths never nil-check.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
