package observability

import "context"

// MultiObserver forwards each event to every observer in the slice, in
// order. The host uses it to compose a config-selected observer with a
// programmatic override.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}

// Combine merges observers into a single Observer, dropping nils. Zero
// usable observers yield a NoOpObserver; exactly one is returned as-is,
// avoiding the fan-out indirection.
func Combine(observers ...Observer) Observer {
	kept := make(MultiObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			kept = append(kept, obs)
		}
	}

	switch len(kept) {
	case 0:
		return NoOpObserver{}
	case 1:
		return kept[0]
	default:
		return kept
	}
}
