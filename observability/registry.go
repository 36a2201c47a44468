package observability

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownObserver is returned when a config names an observer that was
// never registered.
var ErrUnknownObserver = errors.New("unknown observer")

// The named registry lets configuration pick a diagnostics sink by name
// (host.Config's "observer" field). "noop" and "slog" are always available;
// applications register their own before constructing a host.
var (
	registryMu sync.RWMutex
	registry   = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(nil),
	}
)

// GetObserver resolves a registered observer by name.
func GetObserver(name string) (Observer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	obs, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObserver, name)
	}
	return obs, nil
}

// RegisterObserver adds or replaces a named observer.
func RegisterObserver(name string, observer Observer) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[name] = observer
}
