// Package procsync implements the request/response protocol that snapshots
// state out of a terminating worker process and reloads it into a new one.
// Messages travel over a Channel: an in-memory pair for in-process
// supervision and tests, or a CBOR-framed pipe across a real process
// boundary.
package procsync

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/statefork/statefork/state"
)

// Type tags the sync message union.
type Type string

const (
	// TypeStateSave is both the supervisor's snapshot request (no state)
	// and the worker's response or unsolicited handoff (bearing state).
	TypeStateSave Type = "state-save"
	// TypeStateLoad carries a snapshot to be bulk-loaded by the receiver.
	TypeStateLoad Type = "state-load"
)

// Message is one frame of the sync protocol. State holds the JSON-encoded
// snapshot for state-bearing messages and is empty on requests.
type Message struct {
	ID    string `cbor:"id" json:"id"`
	Type  Type   `cbor:"type" json:"type"`
	State []byte `cbor:"state,omitempty" json:"state,omitempty"`
}

// SaveRequest builds a snapshot request.
func SaveRequest() *Message {
	return &Message{ID: newID(), Type: TypeStateSave}
}

// SaveResponse builds a state-bearing save message. An empty snapshot still
// produces a state payload, so the receiver can tell a response from a
// request.
func SaveResponse(snap state.Snapshot) (*Message, error) {
	data, err := snap.Encode()
	if err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	return &Message{ID: newID(), Type: TypeStateSave, State: data}, nil
}

// LoadMessage builds a state-load push carrying the snapshot.
func LoadMessage(snap state.Snapshot) (*Message, error) {
	data, err := snap.Encode()
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	return &Message{ID: newID(), Type: TypeStateLoad, State: data}, nil
}

// Bearing reports whether the message carries a state payload.
func (m *Message) Bearing() bool {
	return len(m.State) > 0
}

// Snapshot decodes the message's state payload.
func (m *Message) Snapshot() (state.Snapshot, error) {
	return state.DecodeSnapshot(m.State)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
