package state

import (
	"encoding/json"
	"fmt"
)

// Snapshot is a full mapping of fully-qualified key to sanitized value, as
// produced by Table.Snapshot and exchanged with durable storage and the
// sync protocol. Ordered objects in the value domain marshal with their
// field order intact.
type Snapshot map[string]any

// Encode serializes the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot deserializes a snapshot produced by Encode. Empty input
// decodes to an empty snapshot. Values decode into the generic JSON shapes;
// no validation is performed beyond well-formedness.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}
