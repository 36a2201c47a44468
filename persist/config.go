package persist

// Config holds persistence initialization parameters.
type Config struct {
	Path        string `json:"path,omitempty"`         // FileBackend root; empty selects the memory backend.
	SnapshotKey string `json:"snapshot_key,omitempty"` // Backend key for the snapshot; empty uses DefaultSnapshotKey.
	QueueSize   int    `json:"queue_size,omitempty"`   // Bridge job queue capacity.
}

// DefaultConfig returns the default persistence configuration (in-memory).
func DefaultConfig() Config {
	return Config{SnapshotKey: DefaultSnapshotKey}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.SnapshotKey != "" {
		c.SnapshotKey = source.SnapshotKey
	}
	if source.QueueSize > 0 {
		c.QueueSize = source.QueueSize
	}
}

// NewBackend creates a Backend from configuration: file-backed when Path is
// set, in-memory otherwise.
func NewBackend(cfg *Config) Backend {
	if cfg.Path == "" {
		return NewMemoryBackend()
	}
	return NewFileBackend(cfg.Path)
}
