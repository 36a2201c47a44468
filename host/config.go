package host

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/statefork/statefork/persist"
)

// Config holds initialization parameters for all store subsystems.
type Config struct {
	Persist  persist.Config `json:"persist"`
	Observer string         `json:"observer,omitempty"`  // named observer from the registry; empty logs via slog
	LogLevel string         `json:"log_level,omitempty"` // debug, info, warn, error
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Persist:  persist.DefaultConfig(),
		LogLevel: "info",
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Persist.Merge(&source.Persist)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
}

// LoadConfig reads a JSONC config file (JSON extended with comments and
// trailing commas), merges it with defaults, and returns the resulting
// Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
