package host_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/statefork/statefork/host"
)

func TestLoadConfig_JSONCWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statefork.jsonc")
	content := `{
	// durable snapshots live here
	"persist": {
		"path": "/var/lib/statefork",
		"queue_size": 32, // trailing comma below is fine too
	},
	"observer": "noop",
	"log_level": "debug",
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := host.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Persist.Path != "/var/lib/statefork" {
		t.Errorf("Persist.Path = %q, want configured value", cfg.Persist.Path)
	}
	if cfg.Persist.QueueSize != 32 {
		t.Errorf("Persist.QueueSize = %d, want 32", cfg.Persist.QueueSize)
	}
	if cfg.Observer != "noop" {
		t.Errorf("Observer = %q, want \"noop\"", cfg.Observer)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want \"debug\"", cfg.LogLevel)
	}
	// Defaults fill unspecified fields.
	if cfg.Persist.SnapshotKey == "" {
		t.Error("SnapshotKey default was not applied")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := host.LoadConfig(filepath.Join(t.TempDir(), "absent.jsonc")); err == nil {
		t.Error("LoadConfig(missing) error = nil, want error")
	}
}

func TestConfig_MergeDelegates(t *testing.T) {
	cfg := host.DefaultConfig()
	cfg.Merge(&host.Config{LogLevel: "warn"})

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want merged value", cfg.LogLevel)
	}
	if cfg.Persist.SnapshotKey == "" {
		t.Error("Merge clobbered persist defaults")
	}
}
