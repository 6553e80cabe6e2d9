package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Loop defaults
	if cfg.Loop.TickMillis != 50 {
		t.Errorf("Expected 50ms tick, got %d", cfg.Loop.TickMillis)
	}
	if cfg.Loop.PublishEveryTicks != 100 {
		t.Errorf("Expected publish every 100 ticks, got %d", cfg.Loop.PublishEveryTicks)
	}
	if cfg.Loop.TickInterval() != 50*time.Millisecond {
		t.Errorf("Expected tick interval 50ms, got %v", cfg.Loop.TickInterval())
	}

	// Tracker defaults
	if cfg.Tracker.Cooldown() != time.Minute {
		t.Errorf("Expected 60s cooldown, got %v", cfg.Tracker.Cooldown())
	}
	if cfg.Tracker.IdleTimeout() != time.Minute {
		t.Errorf("Expected 60s idle timeout, got %v", cfg.Tracker.IdleTimeout())
	}

	// Capture defaults
	if cfg.Capture.LastInterfaceFile != "config.dat" {
		t.Errorf("Expected config.dat interface file, got %s", cfg.Capture.LastInterfaceFile)
	}

	// Server defaults
	if cfg.Server.Enabled {
		t.Error("Expected server disabled by default")
	}
	if cfg.Server.Addr() != "127.0.0.1:8765" {
		t.Errorf("Expected 127.0.0.1:8765, got %s", cfg.Server.Addr())
	}

	// Database defaults
	if cfg.Database.Enabled {
		t.Error("Expected database sink disabled by default")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Database.StaleAfter() != 24*time.Hour {
		t.Errorf("Expected 24h stale cutoff, got %v", cfg.Database.StaleAfter())
	}

	// Presence defaults
	if cfg.Presence.RateLimit() != 4*time.Second {
		t.Errorf("Expected 4s rate limit, got %v", cfg.Presence.RateLimit())
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestStaleAfter(t *testing.T) {
	tests := []struct {
		hours int
		want  time.Duration
	}{
		{0, 0},
		{-3, 0},
		{1, time.Hour},
		{48, 48 * time.Hour},
	}
	for _, tt := range tests {
		got := DatabaseConfig{StaleAfterHours: tt.hours}.StaleAfter()
		if got != tt.want {
			t.Errorf("StaleAfter(%d) = %v, want %v", tt.hours, got, tt.want)
		}
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}
	if cfg.Loop.TickMillis != 50 {
		t.Error("Did not get default config for non-existent file")
	}
}

// TestLoadValidConfig tests loading a valid JSON configuration file.
func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	data := []byte(`{
  "capture": {"interface": "eth1", "events_file": "session.jsonl", "loop_replay": true},
  "tracker": {"cooldown_seconds": 30},
  "server": {"enabled": true, "port": 9090}
}`)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Capture.Interface != "eth1" {
		t.Errorf("Expected interface eth1, got %s", cfg.Capture.Interface)
	}
	if !cfg.Capture.LoopReplay {
		t.Error("Expected loop replay enabled")
	}
	if cfg.Tracker.CooldownSeconds != 30 {
		t.Errorf("Expected cooldown 30, got %d", cfg.Tracker.CooldownSeconds)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9090 {
		t.Errorf("Expected server enabled on 9090, got %+v", cfg.Server)
	}

	// Fields absent from the file keep defaults
	if cfg.Tracker.IdleTimeoutSeconds != 60 {
		t.Errorf("Expected default idle timeout, got %d", cfg.Tracker.IdleTimeoutSeconds)
	}
	if cfg.Capture.LastInterfaceFile != "config.dat" {
		t.Errorf("Expected default interface file, got %s", cfg.Capture.LastInterfaceFile)
	}
}

// TestLoadYAMLConfig tests loading a YAML configuration file.
func TestLoadYAMLConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
loop:
  tick_millis: 25
presence:
  observer_name: home-rig
  log_changes: false
database:
  enabled: true
  host: db.example.com
`)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}
	if cfg.Loop.TickMillis != 25 {
		t.Errorf("Expected 25ms tick, got %d", cfg.Loop.TickMillis)
	}
	if cfg.Loop.PublishEveryTicks != 100 {
		t.Errorf("Expected default publish cadence kept, got %d", cfg.Loop.PublishEveryTicks)
	}
	if cfg.Presence.ObserverName != "home-rig" || cfg.Presence.LogChanges {
		t.Errorf("Unexpected presence config %+v", cfg.Presence)
	}
	if !cfg.Database.Enabled || cfg.Database.Host != "db.example.com" {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
}

// TestLoadInvalidJSON tests that Load returns an error for invalid JSON.
func TestLoadInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(configPath, []byte("{invalid json}"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

// TestSaveConfigCreatesDirectory tests that Save creates parent directories.
func TestSaveConfigCreatesDirectory(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Saved config is not valid JSON: %v", err)
	}
	for _, key := range []string{"capture", "loop", "tracker", "presence", "server", "database"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected section %q in saved config", key)
		}
	}
}

// TestConfigRoundTrip tests save then load for both formats.
func TestConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			original := DefaultConfig()
			original.Capture.Interface = "en0"
			original.Presence.RateLimitSeconds = 2.5
			original.Server.AllowedOrigins = []string{"http://localhost:3000"}

			if err := original.Save(path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if loaded.Capture.Interface != "en0" {
				t.Errorf("Expected interface en0, got %s", loaded.Capture.Interface)
			}
			if loaded.Presence.RateLimitSeconds != 2.5 {
				t.Errorf("Expected rate limit 2.5, got %f", loaded.Presence.RateLimitSeconds)
			}
			if len(loaded.Server.AllowedOrigins) != 1 || loaded.Server.AllowedOrigins[0] != "http://localhost:3000" {
				t.Errorf("Unexpected origins %v", loaded.Server.AllowedOrigins)
			}
		})
	}
}

// TestEnvironmentOverrides tests that environment variables override config values.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ATC_PRESENCE_INTERFACE", "wlan0")
	t.Setenv("ATC_PRESENCE_EVENTS_FILE", "/tmp/events.jsonl")
	t.Setenv("ATC_PRESENCE_PORT", "7777")
	t.Setenv("ATC_PRESENCE_DB_PASSWORD", "env-password")
	t.Setenv("ATC_PRESENCE_OBSERVER", "tower-cab")

	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Capture.Interface != "wlan0" {
		t.Errorf("Expected interface override wlan0, got %s", cfg.Capture.Interface)
	}
	if cfg.Capture.EventsFile != "/tmp/events.jsonl" {
		t.Errorf("Expected events file override, got %s", cfg.Capture.EventsFile)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Expected port override 7777, got %d", cfg.Server.Port)
	}
	if cfg.Database.Password != "env-password" {
		t.Errorf("Expected password override, got %s", cfg.Database.Password)
	}
	if cfg.Presence.ObserverName != "tower-cab" {
		t.Errorf("Expected observer override, got %s", cfg.Presence.ObserverName)
	}
}

// TestLastInterfaceFile tests the single-line interface memory.
func TestLastInterfaceFile(t *testing.T) {
	t.Run("Missing file is empty", func(t *testing.T) {
		name, err := LoadLastInterface(filepath.Join(t.TempDir(), "config.dat"))
		if err != nil || name != "" {
			t.Errorf("Expected empty name and no error, got %q, %v", name, err)
		}
	})

	t.Run("Round trip trims whitespace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state", "config.dat")
		if err := SaveLastInterface(path, "eth0"); err != nil {
			t.Fatalf("SaveLastInterface failed: %v", err)
		}
		if err := os.WriteFile(path, []byte("eth0\r\n"), 0644); err != nil {
			t.Fatalf("Failed to rewrite file: %v", err)
		}
		name, err := LoadLastInterface(path)
		if err != nil {
			t.Fatalf("LoadLastInterface failed: %v", err)
		}
		if name != "eth0" {
			t.Errorf("Expected eth0, got %q", name)
		}
	})
}
