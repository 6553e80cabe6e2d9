package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
// Configuration is loaded from a JSON or YAML file and then overridden
// from the environment.
type Config struct {
	Capture  CaptureConfig  `json:"capture" yaml:"capture"`
	Loop     LoopConfig     `json:"loop" yaml:"loop"`
	Tracker  TrackerConfig  `json:"tracker" yaml:"tracker"`
	Presence PresenceConfig `json:"presence" yaml:"presence"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
}

// CaptureConfig selects where decoded FSD events come from.
type CaptureConfig struct {
	// Interface is the capture interface name; empty means use the last
	// chosen interface from LastInterfaceFile
	Interface string `json:"interface" yaml:"interface"`

	// LastInterfaceFile stores the last chosen interface as a single line
	// (default: "config.dat")
	LastInterfaceFile string `json:"last_interface_file" yaml:"last_interface_file"`

	// EventsFile is a JSON-lines recording of decoded packets to replay
	EventsFile string `json:"events_file" yaml:"events_file"`

	// LoopReplay restarts the recording when it ends
	LoopReplay bool `json:"loop_replay" yaml:"loop_replay"`
}

// LoopConfig controls the polling loop cadence.
type LoopConfig struct {
	// TickMillis is the polling interval in milliseconds (default: 50)
	TickMillis int `json:"tick_millis" yaml:"tick_millis"`

	// PublishEveryTicks is how many ticks pass between presence updates
	// (default: 100, about every 5 seconds)
	PublishEveryTicks int `json:"publish_every_ticks" yaml:"publish_every_ticks"`
}

// TrackerConfig tunes the session tracker's time rules.
type TrackerConfig struct {
	// CooldownSeconds is the per-aircraft counter debounce (default: 60)
	CooldownSeconds int `json:"cooldown_seconds" yaml:"cooldown_seconds"`

	// IdleTimeoutSeconds is the report silence before state resets (default: 60)
	IdleTimeoutSeconds int `json:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
}

// PresenceConfig configures presence publishing.
type PresenceConfig struct {
	// ObserverName identifies this observer in external sinks (default: host name)
	ObserverName string `json:"observer_name" yaml:"observer_name"`

	// RateLimitSeconds is the minimum spacing between outward publishes
	// 0 = no rate limit
	RateLimitSeconds float64 `json:"rate_limit_seconds" yaml:"rate_limit_seconds"`

	// RateBurst is how many publishes may pass back to back (default: 1)
	RateBurst int `json:"rate_burst" yaml:"rate_burst"`

	// LogChanges writes a log line whenever the summary changes
	LogChanges bool `json:"log_changes" yaml:"log_changes"`
}

// ServerConfig contains the status HTTP server configuration.
type ServerConfig struct {
	// Enabled starts the HTTP/websocket server
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Host is the server bind address (default: "127.0.0.1")
	Host string `json:"host" yaml:"host"`

	// Port is the HTTP server port (default: 8765)
	Port int `json:"port" yaml:"port"`

	// AllowedOrigins lists CORS origins for browser clients
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// DatabaseConfig contains optional Postgres presence sink settings.
type DatabaseConfig struct {
	// Enabled turns on the Postgres presence sink
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Host is the database server hostname
	Host string `json:"host" yaml:"host"`

	// Port is the database server port
	Port int `json:"port" yaml:"port"`

	// Database is the database name
	Database string `json:"database" yaml:"database"`

	// Username for database authentication
	Username string `json:"username" yaml:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password" yaml:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode" yaml:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns" yaml:"max_idle_conns"`

	// StaleAfterHours removes observer rows older than this at startup (0 keeps them)
	StaleAfterHours int `json:"stale_after_hours" yaml:"stale_after_hours"`
}

// StaleAfter returns the stale-row cutoff as a duration, or 0 when disabled.
func (d DatabaseConfig) StaleAfter() time.Duration {
	if d.StaleAfterHours <= 0 {
		return 0
	}
	return time.Duration(d.StaleAfterHours) * time.Hour
}

// isYAML reports whether path should be parsed as YAML.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads configuration from a JSON or YAML file.
// If the file doesn't exist, returns a default configuration.
// Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON or YAML file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			LastInterfaceFile: "config.dat",
		},
		Loop: LoopConfig{
			TickMillis:        50,
			PublishEveryTicks: 100,
		},
		Tracker: TrackerConfig{
			CooldownSeconds:    60,
			IdleTimeoutSeconds: 60,
		},
		Presence: PresenceConfig{
			RateLimitSeconds: 4.0, // presence APIs allow roughly 5 updates per 20s
			RateBurst:        1,
			LogChanges:       true,
		},
		Server: ServerConfig{
			Enabled:        false,
			Host:           "127.0.0.1",
			Port:           8765,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			Database:        "atcpresence",
			Username:        "atcpresence",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			StaleAfterHours: 24,
		},
	}
}

// TickInterval returns the polling interval as a duration.
func (l LoopConfig) TickInterval() time.Duration {
	if l.TickMillis <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(l.TickMillis) * time.Millisecond
}

// Cooldown returns the debounce window as a duration.
func (t TrackerConfig) Cooldown() time.Duration {
	return time.Duration(t.CooldownSeconds) * time.Second
}

// IdleTimeout returns the idle timeout as a duration.
func (t TrackerConfig) IdleTimeout() time.Duration {
	return time.Duration(t.IdleTimeoutSeconds) * time.Second
}

// RateLimit returns the publish spacing as a duration.
func (p PresenceConfig) RateLimit() time.Duration {
	return time.Duration(p.RateLimitSeconds * float64(time.Second))
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if iface := os.Getenv("ATC_PRESENCE_INTERFACE"); iface != "" {
		c.Capture.Interface = iface
	}
	if events := os.Getenv("ATC_PRESENCE_EVENTS_FILE"); events != "" {
		c.Capture.EventsFile = events
	}
	if port := os.Getenv("ATC_PRESENCE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dbPassword := os.Getenv("ATC_PRESENCE_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if name := os.Getenv("ATC_PRESENCE_OBSERVER"); name != "" {
		c.Presence.ObserverName = name
	}
}
