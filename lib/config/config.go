// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the lostfound service configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths    PathsConfig    `yaml:"paths"`
	HTTP     HTTPConfig     `yaml:"http"`
	Presence PresenceConfig `yaml:"presence"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`

	// Seed registers demo users and items at startup. Registration is
	// idempotent for users; items are only seeded into an empty
	// database.
	Seed SeedConfig `yaml:"seed"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the fields that can be overridden per
// environment.
type ConfigOverrides struct {
	Paths *PathsConfig `yaml:"paths,omitempty"`
	HTTP  *HTTPConfig  `yaml:"http,omitempty"`
	Log   *LogConfig   `yaml:"log,omitempty"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// State is the directory holding the database and socket.
	State string `yaml:"state"`

	// Socket is the CBOR service socket.
	// Default: ${LOSTFOUND_STATE}/lostfound.sock
	Socket string `yaml:"socket"`

	// Database is the SQLite message store.
	// Default: ${LOSTFOUND_STATE}/messages.db
	Database string `yaml:"database"`
}

// HTTPConfig configures the JSON API listener.
type HTTPConfig struct {
	// Address is the TCP listen address. Empty disables HTTP.
	Address string `yaml:"address"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PresenceConfig configures the typing tracker.
type PresenceConfig struct {
	// TTL is how long one typing signal lasts. Default: 2s
	TTL time.Duration `yaml:"ttl"`

	// SweepInterval is the background sweep period; must not exceed
	// TTL. Default: TTL
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// MaxEntries bounds live signals. Default: 65536
	MaxEntries int `yaml:"max_entries"`
}

// SyncConfig configures the polling contract advertised to clients.
type SyncConfig struct {
	// PollInterval is the client refresh cadence. Default: 3s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`
}

// SeedConfig lists demo data loaded at startup.
type SeedConfig struct {
	Users []string   `yaml:"users"`
	Items []SeedItem `yaml:"items"`
}

// SeedItem is one demo listing.
type SeedItem struct {
	Title     string `yaml:"title"`
	CreatedBy string `yaml:"created_by"`
}

// Default returns the base configuration that the file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	state := filepath.Join(homeDir, ".cache", "lostfound")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			State:    state,
			Socket:   "${LOSTFOUND_STATE}/lostfound.sock",
			Database: "${LOSTFOUND_STATE}/messages.db",
		},
		HTTP: HTTPConfig{
			Address:         "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Presence: PresenceConfig{
			TTL:           2 * time.Second,
			SweepInterval: 2 * time.Second,
			MaxEntries:    65536,
		},
		Sync: SyncConfig{
			PollInterval: 3 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by LOSTFOUND_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("LOSTFOUND_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LOSTFOUND_CONFIG environment variable not set; " +
			"set it to the path of your lostfound.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Strip comments and trailing commas; the result is JSON, which
		// the YAML decoder accepts with the same field tags.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil && c.Log.Level == "debug" {
			overrides = &ConfigOverrides{Log: &LogConfig{Level: "info"}}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
		if overrides.Paths.Socket != "" {
			c.Paths.Socket = overrides.Paths.Socket
		}
		if overrides.Paths.Database != "" {
			c.Paths.Database = overrides.Paths.Database
		}
	}

	if overrides.HTTP != nil {
		if overrides.HTTP.Address != "" {
			c.HTTP.Address = overrides.HTTP.Address
		}
		if overrides.HTTP.ShutdownTimeout != 0 {
			c.HTTP.ShutdownTimeout = overrides.HTTP.ShutdownTimeout
		}
	}

	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"LOSTFOUND_STATE": c.Paths.State,
		"HOME":            os.Getenv("HOME"),
	}

	c.Paths.State = expandVars(c.Paths.State, vars)
	vars["LOSTFOUND_STATE"] = c.Paths.State

	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Paths.Database = expandVars(c.Paths.Database, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Provided vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, fmt.Errorf("paths.socket is required"))
	}
	if c.Paths.Database == "" {
		errs = append(errs, fmt.Errorf("paths.database is required"))
	}

	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("http.shutdown_timeout must not be negative"))
	}

	if c.Presence.TTL <= 0 {
		errs = append(errs, fmt.Errorf("presence.ttl must be positive"))
	}
	if c.Presence.SweepInterval < 0 || c.Presence.SweepInterval > c.Presence.TTL {
		errs = append(errs, fmt.Errorf("presence.sweep_interval must be between 0 and presence.ttl (%s)", c.Presence.TTL))
	}
	if c.Presence.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("presence.max_entries must be positive"))
	}

	if c.Sync.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync.poll_interval must be positive"))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if c.Environment == Production && (len(c.Seed.Users) > 0 || len(c.Seed.Items) > 0) {
		errs = append(errs, fmt.Errorf("seed data is not allowed in production"))
	}
	for i, item := range c.Seed.Items {
		if item.CreatedBy == "" {
			errs = append(errs, fmt.Errorf("seed.items[%d].created_by is required", i))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	return level, nil
}

// EnsurePaths creates the state directory and the parents of the
// socket and database if they don't exist.
func (c *Config) EnsurePaths() error {
	directories := []string{
		c.Paths.State,
		filepath.Dir(c.Paths.Socket),
		filepath.Dir(c.Paths.Database),
	}
	for _, directory := range directories {
		if directory == "" || directory == "." {
			continue
		}
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}
