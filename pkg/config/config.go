// Package config handles nexus configuration loading.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/api"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/engine"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/journal"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/logging"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// Environment variables that override file values.
const (
	EnvBrainURL    = "NEXUS_BRAIN_URL"
	EnvAPIPort     = "NEXUS_API_PORT"
	EnvLogLevel    = "NEXUS_LOG_LEVEL"
	EnvJournalPath = "NEXUS_JOURNAL_PATH"
)

// Config is the root configuration structure.
type Config struct {
	Brain     brain.Config     `yaml:"brain"`
	Engine    engine.Config    `yaml:"engine"`
	Watcher   watcher.Config   `yaml:"watcher"`
	Optimizer reflex.Config    `yaml:"optimizer"`
	Awareness awareness.Config `yaml:"awareness"`
	Journal   journal.Config   `yaml:"journal"`
	API       api.Config       `yaml:"api"`
	Logging   logging.Config   `yaml:"logging"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Brain:     brain.DefaultConfig(),
		Engine:    engine.DefaultConfig(),
		Watcher:   watcher.DefaultConfig(),
		Optimizer: reflex.DefaultConfig(),
		Awareness: awareness.DefaultConfig(),
		Journal:   journal.DefaultConfig(),
		API:       api.DefaultConfig(),
		Logging:   logging.DefaultConfig(),
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nerrors.ConfigWrap(err, nerrors.ErrConfigReadFailed, "failed to read config").
			WithContext("path", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nerrors.ConfigWrap(err, nerrors.ErrConfigParseFailed, "failed to parse config").
			WithContext("path", path)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or uses the defaults (still with
// environment overrides) when path is empty or missing.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigParseFailed, "failed to load .env").
			WithContext("paths", strings.Join(existing, ","))
	}
	return nil
}

// ApplyEnv overrides file values with NEXUS_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvBrainURL); ok && v != "" {
		c.Brain.URL = v
	}
	if v, ok := os.LookupEnv(EnvAPIPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nerrors.ConfigWrap(err, nerrors.ErrConfigInvalid, "invalid port in environment").
				WithContext("variable", EnvAPIPort).
				WithContext("value", v)
		}
		c.API.Port = port
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvJournalPath); ok && v != "" {
		c.Journal.Path = v
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	u, err := url.Parse(c.Brain.URL)
	check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
		"brain.url %q must be an absolute http(s) URL", c.Brain.URL)
	check(c.Brain.Timeout > 0, "brain.timeout must be positive")
	check(c.Brain.ReadyTimeout >= 0, "brain.ready_timeout must not be negative")

	check(c.Engine.HeartbeatInterval > 0, "engine.heartbeat_interval must be positive")
	check(c.Engine.CoordinationInterval > 0, "engine.coordination_interval must be positive")
	check(c.Engine.StatusEvery > 0, "engine.status_every must be positive")
	check(c.Engine.MaxAutonomousActionsPerHour > 0, "engine.max_autonomous_actions_per_hour must be positive")
	check(c.Engine.EmergencyShutdownThreshold > 0, "engine.emergency_shutdown_threshold must be positive")
	check(c.Engine.ShutdownTimeout > 0, "engine.shutdown_timeout must be positive")

	check(c.Watcher.Interval > 0, "watcher.interval must be positive")
	check(c.Watcher.RetryInterval > 0, "watcher.retry_interval must be positive")
	check(c.Watcher.Cooldown >= 0, "watcher.cooldown must not be negative")
	if err := c.Watcher.Thresholds.Validate(); err != nil {
		problems = append(problems, "watcher.thresholds: "+err.Error())
	}

	check(c.Optimizer.Interval > 0, "optimizer.interval must be positive")
	check(c.Optimizer.RetryInterval > 0, "optimizer.retry_interval must be positive")
	check(c.Optimizer.MaxConcurrent > 0, "optimizer.max_concurrent must be positive")
	check(c.Optimizer.MinTimeBetweenSimilar >= 0, "optimizer.min_time_between_similar must not be negative")
	check(c.Optimizer.HistoryLimit > 0, "optimizer.history_limit must be positive")

	check(c.Awareness.Interval > 0, "awareness.interval must be positive")
	check(c.Awareness.DeepEvery > 0, "awareness.deep_every must be positive")

	check(!c.Journal.Enabled || c.Journal.Path != "", "journal.path is required when the journal is enabled")

	check(c.API.Port > 0 && c.API.Port < 65536, "api.port %d out of range", c.API.Port)

	_, err = logging.ParseLevel(c.Logging.Level)
	check(err == nil, "logging.level %q is not a known level", c.Logging.Level)
	check(c.Logging.Format == "" || c.Logging.Format == "json" || c.Logging.Format == "console",
		"logging.format %q must be json or console", c.Logging.Format)

	if len(problems) == 0 {
		return nil
	}
	return nerrors.Config(nerrors.ErrConfigInvalid, fmt.Sprintf("%d invalid configuration value(s)", len(problems))).
		WithContext("problems", strings.Join(problems, "; "))
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigWriteFailed, "failed to create config directory").
			WithContext("path", path)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigWriteFailed, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigWriteFailed, "failed to write config file").
			WithContext("path", path)
	}
	return nil
}

// DefaultConfigPath returns nexus.yaml in the working directory, or
// config/nexus.yaml when only that one exists.
func DefaultConfigPath() string {
	if _, err := os.Stat("nexus.yaml"); err == nil {
		return "nexus.yaml"
	}
	if _, err := os.Stat("config/nexus.yaml"); err == nil {
		return "config/nexus.yaml"
	}
	return "nexus.yaml"
}

// InitConfig writes a default config file unless one exists. It reports
// whether a file was written.
func InitConfig(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := Default().Save(path); err != nil {
		return false, err
	}
	return true, nil
}
