package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the opencode configuration file location.
const EnvConfigPath = "OPENCHECK_CONFIG"

type Config struct {
	Target  TargetConfig  `yaml:"target"`
	History HistoryConfig `yaml:"history"`
	Links   LinksConfig   `yaml:"links"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig locates the installation under verification.
type TargetConfig struct {
	// Root is the toolkit repository root.
	Root string `yaml:"root"`
	// ConfigPath is the deployed opencode configuration file.
	ConfigPath string `yaml:"config_path"`
}

type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	MaxReadConns  int    `yaml:"max_read_conns"`
	RetentionDays int    `yaml:"retention_days"`
}

type LinksConfig struct {
	External   bool          `yaml:"external"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	Burst      int           `yaml:"burst"`
	Timeout    time.Duration `yaml:"timeout"`
}

type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	Listen   string        `yaml:"listen"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultOpencodeConfig is the well-known deployed configuration location.
func DefaultOpencodeConfig() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".opencode", "opencode.json")
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".opencheck", "history.db")
}

func Defaults() *Config {
	return &Config{
		Target: TargetConfig{
			Root:       ".",
			ConfigPath: DefaultOpencodeConfig(),
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          defaultHistoryPath(),
			MaxReadConns:  4,
			RetentionDays: 90,
		},
		Links: LinksConfig{
			External:   false,
			RatePerSec: 2,
			Burst:      1,
			Timeout:    10 * time.Second,
		},
		Watch: WatchConfig{
			Interval: 30 * time.Second,
			Listen:   "127.0.0.1:8790",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads an optional YAML configuration file over the defaults.
// An empty path returns defaults; the environment override for the
// opencode configuration path applies in both cases.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		// Expand environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		cfg.Target.ConfigPath = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Target.Root == "" {
		return fmt.Errorf("target.root is required")
	}
	if c.Target.ConfigPath == "" {
		return fmt.Errorf("target.config_path is required")
	}
	if c.History.Enabled {
		if c.History.Path == "" {
			return fmt.Errorf("history.path is required when history is enabled")
		}
		if c.History.MaxReadConns <= 0 {
			return fmt.Errorf("history.max_read_conns must be positive")
		}
		if c.History.RetentionDays <= 0 {
			return fmt.Errorf("history.retention_days must be positive")
		}
	}
	if c.Links.RatePerSec <= 0 {
		return fmt.Errorf("links.rate_per_sec must be positive")
	}
	if c.Links.Burst <= 0 {
		return fmt.Errorf("links.burst must be positive")
	}
	if c.Links.Timeout <= 0 {
		return fmt.Errorf("links.timeout must be positive")
	}
	if c.Watch.Interval < 5*time.Second {
		return fmt.Errorf("watch.interval must be at least 5s")
	}
	if c.Watch.Listen == "" {
		return fmt.Errorf("watch.listen is required")
	}
	return validateLogLevel(c.Logging.Level)
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
}
