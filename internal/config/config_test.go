package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Target.Root != "." {
		t.Fatalf("expected default root '.', got %q", cfg.Target.Root)
	}
	if !strings.HasSuffix(cfg.Target.ConfigPath, filepath.Join(".opencode", "opencode.json")) {
		t.Fatalf("unexpected default config path: %s", cfg.Target.ConfigPath)
	}
	if !cfg.History.Enabled || cfg.History.RetentionDays != 90 {
		t.Fatalf("unexpected history defaults: %+v", cfg.History)
	}
	if cfg.Links.External {
		t.Fatal("external link checks must default off")
	}
	if cfg.Watch.Interval != 30*time.Second {
		t.Fatalf("unexpected watch interval: %v", cfg.Watch.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opencheck.yaml")
	raw := `
target:
  root: /srv/toolkit
  config_path: /srv/toolkit/opencode.json
links:
  external: true
  rate_per_sec: 5
  burst: 2
  timeout: 3s
watch:
  interval: 10s
  listen: 127.0.0.1:9000
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target.Root != "/srv/toolkit" {
		t.Fatalf("unexpected root: %s", cfg.Target.Root)
	}
	if !cfg.Links.External || cfg.Links.RatePerSec != 5 || cfg.Links.Timeout != 3*time.Second {
		t.Fatalf("unexpected links config: %+v", cfg.Links)
	}
	if cfg.Watch.Interval != 10*time.Second || cfg.Watch.Listen != "127.0.0.1:9000" {
		t.Fatalf("unexpected watch config: %+v", cfg.Watch)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	// unset sections keep their defaults
	if !cfg.History.Enabled {
		t.Fatal("history defaults must survive a partial file")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TOOLKIT_HOME", "/opt/toolkit")

	path := filepath.Join(t.TempDir(), "opencheck.yaml")
	raw := "target:\n  root: ${TOOLKIT_HOME}\n  config_path: ${TOOLKIT_HOME}/opencode.json\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target.Root != "/opt/toolkit" {
		t.Fatalf("expected env expansion, got %s", cfg.Target.Root)
	}
}

func TestLoadEnvOverridesConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/custom/opencode.json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target.ConfigPath != "/custom/opencode.json" {
		t.Fatalf("expected env override, got %s", cfg.Target.ConfigPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty root", func(c *Config) { c.Target.Root = "" }},
		{"empty config path", func(c *Config) { c.Target.ConfigPath = "" }},
		{"history without path", func(c *Config) { c.History.Path = "" }},
		{"zero retention", func(c *Config) { c.History.RetentionDays = 0 }},
		{"zero link rate", func(c *Config) { c.Links.RatePerSec = 0 }},
		{"short watch interval", func(c *Config) { c.Watch.Interval = time.Second }},
		{"empty listen", func(c *Config) { c.Watch.Listen = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		cfg := Defaults()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tt.name)
		}
	}
}

func TestValidateDisabledHistorySkipsChecks(t *testing.T) {
	cfg := Defaults()
	cfg.History.Enabled = false
	cfg.History.Path = ""
	cfg.History.RetentionDays = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled history must not be validated: %v", err)
	}
}
