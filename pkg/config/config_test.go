package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adsbridge.json")
	content := `{
	  "plugin": {"library_name": "plugin.supersonic", "provider": "supersonic", "version": "2.0.0"},
	  "host": {"app_name": "demo", "build": "2025.1", "queue_limit": 64},
	  "sandbox": {"latency_ms": 5, "fill": {"offer_wall": false, "interstitial": true, "rewarded_video": true}},
	  "journal": {"enabled": true, "path": "events.db"},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv(envConfigPath, path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if !cfg.Logging.AddSource {
		t.Fatal("logging.add_source = false, want true")
	}
	if cfg.Plugin.Version != "2.0.0" {
		t.Fatalf("plugin.version = %q, want %q", cfg.Plugin.Version, "2.0.0")
	}
	if cfg.Plugin.SDKVersion != "6.8.0" {
		t.Fatalf("plugin.sdk_version = %q, want default %q", cfg.Plugin.SDKVersion, "6.8.0")
	}
	if cfg.Host.QueueLimit != 64 {
		t.Fatalf("host.queue_limit = %d, want 64", cfg.Host.QueueLimit)
	}
	if cfg.Sandbox.Fill.OfferWall {
		t.Fatal("sandbox.fill.offer_wall = true, want false")
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != "events.db" {
		t.Fatalf("journal = %+v, want enabled events.db", cfg.Journal)
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv(envConfigPath, "")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	want := Default()
	if cfg.Plugin != want.Plugin {
		t.Fatalf("plugin = %+v, want %+v", cfg.Plugin, want.Plugin)
	}
	if cfg.Journal.Enabled {
		t.Fatal("journal enabled by default")
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv(envConfigPath, "")
	t.Chdir(t.TempDir())
	t.Setenv("ADSBRIDGE_LOG_LEVEL", "warn")
	t.Setenv("ADSBRIDGE_LOG_FORMAT", "logfmt")
	t.Setenv("ADSBRIDGE_JOURNAL_ENABLED", "true")
	t.Setenv("ADSBRIDGE_JOURNAL_PATH", "override.db")
	t.Setenv("ADSBRIDGE_SANDBOX_LATENCY_MS", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Fatalf("logging.level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Logging.Format != "logfmt" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "logfmt")
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != "override.db" {
		t.Fatalf("journal = %+v, want enabled override.db", cfg.Journal)
	}
	if cfg.Sandbox.LatencyMillis != 0 {
		t.Fatalf("sandbox.latency_ms = %d, want 0", cfg.Sandbox.LatencyMillis)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing library", mutate: func(c *Config) { c.Plugin.LibraryName = " " }},
		{name: "missing provider", mutate: func(c *Config) { c.Plugin.Provider = "" }},
		{name: "negative queue limit", mutate: func(c *Config) { c.Host.QueueLimit = -1 }},
		{name: "negative latency", mutate: func(c *Config) { c.Sandbox.LatencyMillis = -5 }},
		{name: "journal without path", mutate: func(c *Config) { c.Journal = JournalConfig{Enabled: true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
