package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

const envConfigPath = "ADSBRIDGE_CONFIG"

// Config is the root runtime configuration loaded from adsbridge.json.
type Config struct {
	Plugin  PluginConfig  `json:"plugin"`
	Host    HostConfig    `json:"host"`
	Sandbox SandboxConfig `json:"sandbox"`
	Journal JournalConfig `json:"journal"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty" env:"ADSBRIDGE_LOG_FORMAT"`
	Level     string `json:"level,omitempty" env:"ADSBRIDGE_LOG_LEVEL"`
	AddSource bool   `json:"add_source,omitempty" env:"ADSBRIDGE_LOG_ADD_SOURCE"`
}

// PluginConfig describes the Lua library exposed to scripts and how it
// identifies itself to the mediation SDK.
type PluginConfig struct {
	LibraryName   string `json:"library_name" env:"ADSBRIDGE_PLUGIN_LIBRARY"`
	Provider      string `json:"provider" env:"ADSBRIDGE_PLUGIN_PROVIDER"`
	Version       string `json:"version"`
	SDKVersion    string `json:"sdk_version"`
	HostFramework string `json:"host_framework"`
}

// HostConfig configures the embedded scripting host.
type HostConfig struct {
	AppName string `json:"app_name" env:"ADSBRIDGE_APP_NAME"`
	Build   string `json:"build" env:"ADSBRIDGE_HOST_BUILD"`

	// QueueLimit caps pending tasks per run loop; zero means unbounded.
	QueueLimit int `json:"queue_limit" env:"ADSBRIDGE_QUEUE_LIMIT"`
}

// SandboxConfig drives the in-process mediation SDK used for local runs.
type SandboxConfig struct {
	LatencyMillis int               `json:"latency_ms" env:"ADSBRIDGE_SANDBOX_LATENCY_MS"`
	Fill          SandboxFillConfig `json:"fill"`
	Credits       int               `json:"credits"`
	RewardName    string            `json:"reward_name"`
	RewardAmount  int               `json:"reward_amount"`
}

// SandboxFillConfig decides per surface whether the sandbox has inventory.
type SandboxFillConfig struct {
	OfferWall     bool `json:"offer_wall"`
	Interstitial  bool `json:"interstitial"`
	RewardedVideo bool `json:"rewarded_video"`
}

// JournalConfig enables the SQLite delivery journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" env:"ADSBRIDGE_JOURNAL_ENABLED"`
	Path    string `json:"path" env:"ADSBRIDGE_JOURNAL_PATH"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Plugin: PluginConfig{
			LibraryName:   "plugin.supersonic",
			Provider:      "supersonic",
			Version:       "1.4.3",
			SDKVersion:    "6.8.0",
			HostFramework: "Corona",
		},
		Host: HostConfig{
			AppName: "adsbridge",
			Build:   "2024.3703",
		},
		Sandbox: SandboxConfig{
			LatencyMillis: 50,
			Fill: SandboxFillConfig{
				OfferWall:     true,
				Interstitial:  true,
				RewardedVideo: true,
			},
			Credits:      10,
			RewardName:   "Virtual Item",
			RewardAmount: 1,
		},
		Journal: JournalConfig{
			Path: "adsbridge.db",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// LoadConfig resolves adsbridge.json, unmarshals it over the defaults, and
// applies environment overrides. A missing file is not an error.
func LoadConfig() (*Config, error) {
	cfg := Default()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the bridge cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Plugin.LibraryName) == "" {
		return errors.New("plugin.library_name is required")
	}
	if strings.TrimSpace(c.Plugin.Provider) == "" {
		return errors.New("plugin.provider is required")
	}
	if c.Host.QueueLimit < 0 {
		return fmt.Errorf("host.queue_limit must not be negative, got %d", c.Host.QueueLimit)
	}
	if c.Sandbox.LatencyMillis < 0 {
		return fmt.Errorf("sandbox.latency_ms must not be negative, got %d", c.Sandbox.LatencyMillis)
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return errors.New("journal.path is required when the journal is enabled")
	}

	return nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is ADSBRIDGE_CONFIG first, then cwd-local fallback paths. An
// empty path with a nil error means no file was found.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "adsbridge.json"),
		filepath.Join(cwd, "config", "adsbridge.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
