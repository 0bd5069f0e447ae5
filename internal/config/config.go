// Package config holds all formpilot configuration, loaded from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all formpilot configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Browser automation
	Browser BrowserConfig `yaml:"browser"`

	// AI oracle
	Oracle OracleConfig `yaml:"oracle"`

	// Local persistence (profile, pattern store, scan cache)
	Store StoreConfig `yaml:"store"`

	// Optional remote services
	Remote RemoteConfig `yaml:"remote"`

	// Optional pattern exchange
	Exchange ExchangeConfig `yaml:"exchange"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the category file loggers.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "formpilot",
		Version: "0.4.0",

		Browser:  DefaultBrowserConfig(),
		Oracle:   DefaultOracleConfig(),
		Store:    DefaultStoreConfig(),
		Remote:   DefaultRemoteConfig(),
		Exchange: DefaultExchangeConfig(),

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("FORMPILOT_ORACLE_API_KEY"); key != "" {
		c.Oracle.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Oracle.Provider == "gemini" {
		c.Oracle.APIKey = key
	}
	if url := os.Getenv("FORMPILOT_ORACLE_URL"); url != "" {
		c.Oracle.BaseURL = url
	}
	if url := os.Getenv("FORMPILOT_SCAN_SERVICE_URL"); url != "" {
		c.Remote.ScanServiceURL = url
	}
	if url := os.Getenv("FORMPILOT_EXCHANGE_URL"); url != "" {
		c.Exchange.BaseURL = url
	}
	if path := os.Getenv("FORMPILOT_DB"); path != "" {
		c.Store.PatternDBPath = path
	}
	if path := os.Getenv("FORMPILOT_PROFILE"); path != "" {
		c.Store.ProfilePath = path
	}
	if url := os.Getenv("FORMPILOT_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
}

// parseDuration parses d, falling back when empty or malformed.
func parseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return parsed
}
