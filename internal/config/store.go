package config

import "time"

// StoreConfig configures local persistence.
type StoreConfig struct {
	// PatternDBPath is the SQLite database holding learned patterns.
	PatternDBPath string `yaml:"pattern_db_path"`

	// ProfilePath is the JSON file holding the canonical profile.
	ProfilePath string `yaml:"profile_path"`

	// ScanCacheTTL bounds how long scan results for a URL are reused.
	ScanCacheTTL string `yaml:"scan_cache_ttl"`
}

// DefaultStoreConfig returns sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		PatternDBPath: ".formpilot/patterns.db",
		ProfilePath:   ".formpilot/profile.json",
		ScanCacheTTL:  "5m",
	}
}

// GetScanCacheTTL returns the scan cache TTL as a duration.
func (c StoreConfig) GetScanCacheTTL() time.Duration {
	return parseDuration(c.ScanCacheTTL, 5*time.Minute)
}

// RemoteConfig configures the external scan/automation service.
type RemoteConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ScanServiceURL string `yaml:"scan_service_url"`
	Timeout        string `yaml:"timeout"`
}

// DefaultRemoteConfig returns sensible defaults.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Enabled: false,
		Timeout: "120s",
	}
}

// GetTimeout returns the remote scan timeout as a duration.
func (c RemoteConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}

// ExchangeConfig configures the optional shared pattern exchange.
type ExchangeConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`

	// TelemetryURL receives per-field fill-failure events when set.
	TelemetryURL string `yaml:"telemetry_url"`
}

// DefaultExchangeConfig returns sensible defaults.
func DefaultExchangeConfig() ExchangeConfig {
	return ExchangeConfig{
		Enabled: false,
		Timeout: "30s",
	}
}

// GetTimeout returns the exchange request timeout as a duration.
func (c ExchangeConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}
