package config

import "time"

// OracleConfig configures the AI answer oracle.
type OracleConfig struct {
	Provider string `yaml:"provider"` // http, gemini
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`

	// MaxOptionsInPrompt caps how many options accompany a question; larger
	// option sets (country pickers) are withheld to keep the prompt bounded.
	MaxOptionsInPrompt int `yaml:"max_options_in_prompt"`
}

// DefaultOracleConfig returns sensible defaults.
func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		Provider:           "http",
		BaseURL:            "http://localhost:8090/v1/answer",
		Timeout:            "60s",
		MaxOptionsInPrompt: 20,
	}
}

// GetTimeout returns the oracle request timeout as a duration.
func (c OracleConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

// GetMaxOptionsInPrompt returns the option-count cap.
func (c OracleConfig) GetMaxOptionsInPrompt() int {
	if c.MaxOptionsInPrompt <= 0 {
		return 20
	}
	return c.MaxOptionsInPrompt
}
