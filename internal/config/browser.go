package config

import "time"

// BrowserConfig configures the Chrome instance formpilot drives.
type BrowserConfig struct {
	// DebuggerURL connects to an already-running Chrome. Empty launches one.
	DebuggerURL string `yaml:"debugger_url"`

	// Launch is the Chrome binary followed by extra flags, used when
	// launching. Empty uses rod's bundled launcher defaults.
	Launch []string `yaml:"launch"`

	Headless          bool   `yaml:"headless"`
	ViewportWidth     int    `yaml:"viewport_width"`
	ViewportHeight    int    `yaml:"viewport_height"`
	NavigationTimeout string `yaml:"navigation_timeout"`

	// Stealth applies bot-detection evasion to new pages. Job boards are
	// aggressive about headless detection, so this defaults on.
	Stealth bool `yaml:"stealth"`
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          false,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: "30s",
		Stealth:           true,
	}
}

// GetViewportWidth returns the viewport width.
func (c BrowserConfig) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

// GetViewportHeight returns the viewport height.
func (c BrowserConfig) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

// GetNavigationTimeout returns the navigation timeout as a duration.
func (c BrowserConfig) GetNavigationTimeout() time.Duration {
	return parseDuration(c.NavigationTimeout, 30*time.Second)
}
