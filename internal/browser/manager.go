// Package browser owns the Chrome instance formpilot drives: connect to a
// running debugger or launch a fresh one, hand out pages, tear down.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"formpilot/internal/config"
	"formpilot/internal/logging"
)

// Manager owns one browser connection and the pages opened through it.
type Manager struct {
	cfg config.BrowserConfig

	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
	pages      []*rod.Page
}

// NewManager creates a manager; the browser starts lazily.
func NewManager(cfg config.BrowserConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one. Safe to call
// repeatedly; a healthy connection is reused, a stale one replaced.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserDebug("Stale browser connection, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
		m.controlURL = ""
		m.pages = nil
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" && len(m.cfg.Launch) > 0 {
		url, err := m.launchWithBinary()
		if err != nil {
			return err
		}
		controlURL = url
	}
	if controlURL == "" {
		url, err := launcher.New().Headless(m.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	logging.Browser("Browser connected at %s", controlURL)
	return nil
}

// launchWithBinary launches the configured Chrome binary with extra flags,
// falling back to a bare launch of the same binary when the flags are the
// problem.
func (m *Manager) launchWithBinary() (string, error) {
	bin := m.cfg.Launch[0]
	launch := launcher.New().Bin(bin).Headless(m.cfg.Headless)
	for _, rawFlag := range m.cfg.Launch[1:] {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			launch = launch.Set(flags.Flag(name), val)
		} else {
			launch = launch.Set(flags.Flag(name))
		}
	}
	url, err := launch.Launch()
	if err == nil {
		return url, nil
	}
	fallback := launcher.New().Bin(bin).Headless(m.cfg.Headless)
	alt, altErr := fallback.Launch()
	if altErr != nil {
		return "", fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
	}
	return alt, nil
}

// OpenPage opens a page and navigates it to url. Stealth pages carry the
// bot-detection evasion payload job boards tend to require.
func (m *Manager) OpenPage(ctx context.Context, url string) (*rod.Page, error) {
	if err := m.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	browser := m.browser
	m.mu.Unlock()

	var page *rod.Page
	var err error
	if m.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  m.cfg.GetViewportWidth(),
		Height: m.cfg.GetViewportHeight(),
	}); err != nil {
		logging.BrowserDebug("Viewport override failed: %v", err)
	}

	if err := page.Context(ctx).Timeout(m.cfg.GetNavigationTimeout()).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.Context(ctx).Timeout(m.cfg.GetNavigationTimeout()).WaitLoad(); err != nil {
		logging.BrowserDebug("WaitLoad timed out for %s: %v", url, err)
	}

	m.mu.Lock()
	m.pages = append(m.pages, page)
	m.mu.Unlock()

	logging.Browser("Opened %s", url)
	return page, nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *Manager) ControlURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controlURL
}

// IsConnected reports whether a browser connection exists.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// Shutdown closes opened pages and the browser.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, page := range m.pages {
		_ = page.Close()
	}
	m.pages = nil

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.controlURL = ""
	return err
}
