package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"formpilot/internal/logging"
)

// menuSelector matches the containers custom dropdowns render options into.
const menuSelector = `[role="listbox"], [role="menu"], .dropdown-menu, .select__menu, [class*="dropdown" i][class*="menu" i]`

// Extractor harvests option lists from custom (non-native) dropdown
// widgets. Keyboard-first, click-fallback: many single-page-app dropdowns
// only render their options in response to a real focus+key pipeline, and
// a bare click does not always trigger option rendering.
type Extractor struct {
	// MenuTimeout bounds the wait for the menu container to appear after
	// each open attempt.
	MenuTimeout time.Duration

	// SettleDelay runs after the menu is detected, letting virtualized
	// lists populate.
	SettleDelay time.Duration
}

// NewExtractor creates an extractor with the default bounded waits.
func NewExtractor() *Extractor {
	return &Extractor{
		MenuTimeout: 2 * time.Second,
		SettleDelay: 150 * time.Millisecond,
	}
}

// ExtractOptions opens the widget at locator, harvests its option texts in
// first-seen order, and closes the menu again. Zero options is a valid
// (warned) outcome, not an error; the field then proceeds unconstrained.
func (e *Extractor) ExtractOptions(ctx context.Context, page *rod.Page, locator string) ([]string, error) {
	timer := logging.StartTimer(logging.CategoryDropdown, "Extractor.ExtractOptions")
	defer timer.Stop()

	el, err := page.Context(ctx).Timeout(e.MenuTimeout).Element(locator)
	if err != nil {
		return nil, fmt.Errorf("dropdown control not found at %s: %w", locator, err)
	}

	// Custom widgets usually key off their inner text input; fall back to
	// the control itself.
	target := el
	if inner, err := el.Element("input"); err == nil {
		target = inner
	}

	if err := target.Focus(); err != nil {
		logging.DropdownWarn("Focus failed for %s: %v", locator, err)
	}

	opened := false
	for _, key := range []input.Key{input.Space, input.Enter, input.ArrowDown} {
		if err := target.Type(key); err != nil {
			continue
		}
		if e.waitForMenu(ctx, page) {
			opened = true
			break
		}
	}
	if !opened {
		// Keyboard pipeline exhausted; some widgets only respond to a
		// pointer event.
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return nil, fmt.Errorf("dropdown open failed (keys and click) at %s: %w", locator, err)
		}
		opened = e.waitForMenu(ctx, page)
	}
	if !opened {
		logging.Dropdown("Menu never appeared for %s", locator)
		return nil, nil
	}

	sleepCtx(ctx, e.SettleDelay)

	options, err := e.collectOptions(ctx, page)

	// Close the menu regardless, so the next field starts clean.
	_ = page.Keyboard.Press(input.Escape)

	if err != nil {
		return nil, err
	}
	return CleanOptions(options), nil
}

// waitForMenu polls for a menu container, bounded by MenuTimeout. Returns
// a boolean outcome rather than an error so a hung widget degrades to "no
// options" instead of stalling the scan.
func (e *Extractor) waitForMenu(ctx context.Context, page *rod.Page) bool {
	deadline := time.Now().Add(e.MenuTimeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
			JS: fmt.Sprintf(`() => {
				const menu = document.querySelector(%q);
				if (!menu) return false;
				const rect = menu.getBoundingClientRect();
				return rect.width > 0 && rect.height > 0;
			}`, menuSelector),
			ByValue: true,
		})
		if err == nil && res != nil && res.Value.Bool() {
			return true
		}
		sleepCtx(ctx, 50*time.Millisecond)
	}
	return false
}

// collectOptions reads option texts from the open menu in document order.
func (e *Extractor) collectOptions(ctx context.Context, page *rod.Page) ([]string, error) {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: fmt.Sprintf(`() => {
			const menu = document.querySelector(%q);
			if (!menu) return [];
			let items = Array.from(menu.querySelectorAll('[role="option"]'));
			if (items.length === 0) items = Array.from(menu.querySelectorAll('li'));
			return items.map(it => (it.innerText || it.textContent || '').trim()).filter(Boolean);
		}`, menuSelector),
		ByValue: true,
	})
	if err != nil {
		return nil, fmt.Errorf("collect dropdown options: %w", err)
	}
	if res == nil || res.Value.Nil() {
		return nil, nil
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal dropdown options: %w", err)
	}
	var options []string
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, fmt.Errorf("decode dropdown options: %w", err)
	}
	return options, nil
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
