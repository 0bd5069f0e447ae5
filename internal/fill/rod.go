package fill

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"formpilot/internal/logging"
	"formpilot/internal/scan"
)

// jsNormalize mirrors the Go-side question/option normalization so label
// and option comparisons agree across the boundary.
const jsNormalize = `s => (s || '').toLowerCase().replace(/[^a-z0-9]+/g, ' ').trim()`

// RodApplier fills controls on a live go-rod page.
type RodApplier struct {
	page *rod.Page

	LocateTimeout     time.Duration
	SettleDelay       time.Duration
	RadioPollTimeout  time.Duration
	RadioPollInterval time.Duration
	MenuTimeout       time.Duration
}

// NewRodApplier creates an applier with the default bounded waits.
func NewRodApplier(page *rod.Page) *RodApplier {
	return &RodApplier{
		page:              page,
		LocateTimeout:     2 * time.Second,
		SettleDelay:       120 * time.Millisecond,
		RadioPollTimeout:  500 * time.Millisecond,
		RadioPollInterval: 30 * time.Millisecond,
		MenuTimeout:       2 * time.Second,
	}
}

// Locate re-resolves the question's locator against the live DOM.
func (a *RodApplier) Locate(ctx context.Context, q scan.Question) (Control, bool) {
	el, err := a.page.Context(ctx).Timeout(a.LocateTimeout).Element(q.Locator)
	if err != nil {
		return nil, false
	}
	return &rodControl{applier: a, el: el}, true
}

type rodControl struct {
	applier *RodApplier
	el      *rod.Element
}

// Apply dispatches the type-specific strategy.
func (c *rodControl) Apply(ctx context.Context, q scan.Question, answer string) error {
	switch q.FieldType {
	case scan.FieldRadio:
		return c.applyRadio(ctx, answer)
	case scan.FieldCheckbox:
		return c.applyCheckbox(ctx, answer)
	case scan.FieldSelectNative:
		return c.applySelect(ctx, answer)
	case scan.FieldDropdownCustom:
		return c.applyCustomDropdown(ctx, answer)
	case scan.FieldFile:
		return c.applyFile(ctx, q, answer)
	default:
		return c.applyText(ctx, answer)
	}
}

// applyText prefers the trusted input channel (real key events through the
// devtools protocol); if that fails, it falls back to programmatic value
// assignment through the framework's own value setter plus synthetic
// input/change events.
func (c *rodControl) applyText(ctx context.Context, answer string) error {
	el := c.el.Context(ctx)
	if err := el.SelectAllText(); err == nil {
		if err := el.Input(answer); err == nil {
			return nil
		}
	}

	_, err := el.Eval(`(value) => {
		const proto = Object.getPrototypeOf(this);
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) { desc.set.call(this, value); } else { this.value = value; }
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, answer)
	if err != nil {
		return fmt.Errorf("text fill failed: %w", err)
	}
	return nil
}

// applyRadio finds the radio in the group whose label matches the answer
// and fires a full mouse sequence at the label element. Frameworks often
// listen on the label, not the input.
func (c *rodControl) applyRadio(ctx context.Context, answer string) error {
	res, err := c.el.Context(ctx).Eval(`(answer) => {
		const normalize = `+jsNormalize+`;
		const want = normalize(answer);
		const group = this.name
			? Array.from(document.querySelectorAll('input[type="radio"][name="' + CSS.escape(this.name) + '"]'))
			: [this];
		for (const radio of group) {
			let label = radio.closest('label');
			if (!label && radio.id) label = document.querySelector('label[for="' + CSS.escape(radio.id) + '"]');
			const text = label ? label.textContent : radio.value;
			if (normalize(text) !== want && normalize(radio.value) !== want) continue;
			const target = label || radio;
			for (const type of ['mousedown', 'mouseup', 'click']) {
				target.dispatchEvent(new MouseEvent(type, { bubbles: true, cancelable: true, view: window }));
			}
			return true;
		}
		return false;
	}`, answer)
	if err != nil {
		return fmt.Errorf("radio fill failed: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("no radio in group matches %q", answer)
	}
	return nil
}

// applyCheckbox clicks only when the current state differs from the
// desired one.
func (c *rodControl) applyCheckbox(ctx context.Context, answer string) error {
	el := c.el.Context(ctx)
	desired := isAffirmative(answer)
	res, err := el.Eval(`() => this.checked === true`)
	if err != nil {
		return fmt.Errorf("checkbox read failed: %w", err)
	}
	if res.Value.Bool() == desired {
		return nil
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// applySelect assigns selectedIndex where the option text matches, then
// dispatches change.
func (c *rodControl) applySelect(ctx context.Context, answer string) error {
	res, err := c.el.Context(ctx).Eval(`(answer) => {
		const normalize = `+jsNormalize+`;
		const want = normalize(answer);
		for (let i = 0; i < this.options.length; i++) {
			if (normalize(this.options[i].textContent) === want || normalize(this.options[i].value) === want) {
				this.selectedIndex = i;
				this.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	}`, answer)
	if err != nil {
		return fmt.Errorf("select fill failed: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("no option matches %q", answer)
	}
	return nil
}

// applyCustomDropdown reuses the scanner's open strategy (keyboard first,
// click fallback), then clicks the option whose text matches.
func (c *rodControl) applyCustomDropdown(ctx context.Context, answer string) error {
	el := c.el.Context(ctx)
	target := el
	if inner, err := el.Element("input"); err == nil {
		target = inner
	}
	if err := target.Focus(); err != nil {
		logging.FillWarn("Dropdown focus failed: %v", err)
	}

	opened := false
	for _, key := range []input.Key{input.Space, input.Enter, input.ArrowDown} {
		if err := target.Type(key); err != nil {
			continue
		}
		if c.waitForMenu(ctx) {
			opened = true
			break
		}
	}
	if !opened {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("dropdown open failed: %w", err)
		}
		opened = c.waitForMenu(ctx)
	}
	if !opened {
		return fmt.Errorf("dropdown menu never appeared")
	}
	sleepCtx(ctx, c.applier.SettleDelay)

	res, err := c.applier.page.Context(ctx).Eval(`(answer) => {
		const normalize = `+jsNormalize+`;
		const want = normalize(answer);
		const menu = document.querySelector('[role="listbox"], [role="menu"], .dropdown-menu, .select__menu');
		if (!menu) return false;
		let nodes = menu.querySelectorAll('[role="option"]');
		if (nodes.length === 0) nodes = menu.querySelectorAll('li');
		for (const node of nodes) {
			if (normalize(node.textContent) === want) {
				for (const type of ['mousedown', 'mouseup', 'click']) {
					node.dispatchEvent(new MouseEvent(type, { bubbles: true, cancelable: true, view: window }));
				}
				return true;
			}
		}
		return false;
	}`, answer)
	if err != nil {
		return fmt.Errorf("dropdown option commit failed: %w", err)
	}
	if !res.Value.Bool() {
		// Leave the widget closed rather than dangling open.
		_ = c.applier.page.Keyboard.Press(input.Escape)
		return fmt.Errorf("no dropdown option matches %q", answer)
	}
	return nil
}

// applyFile decodes a data-URL answer into a temp file and assigns it to
// the file input.
func (c *rodControl) applyFile(ctx context.Context, q scan.Question, answer string) error {
	path, err := materializeDataURL(answer, q.Text)
	if err != nil {
		return err
	}
	return c.el.Context(ctx).SetFiles([]string{path})
}

// Verify reads the control state back and compares against the intended
// value.
func (c *rodControl) Verify(ctx context.Context, q scan.Question, answer string) bool {
	sleepCtx(ctx, c.applier.SettleDelay)

	switch q.FieldType {
	case scan.FieldRadio:
		return c.verifyRadio(ctx, answer)
	case scan.FieldCheckbox:
		res, err := c.el.Context(ctx).Eval(`() => this.checked === true`)
		return err == nil && res.Value.Bool() == isAffirmative(answer)
	case scan.FieldSelectNative:
		res, err := c.el.Context(ctx).Eval(`() => {
			const opt = this.options[this.selectedIndex];
			return opt ? opt.textContent : '';
		}`)
		return err == nil && scan.Normalize(res.Value.Str()) == scan.Normalize(answer)
	case scan.FieldDropdownCustom:
		res, err := c.el.Context(ctx).Eval(`() => {
			const input = this.matches('input') ? this : this.querySelector('input');
			if (input && input.value) return input.value;
			return this.textContent || '';
		}`)
		if err != nil {
			return false
		}
		committed := scan.Normalize(res.Value.Str())
		return committed != "" && strings.Contains(committed, scan.Normalize(answer))
	case scan.FieldFile:
		res, err := c.el.Context(ctx).Eval(`() => this.files && this.files.length > 0`)
		return err == nil && res.Value.Bool()
	default:
		res, err := c.el.Context(ctx).Eval(`() => this.value`)
		return err == nil && res.Value.Str() == answer
	}
}

// verifyRadio polls for the checked state to commit; frameworks often
// flip it a tick after the mouse events.
func (c *rodControl) verifyRadio(ctx context.Context, answer string) bool {
	deadline := time.Now().Add(c.applier.RadioPollTimeout)
	for {
		res, err := c.el.Context(ctx).Eval(`(answer) => {
			const normalize = `+jsNormalize+`;
			const want = normalize(answer);
			const group = this.name
				? Array.from(document.querySelectorAll('input[type="radio"][name="' + CSS.escape(this.name) + '"]'))
				: [this];
			for (const radio of group) {
				if (!radio.checked) continue;
				let label = radio.closest('label');
				if (!label && radio.id) label = document.querySelector('label[for="' + CSS.escape(radio.id) + '"]');
				const text = label ? label.textContent : radio.value;
				if (normalize(text) === want || normalize(radio.value) === want) return true;
			}
			return false;
		}`, answer)
		if err == nil && res.Value.Bool() {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		sleepCtx(ctx, c.applier.RadioPollInterval)
	}
}

func (c *rodControl) waitForMenu(ctx context.Context) bool {
	deadline := time.Now().Add(c.applier.MenuTimeout)
	for {
		res, err := c.applier.page.Context(ctx).Eval(
			`() => document.querySelector('[role="listbox"], [role="menu"], .dropdown-menu, .select__menu') !== null`)
		if err == nil && res.Value.Bool() {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		sleepCtx(ctx, 50*time.Millisecond)
	}
}

// isAffirmative reports whether a checkbox answer means "checked".
func isAffirmative(answer string) bool {
	switch scan.Normalize(answer) {
	case "yes", "true", "on", "checked", "1", "agree", "i agree":
		return true
	}
	return false
}

// mime extension map for derived upload filenames.
var mimeExtensions = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain": ".txt",
}

// materializeDataURL decodes a base64 data URL to a temp file and returns
// its path. The filename is derived from the question text and MIME type.
func materializeDataURL(dataURL, questionText string) (string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", fmt.Errorf("file answer is not a data URL")
	}
	rest := strings.TrimPrefix(dataURL, "data:")
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", fmt.Errorf("malformed data URL")
	}
	mime := strings.TrimSuffix(meta, ";base64")
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}

	ext := mimeExtensions[mime]
	if ext == "" {
		ext = ".bin"
	}
	base := scan.Normalize(questionText)
	if base == "" {
		base = "upload"
	}
	base = strings.ReplaceAll(base, " ", "-")

	dir, err := os.MkdirTemp("", "formpilot-upload-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	path := filepath.Join(dir, base+ext)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}
