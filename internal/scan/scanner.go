package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"formpilot/internal/logging"
)

// Scanner detects form fields on a live page.
type Scanner struct {
	extractor *Extractor
}

// NewScanner creates a scanner. The extractor harvests custom dropdown
// options; pass nil to skip option extraction (options stay empty).
func NewScanner(extractor *Extractor) *Scanner {
	return &Scanner{extractor: extractor}
}

// harvestJS enumerates visible form controls and collects, per control,
// the raw material the Go pipeline needs: identity attributes, the text of
// every label-resolution source, native select options, and a
// reconstructible locator. Visibility: non-zero box, display/visibility
// not hidden, opacity non-zero.
const harvestJS = `
() => {
	const cssPath = (el) => {
		if (el.id) return '#' + CSS.escape(el.id);
		const parts = [];
		let node = el;
		while (node && node.nodeType === Node.ELEMENT_NODE && node.tagName !== 'BODY') {
			let part = node.tagName.toLowerCase();
			const parent = node.parentElement;
			if (parent) {
				const sameTag = Array.from(parent.children).filter(c => c.tagName === node.tagName);
				if (sameTag.length > 1) {
					part += ':nth-of-type(' + (sameTag.indexOf(node) + 1) + ')';
				}
			}
			parts.unshift(part);
			node = parent;
		}
		return parts.join(' > ');
	};

	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 || rect.height === 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
	};

	// Trap placement: technically visible but parked where no human finds
	// it, or ARIA-hidden while still interactive.
	const isTrapped = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.right <= 0 || rect.bottom <= 0) return true;
		if (rect.left > Math.max(window.innerWidth, document.documentElement.scrollWidth) + 100) return true;
		for (let node = el; node; node = node.parentElement) {
			if (node.getAttribute && node.getAttribute('aria-hidden') === 'true') return true;
		}
		return false;
	};

	const textOf = (el) => el ? (el.innerText || el.textContent || '').slice(0, 400) : '';

	const labelledByText = (el) => {
		const ids = (el.getAttribute('aria-labelledby') || '').split(/\s+/).filter(Boolean);
		return ids.map(id => textOf(document.getElementById(id))).join(' ').trim();
	};

	const forLabelText = (el) => {
		if (!el.id) return '';
		try {
			return textOf(document.querySelector('label[for="' + CSS.escape(el.id) + '"]'));
		} catch (e) { return ''; }
	};

	const precedingText = (el) => {
		let sib = el.previousElementSibling;
		for (let i = 0; sib && i < 3; i++) {
			const t = textOf(sib).trim();
			if (t) return t;
			sib = sib.previousElementSibling;
		}
		return '';
	};

	const containerText = (el) => {
		const fieldset = el.closest('fieldset');
		if (fieldset) {
			const legend = fieldset.querySelector('legend');
			if (legend) {
				const t = textOf(legend).trim();
				if (t) return t;
			}
		}
		let node = el.parentElement;
		for (let depth = 0; node && depth < 3; depth++) {
			const lbl = node.querySelector('label, legend, [class*="label" i]');
			// A label wrapping a control belongs to that control (e.g. a
			// sibling radio's option label), never to the group.
			if (lbl && !lbl.querySelector('input, textarea, select')) {
				const t = textOf(lbl).trim();
				if (t) return t;
			}
			node = node.parentElement;
		}
		return '';
	};

	const comboSelector = '[role="combobox"], [aria-haspopup="listbox"]';
	const controls = Array.from(document.querySelectorAll('input, textarea, select, ' + comboSelector));
	const results = [];
	const emitted = new Set();

	for (const el of controls) {
		if (emitted.has(el)) continue;
		const tag = el.tagName.toLowerCase();
		const isField = tag === 'input' || tag === 'textarea' || tag === 'select';

		// A combobox wrapper already covered by an enclosed field is skipped;
		// the enclosed field inherits the wrapper's dropdown signals.
		if (!isField) {
			if (el.querySelector('input, textarea, select')) continue;
		}
		emitted.add(el);

		let role = (el.getAttribute('role') || '').toLowerCase();
		let hasPopup = (el.getAttribute('aria-haspopup') || '').toLowerCase();
		if (isField) {
			const wrapper = el.closest(comboSelector);
			if (wrapper) {
				if (!role) role = (wrapper.getAttribute('role') || '').toLowerCase();
				if (!hasPopup) hasPopup = (wrapper.getAttribute('aria-haspopup') || '').toLowerCase();
			}
		}

		let options = [];
		if (tag === 'select') {
			options = Array.from(el.options || []).map(o => (o.text || '').trim());
		}

		results.push({
			tag: tag,
			typeAttr: (el.getAttribute('type') || '').toLowerCase(),
			role: role,
			ariaHasPopup: hasPopup,
			id: el.id || '',
			name: el.getAttribute('name') || '',
			placeholder: el.getAttribute('placeholder') || '',
			value: el.getAttribute('value') || '',
			required: el.hasAttribute('required') || el.getAttribute('aria-required') === 'true',
			visible: isVisible(el),
			trap: isTrapped(el),
			options: options,
			ariaLabel: el.getAttribute('aria-label') || '',
			forLabel: forLabelText(el),
			wrappingLabel: textOf(el.closest('label')),
			ariaLabelledBy: labelledByText(el),
			precedingSibling: precedingText(el),
			container: containerText(el),
			locator: cssPath(el)
		});
	}
	return results;
}
`

// harvested mirrors the JS harvest record.
type harvested struct {
	Tag              string   `json:"tag"`
	TypeAttr         string   `json:"typeAttr"`
	Role             string   `json:"role"`
	AriaHasPopup     string   `json:"ariaHasPopup"`
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Placeholder      string   `json:"placeholder"`
	Value            string   `json:"value"`
	Required         bool     `json:"required"`
	Visible          bool     `json:"visible"`
	Trap             bool     `json:"trap"`
	Options          []string `json:"options"`
	AriaLabel        string   `json:"ariaLabel"`
	ForLabel         string   `json:"forLabel"`
	WrappingLabel    string   `json:"wrappingLabel"`
	AriaLabelledBy   string   `json:"ariaLabelledBy"`
	PrecedingSibling string   `json:"precedingSibling"`
	Container        string   `json:"container"`
	Locator          string   `json:"locator"`
}

func (h harvested) toCandidate() candidate {
	return candidate{
		Tag:              h.Tag,
		TypeAttr:         h.TypeAttr,
		Role:             h.Role,
		AriaHasPopup:     h.AriaHasPopup,
		ID:               h.ID,
		Name:             h.Name,
		Placeholder:      h.Placeholder,
		Value:            h.Value,
		Required:         h.Required,
		Visible:          h.Visible,
		Trap:             h.Trap,
		Options:          h.Options,
		AriaLabel:        h.AriaLabel,
		ForLabel:         h.ForLabel,
		WrappingLabel:    h.WrappingLabel,
		AriaLabelledBy:   h.AriaLabelledBy,
		PrecedingSibling: h.PrecedingSibling,
		Container:        h.Container,
		Locator:          h.Locator,
	}
}

// Scan enumerates visible form controls on the page and returns them as
// Questions in document order. Custom dropdowns get their options
// harvested through the extractor; an extraction failure leaves the option
// set empty and is reported as a warning, not an error.
func (s *Scanner) Scan(ctx context.Context, page *rod.Page) ([]Question, error) {
	timer := logging.StartTimer(logging.CategoryScan, "Scanner.Scan")
	defer timer.Stop()

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           harvestJS,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("harvest form controls: %w", err)
	}
	if res == nil || res.Value.Nil() {
		return nil, nil
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal harvest result: %w", err)
	}

	var records []harvested
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode harvest result: %w", err)
	}

	cands := make([]candidate, 0, len(records))
	for _, r := range records {
		cands = append(cands, r.toCandidate())
	}

	questions := buildQuestions(cands)
	logging.Scan("Scanned %d controls into %d questions", len(records), len(questions))

	if s.extractor != nil {
		for i := range questions {
			if questions[i].FieldType != FieldDropdownCustom {
				continue
			}
			opts, err := s.extractor.ExtractOptions(ctx, page, questions[i].Locator)
			if err != nil {
				logging.DropdownWarn("Option extraction failed for %q: %v", questions[i].Text, err)
				continue
			}
			if len(opts) == 0 {
				logging.DropdownWarn("No options extracted for %q, proceeding unconstrained", questions[i].Text)
				continue
			}
			questions[i].Options = opts
		}
	}

	return questions, nil
}
