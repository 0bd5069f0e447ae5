package scan

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"formpilot/internal/logging"
)

// candidate is one raw form control as harvested by a backend, before
// label resolution and classification. Each backend (live rod page, static
// HTML parse) fills the label-source strings it can observe; the cascade
// order is applied here, in one place.
type candidate struct {
	Tag          string // lowercase tag name
	TypeAttr     string // input type attribute, lowercase
	Role         string // role attribute, lowercase
	AriaHasPopup string // aria-haspopup attribute, lowercase
	ID           string
	Name         string
	Placeholder  string
	Value        string

	Required bool // required or aria-required="true"
	Visible  bool
	Trap     bool // backend-observed trap placement (offscreen, aria-hidden)

	// Options holds native <select> option texts, raw (sentinels included).
	Options []string

	// Label sources, in cascade priority order. Empty string = that
	// strategy found nothing.
	AriaLabel        string // explicit label attribute
	ForLabel         string // <label for=...> association
	WrappingLabel    string // enclosing <label>
	AriaLabelledBy   string // aria-labelledby target text
	PrecedingSibling string // nearest preceding sibling text
	Container        string // container heuristic (fieldset legend, wrapper div text)

	// Locator re-resolves the element later: "#id", "[name=...]", or a
	// structural CSS path supplied by the backend.
	Locator string
}

// labelText applies the seven-strategy cascade. The final fallback
// humanizes the name attribute. Empty result means the field is dropped.
func (c *candidate) labelText() string {
	for _, source := range []string{
		c.AriaLabel,
		c.ForLabel,
		c.WrappingLabel,
		c.AriaLabelledBy,
		c.PrecedingSibling,
		c.Container,
	} {
		if t := collapseLabel(source); t != "" {
			return t
		}
	}
	return collapseLabel(HumanizeName(c.Name))
}

// collapseLabel trims a raw label string down to a single line of
// reasonable length. The cut lands on a rune boundary; the result feeds
// Question.Text and must stay valid UTF-8.
func collapseLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return strings.TrimSpace(s)
}

// isCustomDropdown checks custom-dropdown signals. This runs before native
// input-type checks: some sites render a dropdown as
// <input type="text" role="combobox">, which would otherwise classify TEXT.
func (c *candidate) isCustomDropdown() bool {
	if c.Tag == "select" {
		return false
	}
	if c.Role == "combobox" || c.Role == "listbox" {
		return true
	}
	return c.AriaHasPopup == "listbox" || c.AriaHasPopup == "menu" || c.AriaHasPopup == "true"
}

// classify determines the field type by priority order.
func (c *candidate) classify() FieldType {
	if c.isCustomDropdown() {
		return FieldDropdownCustom
	}
	switch c.Tag {
	case "select":
		return FieldSelectNative
	case "textarea":
		return FieldTextarea
	}
	switch c.TypeAttr {
	case "file":
		return FieldFile
	case "radio":
		return FieldRadio
	case "checkbox":
		return FieldCheckbox
	case "email":
		return FieldEmail
	case "tel":
		return FieldPhone
	case "number":
		return FieldNumber
	case "date", "month":
		return FieldDate
	}
	return FieldText
}

// fallbackLocator builds a locator when the backend supplied none.
func (c *candidate) fallbackLocator() string {
	if c.Locator != "" {
		return c.Locator
	}
	if c.ID != "" {
		return "#" + c.ID
	}
	if c.Name != "" {
		return fmt.Sprintf(`%s[name=%q]`, c.Tag, c.Name)
	}
	return ""
}

// requiredFrom combines attribute-level required with a literal "*" in the
// resolved label text.
func requiredFrom(attrRequired bool, label string) bool {
	return attrRequired || strings.Contains(label, "*")
}

// buildQuestions runs the shared pipeline: drop invisible/unlabelable
// candidates, group radios by name, classify, clean options, and
// deduplicate by normalized question text (first occurrence wins).
func buildQuestions(cands []candidate) []Question {
	log := logging.Get(logging.CategoryScan)

	var questions []Question

	// Radio inputs sharing a name form one question whose options are the
	// individual radios' own labels.
	radioGroups := make(map[string][]candidate)
	var radioOrder []string

	for _, c := range cands {
		if !c.Visible {
			continue
		}
		if c.Tag == "input" {
			switch c.TypeAttr {
			case "hidden", "submit", "button", "reset", "image":
				continue
			}
		}
		if reasons := trapSignals(c); len(reasons) > 0 {
			log.Warn("Skipping likely trap field (name=%s id=%s): %s", c.Name, c.ID, strings.Join(reasons, "; "))
			continue
		}

		if c.Tag == "input" && c.TypeAttr == "radio" && !c.isCustomDropdown() {
			key := c.Name
			if key == "" {
				key = c.fallbackLocator()
			}
			if _, ok := radioGroups[key]; !ok {
				radioOrder = append(radioOrder, key)
			}
			radioGroups[key] = append(radioGroups[key], c)
			continue
		}

		q, ok := buildSingle(c)
		if !ok {
			log.Debug("Dropped unlabelable field (tag=%s type=%s name=%s)", c.Tag, c.TypeAttr, c.Name)
			continue
		}
		questions = append(questions, q)
	}

	for _, key := range radioOrder {
		q, ok := buildRadioGroup(key, radioGroups[key])
		if !ok {
			log.Debug("Dropped unlabelable radio group (name=%s)", key)
			continue
		}
		questions = append(questions, q)
	}

	return dedupeQuestions(questions)
}

// buildSingle converts one non-radio candidate into a Question.
func buildSingle(c candidate) (Question, bool) {
	label := c.labelText()
	if label == "" {
		// Expected, non-fatal: label resolution failure is routine given
		// the diversity of markup.
		return Question{}, false
	}

	ft := c.classify()
	q := Question{
		Text:      strings.TrimSpace(strings.TrimSuffix(label, "*")),
		FieldType: ft,
		Required:  requiredFrom(c.Required, label),
		Locator:   c.fallbackLocator(),
	}
	if q.Text == "" {
		return Question{}, false
	}
	if ft == FieldSelectNative {
		q.Options = CleanOptions(c.Options)
	}
	return q, true
}

// buildRadioGroup collapses one radio group into a single RADIO question.
// The group label comes from container-level sources of the first radio;
// options come from each radio's own label (or value attribute).
func buildRadioGroup(name string, group []candidate) (Question, bool) {
	if len(group) == 0 {
		return Question{}, false
	}
	first := group[0]

	groupLabel := ""
	for _, source := range []string{first.AriaLabelledBy, first.Container, first.PrecedingSibling} {
		if t := collapseLabel(source); t != "" {
			groupLabel = t
			break
		}
	}
	if groupLabel == "" {
		groupLabel = collapseLabel(HumanizeName(name))
	}
	if groupLabel == "" {
		return Question{}, false
	}

	required := false
	var rawOpts []string
	for _, c := range group {
		opt := collapseLabel(c.ForLabel)
		if opt == "" {
			opt = collapseLabel(c.WrappingLabel)
		}
		if opt == "" {
			opt = collapseLabel(c.AriaLabel)
		}
		if opt == "" {
			opt = collapseLabel(c.Value)
		}
		if opt != "" {
			rawOpts = append(rawOpts, opt)
		}
		required = required || c.Required
	}

	locator := first.fallbackLocator()
	if first.Name != "" {
		locator = fmt.Sprintf(`input[type="radio"][name=%q]`, first.Name)
	}

	return Question{
		Text:      strings.TrimSpace(strings.TrimSuffix(groupLabel, "*")),
		FieldType: FieldRadio,
		Options:   CleanOptions(rawOpts),
		Required:  requiredFrom(required, groupLabel),
		Locator:   locator,
	}, true
}

// dedupeQuestions keeps the first occurrence per normalized question text.
func dedupeQuestions(qs []Question) []Question {
	seen := make(map[string]bool, len(qs))
	out := qs[:0]
	for _, q := range qs {
		key := Normalize(q.Text)
		if key == "" {
			continue
		}
		if seen[key] {
			logging.ScanDebug("Skipping duplicate question %q", q.Text)
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}
