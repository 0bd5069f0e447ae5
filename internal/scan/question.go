// Package scan detects form controls on job-application pages and
// normalizes them into Questions. Two backends feed the same pipeline: a
// live go-rod page and a static HTML parse. Custom dropdown options are
// only harvestable on the live path.
package scan

import (
	"strings"
	"unicode"
)

// FieldType classifies a detected form control.
type FieldType string

const (
	FieldText           FieldType = "TEXT"
	FieldTextarea       FieldType = "TEXTAREA"
	FieldEmail          FieldType = "EMAIL"
	FieldPhone          FieldType = "PHONE"
	FieldNumber         FieldType = "NUMBER"
	FieldDate           FieldType = "DATE"
	FieldRadio          FieldType = "RADIO"
	FieldCheckbox       FieldType = "CHECKBOX"
	FieldSelectNative   FieldType = "SELECT_NATIVE"
	FieldDropdownCustom FieldType = "DROPDOWN_CUSTOM"
	FieldFile           FieldType = "FILE"
)

// IsEnumerated reports whether the field type carries an option list.
func (t FieldType) IsEnumerated() bool {
	switch t {
	case FieldRadio, FieldSelectNative, FieldDropdownCustom:
		return true
	}
	return false
}

// Question is one detected form field, normalized away from its markup.
// The live DOM element is not retained: the Locator must re-resolve it
// later, because the page may have re-rendered by fill time.
type Question struct {
	Text      string    `json:"text"`
	FieldType FieldType `json:"fieldType"`
	Options   []string  `json:"options,omitempty"`
	Required  bool      `json:"required"`
	Locator   string    `json:"locator"`
}

// Normalize lowercases question text, strips punctuation, and collapses
// whitespace. The result is the pattern-store match key.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits normalized text into words.
func Tokens(text string) []string {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

// TokenOverlap returns the Jaccard-style overlap between the token sets of
// two question texts: |A∩B| / |A∪B|, in [0,1].
func TokenOverlap(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(ta))
	for _, t := range ta {
		seen[t] = true
	}
	union := len(seen)
	inter := 0
	counted := make(map[string]bool, len(tb))
	for _, t := range tb {
		if counted[t] {
			continue
		}
		counted[t] = true
		if seen[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// sentinel option texts that mean "nothing selected yet".
var optionSentinels = map[string]bool{
	"":                 true,
	"select":           true,
	"select one":       true,
	"select an option": true,
	"please select":    true,
	"choose":           true,
	"choose one":       true,
	"choose an option": true,
	"none":             false, // a legitimate answer, keep it
}

// isSentinelOption reports whether an option is a placeholder entry.
func isSentinelOption(opt string) bool {
	trimmed := strings.TrimSpace(opt)
	if trimmed == "" {
		return true
	}
	if strings.Trim(trimmed, "-– .…") == "" {
		return true
	}
	norm := Normalize(trimmed)
	if v, ok := optionSentinels[norm]; ok {
		return v
	}
	return strings.HasPrefix(norm, "select ") && len(norm) < 24
}

// CleanOptions deduplicates options case-insensitively in first-seen order
// and drops placeholder sentinel entries.
func CleanOptions(raw []string) []string {
	var out []string
	seen := make(map[string]bool, len(raw))
	for _, opt := range raw {
		trimmed := strings.TrimSpace(opt)
		if isSentinelOption(trimmed) {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}

// HumanizeName turns a name attribute like "job_application[first_name]" or
// "firstName" into "first name".
func HumanizeName(name string) string {
	if name == "" {
		return ""
	}
	// Take the innermost bracket segment when present.
	if i := strings.LastIndex(name, "["); i >= 0 {
		inner := name[i+1:]
		inner = strings.TrimSuffix(inner, "]")
		if inner != "" {
			name = inner
		}
	}

	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			flush()
			cur.WriteRune(unicode.ToLower(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return strings.Join(words, " ")
}
