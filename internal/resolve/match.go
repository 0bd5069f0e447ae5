package resolve

import (
	"strings"

	"formpilot/internal/scan"
)

// synonymSets groups normalized answer phrasings that mean the same thing.
// Membership is symmetric; any member matches any other.
var synonymSets = [][]string{
	{"male", "man"},
	{"female", "woman"},
	{"non binary", "nonbinary", "non binary third gender"},
	{"decline", "decline to self identify", "prefer not to say", "i do not wish to answer", "prefer not to answer"},
	{"yes", "true"},
	{"no", "false"},
}

// abbreviations expands common short forms before the containment tiers
// get another shot at them.
var abbreviations = map[string]string{
	"usa": "united states",
	"us":  "united states",
	"uk":  "united kingdom",
	"uae": "united arab emirates",
}

// MatchOption reconciles a desired value against an option vocabulary,
// trying progressively looser tiers: exact normalized match, synonym
// table, token containment, word-prefix, abbreviation expansion. Returns
// the option verbatim so the fill step uses the site's own spelling. No
// tier matching means no match; the caller must not invent an option.
func MatchOption(value string, options []string) (string, bool) {
	nv := scan.Normalize(value)
	if nv == "" || len(options) == 0 {
		return "", false
	}

	// Exact.
	for _, opt := range options {
		if scan.Normalize(opt) == nv {
			return opt, true
		}
	}

	// Synonyms.
	for _, syn := range synonymsOf(nv) {
		for _, opt := range options {
			if scan.Normalize(opt) == syn {
				return opt, true
			}
		}
	}

	// Token containment: every word of the value appears in the option.
	// Token granularity keeps "man" from matching inside "woman".
	valueTokens := scan.Tokens(nv)
	for _, opt := range options {
		if containsAllTokens(scan.Tokens(opt), valueTokens) {
			return opt, true
		}
	}

	// Word-prefix: the value's words prefix the option's leading words,
	// so "united state" still lands on "United States +1".
	for _, opt := range options {
		if wordPrefixMatch(valueTokens, scan.Tokens(opt)) {
			return opt, true
		}
	}

	// Abbreviations, then one re-run of the stricter tiers on the
	// expansion ("USA" -> "united states" -> containment).
	if expanded, ok := abbreviations[nv]; ok {
		for _, opt := range options {
			no := scan.Normalize(opt)
			if no == expanded || containsAllTokens(scan.Tokens(no), scan.Tokens(expanded)) {
				return opt, true
			}
		}
	}

	return "", false
}

func synonymsOf(normalized string) []string {
	for _, set := range synonymSets {
		for _, member := range set {
			if member == normalized {
				return set
			}
		}
	}
	return nil
}

func containsAllTokens(haystack, needles []string) bool {
	if len(needles) == 0 || len(haystack) < len(needles) {
		return false
	}
	set := make(map[string]bool, len(haystack))
	for _, t := range haystack {
		set[t] = true
	}
	for _, t := range needles {
		if !set[t] {
			return false
		}
	}
	return true
}

func wordPrefixMatch(valueTokens, optionTokens []string) bool {
	if len(valueTokens) == 0 || len(valueTokens) > len(optionTokens) {
		return false
	}
	for i, vt := range valueTokens {
		if !strings.HasPrefix(optionTokens[i], vt) {
			return false
		}
	}
	return true
}

// MatchYesNo maps a boolean-shaped answer ("Yes"/"No") onto the field's
// own option list, preferring options that literally start with yes/no.
// With no options at all, the literal answer stands.
func MatchYesNo(answer string, options []string) (string, bool) {
	want := scan.Normalize(answer)
	if want != "yes" && want != "no" {
		return "", false
	}
	if len(options) == 0 {
		if want == "yes" {
			return "Yes", true
		}
		return "No", true
	}
	// An option that IS yes/no.
	for _, opt := range options {
		if scan.Normalize(opt) == want {
			return opt, true
		}
	}
	// An option that LEADS with yes/no ("Yes, I am authorized").
	for _, opt := range options {
		tokens := scan.Tokens(opt)
		if len(tokens) > 0 && tokens[0] == want {
			return opt, true
		}
	}
	return "", false
}
