package resolve

import (
	"formpilot/internal/profile"
	"formpilot/internal/scan"
)

// FuzzyRule recognizes a question by its shape (usually its option
// vocabulary) rather than its label text, and names the intent to answer
// it with. The tier is a registered table so widening it is an explicit
// act, not an accident.
type FuzzyRule struct {
	Name    string
	Intent  string
	Applies func(q scan.Question) bool
}

// defaultFuzzyRules seeds the tier with its one historical member: gender
// pickers recognized by their option vocabulary when the label said
// nothing useful.
func defaultFuzzyRules() []FuzzyRule {
	return []FuzzyRule{
		{
			Name:   "gender-options",
			Intent: profile.IntentGender,
			Applies: func(q scan.Question) bool {
				if len(q.Options) < 2 {
					return false
				}
				var maleish, femaleish bool
				for _, opt := range q.Options {
					switch scan.Normalize(opt) {
					case "male", "man":
						maleish = true
					case "female", "woman":
						femaleish = true
					}
				}
				return maleish && femaleish
			},
		},
	}
}

// resolveFuzzy is tier 3: rule-recognized questions answered from the
// profile through the same option matcher, at below-canonical confidence.
func (e *Engine) resolveFuzzy(q scan.Question, prof *profile.CanonicalProfile) (*Resolution, bool) {
	for _, rule := range e.fuzzyRules {
		if rule.Applies == nil || !rule.Applies(q) {
			continue
		}
		value, ok := profile.CanonicalValue(prof, rule.Intent)
		if !ok {
			continue
		}
		answer := value
		if len(q.Options) > 0 {
			answer, ok = MatchOption(value, q.Options)
			if !ok {
				continue
			}
		}
		return &Resolution{
			Question:     q,
			Answer:       answer,
			Source:       SourceFuzzy,
			Confidence:   fuzzyConfidence,
			CanonicalKey: rule.Intent,
		}, true
	}
	return nil, false
}
