package resolve

import (
	"strings"

	"formpilot/internal/profile"
	"formpilot/internal/scan"
)

// canonicalRule maps a predicate over normalized question text to an
// intent. Rules are ordered; the first match wins, so narrower rules
// ("first name") sit above broader ones ("name").
type canonicalRule struct {
	intent string
	match  func(normalized string, tokens map[string]bool) bool
}

func hasAll(subs ...string) func(string, map[string]bool) bool {
	return func(text string, _ map[string]bool) bool {
		for _, s := range subs {
			if !strings.Contains(text, s) {
				return false
			}
		}
		return true
	}
}

func hasAny(preds ...func(string, map[string]bool) bool) func(string, map[string]bool) bool {
	return func(text string, tokens map[string]bool) bool {
		for _, p := range preds {
			if p(text, tokens) {
				return true
			}
		}
		return false
	}
}

func hasToken(tok string) func(string, map[string]bool) bool {
	return func(_ string, tokens map[string]bool) bool {
		return tokens[tok]
	}
}

func not(p func(string, map[string]bool) bool) func(string, map[string]bool) bool {
	return func(text string, tokens map[string]bool) bool {
		return !p(text, tokens)
	}
}

func and(preds ...func(string, map[string]bool) bool) func(string, map[string]bool) bool {
	return func(text string, tokens map[string]bool) bool {
		for _, p := range preds {
			if !p(text, tokens) {
				return false
			}
		}
		return true
	}
}

// canonicalRules is the fixed keyword table. Kept deliberately literal;
// anything this table cannot claim falls to the learned and AI tiers.
var canonicalRules = []canonicalRule{
	{profile.IntentFirstName, hasAny(hasAll("first name"), hasAll("given name"))},
	{profile.IntentLastName, hasAny(hasAll("last name"), hasAll("surname"), hasAll("family name"))},
	{profile.IntentFullName, hasAny(hasAll("full name"), hasAll("your name"), hasAll("legal name"))},
	{profile.IntentEmail, hasAny(hasToken("email"), hasAll("e mail"))},
	{profile.IntentPhone, hasAny(hasToken("phone"), hasToken("mobile"), hasToken("telephone"))},
	{profile.IntentLinkedIn, hasToken("linkedin")},
	{profile.IntentGitHub, hasToken("github")},
	{profile.IntentPortfolio, hasToken("portfolio")},
	{profile.IntentWebsite, hasAny(hasToken("website"), hasAll("personal site"))},
	{profile.IntentResume, hasAny(hasToken("resume"), hasToken("résumé"), hasToken("cv"))},
	{profile.IntentCoverLetter, hasAll("cover letter")},

	{profile.IntentDateOfBirth, hasAny(hasAll("date of birth"), hasToken("birthdate"), hasToken("dob"))},
	{profile.IntentGender, hasToken("gender")},
	{profile.IntentEthnicity, hasAny(hasToken("ethnicity"), hasToken("race"), hasToken("ethnic"))},
	{profile.IntentVeteranStatus, hasToken("veteran")},
	{profile.IntentDisabilityStatus, hasAny(hasToken("disability"), hasToken("disabilities"), hasToken("disabled"))},

	// Sponsorship is checked before visa status: sponsorship questions
	// usually mention "visa" too, and sponsorship is the narrower ask.
	{profile.IntentRequiresSponsorship, hasAny(hasToken("sponsorship"), hasToken("sponsor"))},
	{profile.IntentAuthorizedUS, hasAny(
		hasAll("authorized", "work"),
		hasAll("authorised", "work"),
		hasAll("eligible", "work"),
		hasAll("legally", "work"),
	)},
	{profile.IntentVisaStatus, hasToken("visa")},

	{profile.IntentAddress, and(hasToken("address"), not(hasToken("email")))},
	{profile.IntentCity, hasToken("city")},
	{profile.IntentPostalCode, hasAny(hasToken("zip"), hasToken("postal"), hasToken("postcode"))},
	// "state" as a token, not substring: keeps "United States" (country)
	// and "veteran status" from landing here.
	{profile.IntentState, and(hasToken("state"), not(hasAll("united states")))},
	{profile.IntentCountry, hasToken("country")},

	{profile.IntentCurrentCompany, hasAny(hasAll("current company"), hasToken("employer"), hasAll("company name"))},
	{profile.IntentCurrentTitle, hasAny(hasAll("current title"), hasAll("job title"), hasAll("current role"))},
	{profile.IntentYearsExperience, hasAll("years", "experience")},
	{profile.IntentExpectedSalary, hasAny(hasToken("salary"), hasToken("compensation"))},
}

// matchCanonicalRule returns the intent the keyword table assigns to a
// question text, if any.
func matchCanonicalRule(questionText string) (string, bool) {
	normalized := scan.Normalize(questionText)
	if normalized == "" {
		return "", false
	}
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(normalized) {
		tokens[t] = true
	}
	for _, rule := range canonicalRules {
		if rule.match(normalized, tokens) {
			return rule.intent, true
		}
	}
	return "", false
}

// booleanIntents answer through yes/no option mapping rather than the
// general matcher.
var booleanIntents = map[string]bool{
	profile.IntentAuthorizedUS:        true,
	profile.IntentRequiresSponsorship: true,
}

// resolveCanonical is tier 1: keyword rule -> profile value -> option
// reconciliation. An enumerated question whose profile value survives no
// matcher tier is abandoned here rather than answered wrong.
func (e *Engine) resolveCanonical(q scan.Question, prof *profile.CanonicalProfile) (*Resolution, bool) {
	intent, ok := matchCanonicalRule(q.Text)
	if !ok {
		return nil, false
	}
	value, ok := profile.CanonicalValue(prof, intent)
	if !ok {
		return nil, false
	}

	answer := value
	if len(q.Options) > 0 {
		var matched bool
		if booleanIntents[intent] {
			answer, matched = MatchYesNo(value, q.Options)
		} else {
			answer, matched = MatchOption(value, q.Options)
		}
		if !matched {
			return nil, false
		}
	} else if booleanIntents[intent] {
		answer, _ = MatchYesNo(value, nil)
	}

	return &Resolution{
		Question:     q,
		Answer:       answer,
		Source:       SourceCanonical,
		Confidence:   1.0,
		CanonicalKey: intent,
	}, true
}
