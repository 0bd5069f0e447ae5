package profile

// Intent keys name "what a question is really asking", independent of its
// wording on any one site. They double as the pattern-store keys, so they
// stay stable strings while lookup goes through a typed accessor table
// instead of dynamic path traversal.
const (
	IntentFirstName       = "personal.firstName"
	IntentLastName        = "personal.lastName"
	IntentFullName        = "personal.fullName"
	IntentEmail           = "personal.email"
	IntentPhone           = "personal.phone"
	IntentAddress         = "personal.addressLine"
	IntentCity            = "personal.city"
	IntentState           = "personal.state"
	IntentPostalCode      = "personal.postalCode"
	IntentCountry         = "personal.country"
	IntentCurrentCompany  = "personal.currentCompany"
	IntentCurrentTitle    = "personal.currentTitle"
	IntentYearsExperience = "personal.yearsExperience"
	IntentExpectedSalary  = "personal.expectedSalary"
	IntentDateOfBirth     = "personal.dateOfBirth"

	IntentGender           = "eeo.gender"
	IntentEthnicity        = "eeo.ethnicity"
	IntentVeteranStatus    = "eeo.veteranStatus"
	IntentDisabilityStatus = "eeo.disabilityStatus"

	IntentAuthorizedUS        = "workAuthorization.authorizedUS"
	IntentRequiresSponsorship = "workAuthorization.requiresSponsorship"
	IntentVisaStatus          = "workAuthorization.visaStatus"

	IntentLinkedIn  = "social.linkedin"
	IntentGitHub    = "social.github"
	IntentPortfolio = "social.portfolio"
	IntentWebsite   = "social.website"

	IntentResume      = "documents.resume"
	IntentCoverLetter = "documents.coverLetter"
)

// Accessor returns the canonical value a profile holds for one intent.
// The bool reports presence: an empty profile field is absent, not "".
type Accessor func(p *CanonicalProfile) (string, bool)

func stringField(get func(p *CanonicalProfile) string) Accessor {
	return func(p *CanonicalProfile) (string, bool) {
		v := get(p)
		return v, v != ""
	}
}

func boolField(get func(p *CanonicalProfile) bool) Accessor {
	return func(p *CanonicalProfile) (string, bool) {
		if get(p) {
			return "Yes", true
		}
		return "No", true
	}
}

func documentField(get func(p *CanonicalProfile) Document) Accessor {
	return func(p *CanonicalProfile) (string, bool) {
		d := get(p)
		if !d.IsPresent() {
			return "", false
		}
		return d.DataURL(), true
	}
}

// accessors is the fixed intent → typed getter table. It replaces the
// string-path traversal ("eeo.gender" walked field by field) with checked
// access over the profile's structured schema.
var accessors = map[string]Accessor{
	IntentFirstName:       stringField(func(p *CanonicalProfile) string { return p.Personal.FirstName }),
	IntentLastName:        stringField(func(p *CanonicalProfile) string { return p.Personal.LastName }),
	IntentFullName:        stringField(func(p *CanonicalProfile) string { return p.Personal.FullName() }),
	IntentEmail:           stringField(func(p *CanonicalProfile) string { return p.Personal.Email }),
	IntentPhone:           stringField(func(p *CanonicalProfile) string { return p.Personal.Phone }),
	IntentAddress:         stringField(func(p *CanonicalProfile) string { return p.Personal.AddressLine }),
	IntentCity:            stringField(func(p *CanonicalProfile) string { return p.Personal.City }),
	IntentState:           stringField(func(p *CanonicalProfile) string { return p.Personal.State }),
	IntentPostalCode:      stringField(func(p *CanonicalProfile) string { return p.Personal.PostalCode }),
	IntentCountry:         stringField(func(p *CanonicalProfile) string { return p.Personal.Country }),
	IntentCurrentCompany:  stringField(func(p *CanonicalProfile) string { return p.Personal.CurrentCompany }),
	IntentCurrentTitle:    stringField(func(p *CanonicalProfile) string { return p.Personal.CurrentTitle }),
	IntentYearsExperience: stringField(func(p *CanonicalProfile) string { return p.Personal.YearsExperience }),
	IntentExpectedSalary:  stringField(func(p *CanonicalProfile) string { return p.Personal.ExpectedSalary }),
	IntentDateOfBirth:     stringField(func(p *CanonicalProfile) string { return p.Personal.DateOfBirth }),

	IntentGender:           stringField(func(p *CanonicalProfile) string { return p.EEO.Gender }),
	IntentEthnicity:        stringField(func(p *CanonicalProfile) string { return p.EEO.Ethnicity }),
	IntentVeteranStatus:    stringField(func(p *CanonicalProfile) string { return p.EEO.VeteranStatus }),
	IntentDisabilityStatus: stringField(func(p *CanonicalProfile) string { return p.EEO.DisabilityStatus }),

	IntentAuthorizedUS:        boolField(func(p *CanonicalProfile) bool { return p.WorkAuthorization.AuthorizedUS }),
	IntentRequiresSponsorship: boolField(func(p *CanonicalProfile) bool { return p.WorkAuthorization.RequiresSponsorship }),
	IntentVisaStatus:          stringField(func(p *CanonicalProfile) string { return p.WorkAuthorization.VisaStatus }),

	IntentLinkedIn:  stringField(func(p *CanonicalProfile) string { return p.Social.LinkedIn }),
	IntentGitHub:    stringField(func(p *CanonicalProfile) string { return p.Social.GitHub }),
	IntentPortfolio: stringField(func(p *CanonicalProfile) string { return p.Social.Portfolio }),
	IntentWebsite:   stringField(func(p *CanonicalProfile) string { return p.Social.Website }),

	IntentResume:      documentField(func(p *CanonicalProfile) Document { return p.Documents.Resume }),
	IntentCoverLetter: documentField(func(p *CanonicalProfile) Document { return p.Documents.CoverLetter }),
}

// CanonicalValue resolves an intent against the profile through the typed
// accessor table. Unknown intents report not-found rather than panicking.
func CanonicalValue(p *CanonicalProfile, intent string) (string, bool) {
	if p == nil {
		return "", false
	}
	acc, ok := accessors[intent]
	if !ok {
		return "", false
	}
	return acc(p)
}

// KnownIntent reports whether the intent exists in the accessor table.
func KnownIntent(intent string) bool {
	_, ok := accessors[intent]
	return ok
}

// KnownIntents returns every intent in the accessor table.
func KnownIntents() []string {
	out := make([]string, 0, len(accessors))
	for k := range accessors {
		out = append(out, k)
	}
	return out
}

// protectedIntents names the EEO/compliance fields whose form values must
// trace back to the profile, never to an AI-originated guess.
var protectedIntents = map[string]bool{
	IntentGender:              true,
	IntentEthnicity:           true,
	IntentVeteranStatus:       true,
	IntentDisabilityStatus:    true,
	IntentAuthorizedUS:        true,
	IntentRequiresSponsorship: true,
	IntentVisaStatus:          true,
	IntentDateOfBirth:         true,
}

// IsProtectedIntent reports whether an intent is in the EEO/compliance set.
func IsProtectedIntent(intent string) bool {
	return protectedIntents[intent]
}

// shareableIntents is the fixed allow-list of intents whose learned
// patterns may leave the machine via the pattern exchange. Free-text
// personal identifiers beyond name/contact never qualify.
var shareableIntents = map[string]bool{
	IntentFirstName:           true,
	IntentLastName:            true,
	IntentFullName:            true,
	IntentEmail:               true,
	IntentPhone:               true,
	IntentCity:                true,
	IntentState:               true,
	IntentCountry:             true,
	IntentGender:              true,
	IntentEthnicity:           true,
	IntentVeteranStatus:       true,
	IntentDisabilityStatus:    true,
	IntentAuthorizedUS:        true,
	IntentRequiresSponsorship: true,
	IntentVisaStatus:          true,
	IntentLinkedIn:            true,
	IntentGitHub:              true,
	IntentPortfolio:           true,
	IntentWebsite:             true,
}

// IsShareableIntent reports whether learned patterns for an intent may be
// synced to the shared exchange.
func IsShareableIntent(intent string) bool {
	return shareableIntents[intent]
}
