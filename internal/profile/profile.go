// Package profile defines the canonical profile: the user's authoritative,
// explicitly-entered answer set. The profile is user-owned; the resolution
// pipeline reads it and never writes it.
package profile

import (
	"fmt"
	"strings"
	"time"
)

// SchemaVersion tags persisted profiles so future migrations can detect
// older layouts.
const SchemaVersion = 2

// CanonicalProfile is the single-instance, versioned record of the user's
// declared answers. Mutated only by explicit user edit or import.
type CanonicalProfile struct {
	SchemaVersion int       `json:"schemaVersion"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Personal          Personal          `json:"personal"`
	EEO               EEO               `json:"eeo"`
	WorkAuthorization WorkAuthorization `json:"workAuthorization"`
	Social            Social            `json:"social"`
	Documents         Documents         `json:"documents"`
	Consent           Consent           `json:"consent"`
}

// Personal holds name, contact, and location answers.
type Personal struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	AddressLine     string `json:"addressLine,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	Country         string `json:"country,omitempty"`
	CurrentCompany  string `json:"currentCompany,omitempty"`
	CurrentTitle    string `json:"currentTitle,omitempty"`
	YearsExperience string `json:"yearsExperience,omitempty"`
	ExpectedSalary  string `json:"expectedSalary,omitempty"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
}

// FullName returns "First Last", skipping empty parts.
func (p Personal) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// EEO holds voluntary self-identification answers. These are compliance
// fields: their values must always trace back to this struct, never to an
// AI guess.
type EEO struct {
	Gender           string `json:"gender,omitempty"`
	Ethnicity        string `json:"ethnicity,omitempty"`
	VeteranStatus    string `json:"veteranStatus,omitempty"`
	DisabilityStatus string `json:"disabilityStatus,omitempty"`
}

// WorkAuthorization holds work-eligibility answers. Compliance fields, same
// rule as EEO.
type WorkAuthorization struct {
	AuthorizedUS        bool   `json:"authorizedUS"`
	RequiresSponsorship bool   `json:"requiresSponsorship"`
	VisaStatus          string `json:"visaStatus,omitempty"`
}

// Social holds public profile links.
type Social struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Document is one stored upload: base64-encoded content plus a filename.
type Document struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Base64   string `json:"base64"`
}

// IsPresent reports whether the document holds content.
func (d Document) IsPresent() bool {
	return d.Base64 != ""
}

// DataURL renders the document as a data URL suitable for a FILE answer.
func (d Document) DataURL() string {
	if !d.IsPresent() {
		return ""
	}
	mime := d.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, d.Base64)
}

// Documents holds the user's uploadable files.
type Documents struct {
	Resume      Document `json:"resume,omitempty"`
	CoverLetter Document `json:"coverLetter,omitempty"`
}

// Consent records the user's opt-in.
type Consent struct {
	AgreedToAutofill bool      `json:"agreedToAutofill"`
	AgreedAt         time.Time `json:"agreedAt,omitempty"`
}

// NewCanonicalProfile returns an empty profile at the current schema
// version.
func NewCanonicalProfile() *CanonicalProfile {
	return &CanonicalProfile{
		SchemaVersion: SchemaVersion,
		UpdatedAt:     time.Now().UTC(),
	}
}

// IsComplete reports whether the profile can drive an autofill run:
// first/last name, email, and consent must all be present.
func (p *CanonicalProfile) IsComplete() bool {
	if p == nil {
		return false
	}
	return p.Personal.FirstName != "" &&
		p.Personal.LastName != "" &&
		p.Personal.Email != "" &&
		p.Consent.AgreedToAutofill
}

// Validate returns a description of every missing required field.
func (p *CanonicalProfile) Validate() []string {
	var missing []string
	if p.Personal.FirstName == "" {
		missing = append(missing, "personal.firstName")
	}
	if p.Personal.LastName == "" {
		missing = append(missing, "personal.lastName")
	}
	if p.Personal.Email == "" {
		missing = append(missing, "personal.email")
	}
	if !p.Consent.AgreedToAutofill {
		missing = append(missing, "consent.agreedToAutofill")
	}
	return missing
}
