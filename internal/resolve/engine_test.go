package resolve

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"formpilot/internal/oracle"
	"formpilot/internal/pattern"
	"formpilot/internal/profile"
	"formpilot/internal/scan"
)

// fakeOracle answers from a fixed table keyed by question text and counts
// calls.
type fakeOracle struct {
	mu      sync.Mutex
	calls   int
	answers map[string]oracle.Response
}

func (f *fakeOracle) Answer(_ context.Context, req oracle.Request) (*oracle.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if resp, ok := f.answers[req.Question]; ok {
		return &resp, nil
	}
	return &oracle.Response{Answer: "unknown", Confidence: 0.3}, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fullProfile() *profile.CanonicalProfile {
	p := profile.NewCanonicalProfile()
	p.Personal.FirstName = "Asha"
	p.Personal.LastName = "Iyer"
	p.Personal.Email = "asha@example.com"
	p.Personal.Phone = "555-0100"
	p.Personal.Country = "USA"
	p.EEO.Gender = "Male"
	p.WorkAuthorization.AuthorizedUS = true
	p.Consent.AgreedToAutofill = true
	return p
}

func newEngine(t *testing.T, orc oracle.Oracle) (*Engine, *pattern.Store) {
	t.Helper()
	store, err := pattern.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewEngine(store, orc, 20), store
}

func TestResolveRequiresProfile(t *testing.T) {
	e, _ := newEngine(t, nil)
	_, err := e.Resolve(context.Background(), []scan.Question{{Text: "First Name", FieldType: scan.FieldText}}, nil)
	assert.Error(t, err)
}

// Scenario: plain text field answered straight from the profile.
func TestResolveCanonicalText(t *testing.T) {
	e, _ := newEngine(t, nil)
	res, err := e.Resolve(context.Background(), []scan.Question{
		{Text: "First Name", FieldType: scan.FieldText, Locator: "#first"},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Asha", res[0].Answer)
	assert.Equal(t, SourceCanonical, res[0].Source)
	assert.Equal(t, 1.0, res[0].Confidence)
	assert.Equal(t, profile.IntentFirstName, res[0].CanonicalKey)
}

// Scenario: gender dropdown where the profile says "Male" but the site
// offers "Man"; the synonym tier reconciles them.
func TestResolveCanonicalSynonymOption(t *testing.T) {
	e, _ := newEngine(t, nil)
	res, err := e.Resolve(context.Background(), []scan.Question{
		{
			Text:      "Gender",
			FieldType: scan.FieldDropdownCustom,
			Options:   []string{"Man", "Woman", "Non-binary", "Decline to self-identify"},
		},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Man", res[0].Answer)
	assert.Equal(t, SourceCanonical, res[0].Source)
}

// Scenario: boolean work-authorization radio answered Yes from the
// profile flag.
func TestResolveCanonicalBooleanRadio(t *testing.T) {
	e, _ := newEngine(t, nil)
	res, err := e.Resolve(context.Background(), []scan.Question{
		{
			Text:      "Are you authorized to work in the United States?",
			FieldType: scan.FieldRadio,
			Options:   []string{"Yes", "No"},
		},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Yes", res[0].Answer)
	assert.Equal(t, SourceCanonical, res[0].Source)
}

// A canonical value that survives no matcher tier must abandon the
// question, not emit an off-list answer.
func TestResolveNeverEscapesOptionSet(t *testing.T) {
	prof := fullProfile()
	prof.Personal.Country = "Atlantis"

	e, _ := newEngine(t, nil)
	res, err := e.Resolve(context.Background(), []scan.Question{
		{Text: "Country", FieldType: scan.FieldSelectNative, Options: []string{"France", "Spain"}},
		{Text: "Gender", FieldType: scan.FieldSelectNative, Options: []string{"Man", "Woman"}},
	}, prof)
	require.NoError(t, err)

	for _, r := range res {
		if len(r.Question.Options) == 0 {
			continue
		}
		found := false
		for _, opt := range r.Question.Options {
			if strings.EqualFold(opt, r.Answer) {
				found = true
			}
		}
		assert.True(t, found, "answer %q escaped option set %v", r.Answer, r.Question.Options)
	}
	// The country question specifically must be absent.
	for _, r := range res {
		assert.NotEqual(t, "Country", r.Question.Text)
	}
}

// Priority ordering: a learned pattern that contradicts a canonical rule
// must lose.
func TestCanonicalBeatsLearned(t *testing.T) {
	orc := &fakeOracle{}
	e, store := newEngine(t, orc)
	ctx := context.Background()

	require.NoError(t, store.Observe(ctx, pattern.Observation{
		QuestionText:   "First Name",
		Intent:         profile.IntentLastName, // contradicts the canonical rule
		CanonicalValue: "Iyer",
		Variant:        "Iyer",
		Confidence:     0.99,
	}))

	res, err := e.Resolve(ctx, []scan.Question{
		{Text: "First Name", FieldType: scan.FieldText},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, SourceCanonical, res[0].Source)
	assert.Equal(t, "Asha", res[0].Answer)
	assert.Equal(t, 0, orc.callCount())
}

func TestLowConfidenceLearnedNotCounted(t *testing.T) {
	e, store := newEngine(t, nil)
	ctx := context.Background()

	require.NoError(t, store.Observe(ctx, pattern.Observation{
		QuestionText:   "Preferred programming language",
		Intent:         "custom.preferredLanguage",
		CanonicalValue: "Go",
		Variant:        "Go",
		Confidence:     0.5,
	}))

	res, err := e.Resolve(ctx, []scan.Question{
		{Text: "Preferred programming language", FieldType: scan.FieldText},
	}, fullProfile())
	require.NoError(t, err)
	assert.Empty(t, res, "a below-floor pattern cannot settle the question")

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 0, all[0].UsageCount, "a rejected hit is not a use")
}

func TestFuzzyGenderByOptions(t *testing.T) {
	e, _ := newEngine(t, nil)
	// Label text gives the canonical table nothing; the option vocabulary
	// is the tell.
	res, err := e.Resolve(context.Background(), []scan.Question{
		{Text: "Self identification", FieldType: scan.FieldSelectNative, Options: []string{"Male", "Female", "Other"}},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, SourceFuzzy, res[0].Source)
	assert.Equal(t, "Male", res[0].Answer)
	assert.Equal(t, fuzzyConfidence, res[0].Confidence)
}

// Protected-field safety: when AI would be the only path and the profile
// has no value, the question is dropped, never answered by the oracle.
func TestProtectedIntentNeverAISourced(t *testing.T) {
	prof := fullProfile()
	prof.EEO.Gender = "" // no canonical value, no fuzzy value

	orc := &fakeOracle{answers: map[string]oracle.Response{
		"Self identification category": {Answer: "Man", Confidence: 0.95, Intent: profile.IntentGender},
	}}
	e, store := newEngine(t, orc)

	res, err := e.Resolve(context.Background(), []scan.Question{
		{Text: "Self identification category", FieldType: scan.FieldSelectNative, Options: []string{"Man", "Woman"}},
	}, prof)
	require.NoError(t, err)
	assert.Empty(t, res, "a compliance question without a profile value must be dropped")

	// But never with source AI for a protected intent, across the board.
	for _, r := range res {
		if profile.IsProtectedIntent(r.CanonicalKey) {
			assert.NotEqual(t, SourceAI, r.Source)
		}
	}
	_ = store
}

// When the oracle classifies a compliance question and the profile does
// hold a value, the profile value is used and the provenance says so.
func TestProtectedIntentFilledFromProfile(t *testing.T) {
	orc := &fakeOracle{answers: map[string]oracle.Response{
		"Self identification category": {Answer: "Woman", Confidence: 0.95, Intent: profile.IntentGender},
	}}
	e, _ := newEngine(t, orc)

	res, err := e.Resolve(context.Background(), []scan.Question{
		{Text: "Self identification category", FieldType: scan.FieldText},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Male", res[0].Answer, "value must come from the profile, not the oracle")
	assert.Equal(t, SourceCanonical, res[0].Source)
}

// Scenario: five unmapped questions go to the oracle concurrently, all
// are learned, and a reworded question on a second site resolves LEARNED
// with no further oracle calls.
func TestConcurrentAIFallbackThenLearned(t *testing.T) {
	// database/sql keeps a pool goroutine alive until the store closes in
	// t.Cleanup, which runs after this defer.
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		// go.opencensus.io (linked transitively via google.golang.org/genai)
		// starts a permanent stats worker in init; it is not ours to stop.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
	ctx := context.Background()

	questions := []scan.Question{
		{Text: "Describe your favorite project", FieldType: scan.FieldTextarea},
		{Text: "Why do you want to work here", FieldType: scan.FieldTextarea},
		{Text: "What is your notice period", FieldType: scan.FieldText},
		{Text: "How did you hear about this role", FieldType: scan.FieldText},
		{Text: "What timezone do you work in", FieldType: scan.FieldText},
	}
	orc := &fakeOracle{answers: map[string]oracle.Response{
		questions[0].Text: {Answer: "I built a form autofiller", Confidence: 0.9, IsNewIntent: true, SuggestedIntentName: "custom.favoriteProject"},
		questions[1].Text: {Answer: "The mission", Confidence: 0.9, IsNewIntent: true, SuggestedIntentName: "custom.motivation"},
		questions[2].Text: {Answer: "Two weeks", Confidence: 0.9, IsNewIntent: true, SuggestedIntentName: "custom.noticePeriod"},
		questions[3].Text: {Answer: "A friend", Confidence: 0.9, IsNewIntent: true, SuggestedIntentName: "custom.referralSource"},
		questions[4].Text: {Answer: "UTC", Confidence: 0.9, IsNewIntent: true, SuggestedIntentName: "custom.timezone"},
	}}
	e, store := newEngine(t, orc)

	res, err := e.Resolve(ctx, questions, fullProfile())
	require.NoError(t, err)
	assert.Len(t, res, 5)
	assert.Equal(t, 5, orc.callCount())

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5, "every oracle answer must be learned")

	// Second site, reworded but >=70% token overlap.
	res, err = e.Resolve(ctx, []scan.Question{
		{Text: "Please describe your favorite project", FieldType: scan.FieldTextarea},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, SourceLearned, res[0].Source)
	assert.Equal(t, "I built a form autofiller", res[0].Answer)
	assert.Equal(t, 5, orc.callCount(), "learned resolution must not call the oracle again")
}

// An oracle answer that matches no option after coercion drops the
// question rather than filling a constrained control with free text.
func TestAIAnswerCoercedOrDropped(t *testing.T) {
	orc := &fakeOracle{answers: map[string]oracle.Response{
		"Preferred work arrangement": {Answer: "remote", Confidence: 0.9},
		"Office snack preference":    {Answer: "salted caramel", Confidence: 0.9},
	}}
	e, _ := newEngine(t, orc)

	res, err := e.Resolve(context.Background(), []scan.Question{
		{Text: "Preferred work arrangement", FieldType: scan.FieldSelectNative, Options: []string{"Remote", "Hybrid", "Onsite"}},
		{Text: "Office snack preference", FieldType: scan.FieldSelectNative, Options: []string{"Sweet", "Savory"}},
	}, fullProfile())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Remote", res[0].Answer, "coercion must use the site's spelling")
	assert.Equal(t, SourceAI, res[0].Source)
}

// A minted intent name colliding with an existing intent is an error at
// the learning step: the answer still fills, but nothing is stored under
// the stolen name.
func TestNewIntentCollisionNotLearned(t *testing.T) {
	orc := &fakeOracle{answers: map[string]oracle.Response{
		"Your favorite homepage link": {Answer: "example.com", Confidence: 0.9, IsNewIntent: true, SuggestedIntentName: profile.IntentWebsite},
	}}
	e, store := newEngine(t, orc)
	ctx := context.Background()

	res, err := e.Resolve(ctx, []scan.Question{
		{Text: "Your favorite homepage link", FieldType: scan.FieldText},
	}, fullProfile())
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	for _, p := range all {
		assert.NotEqual(t, profile.IntentWebsite, p.Intent,
			"a colliding minted intent must not overwrite the existing one")
	}
	_ = res
}

func TestNoOracleDropsPending(t *testing.T) {
	e, _ := newEngine(t, nil)
	res, err := e.Resolve(context.Background(), []scan.Question{
		{Text: "Describe your ideal team", FieldType: scan.FieldTextarea},
	}, fullProfile())
	require.NoError(t, err)
	assert.Empty(t, res)
}
