package fill

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpilot/internal/resolve"
	"formpilot/internal/scan"
)

// fakeControl scripts one control's behavior.
type fakeControl struct {
	applyErr   error
	verifyOK   bool
	applied    []string
	verifyFunc func() bool
}

func (c *fakeControl) Apply(_ context.Context, _ scan.Question, answer string) error {
	c.applied = append(c.applied, answer)
	return c.applyErr
}

func (c *fakeControl) Verify(_ context.Context, _ scan.Question, _ string) bool {
	if c.verifyFunc != nil {
		return c.verifyFunc()
	}
	return c.verifyOK
}

// fakeApplier maps locators to scripted controls and records locate order.
type fakeApplier struct {
	controls map[string]*fakeControl
	order    []string
}

func (a *fakeApplier) Locate(_ context.Context, q scan.Question) (Control, bool) {
	a.order = append(a.order, q.Locator)
	c, ok := a.controls[q.Locator]
	if !ok {
		return nil, false
	}
	return c, true
}

// recordingSink collects failure events.
type recordingSink struct {
	events []FailureEvent
}

func (s *recordingSink) ReportFailure(_ context.Context, ev FailureEvent) {
	s.events = append(s.events, ev)
}

func resolution(text, locator, answer string) resolve.Resolution {
	return resolve.Resolution{
		Question:   scan.Question{Text: text, FieldType: scan.FieldText, Locator: locator},
		Answer:     answer,
		Source:     resolve.SourceCanonical,
		Confidence: 1.0,
	}
}

func TestFillCommitsVerifiedFields(t *testing.T) {
	applier := &fakeApplier{controls: map[string]*fakeControl{
		"#first": {verifyOK: true},
	}}
	e := NewExecutor(applier, nil)
	e.FieldDelay = 0

	report := e.Fill(context.Background(), "run-1", "https://jobs.example.com/apply", []resolve.Resolution{
		resolution("First Name", "#first", "Asha"),
	})
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusCommitted, report.Results[0].Status)
	assert.Equal(t, 1, report.Successes)
	assert.Equal(t, 0, report.Failures)
	assert.Equal(t, []string{"Asha"}, applier.controls["#first"].applied)
}

func TestFillNoDOMMatch(t *testing.T) {
	sink := &recordingSink{}
	e := NewExecutor(&fakeApplier{controls: map[string]*fakeControl{}}, sink)
	e.FieldDelay = 0

	report := e.Fill(context.Background(), "run-2", "https://jobs.example.com/apply", []resolve.Resolution{
		resolution("First Name", "#gone", "Asha"),
	})
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Equal(t, ReasonNoDOMMatch, report.Results[0].Reason)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "run-2", sink.events[0].RunID)
	assert.Equal(t, "https://jobs.example.com/apply", sink.events[0].URL)
	assert.Equal(t, ReasonNoDOMMatch, sink.events[0].Code)
	assert.Equal(t, "First Name", sink.events[0].Field)
}

// A fill whose events dispatch but whose value the framework resets must
// surface as FILL_VERIFY_FAILED, never COMMITTED.
func TestFillVerifyFailureOnFrameworkReset(t *testing.T) {
	sink := &recordingSink{}
	applier := &fakeApplier{controls: map[string]*fakeControl{
		"#email": {verifyFunc: func() bool { return false }}, // value reset after apply
	}}
	e := NewExecutor(applier, sink)
	e.FieldDelay = 0

	report := e.Fill(context.Background(), "run-3", "https://jobs.example.com/apply", []resolve.Resolution{
		resolution("Email", "#email", "asha@example.com"),
	})
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Equal(t, ReasonVerifyFailed, report.Results[0].Reason)
	require.Len(t, sink.events, 1)
	assert.Equal(t, ReasonVerifyFailed, sink.events[0].Code)
}

func TestFillApplyErrorIsVerifyFailure(t *testing.T) {
	applier := &fakeApplier{controls: map[string]*fakeControl{
		"#select": {applyErr: errors.New("no option matches")},
	}}
	e := NewExecutor(applier, nil)
	e.FieldDelay = 0

	report := e.Fill(context.Background(), "run-4", "https://jobs.example.com/apply", []resolve.Resolution{
		resolution("Country", "#select", "France"),
	})
	assert.Equal(t, ReasonVerifyFailed, report.Results[0].Reason)
}

// Fields apply strictly in order and a failure never aborts the batch.
func TestFillSequentialAndNonFatal(t *testing.T) {
	applier := &fakeApplier{controls: map[string]*fakeControl{
		"#a": {verifyOK: true},
		"#c": {verifyOK: true},
	}}
	e := NewExecutor(applier, nil)
	e.FieldDelay = 0

	report := e.Fill(context.Background(), "run-5", "https://jobs.example.com/apply", []resolve.Resolution{
		resolution("A", "#a", "1"),
		resolution("B", "#b", "2"), // no DOM match
		resolution("C", "#c", "3"),
	})
	assert.Equal(t, []string{"#a", "#b", "#c"}, applier.order)
	assert.Equal(t, 2, report.Successes)
	assert.Equal(t, 1, report.Failures)
	require.Len(t, report.Results, 3)
	assert.Equal(t, StatusCommitted, report.Results[2].Status)
}

func TestIsAffirmative(t *testing.T) {
	assert.True(t, isAffirmative("Yes"))
	assert.True(t, isAffirmative("true"))
	assert.True(t, isAffirmative("I agree"))
	assert.False(t, isAffirmative("No"))
	assert.False(t, isAffirmative(""))
}

func TestMaterializeDataURL(t *testing.T) {
	// "hello" base64
	path, err := materializeDataURL("data:application/pdf;base64,aGVsbG8=", "Upload your resume")
	require.NoError(t, err)
	assert.Contains(t, path, "upload-your-resume.pdf")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = materializeDataURL("not-a-data-url", "Resume")
	assert.Error(t, err)

	_, err = materializeDataURL("data:application/pdf;base64,%%%", "Resume")
	assert.Error(t, err)
}
