// Package fill applies resolved answers back into the live page. Each
// field walks a LOCATE -> APPLY -> VERIFY state machine and ends COMMITTED
// or FAILED; the batch always runs to completion and reports per field. A
// fill is never assumed successful: VERIFY reads the control back.
package fill

import (
	"context"
	"time"

	"formpilot/internal/logging"
	"formpilot/internal/resolve"
	"formpilot/internal/scan"
)

// Status is the terminal state of one field.
type Status string

const (
	StatusCommitted Status = "COMMITTED"
	StatusFailed    Status = "FAILED"
)

// Reason codes for FAILED fields.
type Reason string

const (
	ReasonNoDOMMatch   Reason = "NO_DOM_MATCH"
	ReasonVerifyFailed Reason = "FILL_VERIFY_FAILED"
)

// FieldResult is the outcome for one field.
type FieldResult struct {
	Question scan.Question  `json:"question"`
	Answer   string         `json:"answer"`
	Source   resolve.Source `json:"source"`
	Status   Status         `json:"status"`
	Reason   Reason         `json:"reason,omitempty"`
}

// Report aggregates a fill run.
type Report struct {
	Results   []FieldResult `json:"results"`
	Successes int           `json:"successes"`
	Failures  int           `json:"failures"`
}

// Control is one located form control, ready to fill.
type Control interface {
	// Apply writes the answer with a type-appropriate strategy.
	Apply(ctx context.Context, q scan.Question, answer string) error
	// Verify reads the control back and reports whether the answer took.
	Verify(ctx context.Context, q scan.Question, answer string) bool
}

// Applier re-resolves locators against the live DOM. The scan-time element
// reference is never trusted; the page may have re-rendered.
type Applier interface {
	Locate(ctx context.Context, q scan.Question) (Control, bool)
}

// FailureEvent is emitted per FAILED field so a slower fallback mechanism
// can pick it up. The executor itself never retries.
type FailureEvent struct {
	RunID string `json:"runId"`
	URL   string `json:"url"`
	JobID string `json:"jobId,omitempty"`
	Code  Reason `json:"code"`
	Field string `json:"field"`
}

// FailureSink receives failure events. Implementations must not block the
// fill loop on network latency longer than their own timeout.
type FailureSink interface {
	ReportFailure(ctx context.Context, ev FailureEvent)
}

// Executor runs the per-field state machine strictly in order: later
// fields' visibility can depend on earlier fields being committed
// (conditional form sections), so there is no concurrency here.
type Executor struct {
	applier Applier
	sink    FailureSink

	// FieldDelay separates successive fields so reactive frameworks get
	// a tick to settle between event bursts.
	FieldDelay time.Duration
}

// NewExecutor creates an executor. sink may be nil.
func NewExecutor(applier Applier, sink FailureSink) *Executor {
	return &Executor{
		applier:    applier,
		sink:       sink,
		FieldDelay: 150 * time.Millisecond,
	}
}

// Fill applies every resolution and returns the itemized report. Individual
// failures never abort the batch.
func (e *Executor) Fill(ctx context.Context, runID, pageURL string, resolved []resolve.Resolution) Report {
	timer := logging.StartTimer(logging.CategoryFill, "fill.Executor.Fill")
	defer timer.Stop()

	report := Report{Results: make([]FieldResult, 0, len(resolved))}
	for i, r := range resolved {
		if i > 0 {
			sleepCtx(ctx, e.FieldDelay)
		}
		result := e.fillOne(ctx, r)
		report.Results = append(report.Results, result)
		if result.Status == StatusCommitted {
			report.Successes++
			continue
		}
		report.Failures++
		if e.sink != nil {
			e.sink.ReportFailure(ctx, FailureEvent{
				RunID: runID,
				URL:   pageURL,
				Code:  result.Reason,
				Field: r.Question.Text,
			})
		}
	}

	logging.Fill("Fill run %s: %d committed, %d failed", runID, report.Successes, report.Failures)
	return report
}

func (e *Executor) fillOne(ctx context.Context, r resolve.Resolution) FieldResult {
	result := FieldResult{Question: r.Question, Answer: r.Answer, Source: r.Source}

	// LOCATE
	control, ok := e.applier.Locate(ctx, r.Question)
	if !ok {
		logging.FillWarn("No DOM match for %q at %s", r.Question.Text, r.Question.Locator)
		result.Status = StatusFailed
		result.Reason = ReasonNoDOMMatch
		return result
	}

	// APPLY
	if err := control.Apply(ctx, r.Question, r.Answer); err != nil {
		logging.FillWarn("Apply failed for %q: %v", r.Question.Text, err)
		result.Status = StatusFailed
		result.Reason = ReasonVerifyFailed
		return result
	}

	// VERIFY
	if !control.Verify(ctx, r.Question, r.Answer) {
		logging.FillWarn("Verify failed for %q: wanted %q", r.Question.Text, r.Answer)
		result.Status = StatusFailed
		result.Reason = ReasonVerifyFailed
		return result
	}

	logging.FillDebug("Committed %q = %q (%s)", r.Question.Text, r.Answer, r.Source)
	result.Status = StatusCommitted
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
