// Package autofill orchestrates one run: scan the page, resolve answers,
// fill and verify, report. One run at a time per runner; resolution
// assumes no concurrent writer races it through the same stores.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"formpilot/internal/browser"
	"formpilot/internal/fill"
	"formpilot/internal/logging"
	"formpilot/internal/profile"
	"formpilot/internal/resolve"
	"formpilot/internal/scan"
)

// ErrRunActive is returned when a run is requested while another is in
// flight.
var ErrRunActive = errors.New("an autofill run is already active")

// RunResult summarizes one completed run.
type RunResult struct {
	RunID     string      `json:"runId"`
	URL       string      `json:"url"`
	Questions int         `json:"questions"`
	Resolved  int         `json:"resolved"`
	Report    fill.Report `json:"report"`
}

// Runner wires the pipeline together. Collaborators are injected; the
// remote scanner is optional and replaces the live scan when present.
type Runner struct {
	browsers *browser.Manager
	scanner  *scan.Scanner
	remote   *scan.RemoteScanner
	cache    *scan.Cache
	profiles *profile.Store
	engine   *resolve.Engine
	sink     fill.FailureSink

	mu     sync.Mutex
	active bool
}

// NewRunner creates a runner. remote, cache, and sink may be nil.
func NewRunner(browsers *browser.Manager, scanner *scan.Scanner, remote *scan.RemoteScanner, cache *scan.Cache, profiles *profile.Store, engine *resolve.Engine, sink fill.FailureSink) *Runner {
	return &Runner{
		browsers: browsers,
		scanner:  scanner,
		remote:   remote,
		cache:    cache,
		profiles: profiles,
		engine:   engine,
		sink:     sink,
	}
}

func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return false
	}
	r.active = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.active = false
	r.mu.Unlock()
}

// Run executes the full pipeline against url.
func (r *Runner) Run(ctx context.Context, url string) (*RunResult, error) {
	if !r.acquire() {
		return nil, ErrRunActive
	}
	defer r.release()

	runID := uuid.NewString()
	logging.Boot("Run %s starting for %s", runID, url)

	prof, err := r.profiles.Load()
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if prof == nil {
		return nil, fmt.Errorf("no profile found: create one before running autofill")
	}
	if !prof.IsComplete() {
		return nil, fmt.Errorf("profile incomplete: missing %s", strings.Join(prof.Validate(), ", "))
	}

	page, err := r.browsers.OpenPage(ctx, url)
	if err != nil {
		return nil, err
	}

	questions, err := r.scanURL(ctx, url, func(c context.Context) ([]scan.Question, error) {
		return r.scanner.Scan(c, page)
	})
	if err != nil {
		return nil, err
	}

	resolved, err := r.engine.Resolve(ctx, questions, prof)
	if err != nil {
		return nil, err
	}

	executor := fill.NewExecutor(fill.NewRodApplier(page), r.sink)
	report := executor.Fill(ctx, runID, url, resolved)

	result := &RunResult{
		RunID:     runID,
		URL:       url,
		Questions: len(questions),
		Resolved:  len(resolved),
		Report:    report,
	}
	logging.Boot("Run %s finished: %d questions, %d resolved, %d committed, %d failed",
		runID, result.Questions, result.Resolved, report.Successes, report.Failures)
	return result, nil
}

// Scan discovers questions for url without filling anything.
func (r *Runner) Scan(ctx context.Context, url string) ([]scan.Question, error) {
	if !r.acquire() {
		return nil, ErrRunActive
	}
	defer r.release()

	return r.scanURL(ctx, url, func(c context.Context) ([]scan.Question, error) {
		page, err := r.browsers.OpenPage(c, url)
		if err != nil {
			return nil, err
		}
		return r.scanner.Scan(c, page)
	})
}

// scanURL consults the cache, then the remote service when configured,
// then the live scan.
func (r *Runner) scanURL(ctx context.Context, url string, live func(context.Context) ([]scan.Question, error)) ([]scan.Question, error) {
	if questions, ok := r.cache.Get(url); ok {
		logging.ScanDebug("Scan cache hit for %s (%d questions)", url, len(questions))
		return questions, nil
	}

	if r.remote != nil {
		questions, err := r.remote.Scan(ctx, url)
		if err == nil {
			r.cache.Put(url, questions)
			return questions, nil
		}
		logging.ScanWarn("Remote scan failed for %s, falling back to live scan: %v", url, err)
	}

	questions, err := live(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Put(url, questions)
	return questions, nil
}
