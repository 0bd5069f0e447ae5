// Package resolve turns scanned Questions into answers. Four tiers run in
// strict order per question: canonical keyword rules over the profile,
// learned patterns from prior runs, a narrow fuzzy fallback, and finally a
// concurrent batch to the AI oracle whose answers are learned for next
// time. EEO/compliance values only ever come from the profile.
package resolve

import (
	"context"
	"fmt"

	"formpilot/internal/logging"
	"formpilot/internal/oracle"
	"formpilot/internal/pattern"
	"formpilot/internal/profile"
	"formpilot/internal/scan"
)

// Source tags where a resolution came from.
type Source string

const (
	SourceCanonical Source = "CANONICAL"
	SourceLearned   Source = "LEARNED"
	SourceFuzzy     Source = "FUZZY"
	SourceAI        Source = "AI"
)

const (
	// confidenceFloor is the short-circuit threshold: a tier's answer at
	// or above it settles the question.
	confidenceFloor = 0.85

	// learnedMinOverlap is the token-overlap similarity required for a
	// stored pattern to claim an incoming question.
	learnedMinOverlap = 0.7

	// fuzzyConfidence is deliberately below canonical certainty.
	fuzzyConfidence = 0.9
)

// Resolution binds one question to its answer, provenance, and the intent
// it resolved against.
type Resolution struct {
	Question     scan.Question `json:"question"`
	Answer       string        `json:"answer"`
	Source       Source        `json:"source"`
	Confidence   float64       `json:"confidence"`
	CanonicalKey string        `json:"canonicalKey,omitempty"`
}

// Engine resolves questions against a profile, a pattern store, and an
// oracle. All three collaborators are injected; nothing here is ambient.
type Engine struct {
	patterns   *pattern.Store
	oracle     oracle.Oracle
	maxOptions int
	fuzzyRules []FuzzyRule
}

// NewEngine builds a resolution engine. The oracle may be nil, in which
// case unresolved questions are dropped instead of escalated.
func NewEngine(patterns *pattern.Store, orc oracle.Oracle, maxOptionsInPrompt int) *Engine {
	if maxOptionsInPrompt <= 0 {
		maxOptionsInPrompt = 20
	}
	return &Engine{
		patterns:   patterns,
		oracle:     orc,
		maxOptions: maxOptionsInPrompt,
		fuzzyRules: defaultFuzzyRules(),
	}
}

// RegisterFuzzyRule adds a fuzzy-tier rule beyond the built-in set.
func (e *Engine) RegisterFuzzyRule(rule FuzzyRule) {
	e.fuzzyRules = append(e.fuzzyRules, rule)
}

// Resolve answers every question it can. A missing profile is a hard
// error; per-question misses are not, they just leave that question out
// of the returned list. Tiers 1-3 are synchronous per question; the AI
// tier dispatches all remaining questions concurrently.
func (e *Engine) Resolve(ctx context.Context, questions []scan.Question, prof *profile.CanonicalProfile) ([]Resolution, error) {
	if prof == nil {
		return nil, fmt.Errorf("no profile loaded: nothing to resolve against")
	}

	timer := logging.StartTimer(logging.CategoryResolve, "resolve.Engine.Resolve")
	defer timer.Stop()

	resolved := make([]Resolution, 0, len(questions))
	var pending []scan.Question

	for _, q := range questions {
		if r, ok := e.resolveCanonical(q, prof); ok && r.Confidence >= confidenceFloor {
			logging.ResolveDebug("CANONICAL %q -> %q (%s)", q.Text, r.Answer, r.CanonicalKey)
			resolved = append(resolved, *r)
			continue
		}
		if r, ok := e.resolveLearned(ctx, q, prof); ok && r.Confidence >= confidenceFloor {
			logging.ResolveDebug("LEARNED %q -> %q (%s)", q.Text, r.Answer, r.CanonicalKey)
			resolved = append(resolved, *r)
			continue
		}
		if r, ok := e.resolveFuzzy(q, prof); ok && r.Confidence >= confidenceFloor {
			logging.ResolveDebug("FUZZY %q -> %q (%s)", q.Text, r.Answer, r.CanonicalKey)
			resolved = append(resolved, *r)
			continue
		}
		pending = append(pending, q)
	}

	if len(pending) > 0 {
		aiResolved := e.resolveAI(ctx, pending, prof)
		resolved = append(resolved, aiResolved...)
	}

	logging.Resolve("Resolved %d/%d questions (%d escalated to oracle)",
		len(resolved), len(questions), len(pending))
	return resolved, nil
}
