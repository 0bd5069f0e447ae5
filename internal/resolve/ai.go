package resolve

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"formpilot/internal/logging"
	"formpilot/internal/oracle"
	"formpilot/internal/pattern"
	"formpilot/internal/profile"
	"formpilot/internal/scan"
)

// resolveAI is tier 4: every still-unresolved question goes to the oracle
// concurrently. Each response is validated against the question's option
// vocabulary, checked against the protected-intent rule, and learned into
// the pattern store. Any per-question failure drops that question only.
func (e *Engine) resolveAI(ctx context.Context, pending []scan.Question, prof *profile.CanonicalProfile) []Resolution {
	if e.oracle == nil {
		logging.ResolveWarn("No oracle configured; dropping %d unresolved questions", len(pending))
		return nil
	}

	results := make([]*Resolution, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range pending {
		i, q := i, q
		g.Go(func() error {
			results[i] = e.askOracle(gctx, q, prof)
			return nil
		})
	}
	g.Wait()

	out := make([]Resolution, 0, len(pending))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// askOracle handles one question end to end: request, validate, learn.
// Returns nil when the question must be dropped.
func (e *Engine) askOracle(ctx context.Context, q scan.Question, prof *profile.CanonicalProfile) *Resolution {
	req := oracle.Request{
		Question:    q.Text,
		FieldType:   string(q.FieldType),
		UserProfile: prof,
	}
	// Large vocabularies (country pickers) are withheld to bound the
	// prompt; the answer is still option-coerced locally afterwards.
	if n := len(q.Options); n > 0 && n <= e.maxOptions {
		req.Options = q.Options
	}

	resp, err := e.oracle.Answer(ctx, req)
	if err != nil {
		logging.ResolveWarn("Oracle failed for %q: %v", q.Text, err)
		return nil
	}

	intent := e.classifyIntent(q, resp, prof)

	// Compliance fields: the oracle may classify them, but the value
	// placed into the form must come from the profile. No profile value
	// means the question is dropped, never guessed.
	if profile.IsProtectedIntent(intent) {
		return e.resolveProtectedFromProfile(ctx, q, intent, resp, prof)
	}

	answer := resp.Answer
	if len(q.Options) > 0 {
		matched := ""
		for _, opt := range q.Options {
			if opt == answer {
				matched = opt
				break
			}
		}
		if matched == "" {
			coerced, ok := MatchOption(answer, q.Options)
			if !ok {
				logging.ResolveWarn("Oracle answer %q for %q matches no option; dropping", answer, q.Text)
				return nil
			}
			matched = coerced
		}
		answer = matched
	}

	e.learn(ctx, q, intent, answer, resp, prof)

	return &Resolution{
		Question:     q,
		Answer:       answer,
		Source:       SourceAI,
		Confidence:   resp.Confidence,
		CanonicalKey: intent,
	}
}

// resolveProtectedFromProfile substitutes the profile's value for an
// oracle-classified compliance question. The provenance is reported as
// CANONICAL because that is where the value came from.
func (e *Engine) resolveProtectedFromProfile(ctx context.Context, q scan.Question, intent string, resp *oracle.Response, prof *profile.CanonicalProfile) *Resolution {
	value, ok := profile.CanonicalValue(prof, intent)
	if !ok {
		logging.Resolve("Dropping compliance question %q (%s): no profile value and AI answers are not allowed", q.Text, intent)
		return nil
	}
	answer := value
	if len(q.Options) > 0 {
		if booleanIntents[intent] {
			answer, ok = MatchYesNo(value, q.Options)
		} else {
			answer, ok = MatchOption(value, q.Options)
		}
		if !ok {
			logging.Resolve("Dropping compliance question %q (%s): profile value matches no option", q.Text, intent)
			return nil
		}
	} else if booleanIntents[intent] {
		answer, _ = MatchYesNo(value, nil)
	}

	// The classification is still worth learning even though the value
	// came from the profile.
	e.learn(ctx, q, intent, answer, resp, prof)

	return &Resolution{
		Question:     q,
		Answer:       answer,
		Source:       SourceCanonical,
		Confidence:   resp.Confidence,
		CanonicalKey: intent,
	}
}

// classifyIntent picks the intent to learn under: the oracle's
// classification when usable, else the static keyword table, else a
// value-equality sweep over the profile.
func (e *Engine) classifyIntent(q scan.Question, resp *oracle.Response, prof *profile.CanonicalProfile) string {
	if resp.Intent != "" && profile.KnownIntent(resp.Intent) {
		return resp.Intent
	}
	if resp.IsNewIntent && resp.SuggestedIntentName != "" {
		if err := validateNewIntent(resp.SuggestedIntentName); err != nil {
			logging.ResolveWarn("Rejecting oracle intent suggestion for %q: %v", q.Text, err)
		} else {
			return resp.SuggestedIntentName
		}
	}
	if resp.Intent != "" {
		// Unknown but not flagged new: treat like a minted name, with
		// the same collision guard.
		if err := validateNewIntent(resp.Intent); err == nil {
			return resp.Intent
		}
	}
	if intent, ok := matchCanonicalRule(q.Text); ok {
		return intent
	}
	// Last resort: an answer that equals a profile value reveals what
	// the question was asking. Protected intents are excluded; value
	// coincidence ("Yes") is not evidence of a compliance question.
	for _, intent := range profile.KnownIntents() {
		if profile.IsProtectedIntent(intent) {
			continue
		}
		if value, ok := profile.CanonicalValue(prof, intent); ok && value != "" && scan.Normalize(value) == scan.Normalize(resp.Answer) {
			return intent
		}
	}
	return ""
}

// validateNewIntent rejects a minted intent name that collides with an
// existing one: silently overwriting an established meaning would poison
// the store, so the collision is surfaced as an error instead.
func validateNewIntent(name string) error {
	if profile.KnownIntent(name) {
		return fmt.Errorf("suggested intent %q collides with an existing intent", name)
	}
	return nil
}

// learn merges this (question, answer) observation into the pattern store.
// Merges are idempotent and commutative, so concurrent oracle responses
// can write back in any order.
func (e *Engine) learn(ctx context.Context, q scan.Question, intent, answer string, resp *oracle.Response, prof *profile.CanonicalProfile) {
	if e.patterns == nil || intent == "" {
		return
	}
	canonical := answer
	if value, ok := profile.CanonicalValue(prof, intent); ok && value != "" {
		canonical = value
	}
	err := e.patterns.Observe(ctx, pattern.Observation{
		QuestionText:   q.Text,
		Intent:         intent,
		CanonicalValue: canonical,
		Variant:        answer,
		Options:        q.Options,
		Confidence:     resp.Confidence,
		Source:         pattern.SourceAI,
	})
	if err != nil {
		logging.ResolveWarn("Failed to learn pattern for %q: %v", q.Text, err)
	}
}
