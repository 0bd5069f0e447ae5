package resolve

import (
	"context"

	"formpilot/internal/logging"
	"formpilot/internal/profile"
	"formpilot/internal/scan"
)

// resolveLearned is tier 2: the pattern store is consulted for an exact or
// high-token-overlap match on the question text. Stored answer variants
// are tried against the current option vocabulary first; failing that, the
// profile's own value for the pattern's intent gets a shot. A miss falls
// through so the AI tier can teach the store this site's phrasing.
func (e *Engine) resolveLearned(ctx context.Context, q scan.Question, prof *profile.CanonicalProfile) (*Resolution, bool) {
	if e.patterns == nil {
		return nil, false
	}
	m, err := e.patterns.FindMatch(ctx, q.Text, learnedMinOverlap)
	if err != nil {
		logging.ResolveWarn("Pattern lookup failed for %q: %v", q.Text, err)
		return nil, false
	}
	if m == nil {
		return nil, false
	}
	p := m.Pattern

	// A pattern below the acceptance floor can never settle the question;
	// answering would only inflate its usage count before the engine
	// rejects it anyway.
	if p.Confidence < confidenceFloor {
		logging.ResolveDebug("Learned pattern for %q below floor (%.2f), falling through", q.Text, p.Confidence)
		return nil, false
	}

	// Compliance values must trace back to the profile, even when the
	// pattern store knows a variant (the variant may be AI-born).
	if profile.IsProtectedIntent(p.Intent) {
		value, ok := profile.CanonicalValue(prof, p.Intent)
		if !ok {
			return nil, false
		}
		answer := value
		if len(q.Options) > 0 {
			if booleanIntents[p.Intent] {
				answer, ok = MatchYesNo(value, q.Options)
			} else {
				answer, ok = MatchOption(value, q.Options)
			}
			if !ok {
				return nil, false
			}
		} else if booleanIntents[p.Intent] {
			answer, _ = MatchYesNo(value, nil)
		}
		e.touchPattern(ctx, p.ID)
		return &Resolution{
			Question: q, Answer: answer, Source: SourceLearned,
			Confidence: p.Confidence, CanonicalKey: p.Intent,
		}, true
	}

	if len(q.Options) > 0 {
		// Stored variants against this site's options.
		for _, mapping := range p.AnswerMappings {
			for _, variant := range mapping.Variants {
				if opt, ok := MatchOption(variant, q.Options); ok {
					e.touchPattern(ctx, p.ID)
					return &Resolution{
						Question: q, Answer: opt, Source: SourceLearned,
						Confidence: p.Confidence, CanonicalKey: p.Intent,
					}, true
				}
			}
		}
		// Profile value for the learned intent, same matcher.
		if value, ok := profile.CanonicalValue(prof, p.Intent); ok {
			if opt, ok := MatchOption(value, q.Options); ok {
				e.touchPattern(ctx, p.ID)
				return &Resolution{
					Question: q, Answer: opt, Source: SourceLearned,
					Confidence: p.Confidence, CanonicalKey: p.Intent,
				}, true
			}
		}
		return nil, false
	}

	// Free-text question: prefer the live profile value over whatever
	// canonical value was stored at learn time.
	if value, ok := profile.CanonicalValue(prof, p.Intent); ok {
		e.touchPattern(ctx, p.ID)
		return &Resolution{
			Question: q, Answer: value, Source: SourceLearned,
			Confidence: p.Confidence, CanonicalKey: p.Intent,
		}, true
	}
	for _, mapping := range p.AnswerMappings {
		if mapping.CanonicalValue != "" {
			e.touchPattern(ctx, p.ID)
			return &Resolution{
				Question: q, Answer: mapping.CanonicalValue, Source: SourceLearned,
				Confidence: p.Confidence, CanonicalKey: p.Intent,
			}, true
		}
	}
	return nil, false
}

func (e *Engine) touchPattern(ctx context.Context, id int64) {
	if err := e.patterns.Touch(ctx, id); err != nil {
		logging.ResolveWarn("Failed to record pattern use: %v", err)
	}
}
