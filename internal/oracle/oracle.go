// Package oracle is the boundary to the remote answer service. The rest of
// the system treats it as opaque: a question goes in, an answer with a
// confidence and an optional intent classification comes out. Failures are
// per-question, never pipeline-fatal.
package oracle

import (
	"context"
	"fmt"

	"formpilot/internal/config"
	"formpilot/internal/profile"
)

// Request carries one question to the oracle. Options is capped by the
// caller; large vocabularies (country pickers) are withheld entirely.
type Request struct {
	Question    string                    `json:"question"`
	FieldType   string                    `json:"fieldType"`
	Options     []string                  `json:"options,omitempty"`
	UserProfile *profile.CanonicalProfile `json:"userProfile"`
}

// Response is the oracle's verdict for one question. Intent is set when
// the oracle recognized the question as an instance of a known profile
// field; IsNewIntent flags a classification the local taxonomy lacks.
type Response struct {
	Answer              string  `json:"answer"`
	Confidence          float64 `json:"confidence"`
	Intent              string  `json:"intent,omitempty"`
	IsNewIntent         bool    `json:"isNewIntent,omitempty"`
	SuggestedIntentName string  `json:"suggestedIntentName,omitempty"`
}

// Oracle answers a single question. Implementations must honor ctx
// cancellation and return an error rather than a zero-confidence guess
// when the transport or payload is bad.
type Oracle interface {
	Answer(ctx context.Context, req Request) (*Response, error)
}

// New builds an Oracle from configuration.
func New(cfg config.OracleConfig) (Oracle, error) {
	switch cfg.Provider {
	case "", "http":
		return NewHTTPClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}
