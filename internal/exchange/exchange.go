// Package exchange syncs learned patterns with an optional shared
// repository and ships fill-failure telemetry. Only intents on the fixed
// allow-list ever leave the machine; merge semantics mirror the local
// store so sync order does not matter.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"formpilot/internal/config"
	"formpilot/internal/logging"
	"formpilot/internal/pattern"
	"formpilot/internal/profile"
)

// Client talks to the pattern exchange service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	patterns   *pattern.Store
}

// NewClient creates an exchange client over the local pattern store.
func NewClient(cfg config.ExchangeConfig, patterns *pattern.Store) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		patterns:   patterns,
	}
}

// Shareable returns the local patterns whose intents are on the exchange
// allow-list. Everything else stays local, always.
func (c *Client) Shareable(ctx context.Context) ([]pattern.LearnedPattern, error) {
	all, err := c.patterns.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []pattern.LearnedPattern
	for _, p := range all {
		if profile.IsShareableIntent(p.Intent) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Push uploads the shareable subset. Returns the number of patterns sent.
func (c *Client) Push(ctx context.Context) (int, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("exchange URL not configured")
	}
	shareable, err := c.Shareable(ctx)
	if err != nil {
		return 0, err
	}
	if len(shareable) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(map[string]interface{}{"patterns": shareable})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal patterns: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/patterns", body, nil); err != nil {
		return 0, err
	}

	logging.Exchange("Pushed %d shareable patterns", len(shareable))
	return len(shareable), nil
}

// Pull downloads shared patterns and merges them locally. The exchange is
// keyed by (intent, questionPattern) with the same variant-union merge as
// the local store, so pulling is idempotent. Returns the number of merged
// observations.
func (c *Client) Pull(ctx context.Context) (int, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("exchange URL not configured")
	}

	var payload struct {
		Patterns []pattern.LearnedPattern `json:"patterns"`
	}
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/patterns", nil, &payload); err != nil {
		return 0, err
	}

	merged := 0
	for _, p := range payload.Patterns {
		// The allow-list is enforced on ingest too; a misbehaving
		// exchange cannot plant non-shareable intents.
		if !profile.IsShareableIntent(p.Intent) {
			logging.ExchangeWarn("Ignoring non-shareable intent %q from exchange", p.Intent)
			continue
		}
		for _, m := range p.AnswerMappings {
			for _, variant := range m.Variants {
				err := c.patterns.Observe(ctx, pattern.Observation{
					QuestionText:   p.QuestionPattern,
					Intent:         p.Intent,
					CanonicalValue: m.CanonicalValue,
					Variant:        variant,
					Options:        m.ContextOptions,
					Confidence:     p.Confidence,
					Source:         p.Source,
				})
				if err != nil {
					logging.ExchangeWarn("Failed to merge pattern %q: %v", p.QuestionPattern, err)
					continue
				}
				merged++
			}
		}
	}

	logging.Exchange("Merged %d observations from exchange", merged)
	return merged, nil
}

// Sync is push then pull.
func (c *Client) Sync(ctx context.Context) error {
	if _, err := c.Push(ctx); err != nil {
		return err
	}
	_, err := c.Pull(ctx)
	return err
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read exchange response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("exchange returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("malformed exchange response: %w", err)
		}
	}
	return nil
}
