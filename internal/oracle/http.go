package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/logging"
)

// HTTPClient talks to an answer service speaking the plain JSON contract:
// POST Request, receive Response. Any self-hosted or proxy backend works.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP oracle client.
func NewHTTPClient(cfg config.OracleConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// Answer sends one question to the answer service.
func (c *HTTPClient) Answer(ctx context.Context, req Request) (*Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("oracle URL not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var answer Response
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, fmt.Errorf("malformed oracle response: %w", err)
	}
	if answer.Answer == "" {
		return nil, fmt.Errorf("oracle returned empty answer")
	}

	logging.Oracle("Answered %q in %s (confidence=%.2f intent=%s)",
		truncate(req.Question, 60), time.Since(started).Round(time.Millisecond), answer.Confidence, answer.Intent)
	return &answer, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
