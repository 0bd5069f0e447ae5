package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"formpilot/internal/fill"
	"formpilot/internal/logging"
)

// TelemetrySink posts fill-failure events to a remote collector. It is a
// notification point for a future remedial fallback; deliveries are
// best-effort and never fail the fill run.
type TelemetrySink struct {
	url        string
	httpClient *http.Client
}

// NewTelemetrySink creates a sink posting to url.
func NewTelemetrySink(url string) *TelemetrySink {
	return &TelemetrySink{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ReportFailure implements fill.FailureSink.
func (s *TelemetrySink) ReportFailure(ctx context.Context, ev fill.FailureEvent) {
	if s.url == "" {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		logging.ExchangeWarn("Failed to marshal failure event: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		logging.ExchangeWarn("Failed to create telemetry request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logging.ExchangeWarn("Telemetry delivery failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.ExchangeWarn("Telemetry collector returned status %d", resp.StatusCode)
	}
}
