package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"formpilot/internal/logging"
)

// RemoteScanner asks an external browser-automation service to scan a URL.
// The service returns the same Question payload the local scanner
// produces, so the resolution engine runs unmodified either way.
type RemoteScanner struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache
}

// NewRemoteScanner creates a remote scanner client. cache may be nil.
func NewRemoteScanner(baseURL string, timeout time.Duration, cache *Cache) *RemoteScanner {
	return &RemoteScanner{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

type remoteScanRequest struct {
	URL string `json:"url"`
}

type remoteScanResponse struct {
	Questions []Question `json:"questions"`
	Error     string     `json:"error,omitempty"`
}

// Scan requests a scan of url, serving from cache within the TTL window to
// avoid redundant automation runs.
func (r *RemoteScanner) Scan(ctx context.Context, url string) ([]Question, error) {
	if cached, ok := r.cache.Get(url); ok {
		logging.Scan("Remote scan cache hit for %s (%d questions)", url, len(cached))
		return cached, nil
	}

	body, err := json.Marshal(remoteScanRequest{URL: url})
	if err != nil {
		return nil, fmt.Errorf("marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scan service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scan service returned %d: %s", resp.StatusCode, string(data))
	}

	var out remoteScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode scan response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("scan service error: %s", out.Error)
	}

	r.cache.Put(url, out.Questions)
	logging.Scan("Remote scan of %s returned %d questions", url, len(out.Questions))
	return out.Questions, nil
}
