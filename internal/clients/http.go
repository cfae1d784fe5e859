package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"agent-question/launcher/internal/readiness"
)

// HTTPClient probes an HTTP endpoint, typically another service's health
// route.
type HTTPClient struct {
	url    string
	httpDo func(req *http.Request) (*http.Response, error)
}

// NewHTTPClient constructs an HTTPClient. No request is made at construction.
func NewHTTPClient(url string) *HTTPClient {
	client := &http.Client{Timeout: defaultProbeTimeout}
	return &HTTPClient{
		url:    url,
		httpDo: client.Do,
	}
}

// Probe issues a GET and requires a 2xx status.
func (c *HTTPClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()

	err := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return fmt.Errorf("building probe request: %w", err)
		}

		resp, err := c.httpDo(req)
		if err != nil {
			return fmt.Errorf("probe request: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("probe returned HTTP %d", resp.StatusCode)
		}
		return nil
	}()

	return probeResult(c.url, start, err)
}
