// Package upstream talks to the third-party image and chat API.
//
// Every call is a JSON POST. Failures come back as *apperr.Error of the
// Upstream kind: an HTTP error status keeps its code and carries the response
// body as details, a transport failure or a non-JSON body maps to 502.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
)

// maxErrorBody caps how much of a failed response is kept as details.
const maxErrorBody = 64 << 10

// Metrics receives one observation per upstream call.
type Metrics interface {
	ObserveUpstream(endpoint string, status int, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveUpstream(string, int, time.Duration) {}

type Client struct {
	buffered *http.Client
	stream   *http.Client
	metrics  Metrics
	logger   logging.Logger
}

// NewClient returns a client whose buffered calls are bounded by timeout as
// a whole. Streaming calls only bound the wait for response headers so a long
// stream is not cut off.
func NewClient(timeout time.Duration, metrics Metrics, logger logging.Logger) *Client {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	streamTr := tr.Clone()
	streamTr.ResponseHeaderTimeout = timeout

	return &Client{
		buffered: &http.Client{Transport: tr, Timeout: timeout},
		stream:   &http.Client{Transport: streamTr},
		metrics:  metrics,
		logger:   logger,
	}
}

// PostJSON sends payload to endpoint and returns the JSON response body.
func (c *Client) PostJSON(ctx context.Context, endpoint string, headers http.Header, payload any) (json.RawMessage, error) {
	resp, err := c.do(ctx, c.buffered, endpoint, headers, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream(http.StatusBadGateway, "Network error: "+err.Error(), "")
	}

	if !json.Valid(body) {
		return nil, apperr.Upstream(http.StatusBadGateway, "Invalid JSON from upstream", string(body))
	}
	return json.RawMessage(body), nil
}

// OpenStream sends payload to endpoint and returns the open response body.
// Cancelling ctx aborts the transfer. The caller must close the body.
func (c *Client) OpenStream(ctx context.Context, endpoint string, headers http.Header, payload any) (io.ReadCloser, error) {
	resp, err := c.do(ctx, c.stream, endpoint, headers, payload)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// do performs the request and turns error statuses into upstream errors.
// On success the response body is left open.
func (c *Client) do(ctx context.Context, hc *http.Client, endpoint string, headers http.Header, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Upstream(http.StatusBadGateway, "Network error: "+err.Error(), "")
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	label := endpointLabel(endpoint)
	start := time.Now()

	resp, err := hc.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(label, 0, time.Since(start))
		c.logger.Warn(ctx, "upstream unreachable", "endpoint", label, "error", err)
		return nil, apperr.Upstream(http.StatusBadGateway, "Network error: "+err.Error(), "")
	}
	c.metrics.ObserveUpstream(label, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		details, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn(ctx, "upstream error status", "endpoint", label, "status", resp.StatusCode)
		return nil, apperr.Upstream(resp.StatusCode, "API request failed", string(details))
	}
	return resp, nil
}

// endpointLabel keeps metric cardinality to the URL path.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return u.Path
}
