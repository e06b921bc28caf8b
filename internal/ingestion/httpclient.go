package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestTimeout bounds a single provider HTTP request.
const DefaultRequestTimeout = 30 * time.Second

const maxErrorBody = 512

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.Code, e.Body)
}

// JSONClient performs paced JSON requests against one provider.
type JSONClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// JSONClientOption configures JSONClient.
type JSONClientOption func(*JSONClient)

// WithRateLimit paces requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) JSONClientOption {
	return func(c *JSONClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) JSONClientOption {
	return func(c *JSONClient) {
		c.client.Timeout = d
	}
}

// WithHTTPDoer replaces the underlying http.Client.
func WithHTTPDoer(client *http.Client) JSONClientOption {
	return func(c *JSONClient) {
		c.client = client
	}
}

// NewJSONClient creates a client without pacing unless WithRateLimit is given.
func NewJSONClient(opts ...JSONClientOption) *JSONClient {
	c := &JSONClient{
		client:    &http.Client{Timeout: DefaultRequestTimeout},
		limiter:   rate.NewLimiter(rate.Inf, 1),
		userAgent: "solana-token-aggregator/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a GET and decodes the response body into out.
func (c *JSONClient) GetJSON(ctx context.Context, url string, out interface{}) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// PostJSON marshals body, issues a POST and decodes the response into out.
func (c *JSONClient) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, payload, out)
}

func (c *JSONClient) do(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: redact(req), Code: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redact drops the query string, which may carry an API key.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
