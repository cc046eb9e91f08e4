// Package httpclient provides the retrying HTTP client the LLM transport
// sends provider calls through. Chat-completion providers surface transient
// overload as 429/5xx, sometimes with a Retry-After header, so the client
// replays the request with exponential backoff until either the retry
// budget or the request's context runs out. The gateway owns per-route
// timeouts via that context; the client never outlives it.
package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Client is an http.Client with bounded retry and backoff for provider
// calls.
type Client struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries bounds how many times a failed request is replayed.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the backoff's first-retry delay; each subsequent
// retry doubles it.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithMaxDelay caps the delay between retries, including one requested by
// a Retry-After header.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// New builds a Client with defaults sized for chat-completion latency.
func New(opts ...Option) *Client {
	c := &Client{
		client:     &http.Client{Timeout: 120 * time.Second},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req, replaying it on transport errors and retryable statuses
// (429, 408, and 5xx). Any other response — success or a caller error like
// 400/401 — is returned as-is for the transport to interpret. The request
// body is buffered once so replays resend the identical payload. Log lines
// carry only status, attempt, and delay, never request or response bodies.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffering request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 && body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := c.client.Do(req)
		status := 0
		switch {
		case err != nil:
			lastErr = err
		case !retryableStatus(resp.StatusCode):
			return resp, nil
		default:
			status = resp.StatusCode
			lastErr = fmt.Errorf("provider returned status %d", status)
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt+1, lastErr)
		}

		delay := c.retryDelay(resp, attempt)
		slog.Debug("retrying provider call", "status", status, "attempt", attempt+1, "delay", delay)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		code >= 500
}

// retryDelay honors an explicit Retry-After before falling back to
// exponential backoff with jitter.
func (c *Client) retryDelay(resp *http.Response, attempt int) time.Duration {
	if resp != nil {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
				return min(time.Duration(secs)*time.Second, c.maxDelay)
			}
		}
	}

	delay := c.baseDelay << attempt
	delay += time.Duration(rand.Int63n(int64(c.baseDelay) + 1))
	return min(delay, c.maxDelay)
}
