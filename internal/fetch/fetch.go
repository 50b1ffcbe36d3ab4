// Package fetch issues rate-limited, retried HTTP requests to one external
// statistics provider. All strategies of a discovery run share a single
// Client, so the politeness floor holds across concurrent callers.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 30 * time.Second

// Kind classifies a failed request.
type Kind int

const (
	// KindRateLimited means the provider returned 429 past the retry budget.
	KindRateLimited Kind = iota
	// KindUnavailable means 5xx or network/timeout failures past the retry budget.
	KindUnavailable
	// KindBadRequest means a non-429 4xx; never retried.
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	case KindBadRequest:
		return "bad_request"
	}
	return "unknown"
}

// Error is a request failure. Callers are expected to log and skip: none of
// these abort a discovery run.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind reports the Kind of err if it is a fetch Error.
func ErrorKind(err error) (Kind, bool) {
	var fe *Error
	if ok := asError(err, &fe); ok {
		return fe.Kind, true
	}
	return 0, false
}

// Clock abstracts time for backoff sleeps so tests run without real timers.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client wraps an http.Client with a shared per-provider rate limiter and a
// bounded retry policy.
type Client struct {
	provider    string
	http        *http.Client
	limiter     *rate.Limiter
	clock       Clock
	maxAttempts int
	userAgent   string
	log         *slog.Logger

	// onRequest is invoked once per request actually sent (retries included).
	onRequest func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock replaces the backoff clock.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithRequestHook registers a counter hook called per request sent.
func WithRequestHook(fn func()) Option {
	return func(c *Client) { c.onRequest = fn }
}

// NewClient creates a Client for one provider. minDelay is the politeness
// floor enforced between any two requests, regardless of which strategy
// issues them.
func NewClient(provider string, minDelay time.Duration, maxAttempts int, log *slog.Logger, opts ...Option) *Client {
	if minDelay <= 0 {
		minDelay = 100 * time.Millisecond
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		provider:    provider,
		http:        &http.Client{Timeout: defaultTimeout},
		limiter:     rate.NewLimiter(rate.Every(minDelay), 1),
		clock:       realClock{},
		maxAttempts: maxAttempts,
		userAgent:   "econcrawl/1.0 (economic series catalog crawler)",
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the response body.
//
// A nil body with a nil error means HTTP 204: the provider has no data for
// this query. That is a normal outcome, not a failure.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr *Error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.clock.Sleep(ctx, nextDelay(attempt)); err != nil {
				return nil, &Error{Kind: KindUnavailable, URL: url, Err: err}
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindUnavailable, URL: url, Err: err}
		}

		body, retryable, reqErr := c.doOnce(ctx, url)
		if reqErr == nil {
			return body, nil
		}
		lastErr = reqErr
		if !retryable {
			return nil, reqErr
		}
	}

	return nil, lastErr
}

// doOnce sends one request. retryable reports whether the failure is worth
// another attempt.
func (c *Client) doOnce(ctx context.Context, url string) (body []byte, retryable bool, reqErr *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, &Error{Kind: KindBadRequest, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	if c.onRequest != nil {
		c.onRequest()
	}
	resp, err := c.http.Do(req)
	latency := time.Since(start)

	if err != nil {
		c.log.Warn("request failed", "provider", c.provider, "url", url, "latency", latency, "error", err)
		return nil, true, &Error{Kind: KindUnavailable, URL: url, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request", "provider", c.provider, "url", url, "status", resp.StatusCode, "latency", latency)

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, &Error{Kind: KindUnavailable, URL: url, Err: err}
		}
		return data, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &Error{Kind: KindRateLimited, URL: url, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, true, &Error{Kind: KindUnavailable, URL: url, Status: resp.StatusCode}
	default:
		// Remaining 4xx: the query itself is wrong, retrying won't help.
		return nil, false, &Error{Kind: KindBadRequest, URL: url, Status: resp.StatusCode}
	}
}
