// Package fetch downloads feed files and listing pages over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/logger"
	"airgapintel/pkg/ratelimit"
	"airgapintel/pkg/retry"
)

// DefaultUserAgent is sent when neither the client nor the request sets one
const DefaultUserAgent = "Mozilla/5.0 (compatible; MISPFeedDownloader/1.0)"

// Response is a fully read HTTP response
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Fetcher retrieves a URL. A nil error guarantees a 2xx status and a
// non-empty body.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts ...Option) (*Response, error)
}

// Option adjusts a single request
type Option func(*request)

type request struct {
	userAgent string
}

// WithUserAgent overrides the User-Agent header for one request. Empty keeps
// the client default.
func WithUserAgent(ua string) Option {
	return func(r *request) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// ResolveUserAgent returns the agent a request built with opts would send,
// given the client default def
func ResolveUserAgent(def string, opts ...Option) string {
	req := request{userAgent: def}
	for _, opt := range opts {
		opt(&req)
	}
	return req.userAgent
}

// Options configures a Client
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	MaxAttempts int
	RetryDelay  time.Duration
	// Backoff spaces retries; nil means exponential from RetryDelay
	Backoff retry.BackoffStrategy
	Limiter ratelimit.Limiter
	Logger  logger.Logger
	// Transport replaces the default round tripper, mostly for tests
	Transport http.RoundTripper
}

// Client is the production Fetcher
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxAttempts int
	backoff     retry.BackoffStrategy
	limiter     ratelimit.Limiter
	logger      logger.Logger
}

// NewClient creates a client. The timeout bounds each attempt, not the
// whole retry sequence.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff == nil {
		opts.Backoff, _ = retry.NewBackoff(retry.BackoffExponential, opts.RetryDelay)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		userAgent:   opts.UserAgent,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		limiter:     opts.Limiter,
		logger:      opts.Logger,
	}
}

// Fetch downloads url, retrying network errors, 429 and 5xx
func (c *Client) Fetch(ctx context.Context, url string, opts ...Option) (*Response, error) {
	req := request{userAgent: ResolveUserAgent(c.userAgent, opts...)}

	return retry.DoWithResult(func() (*Response, error) {
		return c.get(ctx, url, req)
	}, &retry.Config{
		MaxAttempts: c.maxAttempts,
		Backoff:     c.backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger.WithField("url", url),
	})
}

func (c *Client) get(ctx context.Context, url string, r request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Fetch(url, 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Fetch(url, 0, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("User-Agent", r.userAgent)
	httpReq.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":         url,
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, errs.Fetch(url, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	logger.LogRequest(c.logger, http.MethodGet, url, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errs.Fetch(url, 0, fmt.Errorf("failed to read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Fetch(url, resp.StatusCode, fmt.Errorf("HTTP %s", resp.Status))
	}
	if len(body) == 0 {
		return nil, errs.Fetch(url, resp.StatusCode, errs.ErrEmptyBody)
	}

	return &Response{
		Status: resp.StatusCode,
		Body:   body,
		Header: resp.Header,
	}, nil
}
