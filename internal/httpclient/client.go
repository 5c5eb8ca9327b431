// Package httpclient provides the HTTP plumbing shared by the registry,
// identity and Moodle clients.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "sisu-moodle-sync/1.0"

	// DefaultMaxTries is the number of attempts of an idempotent request
	DefaultMaxTries = 3

	defaultRetryInterval = 100 * time.Millisecond
)

// ErrResponseTooLarge is returned when a response exceeds MaxResponseSize
var ErrResponseTooLarge = errors.New("response too large")

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request with the given extra headers and returns the response body
	Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error)

	// PostForm performs a form-encoded HTTP POST and returns the response body
	PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client        *http.Client
	maxTries      uint
	retryInterval time.Duration
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithRetry sets how often an idempotent request is attempted and the
// initial interval of the exponential backoff between attempts
func WithRetry(maxTries uint, initialInterval time.Duration) Option {
	return func(c *DefaultClient) {
		c.maxTries = maxTries
		c.retryInterval = initialInterval
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout.
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		maxTries:      DefaultMaxTries,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request. Transport failures, 429 and 5xx
// responses are retried with exponential backoff.
func (c *DefaultClient) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	return backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		body, err := c.do(req, rawURL)
		if err != nil && !retryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(max(c.maxTries, 1)))
}

// PostForm performs a form-encoded HTTP POST request
func (c *DefaultClient) PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, redact(rawURL))
}

func (c *DefaultClient) do(req *http.Request, displayURL string) ([]byte, error) {
	req.Header.Set("User-Agent", UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, displayURL, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			ErrResponseTooLarge, resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// +1 to detect if the limit was exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: exceeds maximum allowed size of %d bytes (%.2f MB)",
			ErrResponseTooLarge, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	return body, nil
}

// retryable reports whether a failed request may succeed when repeated
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrResponseTooLarge) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// redact strips the query string so tokens never end up in error messages
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
