package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/quizwatch/quizwatch/internal/logger"
)

const (
	DefaultUserAgent = "quizwatch/1.0 (+https://github.com/quizwatch/quizwatch)"
	DefaultTimeout   = 30 * time.Second

	// maxPageSize caps how much of a response body is read
	maxPageSize = 10 << 20
)

// StatusError is returned for non-200 responses
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Fetcher downloads the schedule page
type Fetcher struct {
	client        *http.Client
	url           string
	userAgent     string
	maxRetries    uint64
	retryInterval time.Duration
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried
func WithMaxRetries(n uint64) FetcherOption {
	return func(f *Fetcher) { f.maxRetries = n }
}

// WithRetryInterval sets the first backoff interval
func WithRetryInterval(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.retryInterval = d }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher creates a Fetcher for the given page URL
func NewFetcher(pageURL string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: DefaultTimeout},
		url:           pageURL,
		userAgent:     DefaultUserAgent,
		maxRetries:    3,
		retryInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the page being fetched
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads the page body. Network errors and 5xx/429 responses are
// retried with exponential backoff; other 4xx responses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	var body []byte

	op := func() error {
		b, err := f.fetchOnce(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, f.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		logger.Warn("Fetching schedule failed, retrying", logger.Fields{
			"url":   f.url,
			"error": err.Error(),
			"wait":  wait.String(),
		})
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", f.url, err)
	}
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := &StatusError{Code: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(serr)
		}
		return nil, serr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}
