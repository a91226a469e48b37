package tagging

import (
	"context"
	"io"
	"net/http"
	"time"

	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	// DefaultFetchTimeout bounds a single page fetch
	DefaultFetchTimeout = 5 * time.Second
	// DefaultMaxBodyBytes caps how much of a page is read
	DefaultMaxBodyBytes int64 = 5 << 20
)

// Fetcher retrieves the body of a page. Failures yield the empty string.
type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}

// HTTPFetcher issues one GET per call with a timeout and no retries
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
	logger       *zap.Logger
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-fetch timeout
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodyBytes caps the number of body bytes read
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent header; empty leaves the client default
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithHTTPClient replaces the underlying client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithFetchLogger sets the logger used for fetch failures
func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewHTTPFetcher creates a fetcher whose transport is traced with otelhttp
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:      DefaultFetchTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the page body, or "" on any network error, non-2xx status, timeout or read failure
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logFailure(url, "invalid_request", err)
		return ""
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logFailure(url, "request_failed", err)
		return ""
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Debug("page_fetch_failed",
			zap.String("url", logpkg.SanitizeURL(url)),
			zap.String("reason", "bad_status"),
			zap.Int("status", resp.StatusCode),
		)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		f.logFailure(url, "read_failed", err)
		return ""
	}
	return string(body)
}

func (f *HTTPFetcher) logFailure(url, reason string, err error) {
	f.logger.Debug("page_fetch_failed",
		zap.String("url", logpkg.SanitizeURL(url)),
		zap.String("reason", reason),
		zap.String("error", logpkg.SanitizeError(err)),
	)
}
