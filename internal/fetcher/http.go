package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/crawler"
	"github.com/nao1215/emailharvester/internal/model"
)

// Retry defaults.
const (
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = 0.6
)

// retryStatuses are the response codes that are retried.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// maxRetryAfter caps a server-requested wait.
const maxRetryAfter = time.Minute

// errRetryable marks responses that should be retried.
var errRetryable = errors.New("retryable status")

// HTTPFetcher fetches pages over HTTP. It is safe for concurrent use.
type HTTPFetcher struct {
	httpClient    *http.Client
	userAgent     string
	maxBodySize   int64
	maxRetries    int
	backoffFactor float64
	robots        *RobotsPolicy
	sites         *config.File
	logger        *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client, for example one that dials through
// a proxy.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the bytes read per page.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithRetry sets the retry count and backoff factor in seconds.
// The wait before retry n is factor * 2^(n-1).
func WithRetry(maxRetries int, backoffFactor float64) Option {
	return func(f *HTTPFetcher) {
		if maxRetries >= 0 {
			f.maxRetries = maxRetries
		}
		if backoffFactor >= 0 {
			f.backoffFactor = backoffFactor
		}
	}
}

// WithRobotsPolicy sets the robots.txt policy. By default one is created
// on the fetcher's HTTP client.
func WithRobotsPolicy(policy *RobotsPolicy) Option {
	return func(f *HTTPFetcher) {
		f.robots = policy
	}
}

// WithSites applies per-site cookies, headers, user agents and skips.
func WithSites(sites *config.File) Option {
	return func(f *HTTPFetcher) {
		f.sites = sites
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient:    &http.Client{Timeout: config.DefaultTimeout},
		userAgent:     config.DefaultUserAgent,
		maxBodySize:   config.DefaultMaxBodySize,
		maxRetries:    DefaultMaxRetries,
		backoffFactor: DefaultBackoffFactor,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.robots == nil {
		f.robots = NewRobotsPolicy(f.userAgent, f.httpClient, f.logger)
	}

	return f
}

// Fetch implements crawler.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) string {
	if !crawler.IsSupportedURL(pageURL) {
		f.logger.Debug("skipping unsupported URL", "url", pageURL)
		return ""
	}

	site := f.siteConfig(pageURL)
	if site.Skip {
		f.logger.Debug("skipping host by site config", "url", pageURL)
		return ""
	}

	if !f.robots.Allowed(ctx, pageURL) {
		f.logger.Info("skipping due to robots.txt", "url", pageURL)
		return ""
	}

	body, err := f.getWithRetry(ctx, pageURL, site)
	if err != nil {
		f.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return ""
	}
	return body
}

// siteConfig returns the settings for the URL's host.
func (f *HTTPFetcher) siteConfig(pageURL string) config.SiteConfig {
	if f.sites == nil {
		return config.SiteConfig{}
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return config.SiteConfig{}
	}
	return f.sites.GetSiteConfig(u.Hostname())
}

// getWithRetry performs the GET, retrying transport errors and retryable
// statuses up to maxRetries times.
func (f *HTTPFetcher) getWithRetry(ctx context.Context, pageURL string, site config.SiteConfig) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := f.backoff(attempt)
			var ra *retryAfterError
			if errors.As(lastErr, &ra) && ra.after > wait {
				wait = min(ra.after, maxRetryAfter)
			}
			if !sleepContext(ctx, wait) {
				return "", ctx.Err()
			}
		}

		body, err := f.get(ctx, pageURL, site)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: retries exhausted: %w", model.ErrFetch, lastErr)
}

// backoff returns the wait before retry attempt n.
func (f *HTTPFetcher) backoff(n int) time.Duration {
	seconds := f.backoffFactor * math.Pow(2, float64(n-1))
	return time.Duration(seconds * float64(time.Second))
}

// retryAfterError carries a server-requested wait.
type retryAfterError struct {
	status int
	after  time.Duration
}

func (e *retryAfterError) Error() string {
	return "HTTP " + strconv.Itoa(e.status)
}

func (e *retryAfterError) Unwrap() error {
	return errRetryable
}

// transportError wraps network failures, which are retried.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// isRetryable reports whether err warrants another attempt.
func isRetryable(err error) bool {
	var te *transportError
	return errors.Is(err, errRetryable) || errors.As(err, &te)
}

// get performs one GET.
func (f *HTTPFetcher) get(ctx context.Context, pageURL string, site config.SiteConfig) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %w", model.ErrFetch, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if site.UserAgent != "" {
		req.Header.Set("User-Agent", site.UserAgent)
	}
	for k, v := range site.Headers {
		req.Header.Set(k, v)
	}
	if site.Cookie != "" {
		req.Header.Set("Cookie", site.Cookie)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &transportError{err: err}
	}
	defer resp.Body.Close()

	if retryStatuses[resp.StatusCode] {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &retryAfterError{status: resp.StatusCode, after: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: HTTP %d", model.ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", &transportError{err: err}
	}
	return string(body), nil
}

// parseRetryAfter reads a Retry-After header given in seconds.
// HTTP-date values and garbage yield zero.
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// sleepContext waits for d and reports whether ctx is still live.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
