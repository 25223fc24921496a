package search

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/emailharvester/internal/crawler"
)

// Backend turns a query into at most num candidate URLs.
// Implementations never fail; an unanswerable query yields no URLs.
type Backend interface {
	Search(ctx context.Context, query string, num int, minDelay, maxDelay float64) []string
}

// FallbackBackend tries SerpAPI, then Bing, then DuckDuckGo, returning the
// first non-empty result normalized and truncated to num.
type FallbackBackend struct {
	serpAPIKey string
	bingKey    string
	userAgent  string

	serpAPIURL     string
	bingURL        string
	duckDuckGoURLs []string

	httpClient *http.Client
	sleep      crawler.SleepFunc
	logger     *slog.Logger
}

// Option configures a FallbackBackend.
type Option func(*FallbackBackend)

// WithSerpAPIKey enables SerpAPI.
func WithSerpAPIKey(key string) Option {
	return func(b *FallbackBackend) {
		b.serpAPIKey = key
	}
}

// WithBingKey enables Bing Web Search.
func WithBingKey(key string) Option {
	return func(b *FallbackBackend) {
		b.bingKey = key
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(b *FallbackBackend) {
		if ua != "" {
			b.userAgent = ua
		}
	}
}

// WithHTTPClient sets the HTTP client used for provider requests.
func WithHTTPClient(client *http.Client) Option {
	return func(b *FallbackBackend) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithEndpoints overrides the provider endpoints. Empty values keep the
// defaults.
func WithEndpoints(serpAPIURL, bingURL string, duckDuckGoURLs ...string) Option {
	return func(b *FallbackBackend) {
		if serpAPIURL != "" {
			b.serpAPIURL = serpAPIURL
		}
		if bingURL != "" {
			b.bingURL = bingURL
		}
		if len(duckDuckGoURLs) > 0 {
			b.duckDuckGoURLs = duckDuckGoURLs
		}
	}
}

// WithSleep sets the politeness delay used between DuckDuckGo endpoints.
func WithSleep(sleep crawler.SleepFunc) Option {
	return func(b *FallbackBackend) {
		if sleep != nil {
			b.sleep = sleep
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *FallbackBackend) {
		b.logger = logger
	}
}

// NewFallbackBackend creates a FallbackBackend. Providers without a key are
// skipped; DuckDuckGo is always available.
func NewFallbackBackend(opts ...Option) *FallbackBackend {
	b := &FallbackBackend{
		userAgent:      "Mozilla/5.0",
		serpAPIURL:     DefaultSerpAPIURL,
		bingURL:        DefaultBingURL,
		duckDuckGoURLs: DefaultDuckDuckGoURLs,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		sleep:          crawler.PoliteSleep,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Search implements Backend.
func (b *FallbackBackend) Search(ctx context.Context, query string, num int, minDelay, maxDelay float64) []string {
	var urls []string

	if b.serpAPIKey != "" {
		found, err := b.searchSerpAPI(ctx, query, num)
		if err != nil {
			b.logger.Warn("SerpApi search failed", "error", err)
		}
		urls = found
	}

	if len(urls) == 0 && b.bingKey != "" {
		found, err := b.searchBing(ctx, query, num)
		if err != nil {
			b.logger.Warn("Bing search failed", "error", err)
		}
		urls = found
	}

	if len(urls) == 0 {
		urls = b.searchDuckDuckGo(ctx, query, num, minDelay, maxDelay)
	}

	urls = crawler.NormalizeURLs(urls)
	if len(urls) > num {
		urls = urls[:num]
	}
	return urls
}
