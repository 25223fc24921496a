package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/emailharvester/internal/crawler"
)

// RobotsPolicy answers robots.txt allow checks, fetching each origin's
// robots.txt at most once. It is safe for concurrent use.
type RobotsPolicy struct {
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsPolicy creates a RobotsPolicy checking rules for userAgent.
func NewRobotsPolicy(userAgent string, httpClient *http.Client, logger *slog.Logger) *RobotsPolicy {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsPolicy{
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     logger,
		cache:      make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether pageURL may be fetched.
// Unsupported URLs are never allowed. An origin whose robots.txt cannot be
// retrieved or parsed allows everything.
func (p *RobotsPolicy) Allowed(ctx context.Context, pageURL string) bool {
	if !crawler.IsSupportedURL(pageURL) {
		return false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	origin := u.Scheme + "://" + u.Host

	// The lock is held across the fetch so concurrent workers hitting the
	// same new origin wait for one download instead of racing.
	p.mu.Lock()
	robots, ok := p.cache[origin]
	if !ok {
		robots = p.load(ctx, origin)
		p.cache[origin] = robots
	}
	p.mu.Unlock()

	if robots == nil {
		return true
	}
	return robots.TestAgent(u.RequestURI(), p.userAgent)
}

// load downloads and parses robots.txt for origin. It returns nil when the
// file could not be read.
func (p *RobotsPolicy) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		p.logger.Debug("robots.txt unparseable", "origin", origin, "error", err)
		return nil
	}
	return robots
}
