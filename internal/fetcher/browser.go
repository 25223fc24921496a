package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/nao1215/emailharvester/internal/crawler"
	"github.com/nao1215/emailharvester/internal/model"
)

// BrowserFetcher renders pages in one headless Chrome instance.
// It is not safe for concurrent use; the harvester runs it from a single
// worker.
type BrowserFetcher struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
	logger        *slog.Logger
}

// NewBrowserFetcher starts a headless browser. A non-empty socksProxy
// ("host:port") routes the browser through that SOCKS5 proxy. The returned
// error wraps model.ErrFetch when no browser can be launched.
func NewBrowserFetcher(ctx context.Context, userAgent, socksProxy string, timeout time.Duration, logger *slog.Logger) (*BrowserFetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if socksProxy != "" {
		opts = append(opts, chromedp.ProxyServer("socks5://"+socksProxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions launches the browser, so a missing Chrome binary
	// is reported here rather than on the first page.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: failed to start browser: %w", model.ErrFetch, err)
	}

	return &BrowserFetcher{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       timeout,
		logger:        logger,
	}, nil
}

// Fetch implements crawler.Fetcher. It returns the rendered document HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL string) string {
	if !crawler.IsSupportedURL(pageURL) {
		return ""
	}

	tabCtx, cancel := context.WithTimeout(b.browserCtx, b.timeout)
	defer cancel()

	// Stop the navigation when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		b.logger.Debug("browser fetch failed", "url", pageURL, "error", err)
		return ""
	}
	return html
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}
