package crawler

import (
	"context"
	"log/slog"

	"github.com/nao1215/emailharvester/internal/model"
)

// DomainSearchLimit is the number of addresses requested per domain search.
const DomainSearchLimit = 10

// Fetcher returns the HTML of a page, or "" on any failure or policy block.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) string
}

// DomainSearcher returns provider-known addresses for a domain. Items carry
// at least a "value" (the address) and usually a "confidence".
type DomainSearcher interface {
	DomainSearch(ctx context.Context, domain string, limit int) []map[string]any
}

// PageProcessor turns one candidate URL into email observations.
// It fetches the page, extracts addresses from it and from the contact pages
// it links to, and optionally asks the verification provider for the
// addresses of the page's domain.
//
// A PageProcessor is safe for concurrent use when its Fetcher and
// DomainSearcher are.
type PageProcessor struct {
	// fetcher retrieves page HTML.
	fetcher Fetcher

	// domainSearcher is consulted per page when domain search is enabled.
	domainSearcher DomainSearcher

	// domainSearch enables the per-page domain search.
	domainSearch bool

	// sleep is the politeness delay used before every follow-up request.
	sleep SleepFunc

	// minDelay and maxDelay bound the politeness delay in seconds.
	minDelay float64
	maxDelay float64

	// logger is used for debug output.
	logger *slog.Logger
}

// ProcessorOption configures a PageProcessor.
type ProcessorOption func(*PageProcessor)

// WithDomainSearch enables domain search through searcher.
// A nil searcher leaves domain search disabled.
func WithDomainSearch(searcher DomainSearcher) ProcessorOption {
	return func(p *PageProcessor) {
		if searcher != nil {
			p.domainSearcher = searcher
			p.domainSearch = true
		}
	}
}

// WithSleep sets the politeness delay function.
func WithSleep(sleep SleepFunc) ProcessorOption {
	return func(p *PageProcessor) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithDelay sets the politeness delay bounds in seconds.
func WithDelay(minDelay, maxDelay float64) ProcessorOption {
	return func(p *PageProcessor) {
		p.minDelay = minDelay
		p.maxDelay = maxDelay
	}
}

// WithProcessorLogger sets a custom logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *PageProcessor) {
		p.logger = logger
	}
}

// NewPageProcessor creates a PageProcessor that fetches through fetcher.
func NewPageProcessor(fetcher Fetcher, opts ...ProcessorOption) *PageProcessor {
	p := &PageProcessor{
		fetcher:  fetcher,
		sleep:    PoliteSleep,
		minDelay: 0.9,
		maxDelay: 2.2,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Process returns the observations for pageURL.
// It never fails: fetch errors on the page itself yield no observations and
// failures on contact pages are skipped.
func (p *PageProcessor) Process(ctx context.Context, pageURL string) []model.EmailObservation {
	observations := make([]model.EmailObservation, 0)

	page := p.fetcher.Fetch(ctx, pageURL)
	if page == "" {
		p.logger.Debug("empty page", "url", pageURL)
		return observations
	}

	for _, email := range ExtractEmails(page) {
		observations = append(observations, model.NewEmailObservation(email, pageURL, model.NotePage))
	}

	for _, link := range FindContactLinks(page, pageURL) {
		if address, ok := MailtoAddress(link); ok {
			observations = append(observations, model.NewEmailObservation(address, pageURL, model.NoteMailto))
			continue
		}
		if ctx.Err() != nil {
			return observations
		}

		p.sleep(ctx, p.minDelay, p.maxDelay)
		child := p.fetcher.Fetch(ctx, link)
		if child == "" {
			continue
		}
		for _, email := range ExtractEmails(child) {
			observations = append(observations, model.NewEmailObservation(email, link, model.NoteContactPage))
		}
	}

	if p.domainSearch {
		observations = append(observations, p.searchDomain(ctx, pageURL)...)
	}

	return observations
}

// searchDomain asks the provider for addresses of the page's domain.
func (p *PageProcessor) searchDomain(ctx context.Context, pageURL string) []model.EmailObservation {
	domain := DomainFromURL(pageURL)
	if domain == "" || ctx.Err() != nil {
		return nil
	}

	p.sleep(ctx, p.minDelay, p.maxDelay)

	var observations []model.EmailObservation
	for _, item := range p.domainSearcher.DomainSearch(ctx, domain, DomainSearchLimit) {
		value, ok := item["value"].(string)
		if !ok || value == "" {
			continue
		}
		note := model.HunterDomainNote(model.FormatValue(item["confidence"]))
		observations = append(observations, model.NewEmailObservation(value, pageURL, note))
	}

	p.logger.Debug("domain search", "domain", domain, "emails", len(observations))
	return observations
}
