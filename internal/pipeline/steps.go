package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/nao1215/emailharvester/internal/crawler"
	"github.com/nao1215/emailharvester/internal/metrics"
	"github.com/nao1215/emailharvester/internal/model"
	"github.com/nao1215/emailharvester/internal/scoring"
	"github.com/nao1215/emailharvester/internal/search"
)

// VerifyTimeout bounds the polling of one pending verification.
const VerifyTimeout = 20 * time.Second

// verifyDelayMargin widens the upper politeness bound between verification
// calls.
const verifyDelayMargin = 0.5

// rowDelayFactor scales the politeness bounds for the per-row sleep.
const rowDelayFactor = 0.08

// Verifier is the verification provider.
// *hunter.Client satisfies it.
type Verifier interface {
	crawler.DomainSearcher
	VerifyEmail(ctx context.Context, email string, poll bool, timeout time.Duration) model.Verification
}

// MXChecker reports whether an address's domain accepts mail.
// *mx.Checker satisfies it.
type MXChecker interface {
	Check(ctx context.Context, email string) bool
}

// BrowserFetcher is a fetcher owning a browser that must be released.
type BrowserFetcher interface {
	crawler.Fetcher
	io.Closer
}

// BrowserFactory starts a browser fetcher.
type BrowserFactory func(ctx context.Context) (BrowserFetcher, error)

// CollectStep gathers candidate URLs from seeds or from search.
type CollectStep struct {
	seeds      []string
	categories []string
	backend    search.Backend
	maxResults int
	minDelay   float64
	maxDelay   float64
	sleep      crawler.SleepFunc
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// CollectStepOption configures a CollectStep.
type CollectStepOption func(*CollectStep)

// WithSeeds sets seed URLs. Seeds take precedence over categories and skip
// search entirely.
func WithSeeds(seeds []string) CollectStepOption {
	return func(s *CollectStep) {
		s.seeds = seeds
	}
}

// WithCategories sets the categories to search for.
func WithCategories(categories []string) CollectStepOption {
	return func(s *CollectStep) {
		s.categories = categories
	}
}

// WithMaxResultsPerQuery caps the URLs taken from each query.
func WithMaxResultsPerQuery(n int) CollectStepOption {
	return func(s *CollectStep) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithCollectDelay sets the politeness delay between queries.
func WithCollectDelay(minDelay, maxDelay float64, sleep crawler.SleepFunc) CollectStepOption {
	return func(s *CollectStep) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithCollectMetrics sets the metrics recorder.
func WithCollectMetrics(m *metrics.Recorder) CollectStepOption {
	return func(s *CollectStep) {
		s.metrics = m
	}
}

// WithCollectLogger sets a custom logger.
func WithCollectLogger(logger *slog.Logger) CollectStepOption {
	return func(s *CollectStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCollectStep creates a CollectStep searching through backend.
func NewCollectStep(backend search.Backend, opts ...CollectStepOption) *CollectStep {
	s := &CollectStep{
		backend:    backend,
		maxResults: 12,
		sleep:      crawler.PoliteSleep,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CollectStep) Name() string {
	return "collect"
}

// Do fills harvest.Queries and harvest.CandidateURLs.
func (s *CollectStep) Do(ctx context.Context, harvest *model.Harvest) error {
	var candidates []string

	if len(s.seeds) > 0 {
		candidates = s.seeds
	} else {
		if s.backend == nil {
			return fmt.Errorf("%w: no search backend configured", model.ErrConfig)
		}
		for _, query := range search.BuildQueries(s.categories) {
			if err := ctx.Err(); err != nil {
				return err
			}

			s.logger.Info(fmt.Sprintf("Searching: %s", query))
			urls := s.backend.Search(ctx, query, s.maxResults, s.minDelay, s.maxDelay)
			s.logger.Info(fmt.Sprintf(" --> found %d candidate URLs", len(urls)))
			s.metrics.QueryIssued()

			harvest.Queries = append(harvest.Queries, query)
			candidates = append(candidates, urls...)
			s.sleep(ctx, s.minDelay, s.maxDelay)
		}
	}

	harvest.CandidateURLs = crawler.NormalizeURLs(candidates)
	s.metrics.CandidateURLs(len(harvest.CandidateURLs))
	s.logger.Info("Total candidate URLs to scan", "count", len(harvest.CandidateURLs))
	return nil
}

// ScanStep processes every candidate URL and aggregates the observations.
type ScanStep struct {
	// newProcessor builds a page processor around a fetcher.
	newProcessor func(crawler.Fetcher) Processor

	// fetcher is the shared HTTP fetcher used in concurrent mode.
	fetcher crawler.Fetcher

	// browser, when set, switches to sequential browser mode.
	browser BrowserFactory

	workers           int
	stableAttribution bool
	progress          io.Writer
	metrics           *metrics.Recorder
	logger            *slog.Logger
}

// ScanStepOption configures a ScanStep.
type ScanStepOption func(*ScanStep)

// WithWorkers sets the number of concurrent page workers.
func WithWorkers(n int) ScanStepOption {
	return func(s *ScanStep) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBrowser switches to browser mode: one browser is started before the
// loop and pages are processed strictly sequentially.
func WithBrowser(factory BrowserFactory) ScanStepOption {
	return func(s *ScanStep) {
		s.browser = factory
	}
}

// WithStableAttribution merges results in candidate order rather than in
// completion order, making FirstSource and Notes reproducible.
func WithStableAttribution(stable bool) ScanStepOption {
	return func(s *ScanStep) {
		s.stableAttribution = stable
	}
}

// WithScanProgress renders a progress bar to w. Nil disables it.
func WithScanProgress(w io.Writer) ScanStepOption {
	return func(s *ScanStep) {
		s.progress = w
	}
}

// WithScanMetrics sets the metrics recorder.
func WithScanMetrics(m *metrics.Recorder) ScanStepOption {
	return func(s *ScanStep) {
		s.metrics = m
	}
}

// WithScanLogger sets a custom logger.
func WithScanLogger(logger *slog.Logger) ScanStepOption {
	return func(s *ScanStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScanStep creates a ScanStep. newProcessor wraps the fetcher in use
// (fetcher, or the browser in browser mode) into a page processor.
func NewScanStep(newProcessor func(crawler.Fetcher) Processor, fetcher crawler.Fetcher, opts ...ScanStepOption) *ScanStep {
	s := &ScanStep{
		newProcessor: newProcessor,
		fetcher:      fetcher,
		workers:      8,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return "scan"
}

// Do processes harvest.CandidateURLs into harvest.Emails.
func (s *ScanStep) Do(ctx context.Context, harvest *model.Harvest) error {
	var err error
	if s.browser != nil {
		err = s.scanSequential(ctx, harvest)
	} else {
		err = s.scanConcurrent(ctx, harvest)
	}

	s.metrics.UniqueEmails(harvest.Emails.Len())
	s.logger.Info("Unique emails found on pages", "count", harvest.Emails.Len())
	return err
}

// scanConcurrent fans out over the shared fetcher.
func (s *ScanStep) scanConcurrent(ctx context.Context, harvest *model.Harvest) error {
	bp := NewBatchProcessor(s.newProcessor(s.fetcher),
		WithConcurrency(s.workers),
		WithBatchLogger(s.logger),
	)

	bar := s.newBar(len(harvest.CandidateURLs))
	defer finishBar(bar)

	if s.stableAttribution {
		results, err := bp.ProcessBatch(ctx, harvest.CandidateURLs)
		for _, res := range results {
			if res.Skipped {
				continue
			}
			s.merge(harvest, res)
			addBar(bar)
		}
		return err
	}

	return bp.ProcessBatchWithCallback(ctx, harvest.CandidateURLs, func(res PageResult) {
		s.merge(harvest, res)
		addBar(bar)
	})
}

// scanSequential processes pages one at a time through a single browser.
func (s *ScanStep) scanSequential(ctx context.Context, harvest *model.Harvest) error {
	s.logger.Warn("Selenium mode is running in single-thread mode for driver safety.")

	browser, err := s.browser(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			s.logger.Debug("failed to close browser", "error", cerr)
		}
	}()

	bp := NewBatchProcessor(s.newProcessor(browser),
		WithConcurrency(1),
		WithBatchLogger(s.logger),
	)

	for i, u := range harvest.CandidateURLs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.merge(harvest, bp.processOne(ctx, i, u))
	}
	return nil
}

// merge folds one page result into the harvest. It runs on the
// coordinating goroutine only.
func (s *ScanStep) merge(harvest *model.Harvest, res PageResult) {
	if res.Failed {
		harvest.WorkerFailures++
		s.metrics.WorkerFailed()
		return
	}

	harvest.PagesScanned++
	harvest.ObservationCount += len(res.Observations)
	harvest.Emails.AddAll(res.Observations)

	s.metrics.PageScanned(res.Elapsed)
	for _, obs := range res.Observations {
		s.metrics.Observation(noteCategory(obs.Note))
	}
}

// newBar creates the scanning progress bar, or nil when disabled.
func (s *ScanStep) newBar(total int) *progressbar.ProgressBar {
	if s.progress == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(s.progress),
		progressbar.OptionSetDescription("scanning pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// VerifyStep runs the capped verification pass.
type VerifyStep struct {
	verifier         Verifier
	enabled          bool
	preview          bool
	maxVerifications int
	minDelay         float64
	maxDelay         float64
	sleep            crawler.SleepFunc
	metrics          *metrics.Recorder
	logger           *slog.Logger
}

// VerifyStepOption configures a VerifyStep.
type VerifyStepOption func(*VerifyStep)

// WithVerification enables the pass. Without it the step does nothing.
func WithVerification(enabled bool) VerifyStepOption {
	return func(s *VerifyStep) {
		s.enabled = enabled
	}
}

// WithPreview reports the would-be verification count without calling the
// provider.
func WithPreview(preview bool) VerifyStepOption {
	return func(s *VerifyStep) {
		s.preview = preview
	}
}

// WithMaxVerifications caps the number of verification calls.
func WithMaxVerifications(n int) VerifyStepOption {
	return func(s *VerifyStep) {
		if n >= 0 {
			s.maxVerifications = n
		}
	}
}

// WithVerifyDelay sets the politeness delay between calls. The upper bound
// is widened by half a second.
func WithVerifyDelay(minDelay, maxDelay float64, sleep crawler.SleepFunc) VerifyStepOption {
	return func(s *VerifyStep) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithVerifyMetrics sets the metrics recorder.
func WithVerifyMetrics(m *metrics.Recorder) VerifyStepOption {
	return func(s *VerifyStep) {
		s.metrics = m
	}
}

// WithVerifyLogger sets a custom logger.
func WithVerifyLogger(logger *slog.Logger) VerifyStepOption {
	return func(s *VerifyStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewVerifyStep creates a VerifyStep calling verifier, which may be nil
// when no provider is configured.
func NewVerifyStep(verifier Verifier, opts ...VerifyStepOption) *VerifyStep {
	s := &VerifyStep{
		verifier:         verifier,
		preview:          true,
		maxVerifications: 50,
		sleep:            crawler.PoliteSleep,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *VerifyStep) Name() string {
	return "verify"
}

// Do fills harvest.Verifications.
func (s *VerifyStep) Do(ctx context.Context, harvest *model.Harvest) error {
	if !s.enabled || s.verifier == nil {
		return nil
	}

	candidates := harvest.Emails.Emails()
	harvest.VerificationCandidates = len(candidates)
	s.logger.Info("Emails that could be verified by Hunter", "count", len(candidates))

	toVerify := candidates[:min(s.maxVerifications, len(candidates))]

	if s.preview {
		harvest.Preview = true
		s.logger.Info("Preview mode enabled: no Hunter verification calls were executed.",
			"estimated_calls", len(toVerify),
		)
		return nil
	}

	s.logger.Info(fmt.Sprintf("Performing up to %d Hunter verifications.", len(toVerify)))
	for _, email := range toVerify {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.sleep(ctx, s.minDelay, s.maxDelay+verifyDelayMargin)

		result := s.verifier.VerifyEmail(ctx, email, true, VerifyTimeout)
		harvest.Verifications[email] = result
		s.metrics.Verification(result.Result())
	}
	s.logger.Info("Completed Hunter verification calls", "count", len(harvest.Verifications))
	return nil
}

// AssembleStep turns the aggregation into sorted output rows.
type AssembleStep struct {
	mx       MXChecker
	clock    func() time.Time
	minDelay float64
	maxDelay float64
	sleep    crawler.SleepFunc
	progress io.Writer
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// AssembleStepOption configures an AssembleStep.
type AssembleStepOption func(*AssembleStep)

// WithClock sets the timestamp source.
func WithClock(clock func() time.Time) AssembleStepOption {
	return func(s *AssembleStep) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAssembleDelay sets the politeness bounds; the per-row sleep uses
// eight percent of them.
func WithAssembleDelay(minDelay, maxDelay float64, sleep crawler.SleepFunc) AssembleStepOption {
	return func(s *AssembleStep) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithAssembleProgress renders a progress bar to w. Nil disables it.
func WithAssembleProgress(w io.Writer) AssembleStepOption {
	return func(s *AssembleStep) {
		s.progress = w
	}
}

// WithAssembleMetrics sets the metrics recorder.
func WithAssembleMetrics(m *metrics.Recorder) AssembleStepOption {
	return func(s *AssembleStep) {
		s.metrics = m
	}
}

// WithAssembleLogger sets a custom logger.
func WithAssembleLogger(logger *slog.Logger) AssembleStepOption {
	return func(s *AssembleStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAssembleStep creates an AssembleStep checking MX through mx.
func NewAssembleStep(mx MXChecker, opts ...AssembleStepOption) *AssembleStep {
	s := &AssembleStep{
		mx:     mx,
		clock:  time.Now,
		sleep:  crawler.PoliteSleep,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *AssembleStep) Name() string {
	return "assemble"
}

// Do fills harvest.Rows in email order.
func (s *AssembleStep) Do(ctx context.Context, harvest *model.Harvest) error {
	if s.mx == nil {
		return errors.New("no MX checker configured")
	}

	emails := harvest.Emails.Emails()
	harvest.Rows = make([]model.OutputRow, 0, len(emails))

	var bar *progressbar.ProgressBar
	if s.progress != nil && len(emails) > 0 {
		bar = progressbar.NewOptions(len(emails),
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionSetDescription("verifying & writing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	defer finishBar(bar)

	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, _ := harvest.Emails.Get(email)
		row := s.assembleRow(ctx, record, harvest.Verifications[email])
		harvest.Rows = append(harvest.Rows, row)
		s.metrics.Row(row.Quality)
		addBar(bar)

		s.sleep(ctx, s.minDelay*rowDelayFactor, s.maxDelay*rowDelayFactor)
	}

	return nil
}

// assembleRow builds the output row of one record.
func (s *AssembleStep) assembleRow(ctx context.Context, record *model.EmailRecord, verification model.Verification) model.OutputRow {
	mxOK := s.mx.Check(ctx, record.Email)
	sources := record.Sources()
	quality := scoring.ComputeQuality(mxOK, verification, len(sources))

	return model.OutputRow{
		Email:            record.Email,
		FirstSeenSource:  record.FirstSource,
		AllSources:       strings.Join(sources, ";"),
		Domain:           crawler.DomainFromURL(record.FirstSource),
		MXOK:             model.YesNo(mxOK),
		HunterResult:     verification.Result(),
		HunterConfidence: verification.Confidence(),
		Quality:          quality.String(),
		DateScrapedUTC:   model.FormatTimestamp(s.clock()),
		Notes:            record.Notes,
	}
}

// noteCategory collapses domain search notes into one metric label.
func noteCategory(note string) string {
	if model.IsHunterDomainNote(note) {
		return "hunter_domain"
	}
	return note
}

func addBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
