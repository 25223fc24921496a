package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/emailharvester/internal/model"
)

// Processor turns one candidate URL into observations.
// *crawler.PageProcessor satisfies it.
type Processor interface {
	Process(ctx context.Context, pageURL string) []model.EmailObservation
}

// PageResult is the outcome of processing one candidate URL.
type PageResult struct {
	// Index is the URL's position in the candidate list.
	Index int

	// URL is the candidate URL.
	URL string

	// Observations are the emails found; nil when the worker failed.
	Observations []model.EmailObservation

	// Failed is set when the worker panicked.
	Failed bool

	// Skipped is set when the URL was never processed because the batch
	// was cancelled first.
	Skipped bool

	// Elapsed is the processing time.
	Elapsed time.Duration
}

// BatchProcessor processes candidate URLs concurrently.
type BatchProcessor struct {
	// processor handles each URL. It must be safe for concurrent use when
	// concurrency is above one.
	processor Processor

	// concurrency is the maximum number of pages in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent pages.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor running processor on up to
// eight pages at a time unless configured otherwise.
func NewBatchProcessor(processor Processor, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		processor:   processor,
		concurrency: 8,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch processes every URL and returns the results in input order.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]PageResult, error) {
	results := make([]PageResult, len(urls))
	for i, u := range urls {
		results[i] = PageResult{Index: i, URL: u, Skipped: true}
	}

	err := bp.ProcessBatchWithCallback(ctx, urls, func(res PageResult) {
		results[res.Index] = res
	})
	return results, err
}

// ProcessBatchWithCallback processes every URL and hands each result to
// callback in completion order.
//
// Workers only send results; callback always runs on the calling goroutine,
// so it may mutate state without locking. URLs not yet started when ctx is
// cancelled are skipped, and the context error is returned.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, urls []string, callback func(PageResult)) error {
	bp.logger.Debug("starting batch processing",
		"total_pages", len(urls),
		"concurrency", bp.concurrency,
	)

	results := make(chan PageResult)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	go func() {
		defer close(results)
		for i, u := range urls {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results <- bp.processOne(gctx, i, u)
				return nil
			})
		}
		_ = g.Wait()
	}()

	for res := range results {
		callback(res)
	}

	return ctx.Err()
}

// processOne runs the processor on one URL, converting a panic into a
// failed result.
func (bp *BatchProcessor) processOne(ctx context.Context, index int, pageURL string) (res PageResult) {
	res = PageResult{Index: index, URL: pageURL}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			bp.logger.Debug("worker failed", "url", pageURL, "panic", r)
			res.Observations = nil
			res.Failed = true
		}
		res.Elapsed = time.Since(start)
	}()

	res.Observations = bp.processor.Process(ctx, pageURL)
	return res
}
