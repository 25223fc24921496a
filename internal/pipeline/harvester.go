package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/crawler"
	"github.com/nao1215/emailharvester/internal/metrics"
	"github.com/nao1215/emailharvester/internal/model"
	"github.com/nao1215/emailharvester/internal/search"
)

// Dependencies are the collaborators of a harvest run.
type Dependencies struct {
	// Backend finds candidate URLs. Unused when seeds are configured.
	Backend search.Backend

	// Fetcher retrieves pages in concurrent mode.
	Fetcher crawler.Fetcher

	// Browser starts the browser fetcher when the config asks for one.
	Browser BrowserFactory

	// Verifier is the verification provider. Nil disables domain search and
	// the verification pass.
	Verifier Verifier

	// MX checks whether an address's domain accepts mail.
	MX MXChecker

	// Sleep replaces the politeness delay. Defaults to crawler.PoliteSleep.
	Sleep crawler.SleepFunc

	// Clock supplies row timestamps. Defaults to time.Now.
	Clock func() time.Time

	// Metrics records run counters. May be nil.
	Metrics *metrics.Recorder

	// Progress receives progress bars. Nil disables them.
	Progress io.Writer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Harvest runs a full harvest described by cfg.
//
// The config is validated before anything else happens. The returned harvest
// is never nil; it carries partial results when a step fails or ctx is
// cancelled.
func Harvest(ctx context.Context, cfg *config.Config, deps Dependencies) (*model.Harvest, error) {
	harvest := model.NewHarvest()

	if err := cfg.Validate(); err != nil {
		harvest.Error = err
		harvest.ErrorMessage = err.Error()
		harvest.FinishedAt = time.Now().UTC()
		return harvest, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = crawler.PoliteSleep
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewCollectStep(deps.Backend,
			WithSeeds(cfg.Seeds),
			WithCategories(cfg.Categories),
			WithMaxResultsPerQuery(cfg.MaxResultsPerQuery),
			WithCollectDelay(cfg.MinDelay, cfg.MaxDelay, sleep),
			WithCollectMetrics(deps.Metrics),
			WithCollectLogger(logger),
		),
		NewScanStep(pageProcessorFactory(cfg, deps, sleep, logger), deps.Fetcher, scanOptions(cfg, deps, logger)...),
		NewVerifyStep(deps.Verifier,
			WithVerification(cfg.VerificationEnabled()),
			WithPreview(cfg.PreviewMode()),
			WithMaxVerifications(cfg.MaxHunterVerifications),
			WithVerifyDelay(cfg.MinDelay, cfg.MaxDelay, sleep),
			WithVerifyMetrics(deps.Metrics),
			WithVerifyLogger(logger),
		),
		NewAssembleStep(deps.MX,
			WithClock(deps.Clock),
			WithAssembleDelay(cfg.MinDelay, cfg.MaxDelay, sleep),
			WithAssembleProgress(progressWriter(cfg, deps)),
			WithAssembleMetrics(deps.Metrics),
			WithAssembleLogger(logger),
		),
	)

	logger.Debug("harvest pipeline ready", "steps", p.StepNames())

	err := p.Execute(ctx, harvest)
	harvest.FinishedAt = time.Now().UTC()
	return harvest, err
}

// pageProcessorFactory wires the config into a page processor builder.
func pageProcessorFactory(cfg *config.Config, deps Dependencies, sleep crawler.SleepFunc, logger *slog.Logger) func(crawler.Fetcher) Processor {
	opts := []crawler.ProcessorOption{
		crawler.WithSleep(sleep),
		crawler.WithDelay(cfg.MinDelay, cfg.MaxDelay),
		crawler.WithProcessorLogger(logger),
	}
	if cfg.UseHunterDomainSearch && cfg.HunterKey != "" && deps.Verifier != nil {
		opts = append(opts, crawler.WithDomainSearch(deps.Verifier))
	}

	return func(f crawler.Fetcher) Processor {
		return crawler.NewPageProcessor(f, opts...)
	}
}

func scanOptions(cfg *config.Config, deps Dependencies, logger *slog.Logger) []ScanStepOption {
	opts := []ScanStepOption{
		WithWorkers(cfg.Workers),
		WithStableAttribution(cfg.StableAttribution),
		WithScanMetrics(deps.Metrics),
		WithScanLogger(logger),
	}
	if cfg.UseSelenium {
		opts = append(opts, WithBrowser(deps.Browser))
	} else {
		opts = append(opts, WithScanProgress(progressWriter(cfg, deps)))
	}
	return opts
}

// progressWriter returns nil when progress bars are disabled.
func progressWriter(cfg *config.Config, deps Dependencies) io.Writer {
	if !cfg.ShowProgress || cfg.UseSelenium {
		return nil
	}
	return deps.Progress
}
