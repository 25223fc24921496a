package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/database"
	"github.com/nao1215/emailharvester/internal/fetcher"
	"github.com/nao1215/emailharvester/internal/hunter"
	"github.com/nao1215/emailharvester/internal/log"
	"github.com/nao1215/emailharvester/internal/metrics"
	"github.com/nao1215/emailharvester/internal/model"
	"github.com/nao1215/emailharvester/internal/mx"
	"github.com/nao1215/emailharvester/internal/pipeline"
	"github.com/nao1215/emailharvester/internal/report"
	"github.com/nao1215/emailharvester/internal/search"
)

// Environment variables consulted when the matching key flag is empty.
const (
	envSerpAPIKey = "SERPAPI_KEY"
	envBingKey    = "BING_API_KEY"
	envHunterKey  = "HUNTER_API_KEY"
)

// NewHarvestCmd creates the harvest command.
func NewHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Find, verify and export contact email addresses",
		Long: `Harvest runs the full pipeline: collect candidate URLs, scan the pages and
their contact pages for addresses, optionally verify them with Hunter.io,
check MX records and write one scored row per address.

Examples:
  # Search three queries per category and write emails_output.csv
  emailharvester harvest -C "plumbers denver" -C "electricians denver"

  # Skip search and scan a list of URLs
  emailharvester harvest --seeds-file seeds.txt -o out.json -f json

  # Show how many Hunter verifications would run, without spending credits
  emailharvester harvest -C dentists --use-hunter

  # Actually run up to 20 Hunter verifications
  emailharvester harvest -C dentists --use-hunter --yes-run-hunter --max-hunter-verifications 20

  # Route page fetches through an embedded Tor daemon
  emailharvester harvest --seeds-file seeds.txt --tor

Configuration file (.emailharvester) example:
  harvest:
    workers: 4
    minDelay: 1.5
    maxDelay: 3
  sites:
    example.com:
      cookie: "consent=yes"
      headers:
        Accept-Language: "en-US"`,
		Args: cobra.NoArgs,
		RunE: runHarvestCmd,
	}

	// Sources
	cmd.Flags().StringSliceP("categories", "C", nil,
		"Category keywords (repeatable, comma separated)")
	cmd.Flags().String("categories-file", "",
		"File with one category per line")
	cmd.Flags().StringP("seeds-file", "s", "",
		"File with one seed URL per line (skips search)")

	// Providers
	cmd.Flags().String("serpapi-key", "",
		"SerpAPI key (or set "+envSerpAPIKey+")")
	cmd.Flags().String("bing-key", "",
		"Bing Web Search key (or set "+envBingKey+")")
	cmd.Flags().Bool("use-selenium", false,
		"Fetch pages with a headless browser (single-threaded)")
	cmd.Flags().Bool("use-hunter", false,
		"Enable Hunter.io verification")
	cmd.Flags().String("hunter-key", "",
		"Hunter.io key (or set "+envHunterKey+")")
	cmd.Flags().Bool("use-hunter-domain-search", false,
		"Ask Hunter.io for the addresses of every scanned domain")
	cmd.Flags().Bool("preview-hunter-costs", false,
		"Report how many verifications would run without calling Hunter.io")
	cmd.Flags().Int("max-hunter-verifications", config.DefaultMaxHunterVerifications,
		"Upper limit for Hunter.io verification calls")
	cmd.Flags().Bool("yes-run-hunter", false,
		"Confirm that Hunter.io verification calls may be made")

	// Output
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Output file path")
	cmd.Flags().StringP("format", "f", config.FormatCSV,
		"Output format: csv, json or xlsx")
	cmd.Flags().String("summary", config.SummaryText,
		"Run summary on stdout: text, markdown or none")

	// Crawl tuning
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent page workers")
	cmd.Flags().Float64("min-delay", config.DefaultMinDelay,
		"Minimum politeness delay in seconds")
	cmd.Flags().Float64("max-delay", config.DefaultMaxDelay,
		"Maximum politeness delay in seconds")
	cmd.Flags().Int("max-results-per-query", config.DefaultMaxResultsPerQuery,
		"Search results taken per query")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")

	// Transport
	cmd.Flags().String("proxy", "",
		"Route page fetches through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Route page fetches through an embedded Tor daemon")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Run
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .emailharvester in current or home directory)")
	cmd.Flags().Bool("no-progress", false,
		"Disable progress bars")
	cmd.Flags().Bool("no-archive", false,
		"Do not record the run in the run archive")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run archive database")
	cmd.Flags().Bool("stable-attribution", false,
		"Merge page results in candidate order so first_seen_source is reproducible")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address during the run (e.g. :9090)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in text format to this file after the run")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")
	cmd.Flags().BoolP("quiet", "q", false,
		"Only log warnings and errors")

	return cmd
}

// runHarvestCmd executes the harvest command.
func runHarvestCmd(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := buildConfig(cmd, logger)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := newTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	recorder := metrics.NewRecorder()
	deps := newDependencies(cfg, tr, recorder, cmd.ErrOrStderr(), logger)

	return executeHarvest(ctx, cfg, deps, cmd.OutOrStdout(), logger)
}

// newLogger builds the secure logger selected by the logging flags.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, err
	}
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	level := log.Level(getVerboseFlag(cmd), quiet)
	if logJSON {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), level), nil
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), level), nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the config file and the command flags.
// Flags given on the command line win over the config file's harvest section.
func buildConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadSites(cfg); err != nil {
		return nil, err
	}

	if err := readSources(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.SerpAPIKey, err = flagOrEnv(cmd, "serpapi-key", envSerpAPIKey)
	if err != nil {
		return nil, err
	}
	cfg.BingKey, err = flagOrEnv(cmd, "bing-key", envBingKey)
	if err != nil {
		return nil, err
	}
	cfg.HunterKey, err = flagOrEnv(cmd, "hunter-key", envHunterKey)
	if err != nil {
		return nil, err
	}

	if err := readHunterFlags(cmd, cfg, logger); err != nil {
		return nil, err
	}

	cfg.UseSelenium, err = flags.GetBool("use-selenium")
	if err != nil {
		return nil, err
	}

	cfg.Output, err = flags.GetString("output")
	if err != nil {
		return nil, err
	}
	cfg.Format, err = flags.GetString("format")
	if err != nil {
		return nil, err
	}
	cfg.Summary, err = flags.GetString("summary")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = flags.GetInt("workers")
	if err != nil {
		return nil, err
	}
	cfg.MinDelay, err = flags.GetFloat64("min-delay")
	if err != nil {
		return nil, err
	}
	cfg.MaxDelay, err = flags.GetFloat64("max-delay")
	if err != nil {
		return nil, err
	}
	cfg.MaxResultsPerQuery, err = flags.GetInt("max-results-per-query")
	if err != nil {
		return nil, err
	}
	cfg.Timeout, err = flags.GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = flags.GetString("proxy")
	if err != nil {
		return nil, err
	}
	cfg.UseTor, err = flags.GetBool("tor")
	if err != nil {
		return nil, err
	}
	cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout")
	if err != nil {
		return nil, err
	}

	noProgress, err := flags.GetBool("no-progress")
	if err != nil {
		return nil, err
	}
	cfg.ShowProgress = !noProgress

	noArchive, err := flags.GetBool("no-archive")
	if err != nil {
		return nil, err
	}
	cfg.Archive = !noArchive

	cfg.DBDir, err = flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	cfg.StableAttribution, err = flags.GetBool("stable-attribution")
	if err != nil {
		return nil, err
	}
	cfg.MetricsAddr, err = flags.GetString("metrics-addr")
	if err != nil {
		return nil, err
	}
	cfg.MetricsFile, err = flags.GetString("metrics-file")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	applyFileDefaults(cmd, cfg)

	return cfg, nil
}

// loadSites loads the configuration file into cfg.Sites. A missing file is
// only an error when its path was given explicitly.
func loadSites(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: configuration file not found: %s", model.ErrConfig, cfg.ConfigFilePath)
		}
		return nil
	}

	sites, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to load config file %s: %w", model.ErrConfig, path, err)
	}
	cfg.Sites = sites
	return nil
}

// readSources fills categories and seeds from the flags and input files.
func readSources(cmd *cobra.Command, cfg *config.Config) error {
	categories, err := cmd.Flags().GetStringSlice("categories")
	if err != nil {
		return err
	}
	categoriesFile, err := cmd.Flags().GetString("categories-file")
	if err != nil {
		return err
	}
	seedsFile, err := cmd.Flags().GetString("seeds-file")
	if err != nil {
		return err
	}

	if len(categories) > 0 && categoriesFile != "" {
		return fmt.Errorf("%w: --categories and --categories-file are mutually exclusive", model.ErrConfig)
	}

	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			cfg.Categories = append(cfg.Categories, c)
		}
	}
	if categoriesFile != "" {
		if cfg.Categories, err = config.LoadLines(categoriesFile); err != nil {
			return err
		}
	}
	if seedsFile != "" {
		if cfg.Seeds, err = config.LoadLines(seedsFile); err != nil {
			return err
		}
	}
	return nil
}

// flagOrEnv returns the flag value, falling back to the environment.
func flagOrEnv(cmd *cobra.Command, name, env string) (string, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", err
	}
	if value == "" {
		value = os.Getenv(env)
	}
	return value, nil
}

// readHunterFlags applies the Hunter mode flags. Modes that need a key are
// switched off with a warning when none was found.
func readHunterFlags(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	flags := cmd.Flags()

	useHunter, err := flags.GetBool("use-hunter")
	if err != nil {
		return err
	}
	useDomainSearch, err := flags.GetBool("use-hunter-domain-search")
	if err != nil {
		return err
	}
	cfg.PreviewHunterCosts, err = flags.GetBool("preview-hunter-costs")
	if err != nil {
		return err
	}
	cfg.YesRunHunter, err = flags.GetBool("yes-run-hunter")
	if err != nil {
		return err
	}
	cfg.MaxHunterVerifications, err = flags.GetInt("max-hunter-verifications")
	if err != nil {
		return err
	}

	if useHunter && cfg.HunterKey == "" {
		logger.Warn("--use-hunter was provided but no Hunter key was found. Set " + envHunterKey + " or pass --hunter-key.")
	}
	if useDomainSearch && cfg.HunterKey == "" {
		logger.Warn("Hunter domain search requested without key; domain search will be disabled.")
	}
	cfg.UseHunter = useHunter && cfg.HunterKey != ""
	cfg.UseHunterDomainSearch = useDomainSearch && cfg.HunterKey != ""

	if useHunter && !cfg.PreviewHunterCosts && !cfg.YesRunHunter {
		logger.Info("Hunter enabled without --yes-run-hunter. Running in preview mode.")
	}
	return nil
}

// applyFileDefaults copies the config file's harvest section into cfg for
// every flag the user did not set.
func applyFileDefaults(cmd *cobra.Command, cfg *config.Config) {
	if cfg.Sites == nil {
		return
	}
	file := cfg.Sites.Harvest
	unset := func(name string) bool { return !cmd.Flags().Changed(name) }

	if file.Workers > 0 && unset("workers") {
		cfg.Workers = file.Workers
	}
	if file.MinDelay > 0 && unset("min-delay") {
		cfg.MinDelay = file.MinDelay
	}
	if file.MaxDelay > 0 && unset("max-delay") {
		cfg.MaxDelay = file.MaxDelay
	}
	if file.MaxResultsPerQuery > 0 && unset("max-results-per-query") {
		cfg.MaxResultsPerQuery = file.MaxResultsPerQuery
	}
	if file.MaxHunterVerifications > 0 && unset("max-hunter-verifications") {
		cfg.MaxHunterVerifications = file.MaxHunterVerifications
	}
	if file.Output != "" && unset("output") {
		cfg.Output = file.Output
	}
	if file.Format != "" && unset("format") {
		cfg.Format = file.Format
	}
	if file.UserAgent != "" {
		cfg.UserAgent = file.UserAgent
	}
}

// newDependencies wires the production collaborators of a run.
func newDependencies(cfg *config.Config, tr *transport, recorder *metrics.Recorder, progress io.Writer, logger *slog.Logger) pipeline.Dependencies {
	deps := pipeline.Dependencies{
		Backend: search.NewFallbackBackend(
			search.WithSerpAPIKey(cfg.SerpAPIKey),
			search.WithBingKey(cfg.BingKey),
			search.WithUserAgent(cfg.UserAgent),
			search.WithLogger(logger),
		),
		Fetcher: fetcher.NewHTTPFetcher(
			fetcher.WithHTTPClient(tr.HTTPClient(cfg.Timeout)),
			fetcher.WithUserAgent(cfg.UserAgent),
			fetcher.WithMaxBodySize(cfg.MaxBodySize),
			fetcher.WithSites(cfg.Sites),
			fetcher.WithLogger(logger),
		),
		Browser: func(ctx context.Context) (pipeline.BrowserFetcher, error) {
			b, err := fetcher.NewBrowserFetcher(ctx, cfg.UserAgent, tr.SocksAddr(), cfg.Timeout, logger)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		MX:       mx.NewChecker(mx.WithLogger(logger)),
		Metrics:  recorder,
		Progress: progress,
		Logger:   logger,
	}

	if cfg.UseHunter || cfg.UseHunterDomainSearch {
		deps.Verifier = hunter.NewClient(cfg.HunterKey, hunter.WithLogger(logger))
	}

	return deps
}

// executeHarvest runs the pipeline and publishes its results: the export
// file, the summary on stdout, the run archive and the metrics.
//
// Rows are exported when the run succeeded or produced rows before it was
// interrupted, so an early interrupt does not truncate a previous export.
func executeHarvest(ctx context.Context, cfg *config.Config, deps pipeline.Dependencies, stdout io.Writer, logger *slog.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" && deps.Metrics != nil {
		if err := deps.Metrics.Serve(runCtx, cfg.MetricsAddr, logger); err != nil {
			return err
		}
	}

	harvest, runErr := pipeline.Harvest(runCtx, cfg, deps)
	if errors.Is(runErr, model.ErrConfig) {
		return fmt.Errorf("configuration error: %w", runErr)
	}

	if runErr == nil || len(harvest.Rows) > 0 {
		if err := writeOutput(cfg, harvest, logger); err != nil {
			return err
		}
	}

	if err := writeSummary(cfg, harvest, stdout); err != nil {
		logger.Warn("failed to write summary", "error", err)
	}
	if harvest.Preview && harvest.VerificationCandidates > 0 && cfg.Summary != config.SummaryMarkdown {
		logger.Info("Re-run with --yes-run-hunter to perform the Hunter verifications.",
			"candidates", harvest.VerificationCandidates,
			"cap", cfg.MaxHunterVerifications,
		)
	}

	// The archive and metrics record interrupted runs too.
	archiveRun(context.WithoutCancel(ctx), cfg, harvest, logger)

	if cfg.MetricsFile != "" && deps.Metrics != nil {
		if err := deps.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics file", "path", cfg.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("harvest failed: %w", runErr)
	}
	return nil
}

// writeOutput exports the rows to cfg.Output in cfg.Format.
func writeOutput(cfg *config.Config, harvest *model.Harvest, logger *slog.Logger) (err error) {
	dir := filepath.Dir(cfg.Output)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Exports hold contact data, so only the owner may read them.
	f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	exporter, err := report.NewExporter(cfg.Format, f)
	if err != nil {
		return err
	}
	if _, err := exporter.Write(harvest); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.Output, err)
	}

	logger.Info(fmt.Sprintf("Wrote %d rows to %s", len(harvest.Rows), cfg.Output))
	return nil
}

// writeSummary prints the run summary in the configured style.
func writeSummary(cfg *config.Config, harvest *model.Harvest, stdout io.Writer) error {
	writer, err := report.NewSummaryWriter(cfg.Summary, stdout)
	if err != nil || writer == nil {
		return err
	}
	_, err = writer.Write(harvest)
	return err
}

// archiveRun records the run in the SQLite archive. Failures are logged and
// never fail the run.
func archiveRun(ctx context.Context, cfg *config.Config, harvest *model.Harvest, logger *slog.Logger) {
	if !cfg.Archive {
		return
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("failed to open run archive", "dir", cfg.DBDir, "error", err)
		return
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, harvest, database.ConfigDigest(cfg))
	if err != nil {
		logger.Warn("failed to archive run", "error", err)
		return
	}
	logger.Debug("run archived", "id", id, "path", db.Path())
}
