package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "emailharvester"

	// DefaultUserAgent identifies the harvester in HTTP requests and is also
	// the agent name matched against robots.txt groups.
	DefaultUserAgent = "EmailHarvester/3.0 (+https://github.com/nao1215/emailharvester)"

	// DefaultTimeout bounds every single HTTP request.
	DefaultTimeout = 15 * time.Second

	// DefaultWorkers is the size of the page processing pool.
	DefaultWorkers = 8

	// DefaultMinDelay and DefaultMaxDelay bound the randomized politeness
	// delay, in seconds.
	DefaultMinDelay = 0.9
	DefaultMaxDelay = 2.2

	// DefaultMaxResultsPerQuery caps results taken from one search query.
	DefaultMaxResultsPerQuery = 12

	// DefaultMaxHunterVerifications caps paid verification calls per run.
	DefaultMaxHunterVerifications = 50

	// DefaultOutput is the default export path.
	DefaultOutput = "emails_output.csv"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Summary styles printed to stdout after a run.
const (
	SummaryText     = "text"
	SummaryMarkdown = "markdown"
	SummaryNone     = "none"
)

// Config holds all configuration options for one harvest run.
// It is populated from CLI flags (and the optional config file), validated
// once, and then treated as read-only by every component.
type Config struct {
	// Categories are the search keywords. Ignored when Seeds is non-empty.
	Categories []string

	// Seeds are explicit candidate URLs. When set, search is skipped.
	Seeds []string

	// SerpAPIKey enables the SerpAPI search provider.
	SerpAPIKey string

	// BingKey enables the Bing Web Search provider.
	BingKey string

	// HunterKey is the Hunter.io API key used for domain search and
	// email verification.
	HunterKey string

	// UseSelenium switches page fetching to a headless browser.
	// Page processing then runs sequentially on a single browser session.
	UseSelenium bool

	// UseHunter enables the verification pass.
	UseHunter bool

	// UseHunterDomainSearch asks the provider for addresses of every
	// scanned page's domain.
	UseHunterDomainSearch bool

	// PreviewHunterCosts reports how many verifications would run without
	// making any verification call.
	PreviewHunterCosts bool

	// YesRunHunter confirms that paid verification calls may be made.
	// Without it, the verification pass runs in preview mode.
	YesRunHunter bool

	// MaxHunterVerifications caps the number of verification calls.
	MaxHunterVerifications int

	// Output is the export file path.
	Output string

	// Format is the export format: csv, json or xlsx.
	Format string

	// Summary selects the run summary printed to stdout.
	Summary string

	// Workers is the number of concurrent page processing workers.
	Workers int

	// MinDelay and MaxDelay bound the politeness delay in seconds.
	MinDelay float64
	MaxDelay float64

	// MaxResultsPerQuery caps the URLs taken from each search query.
	MaxResultsPerQuery int

	// Timeout bounds every single HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every request and matched against robots.txt.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ShowProgress enables progress bars on stderr.
	ShowProgress bool

	// Verbose enables debug logging.
	Verbose bool

	// ProxyAddress routes page fetches through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes page fetches through it.
	// Mutually exclusive with ProxyAddress.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string

	// Sites holds per-site request settings loaded from the config file.
	Sites *File

	// Archive records the finished run in the SQLite run archive.
	Archive bool

	// DBDir is the directory of the run archive database.
	DBDir string

	// StableAttribution merges worker results in candidate order instead of
	// completion order, making first_seen_source reproducible.
	StableAttribution bool

	// MetricsAddr serves Prometheus metrics on this address during the run.
	MetricsAddr string

	// MetricsFile writes Prometheus metrics in text format after the run.
	MetricsFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxHunterVerifications: DefaultMaxHunterVerifications,
		Output:                 DefaultOutput,
		Format:                 FormatCSV,
		Summary:                SummaryText,
		Workers:                DefaultWorkers,
		MinDelay:               DefaultMinDelay,
		MaxDelay:               DefaultMaxDelay,
		MaxResultsPerQuery:     DefaultMaxResultsPerQuery,
		Timeout:                DefaultTimeout,
		UserAgent:              DefaultUserAgent,
		MaxBodySize:            DefaultMaxBodySize,
		ShowProgress:           true,
		TorStartupTimeout:      DefaultTorStartupTimeout,
		Sites:                  NewFile(),
		Archive:                true,
		DBDir:                  XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for the harvester.
// On Linux: ~/.local/share/emailharvester
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the harvester.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found; every returned error wraps
// model.ErrConfig.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 && len(c.Seeds) == 0 {
		return ErrNoSource
	}

	if c.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return ErrNegativeDelay
	}

	if c.MinDelay > c.MaxDelay {
		return ErrDelayOrder
	}

	if c.MaxResultsPerQuery < 1 {
		return ErrInvalidMaxResults
	}

	if c.MaxHunterVerifications < 0 {
		return ErrInvalidMaxVerifications
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingTransport
	}

	if !slices.Contains([]string{FormatCSV, FormatJSON, FormatXLSX}, c.Format) {
		return ErrUnknownFormat
	}

	if !slices.Contains([]string{SummaryText, SummaryMarkdown, SummaryNone}, c.Summary) {
		return ErrUnknownSummary
	}

	return nil
}

// PreviewMode reports whether the verification pass must not make calls.
func (c *Config) PreviewMode() bool {
	return c.PreviewHunterCosts || !c.YesRunHunter
}

// VerificationEnabled reports whether the verification pass can run at all.
func (c *Config) VerificationEnabled() bool {
	return c.UseHunter && c.HunterKey != ""
}
