package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nao1215/emailharvester/internal/model"
)

// TestNewConfig tests that NewConfig returns correct default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default workers is 8", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 8 {
			t.Errorf("expected 8, got %d", cfg.Workers)
		}
	})

	t.Run("default delays are 0.9 and 2.2", func(t *testing.T) {
		t.Parallel()
		if cfg.MinDelay != 0.9 || cfg.MaxDelay != 2.2 {
			t.Errorf("expected 0.9/2.2, got %v/%v", cfg.MinDelay, cfg.MaxDelay)
		}
	})

	t.Run("default max results per query is 12", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxResultsPerQuery != 12 {
			t.Errorf("expected 12, got %d", cfg.MaxResultsPerQuery)
		}
	})

	t.Run("default verification cap is 50", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxHunterVerifications != 50 {
			t.Errorf("expected 50, got %d", cfg.MaxHunterVerifications)
		}
	})

	t.Run("default output is emails_output.csv", func(t *testing.T) {
		t.Parallel()
		if cfg.Output != "emails_output.csv" || cfg.Format != FormatCSV {
			t.Errorf("unexpected output %q format %q", cfg.Output, cfg.Format)
		}
	})

	t.Run("verification is gated by default", func(t *testing.T) {
		t.Parallel()
		if cfg.UseHunter || cfg.YesRunHunter {
			t.Error("expected verification to be disabled")
		}
		if !cfg.PreviewMode() {
			t.Error("expected preview mode without --yes-run-hunter")
		}
	})
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Categories = []string{"dentist"}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := valid().Validate(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("seeds alone are valid", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Seeds = []string{"https://example.com"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("zero delays are valid", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.MinDelay, cfg.MaxDelay = 0, 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no categories or seeds", func(c *Config) { c.Categories = nil }, ErrNoSource},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative min delay", func(c *Config) { c.MinDelay = -1 }, ErrNegativeDelay},
		{"negative max delay", func(c *Config) { c.MaxDelay = -0.1 }, ErrNegativeDelay},
		{"min delay above max delay", func(c *Config) { c.MinDelay, c.MaxDelay = 3, 1 }, ErrDelayOrder},
		{"zero max results", func(c *Config) { c.MaxResultsPerQuery = 0 }, ErrInvalidMaxResults},
		{"negative verification cap", func(c *Config) { c.MaxHunterVerifications = -1 }, ErrInvalidMaxVerifications},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"tor and proxy", func(c *Config) { c.UseTor, c.ProxyAddress = true, "127.0.0.1:9050" }, ErrConflictingTransport},
		{"unknown format", func(c *Config) { c.Format = "parquet" }, ErrUnknownFormat},
		{"unknown summary", func(c *Config) { c.Summary = "html" }, ErrUnknownSummary},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, model.ErrConfig) {
				t.Errorf("expected error to wrap model.ErrConfig, got %v", err)
			}
		})
	}
}

// TestConfigPreviewMode tests the verification safety gate.
func TestConfigPreviewMode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		preview bool
		yes     bool
		want    bool
	}{
		{"confirmed run", false, true, false},
		{"not confirmed", false, false, true},
		{"explicit preview wins over confirmation", true, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			cfg.PreviewHunterCosts = tc.preview
			cfg.YesRunHunter = tc.yes
			if got := cfg.PreviewMode(); got != tc.want {
				t.Errorf("PreviewMode() = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestFileGetSiteConfig tests site configuration merging.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Cookie: "default=1", Headers: map[string]string{"X-A": "a"}},
			Sites:    map[string]SiteConfig{},
		}

		got := cf.GetSiteConfig("unknown.com")
		if got.Cookie != "default=1" || got.Headers["X-A"] != "a" {
			t.Errorf("unexpected config: %+v", got)
		}
	})

	t.Run("site settings override defaults and headers merge", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Headers: map[string]string{"X-A": "a", "X-B": "b"}, UserAgent: "ua"},
			Sites: map[string]SiteConfig{
				"example.com": {Headers: map[string]string{"X-B": "site"}, Cookie: "s=1", Skip: true},
			},
		}

		got := cf.GetSiteConfig("www.EXAMPLE.com")
		if got.Headers["X-A"] != "a" || got.Headers["X-B"] != "site" {
			t.Errorf("unexpected headers: %v", got.Headers)
		}
		if got.Cookie != "s=1" || !got.Skip || got.UserAgent != "ua" {
			t.Errorf("unexpected config: %+v", got)
		}
		if cf.Defaults.Headers["X-B"] != "b" {
			t.Error("merging must not mutate the defaults")
		}
	})
}

// TestLoadConfigFile tests YAML config loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("parses harvest defaults and sites", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `harvest:
  workers: 4
  minDelay: 0.5
  maxDelay: 1.5
sites:
  Example.COM:
    cookie: "a=b"
    headers:
      X-Token: "t"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Harvest.Workers != 4 || cf.Harvest.MinDelay != 0.5 || cf.Harvest.MaxDelay != 1.5 {
			t.Errorf("unexpected harvest defaults: %+v", cf.Harvest)
		}
		if cf.GetSiteConfig("example.com").Cookie != "a=b" {
			t.Error("expected site keys to be matched case-insensitively")
		}
	})

	t.Run("FindConfigFile returns explicit existing path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
		if got := FindConfigFile(path + ".missing"); got != "" {
			t.Errorf("expected empty path for missing file, got %q", got)
		}
	})
}

// TestLoadLines tests reading categories and seeds files.
func TestLoadLines(t *testing.T) {
	t.Parallel()

	t.Run("returns trimmed non-empty lines", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "seeds.txt")
		if err := os.WriteFile(path, []byte("  https://a.com \n\n\t\nhttps://b.com\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		got, err := LoadLines(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://a.com", "https://b.com"}
		if !slices.Equal(got, want) {
			t.Errorf("LoadLines() = %v, want %v", got, want)
		}
	})

	t.Run("missing file is a configuration error", func(t *testing.T) {
		t.Parallel()

		_, err := LoadLines(filepath.Join(t.TempDir(), "missing.txt"))
		if !errors.Is(err, model.ErrConfig) {
			t.Errorf("expected model.ErrConfig, got %v", err)
		}
	})
}
