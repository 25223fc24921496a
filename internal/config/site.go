package config

import "strings"

// SiteConfig holds request settings for one host.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent for this host.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Skip excludes the host from fetching entirely.
	Skip bool `yaml:"skip,omitempty"`
}

// HarvestDefaults supplies flag defaults from the config file.
// Zero values mean "not set" and leave the built-in default in place.
type HarvestDefaults struct {
	Workers                int     `yaml:"workers,omitempty"`
	MinDelay               float64 `yaml:"minDelay,omitempty"`
	MaxDelay               float64 `yaml:"maxDelay,omitempty"`
	MaxResultsPerQuery     int     `yaml:"maxResultsPerQuery,omitempty"`
	MaxHunterVerifications int     `yaml:"maxHunterVerifications,omitempty"`
	Output                 string  `yaml:"output,omitempty"`
	Format                 string  `yaml:"format,omitempty"`
	UserAgent              string  `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .emailharvester configuration file.
type File struct {
	// Harvest contains flag defaults.
	Harvest HarvestDefaults `yaml:"harvest,omitempty"`

	// Sites maps host names to their site-specific settings.
	// Keys are bare hosts such as "example.com"; a "www." prefix on the
	// requested host is ignored when matching.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// GetSiteConfig returns the settings for host merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		merged := make(map[string]string, len(result.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	host = strings.ToLower(host)
	site, ok := cf.Sites[host]
	if !ok {
		site, ok = cf.Sites[strings.TrimPrefix(host, "www.")]
	}
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Skip {
		result.Skip = true
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}

	return result
}
