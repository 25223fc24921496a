package crawler

import (
	"net/url"
	"strings"
)

// IsSupportedURL reports whether raw is an absolute http(s) URL with a host.
func IsSupportedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NormalizeURLs trims, validates and deduplicates a URL list.
//
// Unsupported URLs are dropped. Two URLs are duplicates when they are equal
// after removing the query string and trailing slashes; the first occurrence
// is kept in its original form and order is preserved.
func NormalizeURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))

	for _, raw := range urls {
		value := strings.TrimSpace(raw)
		if !IsSupportedURL(value) {
			continue
		}
		key := dedupKey(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
	}

	return out
}

// dedupKey strips the query string and trailing slashes.
func dedupKey(value string) string {
	key, _, _ := strings.Cut(value, "?")
	return strings.TrimRight(key, "/")
}

// CanonicalizeURL resolves href against base and strips the fragment.
// It returns "" when either cannot be parsed.
func CanonicalizeURL(href, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref).String()
	resolved, _, _ = strings.Cut(resolved, "#")
	return resolved
}

// DomainFromURL returns the lowercased network location (host and optional
// port) of raw, or "" when it cannot be parsed.
func DomainFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
