// Package fetcher retrieves page HTML for the harvester.
//
// HTTPFetcher is the default: a plain HTTP client that honours robots.txt,
// retries transient failures with exponential backoff and applies per-site
// request settings. BrowserFetcher renders pages in headless Chrome for
// sites that build their content with JavaScript; it owns one browser and is
// not safe for concurrent use.
//
// Every fetcher returns "" instead of an error when a page cannot be
// retrieved, is blocked by robots.txt, or has an unsupported URL, so one bad
// page never aborts a run.
package fetcher
