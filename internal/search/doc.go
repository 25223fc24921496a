// Package search turns target categories into candidate page URLs.
//
// Queries are built per category and sent through a fallback chain of
// providers: SerpAPI when a key is configured, then Bing Web Search when a
// key is configured, then DuckDuckGo's keyless HTML endpoint. The first
// provider returning any result wins. Provider failures never surface as
// errors; they are logged and the next provider is tried.
package search
