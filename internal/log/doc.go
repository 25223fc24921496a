// Package log builds slog loggers that never print provider credentials.
//
// SecureHandler wraps any slog.Handler and masks:
//   - attributes whose key names a credential (serpapi_key, hunter_key,
//     authorization, cookie and similar)
//   - values that look like bearer tokens, basic auth or bare API keys
//   - api_key and subscription key parameters embedded in URLs, both in
//     attribute values and in the message
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, log.Level(verbose, quiet))
//	slog.SetDefault(logger)
package log
