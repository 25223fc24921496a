package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// Provider credentials
	"serpapi_key": true,
	"bing_key":    true,
	"hunter_key":  true,
	"api_key":     true,
	"apikey":      true,
	"api-key":     true,

	// HTTP headers
	"authorization":             true,
	"proxy-authorization":       true,
	"cookie":                    true,
	"set-cookie":                true,
	"x-api-key":                 true,
	"ocp-apim-subscription-key": true,

	// Generic secrets
	"password":     true,
	"secret":       true,
	"token":        true,
	"access_token": true,
	"session":      true,
	"session_id":   true,
}

// sensitiveKeywords mark a key as sensitive when contained in it. A bare
// "key" is not among them, so "cache_key" or "keyword" stay readable.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "subscription",
}

// sensitivePatterns mask a whole string value regardless of its key.
var sensitivePatterns = []*regexp.Regexp{
	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Bare API keys: SerpApi keys are 64 hex characters, Hunter keys 40 and
	// Bing keys 32.
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

// urlSecretPattern matches credential query parameters inside longer strings
// such as request URLs and the errors that quote them.
var urlSecretPattern = regexp.MustCompile(`(?i)\b(api_key|apikey|key|subscription-key)=[^&\s"']+`)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks credentials before records
// reach it.
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the message and attributes and passes the record on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, MaskURLSecrets(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes sanitized and
// added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursing into groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		value := a.Value.String()
		if isSensitiveValue(value) {
			return slog.String(a.Key, MaskValue)
		}
		return slog.String(a.Key, MaskURLSecrets(value))
	case slog.KindAny:
		// Errors often quote the request URL.
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, MaskURLSecrets(err.Error()))
		}
	}

	return a
}

// MaskURLSecrets replaces the values of credential query parameters in s.
func MaskURLSecrets(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	return urlSecretPattern.ReplaceAllString(s, "${1}="+MaskValue)
}

// containsSensitiveKeyword checks if the key contains a sensitive keyword.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Level maps the CLI verbosity flags to a log level: Debug when verbose,
// Warn when quiet and Info otherwise. Verbose wins over quiet.
func Level(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewSecureLogger creates a text logger writing to w at the given level.
func NewSecureLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(handler))
}

// NewSecureJSONLogger creates a JSON logger writing to w at the given level.
func NewSecureJSONLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(handler))
}
