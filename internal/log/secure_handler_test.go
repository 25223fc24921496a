package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandler_SanitizesSensitiveKeys tests that sensitive keys are sanitized.
func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "serpapi key", key: "serpapi_key", value: "serp-value-1", wantMask: true},
		{name: "bing key", key: "bing_key", value: "bing-value-1", wantMask: true},
		{name: "hunter key", key: "hunter_key", value: "hunter-value-1", wantMask: true},
		{name: "uppercase cookie", key: "Cookie", value: "session=abc123", wantMask: true},
		{name: "bing subscription header", key: "Ocp-Apim-Subscription-Key", value: "sub-value-1", wantMask: true},
		{name: "keyword in key", key: "proxy_password", value: "hunter2", wantMask: true},
		{name: "email is kept", key: "email", value: "info@example.com", wantMask: false},
		{name: "url is kept", key: "url", value: "https://example.com/contact", wantMask: false},
		{name: "domain is kept", key: "domain", value: "example.com", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, slog.LevelDebug)

			logger.Info("test message", tt.key, tt.value)

			output := buf.String()
			if tt.wantMask {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected value to be masked, but found in output: %s", output)
				}
				if !strings.Contains(output, MaskValue) {
					t.Errorf("expected mask value in output, but not found: %s", output)
				}
			} else if !strings.Contains(output, tt.value) {
				t.Errorf("expected value %q in output: %s", tt.value, output)
			}
		})
	}
}

// TestSecureHandler_SanitizesSensitivePatterns tests value-based masking.
func TestSecureHandler_SanitizesSensitivePatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		wantMask bool
	}{
		{name: "bearer token", value: "Bearer abc.def.ghi", wantMask: true},
		{name: "basic auth", value: "Basic dXNlcm5hbWU6cGFzc3dvcmQ=", wantMask: true},
		{name: "bare hunter key", value: "0123456789abcdef0123456789abcdef01234567", wantMask: true},
		{name: "short status", value: "deliverable", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			NewSecureLogger(&buf, slog.LevelDebug).Info("test message", "data", tt.value)

			output := buf.String()
			if tt.wantMask == strings.Contains(output, tt.value) {
				t.Errorf("mask=%v mismatch for output: %s", tt.wantMask, output)
			}
		})
	}
}

// TestSecureHandler_MasksURLSecrets tests masking of credentials embedded in
// URLs, messages and errors.
func TestSecureHandler_MasksURLSecrets(t *testing.T) {
	t.Parallel()

	const secret = "s3cr3t-value"

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, slog.LevelDebug)

	logger.Warn("GET https://serpapi.com/search.json?q=x&api_key="+secret+" failed",
		"url", "https://api.hunter.io/v2/email-verifier?email=a@b.com&api_key="+secret,
		"error", errors.New(`Get "https://x.test/?key=`+secret+`": timeout`),
	)

	output := buf.String()
	if strings.Contains(output, secret) {
		t.Errorf("expected secrets to be masked: %s", output)
	}
	if !strings.Contains(output, "email=a@b.com") || !strings.Contains(output, "q=x") {
		t.Errorf("expected other parameters to be kept: %s", output)
	}
}

// TestMaskURLSecrets tests the URL masking helper.
func TestMaskURLSecrets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"https://a.test/?api_key=abc&q=1", "https://a.test/?api_key=" + MaskValue + "&q=1"},
		{"https://a.test/?KEY=abc", "https://a.test/?KEY=" + MaskValue},
		{"sort_key=abc", "sort_key=abc"},
		{"no parameters", "no parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := MaskURLSecrets(tt.in); got != tt.want {
				t.Errorf("MaskURLSecrets(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestLevel tests the verbosity mapping.
func TestLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		verbose, quiet bool
		want           slog.Level
	}{
		{false, false, slog.LevelInfo},
		{true, false, slog.LevelDebug},
		{false, true, slog.LevelWarn},
		{true, true, slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := Level(tt.verbose, tt.quiet); got != tt.want {
			t.Errorf("Level(%v, %v) = %v, want %v", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}

// TestSecureHandler_LogLevels tests that log levels are respected.
func TestSecureHandler_LogLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden_debug_message")
	logger.Info("shown_info_message")

	output := buf.String()
	if strings.Contains(output, "hidden_debug_message") {
		t.Errorf("debug message should be hidden: %s", output)
	}
	if !strings.Contains(output, "shown_info_message") {
		t.Errorf("info message should be shown: %s", output)
	}
}

// TestSecureHandler_WithAttrs tests that WithAttrs sanitizes attributes.
func TestSecureHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, slog.LevelDebug)

	logger.With("hunter_key", "secret123").Info("test message")

	output := buf.String()
	if strings.Contains(output, "secret123") {
		t.Errorf("expected key to be masked in WithAttrs: %s", output)
	}
}

// TestSecureHandler_WithGroup tests that grouped attributes are sanitized.
func TestSecureHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, slog.LevelDebug)

	logger.WithGroup("request").Info("test message",
		"url", "https://example.com",
		slog.Group("headers", "authorization", "Bearer abc"),
	)

	output := buf.String()
	if !strings.Contains(output, "https://example.com") {
		t.Errorf("expected url to be visible: %s", output)
	}
	if strings.Contains(output, "Bearer abc") {
		t.Errorf("expected authorization to be masked: %s", output)
	}
}

// TestNewSecureJSONLogger tests JSON logger creation.
func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSecureJSONLogger(&buf, slog.LevelDebug).Info("test message", "bing_key", "value-xyz")

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("expected JSON format, got: %s", output)
	}
	if strings.Contains(output, "value-xyz") {
		t.Errorf("expected key to be masked: %s", output)
	}
}

// TestContainsSensitiveKeyword tests the containsSensitiveKeyword helper.
func TestContainsSensitiveKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key      string
		expected bool
	}{
		{"user_password", true},
		{"api_token", true},
		{"auth_header", true},
		{"subscription_id", true},
		{"url", false},
		{"email", false},
		{"cache_key", false},
		{"keyword", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			if got := containsSensitiveKeyword(tt.key); got != tt.expected {
				t.Errorf("containsSensitiveKeyword(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

// TestNewSecureHandler_NilHandler tests that a nil handler falls back to the default.
func TestNewSecureHandler_NilHandler(t *testing.T) {
	t.Parallel()

	handler := NewSecureHandler(nil)
	if handler.handler == nil {
		t.Fatal("expected a fallback handler")
	}
	slog.New(handler).Debug("test message")
}
