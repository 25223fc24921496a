package hunter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/emailharvester/internal/model"
)

// DefaultBaseURL is the Hunter API root.
const DefaultBaseURL = "https://api.hunter.io/v2"

// DefaultPollInterval is the wait between polls of a pending verification.
const DefaultPollInterval = time.Second

// DefaultVerifyTimeout is how long a pending verification is polled.
const DefaultVerifyTimeout = 20 * time.Second

// DefaultRequestsPerSecond keeps the client under Hunter's documented limit.
const DefaultRequestsPerSecond = 10

// maxErrorBody caps the response body kept in error payloads.
const maxErrorBody = 4096

// Client calls the Hunter API. It is safe for concurrent use.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithPollInterval sets the wait between polls of a pending verification.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		pollInterval: DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// domainSearchResponse is the subset of the domain-search payload we read.
type domainSearchResponse struct {
	Data struct {
		Emails []json.RawMessage `json:"emails"`
	} `json:"data"`
}

// DomainSearch returns up to limit address items known for domain.
// Each item is the raw JSON object, carrying at least "value".
// Any failure yields an empty list.
func (c *Client) DomainSearch(ctx context.Context, domain string, limit int) []map[string]any {
	if domain == "" {
		return []map[string]any{}
	}

	params := url.Values{}
	params.Set("domain", domain)
	params.Set("api_key", c.apiKey)
	params.Set("limit", strconv.Itoa(limit))

	status, body, err := c.get(ctx, "/domain-search", params)
	if err == nil && (status < 200 || status > 299) {
		err = fmt.Errorf("%w: domain-search returned HTTP %d", model.ErrVerification, status)
	}
	if err != nil {
		c.logger.Debug("hunter domain-search failed", "domain", domain, "error", err)
		return []map[string]any{}
	}

	var payload domainSearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Debug("hunter domain-search returned invalid JSON", "domain", domain, "error", err)
		return []map[string]any{}
	}

	items := make([]map[string]any, 0, len(payload.Data.Emails))
	for _, raw := range payload.Data.Emails {
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

// verifyResponse is the envelope of the email-verifier payload.
type verifyResponse struct {
	Data json.RawMessage `json:"data"`
}

// VerifyEmail returns Hunter's verification payload for email.
//
// A 200 response yields the "data" object. A 202 response is polled when
// poll is true, until timeout elapses, after which {"status": "timeout"} is
// returned. Other statuses yield {"status": "error", "http_status", "body"},
// and transport failures yield {"status": "error", "exception"}.
func (c *Client) VerifyEmail(ctx context.Context, email string, poll bool, timeout time.Duration) model.Verification {
	params := url.Values{}
	params.Set("email", email)
	params.Set("api_key", c.apiKey)

	startedAt := time.Now()
	for {
		status, body, err := c.get(ctx, "/email-verifier", params)
		if err != nil {
			c.logger.Debug("hunter email-verifier failed", "email", email, "error", err)
			return model.Verification{
				"status":    model.VerificationStatusError,
				"exception": err.Error(),
			}
		}

		switch {
		case status == http.StatusOK:
			return decodeVerification(body)
		case status == http.StatusAccepted && poll:
			if time.Since(startedAt) > timeout {
				return model.Verification{"status": model.VerificationStatusTimeout}
			}
			if !c.wait(ctx) {
				return model.Verification{
					"status":    model.VerificationStatusError,
					"exception": ctx.Err().Error(),
				}
			}
		default:
			return model.Verification{
				"status":      model.VerificationStatusError,
				"http_status": status,
				"body":        string(body),
			}
		}
	}
}

// decodeVerification extracts the "data" object of a 200 response.
// Non-object data yields an empty payload.
func decodeVerification(body []byte) model.Verification {
	var envelope verifyResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return model.Verification{
			"status":    model.VerificationStatusError,
			"exception": fmt.Errorf("%w: invalid JSON: %w", model.ErrVerification, err).Error(),
		}
	}

	var data map[string]any
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data == nil {
		return model.Verification{}
	}
	return model.Verification(data)
}

// wait sleeps for the poll interval and reports whether ctx is still live.
func (c *Client) wait(ctx context.Context) bool {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// get performs a rate-limited GET and returns the status and body.
func (c *Client) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", model.ErrVerification, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to build request: %w", model.ErrVerification, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s", model.ErrVerification, redactError(err))
	}
	defer resp.Body.Close()

	limit := int64(maxErrorBody)
	if resp.StatusCode == http.StatusOK {
		limit = 10 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %w", model.ErrVerification, err)
	}
	return resp.StatusCode, body, nil
}

// redactError drops the request URL, which carries the API key, from
// transport errors.
func redactError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Op + ": " + urlErr.Err.Error()
	}
	return err.Error()
}
