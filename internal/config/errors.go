package config

import (
	"fmt"

	"github.com/nao1215/emailharvester/internal/model"
)

// Configuration validation errors.
// Each wraps model.ErrConfig so callers can map every validation failure
// to the configuration exit code with a single errors.Is check.
var (
	// ErrNoSource is returned when neither categories nor seeds are given.
	ErrNoSource = fmt.Errorf("%w: provide --categories/--categories-file or --seeds-file", model.ErrConfig)

	// ErrInvalidWorkers is returned when the worker count is below one.
	ErrInvalidWorkers = fmt.Errorf("%w: workers must be >= 1", model.ErrConfig)

	// ErrNegativeDelay is returned when either delay bound is negative.
	ErrNegativeDelay = fmt.Errorf("%w: delays must be non-negative", model.ErrConfig)

	// ErrDelayOrder is returned when min-delay exceeds max-delay.
	ErrDelayOrder = fmt.Errorf("%w: min-delay must be <= max-delay", model.ErrConfig)

	// ErrInvalidMaxResults is returned when max-results-per-query is below one.
	ErrInvalidMaxResults = fmt.Errorf("%w: max-results-per-query must be >= 1", model.ErrConfig)

	// ErrInvalidMaxVerifications is returned when the verification cap is negative.
	ErrInvalidMaxVerifications = fmt.Errorf("%w: max-hunter-verifications must be >= 0", model.ErrConfig)

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = fmt.Errorf("%w: timeout must be positive", model.ErrConfig)

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = fmt.Errorf("%w: max body size must be non-negative", model.ErrConfig)

	// ErrConflictingTransport is returned when both --tor and --proxy are set.
	ErrConflictingTransport = fmt.Errorf("%w: --tor and --proxy cannot be used together", model.ErrConfig)

	// ErrUnknownFormat is returned for an unsupported export format.
	ErrUnknownFormat = fmt.Errorf("%w: format must be one of csv, json, xlsx", model.ErrConfig)

	// ErrUnknownSummary is returned for an unsupported summary style.
	ErrUnknownSummary = fmt.Errorf("%w: summary must be one of text, markdown, none", model.ErrConfig)
)
