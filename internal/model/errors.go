package model

import (
	"errors"
	"fmt"
)

// Error taxonomy for a harvest run.
// Every category wraps ErrHarvester so callers can match the whole family
// with a single errors.Is check.
var (
	// ErrHarvester is the root of all harvester errors.
	ErrHarvester = errors.New("harvester error")

	// ErrConfig reports invalid runtime parameters.
	// It is fatal and raised before any network activity.
	ErrConfig = fmt.Errorf("%w: invalid configuration", ErrHarvester)

	// ErrFetch reports a fetcher that could not be constructed or used,
	// for example when no browser is available for rendered fetching.
	ErrFetch = fmt.Errorf("%w: fetch failed", ErrHarvester)

	// ErrProvider reports a search provider failure.
	// It is only used internally; callers degrade to an empty result.
	ErrProvider = fmt.Errorf("%w: search provider failed", ErrHarvester)

	// ErrVerification reports a verification provider failure.
	// It is only used internally; callers degrade to an error-shaped payload.
	ErrVerification = fmt.Errorf("%w: verification failed", ErrHarvester)
)
