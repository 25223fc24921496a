package crawler

import (
	"context"
	"math/rand/v2"
	"time"
)

// SleepFunc blocks the calling goroutine for a politeness delay between
// minDelay and maxDelay seconds. Implementations return early when ctx is
// cancelled.
type SleepFunc func(ctx context.Context, minDelay, maxDelay float64)

// PoliteSleep waits a uniformly random duration in [minDelay, maxDelay]
// seconds, or until ctx is done.
func PoliteSleep(ctx context.Context, minDelay, maxDelay float64) {
	d := RandomDelay(minDelay, maxDelay)
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// RandomDelay picks a uniformly random duration in [minDelay, maxDelay]
// seconds. Swapped or negative bounds are tolerated.
func RandomDelay(minDelay, maxDelay float64) time.Duration {
	if maxDelay < minDelay {
		minDelay, maxDelay = maxDelay, minDelay
	}
	if maxDelay <= 0 {
		return 0
	}
	if minDelay < 0 {
		minDelay = 0
	}
	seconds := minDelay + rand.Float64()*(maxDelay-minDelay) //nolint:gosec // Jitter does not need a CSPRNG
	return time.Duration(seconds * float64(time.Second))
}

// NoSleep is a SleepFunc that never waits.
func NoSleep(context.Context, float64, float64) {}
