package notion

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// defaultMinSpacing and defaultConcurrency are spec.md §4.3's defaults:
// ~3 req/s minimum spacing, bounded to 3 in-flight requests.
const (
	defaultMinSpacing  = 340 * time.Millisecond
	defaultConcurrency = 3
)

// Limiter is the single process-wide gate every outbound call in a workspace
// passes through: a bounded-concurrency semaphore paired with a minimum-
// spacing rate limiter, grounded on the teacher's BandwidthLimiter
// (golang.org/x/time/rate wrapped in a small nil-safe struct) generalized
// with a golang.org/x/sync/semaphore gate for the concurrency half, since
// bandwidth.go only throttled byte counts, not request concurrency.
type Limiter struct {
	sem     *semaphore.Weighted
	spacing *rate.Limiter
}

// NewLimiter builds a Limiter with spec.md §4.3's defaults. concurrency and
// minSpacing of zero fall back to the defaults.
func NewLimiter(concurrency int64, minSpacing time.Duration) *Limiter {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	if minSpacing <= 0 {
		minSpacing = defaultMinSpacing
	}

	return &Limiter{
		sem:     semaphore.NewWeighted(concurrency),
		spacing: rate.NewLimiter(rate.Every(minSpacing), 1),
	}
}

// Acquire blocks until both a concurrency slot and a spacing token are
// available, or ctx is done. release must be called exactly once, after the
// guarded call completes, to free the concurrency slot.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("notion: acquiring concurrency slot: %w", err)
	}

	if err := l.spacing.Wait(ctx); err != nil {
		l.sem.Release(1)
		return nil, fmt.Errorf("notion: waiting for request spacing: %w", err)
	}

	return func() { l.sem.Release(1) }, nil
}
