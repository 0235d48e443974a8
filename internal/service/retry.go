package service

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/logger"
)

// RetryPolicy configures the bounded full-jitter retry wrapper used at
// the service boundary (spec.md §4.3). It is applied around any
// repository call that may fail with Conflict(retryable=true) or
// ServiceUnavailable(retryable=true) so that each retry re-executes the
// whole three-phase pipeline, including a fresh Phase 1 read.
type RetryPolicy struct {
	MaxAttempts int           // 1 initial + (MaxAttempts-1) retries; spec default 5
	BaseDelay   time.Duration // spec default 50ms
	MaxDelay    time.Duration // spec default 1000ms
}

// DefaultRetryPolicy returns the spec.md §4.3 defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: 1000 * time.Millisecond}
}

// WithRetry runs fn up to p.MaxAttempts times, retrying only on errors
// apperr.IsRetryable reports true for. The delay before attempt k (k=1
// is the first retry) is a uniformly random value in
// [0, min(MaxDelay, BaseDelay*2^k)] — full-jitter exponential backoff.
// Non-retryable errors and a context whose deadline would be exceeded by
// the next backoff are surfaced immediately.
func WithRetry[T any](ctx context.Context, log *logger.Logger, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := fullJitterDelay(p, attempt)
			if deadline, ok := ctx.Deadline(); ok && time.Now().Add(delay).After(deadline) {
				return zero, apperr.ServiceUnavailable("retry would exceed request deadline", false, lastErr)
			}
			if log != nil {
				log.WithAttempt(attempt + 1).WithDuration(delay).Debug("retrying after conflict")
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !apperr.IsRetryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

func fullJitterDelay(p RetryPolicy, attempt int) time.Duration {
	cap := float64(p.MaxDelay)
	exp := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	upper := math.Min(cap, exp)
	if upper <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(upper) + 1))
}
