package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"
)

// ErrWaitBudgetExceeded is returned when the next wait would push the
// cumulative time spent waiting past RetryConfig.MaxTotalWait.
var ErrWaitBudgetExceeded = errors.New("retry wait budget exceeded")

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxRetries   int
	InitialWait  time.Duration
	MaxWait      time.Duration // cap on a single wait
	MaxTotalWait time.Duration // cap on cumulative waiting, 0 = unlimited
	Multiplier   float64

	// Retryable decides whether an error is worth another attempt.
	// nil means isRetryable (transient network errors and wait hints).
	Retryable func(error) bool
}

// DefaultRetryConfig is suitable for most HTTP calls.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// RetryAfterError asks RetryDo to wait exactly Wait (capped by MaxWait)
// before the next attempt instead of using exponential backoff.
type RetryAfterError struct {
	Wait time.Duration
	Err  error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.Wait, e.Err)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

// RetryDo retries fn up to MaxRetries times with exponential backoff, or with the
// wait carried by a *RetryAfterError. Returns immediately on non-retryable errors
// or context cancellation. No wait happens after the final attempt.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	var waited time.Duration

	retryable := rc.Retryable
	if retryable == nil {
		retryable = isRetryable
	}

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}

		if attempt < rc.MaxRetries {
			wait := backoffWait(rc, attempt, err)
			if rc.MaxTotalWait > 0 && wait > rc.MaxTotalWait-waited {
				return zero, fmt.Errorf("%w: %w", ErrWaitBudgetExceeded, err)
			}
			waited += wait
			slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// backoffWait picks the wait before the attempt following attempt.
func backoffWait(rc RetryConfig, attempt int, err error) time.Duration {
	var wait time.Duration
	var hint *RetryAfterError
	if errors.As(err, &hint) {
		wait = hint.Wait
	} else {
		wait = ScaleDuration(math.Pow(rc.Multiplier, float64(attempt)), rc.InitialWait)
	}
	if wait < 0 {
		wait = 0
	}
	if rc.MaxWait > 0 && wait > rc.MaxWait {
		wait = rc.MaxWait
	}
	return wait
}

// ScaleDuration returns f*unit, saturating at the largest Duration instead of
// overflowing. NaN and non-positive products give 0.
func ScaleDuration(f float64, unit time.Duration) time.Duration {
	d := f * float64(unit)
	switch {
	case math.IsNaN(d) || d <= 0:
		return 0
	case d >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// isRetryable returns true for transient errors worth retrying.
func isRetryable(err error) bool {
	var hint *RetryAfterError
	if errors.As(err, &hint) {
		return true
	}

	// Connection errors (dial failures, connection refused, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Timeout errors (net.Error includes OpError, so check after OpError)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRetryAfter reports whether err carries a server-provided wait hint.
func IsRetryAfter(err error) bool {
	var hint *RetryAfterError
	return errors.As(err, &hint)
}
