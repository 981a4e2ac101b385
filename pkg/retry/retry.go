// Package retry runs operations with a bounded number of attempts and
// exponential backoff between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMaxAttemptsExceeded is returned when every attempt failed with a retryable error
var ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")

// Policy configures retry behavior
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int
	// InitialDelay is the wait before the second attempt
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration
	// Multiplier grows the delay between consecutive attempts
	Multiplier float64
	// IsRetryable decides whether an error is worth another attempt.
	// When nil every error is retried.
	IsRetryable func(error) bool
}

// Once is the policy used for network signals: one retry after a short pause
func Once(isRetryable func(error) bool) Policy {
	return Policy{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		IsRetryable:  isRetryable,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.IsRetryable == nil {
		p.IsRetryable = func(error) bool { return true }
	}
	return p
}

// Backoff returns the delay to wait after the given failed attempt (1-based)
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. It always returns the number of attempts made.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, lastErr
			}
			return attempt - 1, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !p.IsRetryable(err) {
			return attempt, err
		}

		if attempt < p.MaxAttempts {
			timer := time.NewTimer(p.Backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, lastErr
			case <-timer.C:
			}
		}
	}

	return p.MaxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, p.MaxAttempts, lastErr)
}
