package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines a named, documented retry configuration.
type RetryPolicy struct {
	// Name identifies this policy for logging/debugging
	Name string

	// MaxRetries is the maximum number of retry attempts (0 = no retries)
	MaxRetries int

	// InitDelay is the initial delay before first retry
	InitDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier for exponential backoff (e.g., 2.0 = double each time)
	Multiplier float64

	// Jitter adds randomness to prevent thundering herd (0.0-1.0)
	Jitter float64

	// ShouldRetry is an optional function to determine if an error should be retried
	// If nil, uses the default IsPermanentError check
	ShouldRetry func(error) bool
}

// Predefined policies.
var (
	// NoRetry disables retries entirely. Used for the dispatch and wait
	// calls, where a timeout is a first-class outcome rather than a failure.
	NoRetry = RetryPolicy{
		Name:       "no-retry",
		MaxRetries: 0,
	}

	// QuickRetry for the best-effort collaborator calls (session lookup,
	// notification send) that may hit transient network failures.
	QuickRetry = RetryPolicy{
		Name:       "quick-retry",
		MaxRetries: 2,
		InitDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
)

// ToConfig converts a RetryPolicy to RetryConfig for use with Retry functions.
func (p RetryPolicy) ToConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: p.MaxRetries,
		InitDelay:  p.InitDelay,
		MaxDelay:   p.MaxDelay,
		Multiplier: p.Multiplier,
		Jitter:     p.Jitter,
	}
}

// Execute runs a function with this retry policy.
func (p RetryPolicy) Execute(ctx context.Context, fn RetryFunc) error {
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(err error) bool {
			return !IsPermanentError(err)
		}
	}

	return RetryWithCheck(ctx, p.ToConfig(), fn, shouldRetry)
}
