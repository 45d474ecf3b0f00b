package gateway

import (
	"context"
	"time"
)

// Retry defaults, used when no policy is configured.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 500 * time.Millisecond
)

// RetryPolicy decides how many times a request may be attempted and how
// long to wait between attempts. It is independent of the HTTP
// mechanics so it can be tested on its own.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	// Backoff returns the delay applied before attempt number
	// attempt (1-based, so the first retry sees attempt == 1).
	// A nil Backoff means no delay between attempts.
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy returns the policy used when the caller does not
// supply one: 3 attempts with exponential backoff.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     ExponentialBackoff(DefaultBackoffBase),
	}
}

// ExponentialBackoff returns a backoff function producing
// base, 2*base, 4*base, ... for successive retries.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

// run executes fn up to the policy's attempt budget. Only failures
// that report Retryable() are re-attempted; everything else is
// surfaced immediately. After the budget is exhausted the last
// classified error is returned as-is, never wrapped in a generic
// "retries exhausted" message.
func (p RetryPolicy) run(ctx context.Context, fn func() *Error) *Error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last *Error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && p.Backoff != nil {
			select {
			case <-time.After(p.Backoff(attempt)):
			case <-ctx.Done():
				return &Error{
					Kind:    KindTransient,
					Message: ctx.Err().Error(),
					cause:   ctx.Err(),
				}
			}
		}

		last = fn()
		if last == nil {
			return nil
		}
		if !last.Retryable() {
			return last
		}
	}

	return last
}
