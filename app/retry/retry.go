// Package retry holds the single retry policy shared by the document
// fetcher and the reasoning client integrations, parameterized per
// capability.
package retry

import (
	"context"
	"time"
)

type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // doubled after each failed attempt
	MaxDelay    time.Duration // backoff cap
}

// Decision tells Do whether a failed attempt should be retried, and the
// minimum delay before the next attempt (rate-limited calls ask for a
// longer wait than the backoff curve would give them).
type Decision struct {
	Retry    bool
	MinDelay time.Duration
}

// Do runs op up to MaxAttempts times, waiting between attempts with
// exponential backoff. classify inspects the error after each failed
// attempt; waiting honors context cancellation.
func (p Policy) Do(ctx context.Context, op func(context.Context) error, classify func(error) Decision) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		decision := classify(lastErr)
		if !decision.Retry || attempt == attempts-1 {
			return lastErr
		}

		wait := p.BaseDelay * (1 << uint(attempt))
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		if decision.MinDelay > wait {
			wait = decision.MinDelay
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(wait):
		}
	}

	return lastErr
}
