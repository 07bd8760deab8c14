package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is a bounded retry with a fixed delay between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is three attempts, two seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 2 * time.Second}
}

// Retry runs fn until it succeeds or the policy is exhausted, returning the last error.
// It waits Delay between attempts and never after the last one.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, what string, fn func(ctx context.Context) error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.Attempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		return fn(ctx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("connection attempt failed",
			slog.String("target", what),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", policy.Attempts),
			slog.Duration("retry_in", wait),
			slog.String("error", err.Error()),
		)
	}

	err := backoff.RetryNotify(operation, b, notify)
	switch {
	case err == nil:
		if attempt > 1 {
			logger.Info("connected after retry", slog.String("target", what), slog.Int("attempt", attempt))
		}
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", what, ctx.Err())
	default:
		return fmt.Errorf("%s: giving up after %d attempts: %w", what, attempt, err)
	}
}
