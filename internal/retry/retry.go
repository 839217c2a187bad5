// Package retry runs an operation under a fixed-budget, fixed-delay retry policy.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"bgshelf-api/internal/logging"
)

// Policy is a fixed retry budget: MaxRetries retries after the first attempt,
// Delay between attempts. Every error is retried.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// ExhaustedError is returned once every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs op until it succeeds or the policy is exhausted. Context
// cancellation stops the loop and returns the context error.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	var (
		attempts int
		lastErr  error
	)

	operation := func() error {
		attempts++
		err := fn(ctx)
		if err != nil {
			lastErr = err
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logging.Warn().Err(err).
			Str("op", op).
			Int("attempt", attempts).
			Dur("retry_in", wait).
			Msg("[Retry] Attempt failed")
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(p.Attempts()-1))

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	logging.Error().Err(lastErr).Str("op", op).Int("attempts", attempts).Msg("[Retry] Giving up")
	return &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}
