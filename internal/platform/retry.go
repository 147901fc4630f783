package platform

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// MaxDelay caps a single wait between attempts.
const MaxDelay = time.Minute

// retryAfter is implemented by errors that carry a server-requested wait,
// such as a flood-control RequestError.
type retryAfter interface {
	RetryAfter() time.Duration
}

// temporary is implemented by errors that know whether a retry can help.
type temporary interface {
	Temporary() bool
}

// sleep waits for d or until ctx is done. Replaceable in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry calls fn up to maxAttempts times.
//
// Between attempts it waits baseDelay * 2^attempt, or the error's
// RetryAfter() when the server asked for a specific wait, capped at MaxDelay.
// Errors whose Temporary() reports false and context errors are returned
// immediately. Returns nil without calling fn if maxAttempts <= 0.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := range maxAttempts {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}

		slog.Warn("retry attempt failed",
			"component", "platform",
			"operation", "retry",
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"error", lastErr,
		)

		if attempt == maxAttempts-1 {
			break
		}
		if err := sleep(ctx, backoff(lastErr, baseDelay, attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}

func backoff(err error, baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay << attempt
	var ra retryAfter
	if errors.As(err, &ra) && ra.RetryAfter() > 0 {
		delay = ra.RetryAfter()
	}
	if delay < 0 || delay > MaxDelay {
		delay = MaxDelay
	}
	return delay
}
