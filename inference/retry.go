package inference

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryWithBackoff runs op up to maxAttempts times, doubling the delay
// after each failure and adding up to 50% jitter so concurrent chunks
// do not retry in lockstep. Errors marked Permanent and context
// cancellation stop the loop immediately.
func RetryWithBackoff(ctx context.Context, logger *slog.Logger, maxAttempts int, baseDelay time.Duration, op func() error) error {
	if maxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		wait := delay + time.Duration(rand.Int64N(int64(delay)/2+1))
		logger.Warn("inference attempt failed, backing off",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"wait", wait,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}

	return lastErr
}
