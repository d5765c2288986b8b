package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
)

// Do runs fn until it succeeds, the policy's retries are exhausted, retryable
// reports false for the returned error, or ctx is done. The returned error
// wraps the last failure.
func (p Policy) Do(ctx context.Context, op string, retryable func(error) bool, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying operation", slog.String("operation", op), slog.Int("attempt", attempt), logfields.Error(lastErr))
			if err := sleep(ctx, p.Delay(attempt)); err != nil {
				return fmt.Errorf("%s cancelled during backoff: %w", op, lastErr)
			}
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if retryable != nil && !retryable(err) {
			return err
		}
	}
	if p.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d retries: %w", op, p.MaxRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
