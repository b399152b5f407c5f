package database

import (
	"context"
	"fmt"
	"time"
)

// ConnectWithRetry runs connect with exponential backoff until it succeeds, the attempts run
// out or ctx is done. onRetry, when set, observes each failed attempt.
func ConnectWithRetry(ctx context.Context, name string, maxRetries int, initialDelay time.Duration, connect func(context.Context) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	delay := initialDelay
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if lastErr = connect(ctx); lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		if onRetry != nil {
			onRetry(attempt, delay, lastErr)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", name, maxRetries, lastErr)
}
