package embed

import (
	"context"
	"log/slog"
	"time"
)

// retryBaseDelay is the initial backoff; each attempt doubles it.
const retryBaseDelay = 200 * time.Millisecond

// withRetry runs fn with exponential backoff. Context cancellation and
// deadline expiry stop retries immediately.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		if attempt < maxRetries-1 {
			slog.Debug("embed_retry",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay", delay,
				"error", lastErr)

			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return lastErr
}
