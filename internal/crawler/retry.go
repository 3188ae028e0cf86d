package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/realty/internal/logger"
	"github.com/jmylchreest/realty/pkg/fetcher"
)

// retryWithBackoff calls fn until it succeeds, fails permanently, or
// maxRetries further attempts have been spent. The wait before retry n is
// base*n*n. It returns the number of attempts made.
func retryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func() error) (int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := base * time.Duration(attempt*attempt)
			logger.Debug("retrying", "attempt", attempt+1, "of", maxRetries+1, "backoff", backoff)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempts, ctx.Err()
			case <-timer.C:
			}
		}

		attempts++
		if err := fn(); err != nil {
			lastErr = err
			if !fetcher.Retryable(err) {
				return attempts, err
			}
			continue
		}
		return attempts, nil
	}
	return attempts, fmt.Errorf("all %d attempts failed, last error: %w", attempts, lastErr)
}
