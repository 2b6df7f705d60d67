package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// retryCall runs fn with bounded attempts and exponential backoff. Each
// attempt gets its own timeout. Stops early on context cancellation or when
// the error wraps ErrPermanent.
func retryCall[T any](ctx context.Context, cfg Config, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * cfg.BackoffBase
			slog.Warn("Retrying external call",
				slog.String("type", "engine"),
				slog.String("op", op),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
				slog.Any("error", lastErr))

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		result, err := fn(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, cfg.MaxAttempts, lastErr)
}
