package errors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior. The indexer uses a fixed delay
// (Multiplier 1.0) for file reads and embedding calls; callers that want
// exponential backoff set Multiplier > 1 and a MaxDelay cap.
type RetryConfig struct {
	// Attempts is the number of retry attempts after the initial try.
	Attempts int

	// Delay is the wait before the first retry.
	Delay time.Duration

	// MaxDelay caps the wait between retries.
	MaxDelay time.Duration

	// Multiplier scales the delay after each retry. 1.0 keeps it fixed.
	Multiplier float64
}

// DefaultRetryConfig returns the fixed-delay defaults used by the indexer.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:   2,
		Delay:      500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 1.0,
	}
}

// Retry executes fn, retrying up to cfg.Attempts additional times on error.
// A DexError flagged non-retryable (validation failures, batch mismatches)
// aborts the loop immediately; plain errors are treated as transient. The
// wait between tries starts at cfg.Delay and grows by cfg.Multiplier,
// capped at cfg.MaxDelay. Context cancellation aborts immediately, both
// before an attempt and during the wait.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult is Retry for functions that also return a value.
// On final failure the zero value is returned alongside the wrapped error.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	delay := cfg.Delay
	var lastErr error

	for attempt := 0; attempt <= cfg.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if de, ok := err.(*DexError); ok && !de.Retryable {
			return zero, err
		}
		if attempt >= cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		if cfg.Multiplier > 1 {
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return zero, fmt.Errorf("failed after %d retries: %w", cfg.Attempts, lastErr)
}
