package safety

import (
	"context"
	"math"
	"time"
)

// RetryConfig holds configuration for retry mechanisms
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// MarketRetryConfig is the backoff schedule for public market-data
// calls, which are cheap to repeat.
func MarketRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  3500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// TradingRetryConfig is the tighter schedule for signed account calls.
// Order placement itself is never routed through Retry: a timeout may
// still have filled, and re-sending would double the order.
func TradingRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		InitialDelay:  2 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retryable marks errors that are safe to retry. The exchange error
// types implement it.
type Retryable interface {
	Retryable() bool
}

// RetryableFunc represents a function that can be retried
type RetryableFunc func() error

// Retry executes fn with exponential backoff. Errors implementing
// Retryable with Retryable() == false stop the loop immediately; any
// other error is assumed transient.
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}
		if r, ok := err.(Retryable); ok && !r.Retryable() {
			break
		}

		delay := calculateDelay(attempt, config)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// calculateDelay computes the exponential backoff for an attempt.
func calculateDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay
	if attempt > 0 {
		delay = time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))
	}
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}
