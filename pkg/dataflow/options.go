package dataflow

import (
	"time"
)

// Option configures a retried operation.
type Option func(*config)

type config struct {
	maxRetries int
	backoff    func(int) time.Duration
	// retryable reports whether an error is worth another attempt. nil retries everything.
	retryable func(error) bool
	onRetry   func(attempt int, err error)
}

func defaultConfig() *config {
	return &config{
		maxRetries: 0,
		backoff:    ConstantBackoff(0),
	}
}

// WithRetry sets how many times a failed call is repeated and the pause between attempts.
func WithRetry(maxRetries int, backoff func(attempt int) time.Duration) Option {
	return func(c *config) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// WithRetryIf limits retries to errors for which fn returns true.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *config) {
		c.retryable = fn
	}
}

// WithOnRetry registers a hook called before each repeated attempt.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *config) {
		c.onRetry = fn
	}
}

// ConstantBackoff returns a backoff function that always returns the same duration.
func ConstantBackoff(d time.Duration) func(int) time.Duration {
	return func(_ int) time.Duration {
		return d
	}
}

// ExponentialBackoff returns a backoff function that increases the duration exponentially.
// backoff = initial * 2^(attempt-1)
func ExponentialBackoff(initial time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt <= 1 {
			return initial
		}
		return initial * time.Duration(1<<(attempt-1))
	}
}
