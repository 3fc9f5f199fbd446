package dataflow

import (
	"context"
	"time"
)

// Retry calls fn until it succeeds, the retry budget is spent, the error is
// not retryable or ctx is done. The last error is returned.
func Retry(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= cfg.maxRetries || (cfg.retryable != nil && !cfg.retryable(err)) {
			return err
		}
		if cfg.onRetry != nil {
			cfg.onRetry(attempt+1, err)
		}

		timer := time.NewTimer(cfg.backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryValue is Retry for calls that produce a value.
func RetryValue[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T
	err := Retry(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts...)
	return out, err
}
