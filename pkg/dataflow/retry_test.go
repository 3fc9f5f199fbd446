package dataflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessAfterRetries", func(t *testing.T) {
		var attempts int32
		fn := func(context.Context) (string, error) {
			curr := atomic.AddInt32(&attempts, 1)
			if curr < 3 {
				return "", errors.New("fail")
			}
			return "success", nil
		}

		res, err := RetryValue(ctx, fn, WithRetry(3, ConstantBackoff(10*time.Millisecond)))
		assert.NoError(t, err)
		assert.Equal(t, "success", res)
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	})

	t.Run("FailAfterMaxRetries", func(t *testing.T) {
		var attempts int32
		var hooks []int
		err := Retry(ctx, func(context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return errors.New("permanent fail")
		}, WithRetry(3, ConstantBackoff(1*time.Millisecond)), WithOnRetry(func(n int, _ error) {
			hooks = append(hooks, n)
		}))

		// total 4 attempts: 0, 1, 2, 3
		assert.EqualError(t, err, "permanent fail")
		assert.Equal(t, int32(4), atomic.LoadInt32(&attempts))
		assert.Equal(t, []int{1, 2, 3}, hooks)
	})

	t.Run("NotRetryable", func(t *testing.T) {
		fatal := errors.New("fatal")
		var attempts int32
		err := Retry(ctx, func(context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return fatal
		}, WithRetry(5, ConstantBackoff(time.Millisecond)), WithRetryIf(func(err error) bool {
			return !errors.Is(err, fatal)
		}))
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		err := Retry(cctx, func(context.Context) error {
			cancel()
			return errors.New("fail")
		}, WithRetry(5, ConstantBackoff(time.Hour)))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ExponentialBackoff", func(t *testing.T) {
		backoff := ExponentialBackoff(10 * time.Millisecond)
		assert.Equal(t, 10*time.Millisecond, backoff(0))
		assert.Equal(t, 10*time.Millisecond, backoff(1))
		assert.Equal(t, 20*time.Millisecond, backoff(2))
		assert.Equal(t, 40*time.Millisecond, backoff(3))
		assert.Equal(t, 80*time.Millisecond, backoff(4))
	})
}
