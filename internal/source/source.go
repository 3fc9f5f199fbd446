// Package source adapts external stores into lazy record sources for the
// export engine.
package source

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRetries = 3
	defaultBackoff = 200 * time.Millisecond
)

func logRetry(ctx context.Context, store string) func(int, error) {
	return func(attempt int, err error) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("store", store).Int("attempt", attempt).Msg("retrying source read")
	}
}
