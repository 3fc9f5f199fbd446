package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogging sets up the global logger. Output goes to stderr and, when path
// is set, is also appended to that file.
func InitLogging(path string) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("cannot open log file, logging to stderr only")
		} else {
			out = zerolog.MultiLevelWriter(out, f)
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithContext attaches the global logger to ctx unless ctx already has one.
func WithContext(ctx context.Context) context.Context {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return ctx
	}
	return log.Logger.WithContext(ctx)
}

func from(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

func DebugLog(ctx context.Context, format string, args ...interface{}) {
	from(ctx).Debug().Msg(fmt.Sprintf(format, args...))
}

func InfoLog(ctx context.Context, format string, args ...interface{}) {
	from(ctx).Info().Msg(fmt.Sprintf(format, args...))
}

func WarnLog(ctx context.Context, format string, args ...interface{}) {
	from(ctx).Warn().Msg(fmt.Sprintf(format, args...))
}

func ErrorLog(ctx context.Context, format string, args ...interface{}) {
	from(ctx).Error().Msg(fmt.Sprintf(format, args...))
}
