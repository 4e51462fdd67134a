// Package logging wires GenTrack's zerolog global logger and a
// context accessor that falls back to the default logger. The
// scheduler and HTTP middleware are handed the logger directly.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Init sets up the global zerolog logger at level (parsed with
// zerolog.ParseLevel, defaulting to info on a bad value). writer
// defaults to os.Stdout when nil.
func Init(level string, writer io.Writer) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	if writer == nil {
		writer = os.Stdout
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339

	log := zerolog.New(writer).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
	return log
}

// FromContext returns the request-scoped logger, or the default
// logger when the context carries none.
func FromContext(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		if defLogger := zerolog.DefaultContextLogger; defLogger != nil {
			return defLogger
		}
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		return &l
	}
	return logger
}
