package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var zlog = zerolog.New(os.Stderr).With().Timestamp().Str("service", "blok-client").Logger()

// InitStructured initializes the structured zerolog logger
func InitStructured(env string) {
	InitStructuredTo(env, os.Stdout)
}

// InitStructuredTo initializes the global logger writing to w
func InitStructuredTo(env string, out io.Writer) {
	var w io.Writer

	if isDev(env) {
		// Pretty console output for development
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	} else {
		// JSON output for production (machine-readable)
		w = out
	}

	zlog = zerolog.New(w).With().
		Timestamp().
		Str("service", "blok-client").
		Logger()

	zerolog.TimeFieldFormat = time.RFC3339
}

func isDev(env string) bool {
	return env == "development" || env == "dev" || env == "local"
}

// GetLogger returns the global zerolog logger
func GetLogger() *zerolog.Logger {
	return &zlog
}

// WithComponent returns a logger with component field
func WithComponent(name string) zerolog.Logger {
	return zlog.With().Str("component", name).Logger()
}

// WithUserID returns a logger with user_id field
func WithUserID(userID string) zerolog.Logger {
	return zlog.With().Str("user_id", userID).Logger()
}

// Nop returns a disabled logger, used by tests
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
