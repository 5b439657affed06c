// Package logger builds the zerolog loggers used by the CLI.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger for interactive use. Quiet raises the level
// so only errors reach the terminal.
func New(quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.ErrorLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}