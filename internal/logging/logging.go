// Package logging configures the global zerolog logger for Orderdesk.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger with a console writer and the given
// level ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func Setup(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", "orderdesk").Logger()
	logger = logger.Level(ParseLevel(level))
	log.Logger = logger
	return logger
}

// ParseLevel maps a config level string to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
