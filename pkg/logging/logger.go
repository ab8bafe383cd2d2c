// Package logging configures zerolog for the MSP client and its gateway.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: JSON).
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures and returns the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForAggregation scopes logger to one aggregation run.
func ForAggregation(logger zerolog.Logger, id, strategy, path string) zerolog.Logger {
	return logger.With().
		Str("aggregation_id", id).
		Str("strategy", strategy).
		Str("path", path).
		Logger()
}

// Log Level Guidelines:
//
// Debug: request execution, reporting-endpoint shape traces (debug flag only),
// per-page progress of an aggregation.
//
// Info: aggregation completed, gateway startup/shutdown.
//
// Warn: safety-limit stops (request ceiling, repeated cursor, stalled offset),
// non-2xx responses, snapshot cache errors.
//
// Error: transport failures, token grant failures, aggregation aborted.
//
// Context Fields:
//   - component: msp-client, msp-aggregator, msp-gateway
//   - aggregation_id: uuid of one CollectAll run
//   - strategy: cursor_query, cursor_body, paged_filters, offset
//   - endpoint / path: API path without base URL
//   - status: HTTP status code
//   - requests: page requests issued so far
//   - stop_reason: complete, request_ceiling, repeated_cursor, stalled_offset
