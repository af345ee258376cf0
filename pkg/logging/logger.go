// Package logging configures the global zerolog logger of forge-miner.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every fetched page and cache operation.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs identifier and run outcomes.
	LevelInfo LogLevel = "info"

	// LevelWarn logs quota waits, rejected identifiers and cache failures.
	LevelWarn LogLevel = "warn"

	// LevelError logs processing errors only.
	LevelError LogLevel = "error"
)

// ServiceName is attached to every log line as the service field.
const ServiceName = "forge-miner"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it. Unknown
// levels fall back to info; validate with ParseLevel first.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.zerolog())

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	log.Logger = zerolog.New(out).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
	return log.Logger
}

// ParseLevel validates a configured level name. Empty means info.
func ParseLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a child of the global logger tagged with component.
// Call it after Setup.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Every fetched page (resource, page number, has_next_page)
//   - Cache operations (hit/miss, key, TTL)
//   - Quota summary updates from response headers
//
// Info: Normal operation events
//   - Identifier committed or interrupted
//   - Run started/finished, report stored
//   - Transport request succeeded after retry
//
// Warn: Warning conditions that don't prevent the run
//   - Quota exhausted, countdown started
//   - Identifier rejected by the remote API (invalid list)
//   - Cache or summary refresh failures
//   - Transport retries exhausted
//
// Error: Error conditions requiring attention
//   - Identifier processing failed (ProcessingError)
//   - Report could not be stored
//   - Configuration errors
//
// Context Fields:
//   - run_id: Run identifier (uuid)
//   - identifier: Input identifier (login or repository URL)
//   - position: Identifier index in the input
//   - resource: Walked resource, e.g. "octo/hello@main"
//   - wait_seconds: Advised quota wait
//   - error_class: Transport error class (client, server, rate_limit, network)
