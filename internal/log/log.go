// Package log provides the structured logger the CLI uses. The tabulation
// engine itself stays log-free (it is a pure function, spec.md §5), and so
// do the decoders, which return row errors for cmd/rcvtab to log; cmd/rcvtab
// is this package's only importer.
//
// Grounded on the teacher's own internal/log usage in internal/vote/run.go
// and internal/vote/vote.go (log.Debug(...)/log.Info(...) against a
// same-repo internal/log package that did not survive retrieval) and
// rebuilt on github.com/rs/zerolog using the
// jhkimqd-chaos-utils/pkg/reporting/logger.go LoggerConfig/NewLogger shape.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level selects the minimum severity a Logger emits.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects console vs. machine-readable output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config configures a Logger.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stderr
}

// Logger wraps a configured zerolog.Logger.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger per cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	if cfg.Format == FormatText {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: false}
	}

	z := zerolog.New(writer).With().Timestamp().Logger()
	switch cfg.Level {
	case LevelDebug:
		z = z.Level(zerolog.DebugLevel)
	case LevelWarn:
		z = z.Level(zerolog.WarnLevel)
	case LevelError:
		z = z.Level(zerolog.ErrorLevel)
	default:
		z = z.Level(zerolog.InfoLevel)
	}

	return &Logger{z: z}
}

// Debug logs a debug-level message with key/value fields.
func (l *Logger) Debug(msg string, fields ...any) { l.log(l.z.Debug(), msg, fields) }

// Info logs an info-level message with key/value fields.
func (l *Logger) Info(msg string, fields ...any) { l.log(l.z.Info(), msg, fields) }

// Warn logs a warn-level message with key/value fields.
func (l *Logger) Warn(msg string, fields ...any) { l.log(l.z.Warn(), msg, fields) }

// Error logs an error-level message with key/value fields.
func (l *Logger) Error(msg string, err error, fields ...any) {
	event := l.z.Error()
	if err != nil {
		event = event.Err(err)
	}
	l.log(event, msg, fields)
}

// log attaches fields (alternating key, value) to event and emits msg.
// Non-string keys and unpaired trailing values are dropped rather than
// panicking - a logging call should never be able to crash the caller.
func (l *Logger) log(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}
