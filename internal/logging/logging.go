package logging

import (
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Level represents the logging verbosity level
type Level int

// Verbosity as counted from -v flags
const (
	LevelNormal  Level = 0 // info, warn, error
	LevelVerbose Level = 1 // adds debug lines and MCP request dumps
	LevelTrace   Level = 2 // adds Komoot request/response headers and retryablehttp chatter
)

var currentLevel Level

// Logger is the global zerolog logger instance.
// The zero value discards everything, so packages can log before Setup runs (e.g. in tests).
var Logger zerolog.Logger

// Setup points Logger at a human-readable console writer on stderr, keeping
// stdout free for the stdio MCP transport.
func Setup(level Level) {
	SetupWithWriter(level, zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}

// SetupWithWriter is Setup with a caller-supplied sink.
func SetupWithWriter(level Level, w io.Writer) {
	currentLevel = level

	zerologLevel := zerolog.InfoLevel
	if level >= LevelVerbose {
		zerologLevel = zerolog.DebugLevel
	}

	Logger = zerolog.New(w).
		Level(zerologLevel).
		With().
		Timestamp().
		Str("service", "komoot-stats").
		Logger()
}

// GetLevel returns the level passed to the last Setup
func GetLevel() Level {
	return currentLevel
}

// IsVerbose reports whether -v or more was given
func IsVerbose() bool {
	return currentLevel >= LevelVerbose
}

// IsTraceEnabled reports whether -vv or more was given
func IsTraceEnabled() bool {
	return currentLevel >= LevelTrace
}

// maxDumpBytes caps ToJSON output so a large tool input cannot flood the log
const maxDumpBytes = 2048

// ToJSON renders v for a debug log field, cut at maxDumpBytes
func ToJSON(v any) string {
	b, err := json.Marshal(v)
	switch {
	case err != nil:
		return "<unencodable " + err.Error() + ">"
	case len(b) > maxDumpBytes:
		return string(b[:maxDumpBytes]) + " [cut]"
	default:
		return string(b)
	}
}

// LeveledLogger routes retryablehttp's logging into Logger
type LeveledLogger struct{}

func (l *LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	Logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	Logger.Info().Fields(keysAndValues).Msg(msg)
}

// Debug only emits at trace level (-vv); retryablehttp logs every request at debug.
func (l *LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if !IsTraceEnabled() {
		return
	}
	Logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	Logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Info logs msg with alternating key/value fields
func Info(msg string, keysAndValues ...interface{}) {
	Logger.Info().Fields(keysAndValues).Msg(msg)
}

// Debug is Info at debug level
func Debug(msg string, keysAndValues ...interface{}) {
	Logger.Debug().Fields(keysAndValues).Msg(msg)
}

func Warn(msg string, keysAndValues ...interface{}) {
	Logger.Warn().Fields(keysAndValues).Msg(msg)
}

func Error(msg string, keysAndValues ...interface{}) {
	Logger.Error().Fields(keysAndValues).Msg(msg)
}
