// Package logger provides structured logging for library-due-dates.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR) and writes
// one JSON object per line (or a console line when configured) through zap. Every
// entry carries a timestamp, the level, the message, an optional error and any
// structured fields nested under "fields".
//
// Example usage:
//
//	logger.Info("Calendar found", logger.Fields{
//	    "calendar": "OSLRI Due Dates",
//	    "id": calendarID,
//	})
//
//	logger.Error("Event insert failed", logger.Fields{
//	    "summary": desc.Summary,
//	}, err)
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Format selects the line encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Logger provides structured logging
type Logger struct {
	minLevel Level
	zl       *zap.Logger
}

// Fields represents structured log fields
type Fields map[string]interface{}

var defaultLogger *Logger

func init() {
	defaultLogger = New(LevelInfo, os.Stderr)
}

// New creates a JSON logger with the specified minimum log level and output destination.
// Messages below the minimum level will be discarded.
func New(level Level, output io.Writer) *Logger {
	return NewWithFormat(level, FormatJSON, output)
}

// NewWithFormat creates a logger using the given line encoding
func NewWithFormat(level Level, format Format, output io.Writer) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.LevelKey = "level"
	encCfg.MessageKey = "message"
	encCfg.NameKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if format == FormatConsole {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), zapLevel(level))

	return &Logger{
		minLevel: level,
		zl:       zap.New(core),
	}
}

// ParseLevel converts a config string such as "debug" to a Level
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo, "":
		return LevelInfo, nil
	case LevelWarn, "WARNING":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// SetDefault sets the default package-level logger used by the convenience functions
// (Debug, Info, Warn, Error). This allows centralizing logger configuration.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// log writes a structured log entry
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	if !l.shouldLog(level) {
		return
	}

	zf := make([]zap.Field, 0, len(fields)+2)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}

	if len(fields) > 0 {
		// Sorted so lines are stable across runs
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		zf = append(zf, zap.Namespace("fields"))
		for _, k := range keys {
			zf = append(zf, zap.Any(k, fields[k]))
		}
	}

	switch level {
	case LevelDebug:
		l.zl.Debug(message, zf...)
	case LevelWarn:
		l.zl.Warn(message, zf...)
	case LevelError:
		l.zl.Error(message, zf...)
	default:
		l.zl.Info(message, zf...)
	}
}

// shouldLog determines if a message should be logged based on level
func (l *Logger) shouldLog(level Level) bool {
	return levelRank(level) >= levelRank(l.minLevel)
}

func levelRank(level Level) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning message with optional structured fields.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	defaultLogger.Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	defaultLogger.Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	defaultLogger.Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	defaultLogger.Error(message, fields, err)
}

// Sync flushes the default logger
func Sync() error {
	return defaultLogger.Sync()
}
