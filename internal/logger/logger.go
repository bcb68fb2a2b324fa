// Package logger provides structured logging with text and JSON output
// formats. Components receive a logr.Logger built on top of it (see
// Logr), so the output format and level are decided once at startup.
//
//	// Instance-based logging
//	log := logger.New(logger.LevelInfo, logger.FormatJSON, os.Stderr)
//	log.Info("message", map[string]any{"key": "value"})
//
//	// Global logging (after Init)
//	logger.Init(logger.LevelInfo, logger.FormatText, os.Stderr)
//	logger.Info("message")
//
// Log levels: DEBUG < INFO < WARN < ERROR
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the logging level. A logger emits entries at its level
// and above.
type Level int

const (
	// LevelDebug is for detailed troubleshooting information.
	LevelDebug Level = iota
	// LevelInfo is for general operational information.
	LevelInfo
	// LevelWarn is for unexpected but handled situations.
	LevelWarn
	// LevelError is for failures that require attention.
	LevelError
)

// Format represents the output format for log entries.
type Format int

const (
	// FormatText outputs human-readable log lines.
	FormatText Format = iota
	// FormatJSON outputs structured JSON log entries.
	FormatJSON
)

// Logger is a structured logger with configurable level and format.
// It is safe for concurrent use.
type Logger struct {
	output io.Writer
	level  Level
	format Format
	mu     sync.Mutex
}

// logEntry represents a single log entry for JSON output.
type logEntry struct {
	Fields  map[string]any `json:"fields,omitempty"`
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
}

// New creates a new Logger with the specified level, format, and output
// writer. If output is nil, os.Stderr is used.
func New(level Level, format Format, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

func (l *Logger) log(level Level, msg string, fields map[string]any) {
	if level < l.level {
		return
	}

	levelStr := levelToString(level)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == FormatJSON {
		entry := logEntry{
			Time:    time.Now().Format(time.RFC3339),
			Level:   levelStr,
			Message: msg,
			Fields:  fields,
		}
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.output, string(data))
	} else {
		if len(fields) > 0 {
			fmt.Fprintf(l.output, "[%s] %s %v\n", levelStr, msg, fields)
		} else {
			fmt.Fprintf(l.output, "[%s] %s\n", levelStr, msg)
		}
	}
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.log(LevelDebug, msg, firstOrEmpty(fields))
}

// Info logs a message at INFO level.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.log(LevelInfo, msg, firstOrEmpty(fields))
}

// Warn logs a message at WARN level.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.log(LevelWarn, msg, firstOrEmpty(fields))
}

// Error logs a message at ERROR level.
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.log(LevelError, msg, firstOrEmpty(fields))
}

func firstOrEmpty(fields []map[string]any) map[string]any {
	if len(fields) > 0 {
		return fields[0]
	}
	return map[string]any{}
}

func levelToString(level Level) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Global logger used by packages that have no logr.Logger handed to them.
var globalLogger *Logger

// Init configures the global logger. Output defaults to os.Stderr.
func Init(level Level, format Format, output ...io.Writer) {
	var out io.Writer
	if len(output) > 0 && output[0] != nil {
		out = output[0]
	} else {
		out = os.Stderr
	}
	globalLogger = New(level, format, out)
}

// Debug logs through the global logger, if initialized.
func Debug(msg string, fields ...map[string]any) {
	if globalLogger != nil {
		globalLogger.Debug(msg, fields...)
	}
}

// Info logs through the global logger, if initialized.
func Info(msg string, fields ...map[string]any) {
	if globalLogger != nil {
		globalLogger.Info(msg, fields...)
	}
}

// Warn logs through the global logger, if initialized.
func Warn(msg string, fields ...map[string]any) {
	if globalLogger != nil {
		globalLogger.Warn(msg, fields...)
	}
}

// Error logs through the global logger, if initialized.
func Error(msg string, fields ...map[string]any) {
	if globalLogger != nil {
		globalLogger.Error(msg, fields...)
	}
}
