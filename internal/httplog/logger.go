// Package httplog records one JSON-lines access log entry per call to
// the multiplex endpoint. Entries carry a request ID so a batch can be
// correlated across the access log and the structured log.
package httplog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Entry represents a single access log entry
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Remote    string    `json:"remote,omitempty"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	BatchSize int       `json:"batch_size,omitempty"`
	Failures  int       `json:"failures,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
}

// Logger writes access log entries to an output stream.
// If logFile is empty, entries go to stdout.
type Logger struct {
	output io.Writer
	file   *os.File
	mu     sync.Mutex
}

// NewLogger creates a new access logger.
func NewLogger(logFile string) (*Logger, error) {
	l := &Logger{}

	if logFile == "" {
		l.output = os.Stdout
	} else {
		// #nosec G304 -- logFile comes from validated configuration
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open access log file: %w", err)
		}
		l.file = f
		l.output = f
	}

	return l, nil
}

// NewWriterLogger creates an access logger writing to the given writer.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{output: w}
}

// Record writes one entry as a JSON line.
func (l *Logger) Record(e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.output, string(data))
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
