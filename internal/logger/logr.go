package logger

import (
	"github.com/go-logr/logr"
)

// logrSink implements logr.LogSink on top of a Logger. Components take a
// logr.Logger so they stay decoupled from this package's concrete type.
type logrSink struct {
	logger *Logger
	name   string
}

// Logr returns a logr.Logger that writes through the given Logger.
func Logr(l *Logger) logr.Logger {
	return logr.New(&logrSink{logger: l})
}

// Init initializes the sink with runtime info (unused).
func (s *logrSink) Init(info logr.RuntimeInfo) {}

// Enabled tests whether this sink is enabled at the specified V-level.
// V(0) maps to INFO, V(1+) maps to DEBUG.
func (s *logrSink) Enabled(level int) bool {
	if level == 0 {
		return s.logger.level <= LevelInfo
	}
	return s.logger.level <= LevelDebug
}

// Info logs a non-error message with the given key/value pairs.
func (s *logrSink) Info(level int, msg string, keysAndValues ...any) {
	fields := s.kvToMap(keysAndValues)

	if level == 0 {
		s.logger.Info(msg, fields)
	} else {
		s.logger.Debug(msg, fields)
	}
}

// Error logs an error message with the given key/value pairs.
func (s *logrSink) Error(err error, msg string, keysAndValues ...any) {
	fields := s.kvToMap(keysAndValues)
	if err != nil {
		fields["error"] = err.Error()
	}

	s.logger.Error(msg, fields)
}

// WithValues returns the sink unchanged: the given key/value pairs are
// not retained. Call sites pass their fields directly.
func (s *logrSink) WithValues(keysAndValues ...any) logr.LogSink {
	return s
}

// WithName returns a new sink with the specified name appended.
func (s *logrSink) WithName(name string) logr.LogSink {
	next := *s
	if s.name == "" {
		next.name = name
	} else {
		next.name = s.name + "." + name
	}
	return &next
}

// kvToMap converts a slice of alternating keys and values to a map.
func (s *logrSink) kvToMap(keysAndValues []any) map[string]any {
	fields := make(map[string]any)
	if s.name != "" {
		fields["logger"] = s.name
	}

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	return fields
}
