package multiplexer

import (
	"fmt"
	"time"

	"github.com/adriangligor/octoplex/internal/api"
)

const (
	// DefaultMaxRequestDuration is the largest batch budget accepted
	// unless configured otherwise.
	DefaultMaxRequestDuration = time.Hour

	// DefaultMaxBatchSize is the largest accepted batch length unless
	// configured otherwise.
	DefaultMaxBatchSize = 50
)

// Limits bounds what a single batch may ask for. Both limits are
// configurable and may be swapped at runtime via SetLimits.
type Limits struct {
	MaxRequestDuration time.Duration
	MaxBatchSize       int
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{
		MaxRequestDuration: DefaultMaxRequestDuration,
		MaxBatchSize:       DefaultMaxBatchSize,
	}
}

// ValidationError rejects an entire batch before any leg executes. It is
// rendered verbatim into the 400 error envelope.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// validate applies the batch rules in order; the first failing rule
// decides the outcome. A failure here means zero legs execute.
func (l Limits) validate(batch *api.BatchRequest) error {
	if batch.Timeout() > l.MaxRequestDuration {
		return &ValidationError{msg: fmt.Sprintf("timeout may not be more than %s", l.MaxRequestDuration)}
	}

	if len(batch.Requests) == 0 {
		return &ValidationError{msg: "there must be at least one request in the batch"}
	}

	if len(batch.Requests) > l.MaxBatchSize {
		return &ValidationError{msg: fmt.Sprintf("there may not be more than %d requests in the batch", l.MaxBatchSize)}
	}

	return nil
}
