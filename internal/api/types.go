// Package api defines the wire types of the multiplex endpoint: the
// inbound batch request, the aggregated batch response and the tagged
// Success/Failure outcome encoding.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BatchRequest is the JSON body of POST /multiplex. One batch carries N
// leg descriptors and a single wall-clock budget shared by all of them.
type BatchRequest struct {
	TimeoutMsec int64        `json:"timeout_msec"`
	Requests    []LegRequest `json:"requests"`
}

// Timeout returns the batch budget as a duration.
func (b *BatchRequest) Timeout() time.Duration {
	return time.Duration(b.TimeoutMsec) * time.Millisecond
}

// LegRequest describes a single outbound HTTP call of a batch.
type LegRequest struct {
	Method  string            `json:"method,omitempty"`
	URI     string            `json:"uri"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    *string           `json:"body,omitempty"`
}

// Supported outbound methods. An empty method defaults to GET.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

var supportedMethods = map[string]bool{
	MethodGet:    true,
	MethodPost:   true,
	MethodPut:    true,
	MethodDelete: true,
}

// NormalizeMethod resolves a leg's method field to a concrete method,
// applying the GET default. Unsupported methods are a per-leg
// construction error, not a batch rejection.
func NormalizeMethod(method string) (string, error) {
	if method == "" {
		return MethodGet, nil
	}
	if !supportedMethods[method] {
		return "", fmt.Errorf("unsupported method %q", method)
	}
	return method, nil
}

// DecodeBatchRequest parses the JSON body of a multiplex call. Unknown
// keys, trailing data and negative budgets are rejected; these are
// batch-level errors surfaced as HTTP 400.
func DecodeBatchRequest(r io.Reader) (*BatchRequest, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var batch BatchRequest
	if err := dec.Decode(&batch); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the batch request")
	}
	if batch.TimeoutMsec < 0 {
		return nil, errors.New("timeout_msec may not be negative")
	}

	return &batch, nil
}

// BatchResponse is the aggregated reply: same length and order as the
// batch's requests.
type BatchResponse struct {
	Responses []Outcome `json:"responses"`
}

// Outcome is the terminal result of one leg. Exactly one of Success or
// Failure is set; the variant name becomes the wrapping JSON object key.
type Outcome struct {
	Success *LegSuccess
	Failure *LegFailure
}

// MarshalJSON encodes the outcome as {"Success": {...}} or
// {"Failure": {...}}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch {
	case o.Success != nil:
		return json.Marshal(map[string]*LegSuccess{"Success": o.Success})
	case o.Failure != nil:
		return json.Marshal(map[string]*LegFailure{"Failure": o.Failure})
	default:
		return nil, errors.New("outcome must be either a success or a failure")
	}
}

// LegSuccess reports an upstream HTTP response, 2xx or not. Only
// transport, body-read, construction and deadline failures are errors.
type LegSuccess struct {
	Headers      Headers `json:"headers"`
	Status       int     `json:"status"`
	Content      *string `json:"content"`
	DurationMsec int64   `json:"duration_msec"`
}

// LegFailure reports a leg that produced no upstream response.
type LegFailure struct {
	Error        string `json:"error"`
	DurationMsec int64  `json:"duration_msec"`
}

// ErrorResponse is the 400 envelope for batch-level errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the liveness reply of GET / and GET /healthz.
type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

// Headers is a flattened view of upstream response headers. HTTP headers
// may repeat, but the output schema is a JSON object, so the last
// occurrence of a name wins. Losing multi-value fidelity here is a
// documented trade-off of the wire format.
type Headers map[string]string

// FlattenHeaders folds an http.Header multimap into Headers, keeping the
// last value recorded per name.
func FlattenHeaders(h http.Header) Headers {
	out := make(Headers, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = values[len(values)-1]
		}
	}
	return out
}
