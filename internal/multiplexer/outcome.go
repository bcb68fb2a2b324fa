package multiplexer

import (
	"fmt"
	"net/http"
	"time"

	"github.com/adriangligor/octoplex/internal/api"
)

// failureKind classifies how a leg failed. The taxonomy is internal; it
// flattens to a rendered message at the aggregation boundary.
type failureKind int

const (
	// failureRequestInvalid: the materializer rejected the descriptor.
	// No HTTP call occurred; the recorded duration is zero.
	failureRequestInvalid failureKind = iota
	// failureRequest: the HTTP capability errored before yielding a
	// response head (connect refused, DNS, TLS handshake).
	failureRequest
	// failureResponse: the body read errored after the head arrived.
	failureResponse
	// failureTimeout: the shared deadline elapsed before completion.
	failureTimeout
)

// legResult is the terminal state of one leg. Exactly one of success or
// failure is set.
type legResult struct {
	success *legSuccess
	failure *legFailure
}

type legSuccess struct {
	status   int
	headers  http.Header
	content  string
	duration time.Duration
}

type legFailure struct {
	kind     failureKind
	err      error
	duration time.Duration
}

func succeeded(status int, headers http.Header, content string, duration time.Duration) legResult {
	return legResult{success: &legSuccess{
		status:   status,
		headers:  headers,
		content:  content,
		duration: duration,
	}}
}

func failed(kind failureKind, err error, duration time.Duration) legResult {
	if kind == failureRequestInvalid {
		duration = 0
	}
	return legResult{failure: &legFailure{kind: kind, err: err, duration: duration}}
}

// render flattens the failure taxonomy to the wire message. The prefixes
// let a caller tell timeouts from transport failures.
func (f *legFailure) render() string {
	switch f.kind {
	case failureRequestInvalid:
		return fmt.Sprintf("the request was invalid: %v", f.err)
	case failureRequest:
		return fmt.Sprintf("the request failed: %v", f.err)
	case failureResponse:
		return fmt.Sprintf("failure during response: %v", f.err)
	case failureTimeout:
		return "timeout elapsed"
	default:
		return fmt.Sprintf("unclassified failure: %v", f.err)
	}
}

// aggregate folds the per-leg results into the batch response, preserving
// positional correspondence with the input legs.
func aggregate(results []legResult) *api.BatchResponse {
	responses := make([]api.Outcome, len(results))

	for i, res := range results {
		if res.failure != nil {
			responses[i] = api.Outcome{Failure: &api.LegFailure{
				Error:        res.failure.render(),
				DurationMsec: res.failure.duration.Milliseconds(),
			}}
			continue
		}

		content := res.success.content
		responses[i] = api.Outcome{Success: &api.LegSuccess{
			Headers:      api.FlattenHeaders(res.success.headers),
			Status:       res.success.status,
			Content:      &content,
			DurationMsec: res.success.duration.Milliseconds(),
		}}
	}

	return &api.BatchResponse{Responses: responses}
}
