// Package multiplexer implements the core of the gateway: batch
// validation, materialization of leg descriptors into outbound requests,
// the concurrent fan-out against a shared deadline, and aggregation of
// the per-leg outcomes back into input order.
package multiplexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"github.com/adriangligor/octoplex/internal/api"
	"github.com/adriangligor/octoplex/internal/httpclient"
)

// Multiplexer fans a batch of outbound HTTP calls out concurrently and
// folds their outcomes back in input order. It holds no per-batch state;
// one instance serves all concurrent invocations, sharing the injected
// outbound client and its connection pool.
type Multiplexer struct {
	client httpclient.Client
	log    logr.Logger

	mu     sync.RWMutex
	limits Limits
}

// New creates a Multiplexer using the given outbound client and limits.
func New(client httpclient.Client, limits Limits, log logr.Logger) *Multiplexer {
	return &Multiplexer{
		client: client,
		limits: limits,
		log:    log,
	}
}

// Limits returns the current batch limits.
func (m *Multiplexer) Limits() Limits {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limits
}

// SetLimits replaces the batch limits. In-flight batches keep the limits
// they were admitted under.
func (m *Multiplexer) SetLimits(limits Limits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = limits
}

// Handle runs one batch: validate, materialize, execute every leg against
// the shared deadline, aggregate. The returned error is non-nil only for
// batch-level rejections; per-leg failures surface inside the response.
// The response has exactly as many outcomes as the batch has requests,
// in the same order.
func (m *Multiplexer) Handle(ctx context.Context, batch *api.BatchRequest) (*api.BatchResponse, error) {
	if err := m.Limits().validate(batch); err != nil {
		return nil, err
	}

	// The sole deadline authority for every leg of this batch.
	deadline := time.Now().Add(batch.Timeout())

	legs := materializeBatch(batch.Requests)
	results := m.executeBatch(ctx, legs, deadline)

	return aggregate(results), nil
}

// executeBatch dispatches all legs concurrently and waits for every one
// of them. Each goroutine owns its slot in the result slice, so the
// output order is positional regardless of completion order.
func (m *Multiplexer) executeBatch(ctx context.Context, legs []materializedLeg, deadline time.Time) []legResult {
	results := make([]legResult, len(legs))

	var wg sync.WaitGroup
	for i := range legs {
		wg.Add(1)
		go func(i int, leg materializedLeg) {
			defer wg.Done()
			results[i] = m.executeLeg(ctx, leg, deadline)
		}(i, legs[i])
	}
	wg.Wait()

	return results
}

// executeLeg runs one leg's state machine until a terminal state. The
// leg's work races the shared deadline; whichever finishes first wins,
// and an overrunning outbound call is abandoned rather than awaited.
func (m *Multiplexer) executeLeg(ctx context.Context, leg materializedLeg, deadline time.Time) legResult {
	if leg.err != nil {
		return failed(failureRequestInvalid, leg.err, 0)
	}

	legCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	start := time.Now()
	done := make(chan legResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error(nil, "recovered panic while executing leg",
					"uri", leg.req.URL.String(), "panic", fmt.Sprintf("%v", r))
				done <- failed(failureRequest, fmt.Errorf("internal error: %v", r), sinceSaturating(start))
			}
		}()

		done <- m.roundTrip(legCtx, leg, start)
	}()

	select {
	case res := <-done:
		return res
	case <-legCtx.Done():
		// The deferred cancel tears down the in-flight call; its
		// goroutine parks its late result in the buffered channel.
		return failed(failureTimeout, legCtx.Err(), sinceSaturating(start))
	}
}

// roundTrip performs the send and receive halves of a leg: hand the
// request to the client, then consume the body fully into memory.
func (m *Multiplexer) roundTrip(ctx context.Context, leg materializedLeg, start time.Time) legResult {
	resp, err := m.client.Do(leg.req.WithContext(ctx))
	if err != nil {
		if deadlineExpired(ctx) {
			return failed(failureTimeout, ctx.Err(), sinceSaturating(start))
		}
		return failed(failureRequest, err, sinceSaturating(start))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if deadlineExpired(ctx) {
			return failed(failureTimeout, ctx.Err(), sinceSaturating(start))
		}
		return failed(failureResponse, err, sinceSaturating(start))
	}

	// The wire format serializes the body as one JSON string, so invalid
	// UTF-8 is replaced rather than rejected. An empty body stays "".
	content := strings.ToValidUTF8(string(body), string(utf8.RuneError))

	return succeeded(resp.StatusCode, resp.Header.Clone(), content, sinceSaturating(start))
}

func deadlineExpired(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// sinceSaturating measures elapsed time since start, clamped to zero so
// clock weirdness can never produce a negative duration.
func sinceSaturating(start time.Time) time.Duration {
	d := time.Since(start)
	if d < 0 {
		return 0
	}
	return d
}
