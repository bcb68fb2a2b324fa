// Package server hosts the gateway's inbound HTTP endpoints: liveness on
// GET / and GET /healthz, and the multiplex entry point on POST
// /multiplex. It owns the JSON codec boundary: strict decoding, the 400
// error envelope, and the aggregated batch reply.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/adriangligor/octoplex/internal/api"
	"github.com/adriangligor/octoplex/internal/events"
	"github.com/adriangligor/octoplex/internal/httplog"
	"github.com/adriangligor/octoplex/internal/multiplexer"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	// readHeaderTimeout bounds slow-header clients
	readHeaderTimeout = 10 * time.Second

	// shutdownTimeout bounds the graceful drain on Stop
	shutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Addr      string
	AccessLog *httplog.Logger // optional
	Bus       *events.Bus     // optional
}

// Server serves the gateway endpoints on a TCP listener.
type Server struct {
	mux       *multiplexer.Multiplexer
	log       logr.Logger
	accessLog *httplog.Logger
	bus       *events.Bus
	addr      string
	http      *http.Server
	listener  net.Listener
}

// New creates a Server around the given multiplexer.
func New(mux *multiplexer.Multiplexer, opts Options, log logr.Logger) *Server {
	s := &Server{
		mux:       mux,
		log:       log,
		accessLog: opts.AccessLog,
		bus:       opts.Bus,
		addr:      opts.Addr,
	}

	s.http = &http.Server{
		Handler:           http.HandlerFunc(s.route),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Handler returns the routing handler, for tests driving the server
// through httptest without a listener.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.route)
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind HTTP server to %s: %w", s.addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error(err, "HTTP server stopped unexpectedly")
		}
	}()

	s.log.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop drains in-flight requests and shuts the server down. Requests
// still running after the drain timeout are cut off.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return s.http.Close()
	}
	return nil
}

// route dispatches on (method, path) pairs; anything unmatched is 404.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && (r.URL.Path == "/" || r.URL.Path == "/healthz"):
		s.handleHealth(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/multiplex":
		s.handleMultiplex(w, r)
	default:
		s.handleNotFound(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Healthy: true})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, "not found\n")
}

// handleMultiplex decodes the batch, hands it to the multiplexer and
// writes back either the aggregated reply or the 400 error envelope.
func (s *Server) handleMultiplex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()

	entry := httplog.Entry{
		Timestamp: start,
		RequestID: requestID,
		Remote:    r.RemoteAddr,
		Method:    r.Method,
		Path:      r.URL.Path,
	}

	batch, err := api.DecodeBatchRequest(r.Body)
	if err != nil {
		s.rejectBatch(w, &entry, start, requestID, err)
		return
	}
	entry.BatchSize = len(batch.Requests)

	resp, err := s.mux.Handle(r.Context(), batch)
	if err != nil {
		s.rejectBatch(w, &entry, start, requestID, err)
		return
	}

	failures := 0
	durations := make([]int64, 0, len(resp.Responses))
	for _, outcome := range resp.Responses {
		if outcome.Failure != nil {
			failures++
			durations = append(durations, outcome.Failure.DurationMsec)
		} else {
			durations = append(durations, outcome.Success.DurationMsec)
		}
	}

	// Observers see the batch before the caller does, so a reply is
	// never ahead of its own access log entry.
	latency := time.Since(start)
	entry.Status = http.StatusOK
	entry.Failures = failures
	entry.LatencyMs = latency.Milliseconds()
	s.record(entry)

	s.publish(events.Event{
		Type:      events.EventBatchCompleted,
		RequestID: requestID,
		Data: map[string]any{
			"legs":             len(batch.Requests),
			"failures":         failures,
			"latency_ms":       latency.Milliseconds(),
			"leg_durations_ms": durations,
		},
	})

	s.log.V(1).Info("batch completed",
		"request_id", requestID, "legs", len(batch.Requests),
		"failures", failures, "latency_ms", latency.Milliseconds())

	s.writeJSON(w, http.StatusOK, resp)
}

// rejectBatch writes the 400 envelope for codec and validation failures.
// No legs have executed when this path is taken.
func (s *Server) rejectBatch(w http.ResponseWriter, entry *httplog.Entry, start time.Time, requestID string, err error) {
	entry.Status = http.StatusBadRequest
	entry.Error = err.Error()
	entry.LatencyMs = time.Since(start).Milliseconds()
	s.record(*entry)

	s.publish(events.Event{
		Type:      events.EventBatchRejected,
		RequestID: requestID,
		Data:      map[string]any{"error": err.Error()},
	})

	s.log.V(1).Info("batch rejected", "request_id", requestID, "error", err.Error())

	s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		s.log.Error(err, "failed to serialize response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) record(e httplog.Entry) {
	if s.accessLog != nil {
		s.accessLog.Record(e)
	}
}

func (s *Server) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
