// Package stats aggregates batch outcome statistics. A Collector
// subscribes to the event bus and records leg latencies in an HDR
// histogram; a periodic summary is written to the structured log.
package stats

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/go-logr/logr"

	"github.com/adriangligor/octoplex/internal/events"
)

const (
	// Histogram bounds in milliseconds. The upper bound matches the
	// largest default batch budget; values beyond it are clamped.
	histogramMin = 1
	histogramMax = 3_600_000
	histogramSig = 3
)

// Collector accumulates counters and leg-latency quantiles across
// batches. It is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	durations *hdrhistogram.Histogram
	batches   int64
	rejected  int64
	legs      int64
	failures  int64
}

// Summary is a point-in-time view of the collected statistics.
type Summary struct {
	Batches  int64
	Rejected int64
	Legs     int64
	Failures int64
	P50Ms    int64
	P90Ms    int64
	P99Ms    int64
	MaxMs    int64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		durations: hdrhistogram.New(histogramMin, histogramMax, histogramSig),
	}
}

// Attach subscribes the collector to batch lifecycle events.
func (c *Collector) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventBatchCompleted, c.handleCompleted)
	bus.Subscribe(events.EventBatchRejected, c.handleRejected)
}

func (c *Collector) handleCompleted(e events.Event) {
	legs, _ := e.Data["legs"].(int)
	failures, _ := e.Data["failures"].(int)
	durations, _ := e.Data["leg_durations_ms"].([]int64)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.batches++
	c.legs += int64(legs)
	c.failures += int64(failures)
	for _, d := range durations {
		if d > histogramMax {
			d = histogramMax
		}
		_ = c.durations.RecordValue(d)
	}
}

func (c *Collector) handleRejected(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected++
}

// Snapshot returns the current counters and latency quantiles.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Summary{
		Batches:  c.batches,
		Rejected: c.rejected,
		Legs:     c.legs,
		Failures: c.failures,
		P50Ms:    c.durations.ValueAtQuantile(50),
		P90Ms:    c.durations.ValueAtQuantile(90),
		P99Ms:    c.durations.ValueAtQuantile(99),
		MaxMs:    c.durations.Max(),
	}
}

// LogSummary writes the current snapshot to the given logger.
func (c *Collector) LogSummary(log logr.Logger) {
	s := c.Snapshot()
	log.Info("batch statistics",
		"batches", s.Batches,
		"rejected", s.Rejected,
		"legs", s.Legs,
		"failures", s.Failures,
		"leg_p50_ms", s.P50Ms,
		"leg_p90_ms", s.P90Ms,
		"leg_p99_ms", s.P99Ms,
		"leg_max_ms", s.MaxMs,
	)
}
