// ABOUTME: Prometheus-backed ingestion metrics: lines framed, decode failures, drops, and session outcomes.
// ABOUTME: Collector implements engine.Observer and serves its private registry over promhttp.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389-research/tickertape/engine"
	"github.com/2389-research/tickertape/stream"
)

const namespace = "tickertape"

// unknownLabel stands in for every unrecognized wire type, which would
// otherwise give the backend control over series cardinality.
const unknownLabel = "unknown"

func typeLabel(t stream.EventType) string {
	if !t.Known() {
		return unknownLabel
	}
	return string(t)
}

// Collector records ingestion signals on its own registry, so several
// controllers in one process (tests, replay server) never collide.
type Collector struct {
	registry *prometheus.Registry

	linesFramed        prometheus.Counter
	decodeErrors       prometheus.Counter
	protocolViolations *prometheus.CounterVec
	eventsApplied      *prometheus.CounterVec
	eventsDropped      *prometheus.CounterVec
	sessions           *prometheus.CounterVec
	sessionLatency     prometheus.Histogram

	replayStreams *prometheus.CounterVec
	replayLines   prometheus.Counter
	replayBytes   prometheus.Counter
}

var _ engine.Observer = (*Collector)(nil)

// NewCollector registers all metrics. withRuntime adds the Go and process
// collectors, which the CLI wants and tests do not.
func NewCollector(withRuntime bool) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		linesFramed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_framed_total",
			Help:      "NDJSON lines extracted from transport bytes.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Lines that were not valid JSON events or exceeded the line cap.",
		}),
		protocolViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_violations_total",
			Help:      "Events missing a required field, by event type.",
		}, []string{"type"}),
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Events applied to session state, by event type.",
		}, []string{"type"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events for superseded or finished sessions, by event type.",
		}, []string{"type"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions by final status.",
		}, []string{"status"}),
		sessionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_latency_seconds",
			Help:      "Time from submission to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		replayStreams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "streams_total",
			Help:      "Replay requests served, by outcome.",
		}, []string{"outcome"}),
		replayLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "lines_sent_total",
			Help:      "Complete NDJSON lines written by the replay server.",
		}),
		replayBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "bytes_sent_total",
			Help:      "Bytes written by the replay server.",
		}),
	}
	reg.MustRegister(
		c.linesFramed,
		c.decodeErrors,
		c.protocolViolations,
		c.eventsApplied,
		c.eventsDropped,
		c.sessions,
		c.sessionLatency,
		c.replayStreams,
		c.replayLines,
		c.replayBytes,
	)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry exposes the underlying registry for tests and custom exporters.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) LinesFramed(n int) {
	c.linesFramed.Add(float64(n))
}

func (c *Collector) DecodeFailed(error) {
	c.decodeErrors.Inc()
}

func (c *Collector) ProtocolViolation(t stream.EventType) {
	c.protocolViolations.WithLabelValues(typeLabel(t)).Inc()
}

func (c *Collector) EventApplied(t stream.EventType) {
	c.eventsApplied.WithLabelValues(typeLabel(t)).Inc()
}

func (c *Collector) EventDropped(t stream.EventType) {
	c.eventsDropped.WithLabelValues(typeLabel(t)).Inc()
}

func (c *Collector) SessionFinished(status engine.Status, latency time.Duration) {
	c.sessions.WithLabelValues(string(status)).Inc()
	c.sessionLatency.Observe(latency.Seconds())
}

// ReplayWrote counts one write made by the replay server.
func (c *Collector) ReplayWrote(lines, n int) {
	c.replayLines.Add(float64(lines))
	c.replayBytes.Add(float64(n))
}

// ReplayFinished counts one replay request by outcome.
func (c *Collector) ReplayFinished(outcome string) {
	c.replayStreams.WithLabelValues(outcome).Inc()
}
