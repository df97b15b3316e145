package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meshbbs"

// Inbound routes.
const (
	RouteMenu     = "menu"
	RouteDialogue = "dialogue"
	RouteQuick    = "quick"
	RouteSync     = "sync"
	RouteIgnored  = "ignored"
)

// Sync line outcomes.
const (
	SyncSent    = "sent"
	SyncApplied = "applied"
	SyncDropped = "dropped"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	InboundMessages *prometheus.CounterVec
	OutboundChunks  *prometheus.CounterVec
	SyncLines       *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	TurnDuration    prometheus.Histogram
}

// NewRegistry creates a registry with Go and process collectors and the
// MeshBBS metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		InboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound text messages by router decision",
		}, []string{"route"}),
		OutboundChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_chunks_total",
			Help:      "Radio chunks sent, by result",
		}, []string{"result"}),
		SyncLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "lines_total",
			Help:      "Replication lines by outcome and tag",
		}, []string{"outcome", "tag"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Senders with an open dialogue",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent handling one inbound message, excluding radio pacing",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.InboundMessages,
		r.OutboundChunks,
		r.SyncLines,
		r.ActiveSessions,
		r.TurnDuration,
	)
	return r
}

// Registerer returns the underlying registerer so other packages can add
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Inbound counts one inbound message.
func (r *Registry) Inbound(route string) {
	if r == nil {
		return
	}
	r.InboundMessages.WithLabelValues(route).Inc()
}

// Chunk counts one outbound chunk.
func (r *Registry) Chunk(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.OutboundChunks.WithLabelValues(result).Inc()
}

// Sync counts one replication line.
func (r *Registry) Sync(outcome, tag string) {
	if r == nil {
		return
	}
	r.SyncLines.WithLabelValues(outcome, tag).Inc()
}

// SetActiveSessions records the session store size.
func (r *Registry) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.ActiveSessions.Set(float64(n))
}

// ObserveTurn records how long one inbound message took to handle.
func (r *Registry) ObserveTurn(d time.Duration) {
	if r == nil {
		return
	}
	r.TurnDuration.Observe(d.Seconds())
}
