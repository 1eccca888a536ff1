// Package metrics exposes console counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Push outcomes.
const (
	PushApplied   = "applied"
	PushDuplicate = "duplicate"
	PushRemoved   = "removed"
	PushDecodeErr = "decode_error"
)

// Reload reasons.
const (
	ReloadStale     = "stale"
	ReloadManual    = "manual"
	ReloadReconnect = "reconnect"
)

// Metrics holds the console collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	pushEvents     *prometheus.CounterVec
	staleResponses prometheus.Counter
	reloads        *prometheus.CounterVec
	sends          *prometheus.CounterVec
	feedReconnects prometheus.Counter
	watchers       prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datportal",
			Name:      "push_events_total",
			Help:      "Live feed events by outcome.",
		}, []string{"outcome"}),
		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datportal",
			Name:      "stale_responses_total",
			Help:      "Thread fetch responses discarded because the open thread changed.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datportal",
			Name:      "thread_reloads_total",
			Help:      "Full first-page reloads of the open thread.",
		}, []string{"reason"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datportal",
			Name:      "sends_total",
			Help:      "Message sends and uploads by kind and result.",
		}, []string{"kind", "result"}),
		feedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datportal",
			Name:      "feed_reconnects_total",
			Help:      "Live feed reconnect attempts.",
		}),
		watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "datportal",
			Name:      "watchers",
			Help:      "Attached watch streams.",
		}),
	}
	m.reg.MustRegister(
		m.pushEvents, m.staleResponses, m.reloads, m.sends, m.feedReconnects, m.watchers,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) PushEvent(outcome string) {
	if m == nil {
		return
	}
	m.pushEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StaleResponse() {
	if m == nil {
		return
	}
	m.staleResponses.Inc()
}

func (m *Metrics) Reload(reason string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(reason).Inc()
}

// Send records a send or upload attempt; kind is "message" or "upload".
func (m *Metrics) Send(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sends.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) FeedReconnect() {
	if m == nil {
		return
	}
	m.feedReconnects.Inc()
}

func (m *Metrics) WatcherAttached() {
	if m == nil {
		return
	}
	m.watchers.Inc()
}

func (m *Metrics) WatcherDetached() {
	if m == nil {
		return
	}
	m.watchers.Dec()
}
