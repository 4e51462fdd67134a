// Package metrics exposes GenTrack's Prometheus instrumentation: the
// per-probe duration histogram, a checks-total counter broken down by
// reason code, and a scheduler-tick duration histogram, all served
// from a dedicated registry at GET /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds GenTrack's registered collectors.
type Metrics struct {
	registry      *prometheus.Registry
	probeDuration prometheus.Histogram
	checksTotal   *prometheus.CounterVec
	tickDuration  prometheus.Histogram
}

// New builds a dedicated registry and registers GenTrack's metrics
// plus the standard Go runtime/process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gentrack_probe_duration_seconds",
			Help:    "Duration of HTTP probes issued against targets.",
			Buckets: prometheus.DefBuckets,
		}),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gentrack_checks_total",
			Help: "Total checks recorded, broken down by reason code (ok when up).",
		}, []string{"reason_code"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gentrack_scheduler_tick_duration_seconds",
			Help:    "Duration of a full scheduler tick across all due targets.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(m.probeDuration, m.checksTotal, m.tickDuration)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// ObserveProbeDuration records one probe's wall-clock duration.
func (m *Metrics) ObserveProbeDuration(d time.Duration) {
	m.probeDuration.Observe(d.Seconds())
}

// ObserveTick records one scheduler tick's wall-clock duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}

// IncChecksTotal increments the checks counter for reasonCode.
func (m *Metrics) IncChecksTotal(reasonCode string) {
	m.checksTotal.WithLabelValues(reasonCode).Inc()
}

// Handler returns the http.Handler serving this registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
