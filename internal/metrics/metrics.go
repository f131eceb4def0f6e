// Package metrics holds the Prometheus instruments for the phishing
// simulation engine, registered on an explicit registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Dispatch
	EmailsSentTotal   prometheus.Counter
	EmailsFailedTotal *prometheus.CounterVec
	DispatchRunsTotal prometheus.Counter
	DispatchDuration  prometheus.Histogram

	// Tracking
	TrackingEventsTotal *prometheus.CounterVec

	// Cache
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with all instruments registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EmailsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phishing_emails_sent_total",
			Help: "Total number of simulation emails handed to the transport",
		}),
		EmailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishing_emails_failed_total",
				Help: "Total number of per-recipient dispatch failures",
			},
			[]string{"reason"},
		),
		DispatchRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phishing_dispatch_runs_total",
			Help: "Total number of batch dispatch runs",
		}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "phishing_dispatch_duration_seconds",
			Help:    "Duration of batch dispatch runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		TrackingEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishing_tracking_events_total",
				Help: "Total number of recorded recipient interactions",
			},
			[]string{"event"},
		),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phishing_cache_hits_total",
			Help: "Read-through cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phishing_cache_misses_total",
			Help: "Read-through cache misses",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishing_http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phishing_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.EmailsSentTotal,
		m.EmailsFailedTotal,
		m.DispatchRunsTotal,
		m.DispatchDuration,
		m.TrackingEventsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheHit implements cache.Recorder.
func (m *Metrics) CacheHit() { m.CacheHitsTotal.Inc() }

// CacheMiss implements cache.Recorder.
func (m *Metrics) CacheMiss() { m.CacheMissesTotal.Inc() }
