// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortener"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	urlsCreated    *prometheus.CounterVec
	codeCollisions prometheus.Counter
	redirects      *prometheus.CounterVec
	accessFailures prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		urlsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "urls_created_total",
				Help:      "Total number of URLs created",
			},
			[]string{"code_type"},
		),
		codeCollisions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "code_collisions_total",
				Help:      "Total number of generated short codes that were already taken",
			},
		),
		redirects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Total number of redirect lookups by outcome",
			},
			[]string{"outcome"},
		),
		accessFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_update_failures_total",
				Help:      "Total number of access statistic updates that failed",
			},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		cacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) URLCreated(custom bool) {
	codeType := "generated"
	if custom {
		codeType = "custom"
	}
	m.urlsCreated.WithLabelValues(codeType).Inc()
}

func (m *Metrics) CodeCollision() {
	m.codeCollisions.Inc()
}

func (m *Metrics) Redirect(outcome string) {
	m.redirects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AccessUpdateFailed() {
	m.accessFailures.Inc()
}

func (m *Metrics) CacheHit() {
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	m.cacheMisses.Inc()
}
