// Package metrics exposes Prometheus collectors for the search service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type collectors struct {
	activePages                prometheus.Gauge
	navigationAttemptsTotal    *prometheus.CounterVec
	searchesTotal              *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
}

var (
	// registered is nil until Init; Observe* helpers load it atomically so
	// Init may race with observers.
	registered atomic.Pointer[collectors]

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times;
// Observe* calls made before Init are dropped.
func Init() {
	once.Do(func() {
		c := &collectors{
			activePages: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "dealsearch_active_pages",
					Help: "Number of browser pages currently holding a gate permit.",
				},
			),
			navigationAttemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dealsearch_navigation_attempts_total",
					Help: "Navigation attempts, labeled by outcome (success, retryable, fatal).",
				},
				[]string{"outcome"},
			),
			searchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dealsearch_searches_total",
					Help: "Completed searches, labeled by result code.",
				},
				[]string{"code"},
			),
			httpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests, labeled by method, route and code.",
				},
				[]string{"method", "route", "code"},
			),
			httpRequestDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "Histogram of HTTP request latencies, labeled by method and route.",
					Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
				},
				[]string{"method", "route"},
			),
		}
		registered.Store(c)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetActivePages records the gate's in-flight count.
func SetActivePages(n int) {
	if c := registered.Load(); c != nil {
		c.activePages.Set(float64(n))
	}
}

// ObserveNavigation counts one navigation attempt.
func ObserveNavigation(outcome string) {
	if c := registered.Load(); c != nil {
		c.navigationAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveSearch counts one finished search; code is "OK", "NO_RESULTS"
// or a models.ErrCode* value.
func ObserveSearch(code string) {
	if c := registered.Load(); c != nil {
		c.searchesTotal.WithLabelValues(code).Inc()
	}
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c := registered.Load()
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
