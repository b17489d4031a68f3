// Package metrics exposes Prometheus collectors for the ingestion pipeline
// and the cache proxy.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Item outcomes recorded by ObserveItem.
const (
	OutcomeHit       = "hit"
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
)

var (
	ingestItemsTotal         *prometheus.CounterVec
	ingestCacheChecksTotal   *prometheus.CounterVec
	ingestUploadedBytesTotal prometheus.Counter
	ingestItemDurationSecs   prometheus.Histogram
	ingestRunsTotal          *prometheus.CounterVec
	proxyRequestsTotal       *prometheus.CounterVec
	proxyRequestDurationSecs *prometheus.HistogramVec
	proxyChecksTotal         *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_items_total",
				Help: "Total work items handled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		ingestCacheChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_cache_checks_total",
				Help: "Cache check results seen by the worker, labeled by reason.",
			},
			[]string{"reason"},
		)

		ingestUploadedBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_uploaded_bytes_total",
				Help: "Total summary bytes written to blob storage.",
			},
		)

		ingestItemDurationSecs = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_item_duration_seconds",
				Help:    "Histogram of per-item extract+upload durations.",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		)

		ingestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Total pipeline runs, labeled by result.",
			},
			[]string{"result"},
		)

		proxyRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cacheproxy_requests_total",
				Help: "Total HTTP requests served by the cache proxy, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		proxyRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cacheproxy_request_duration_seconds",
				Help:    "Histogram of cache proxy request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)

		proxyChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cacheproxy_checks_total",
				Help: "Cache checks answered by the proxy, labeled by reason.",
			},
			[]string{"reason"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem records an item's final disposition and any uploaded bytes.
func ObserveItem(outcome string, uploadedBytes int64) {
	ingestItemsTotal.WithLabelValues(outcome).Inc()
	if uploadedBytes > 0 {
		ingestUploadedBytesTotal.Add(float64(uploadedBytes))
	}
}

// ObserveCacheCheck records a worker-side cache check result.
func ObserveCacheCheck(reason string) {
	ingestCacheChecksTotal.WithLabelValues(reason).Inc()
}

// ObserveItemDuration records how long one item's real work took.
func ObserveItemDuration(d time.Duration) {
	ingestItemDurationSecs.Observe(d.Seconds())
}

// ObserveRun records a completed pipeline run.
func ObserveRun(result string) {
	ingestRunsTotal.WithLabelValues(result).Inc()
}

// ObserveProxyRequest increments the proxy HTTP request metrics.
func ObserveProxyRequest(method, route string, code int, duration time.Duration) {
	proxyRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	proxyRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveProxyCheck records a proxy-side cache check reason.
func ObserveProxyCheck(reason string) {
	proxyChecksTotal.WithLabelValues(reason).Inc()
}
