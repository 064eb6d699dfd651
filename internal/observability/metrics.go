package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	classificationsTotal  *prometheus.CounterVec
	piiEntitiesTotal      *prometheus.CounterVec
	piiOverlapsTotal      prometheus.Counter
	classificationCache   *prometheus.CounterVec
	classificationSeconds prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses.",
		}, []string{"method", "route", "status"})

		classificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classifications_total",
			Help: "Emails classified, by resulting category and entry point.",
		}, []string{"category", "entry_point"})

		piiEntitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pii_entities_total",
			Help: "PII entities masked, by classification.",
		}, []string{"classification"})

		piiOverlapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pii_overlap_total",
			Help: "Overlapping entity pairs seen while masking.",
		})

		classificationCache = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classification_cache_total",
			Help: "Classification cache lookups by result.",
		}, []string{"result"})

		classificationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "classification_duration_seconds",
			Help:    "Time spent masking and classifying one email.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			classificationsTotal, piiEntitiesTotal, piiOverlapsTotal,
			classificationCache, classificationSeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Classifications exposes the per-category classification counter.
func Classifications() *prometheus.CounterVec {
	RegisterMetrics()
	return classificationsTotal
}

// PIIEntities exposes the masked entity counter.
func PIIEntities() *prometheus.CounterVec {
	RegisterMetrics()
	return piiEntitiesTotal
}

// PIIOverlaps exposes the overlapping-span counter.
func PIIOverlaps() prometheus.Counter {
	RegisterMetrics()
	return piiOverlapsTotal
}

// ClassificationCache exposes the cache hit/miss counter.
func ClassificationCache() *prometheus.CounterVec {
	RegisterMetrics()
	return classificationCache
}

// ClassificationDuration exposes the core latency histogram.
func ClassificationDuration() prometheus.Histogram {
	RegisterMetrics()
	return classificationSeconds
}
