package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the agent studio
type Metrics struct {
	// Catalog metrics
	AgentsLoaded        *prometheus.GaugeVec
	CatalogDegradations *prometheus.CounterVec

	// Completion metrics
	CompletionRequests *prometheus.CounterVec
	CompletionLatency  *prometheus.HistogramVec
	CompletionTokens   *prometheus.CounterVec
	CompletionFallback *prometheus.CounterVec

	// Model catalog metrics
	ModelListRequests *prometheus.CounterVec

	// System metrics
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	RateLimited         *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			AgentsLoaded: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "agentstudio_agents_loaded",
					Help: "Number of personas loaded per department",
				},
				[]string{"department"},
			),
			CatalogDegradations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentstudio_catalog_degradations_total",
					Help: "Catalog load degradations by kind",
				},
				[]string{"kind"}, // skipped, degraded, duplicate, root_missing
			),

			CompletionRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentstudio_completion_requests_total",
					Help: "Total number of completion backend requests",
				},
				[]string{"model", "success"},
			),
			CompletionLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agentstudio_completion_request_duration_seconds",
					Help:    "Completion backend request duration in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to 51s
				},
				[]string{"model"},
			),
			CompletionTokens: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentstudio_completion_tokens_total",
					Help: "Total tokens reported by the completion backend",
				},
				[]string{"model", "type"}, // type: prompt, completion, total
			),
			CompletionFallback: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentstudio_completion_fallbacks_total",
					Help: "Completions retried against the default model",
				},
				[]string{"result"},
			),

			ModelListRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentstudio_model_list_requests_total",
					Help: "Model list fetches by outcome",
				},
				[]string{"result"}, // cached, fetched, error
			),

			CacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "agentstudio_cache_hits_total",
					Help: "Total number of cache hits",
				},
			),
			CacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "agentstudio_cache_misses_total",
					Help: "Total number of cache misses",
				},
			),
			RateLimited: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentstudio_rate_limited_total",
					Help: "Requests rejected by a rate limiter",
				},
				[]string{"limiter"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentstudio_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agentstudio_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})

	return sharedMetrics
}

// The recorders below accept a nil receiver so components can run without
// metrics in tests.

// RecordCompletion records a completion backend request
func (m *Metrics) RecordCompletion(model string, success bool, latencySeconds float64, promptTokens, completionTokens, totalTokens int64) {
	if m == nil {
		return
	}
	m.CompletionRequests.WithLabelValues(model, strconv.FormatBool(success)).Inc()
	m.CompletionLatency.WithLabelValues(model).Observe(latencySeconds)
	if promptTokens > 0 {
		m.CompletionTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.CompletionTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens > 0 {
		m.CompletionTokens.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// RecordFallback records the outcome of a retry against the default model
func (m *Metrics) RecordFallback(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.CompletionFallback.WithLabelValues(result).Inc()
}

// RecordModelList records a model list lookup
func (m *Metrics) RecordModelList(result string) {
	if m == nil {
		return
	}
	m.ModelListRequests.WithLabelValues(result).Inc()
}

// RecordCache records a cache lookup
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordCatalog publishes catalog sizes and load degradations
func (m *Metrics) RecordCatalog(perDepartment map[string]int, skipped, degraded, duplicates int, rootMissing bool) {
	if m == nil {
		return
	}
	for dept, count := range perDepartment {
		m.AgentsLoaded.WithLabelValues(dept).Set(float64(count))
	}
	m.CatalogDegradations.WithLabelValues("skipped").Add(float64(skipped))
	m.CatalogDegradations.WithLabelValues("degraded").Add(float64(degraded))
	m.CatalogDegradations.WithLabelValues("duplicate").Add(float64(duplicates))
	if rootMissing {
		m.CatalogDegradations.WithLabelValues("root_missing").Inc()
	}
}

// RecordRateLimited records a request rejected by a limiter
func (m *Metrics) RecordRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(limiter).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}
