// Package metrics provides Prometheus metrics for the marquee section service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	OutcomeOK          = "ok"
	OutcomeStatus      = "status_error"
	OutcomeTransport   = "transport_error"
	OutcomeBreakerOpen = "breaker_open"
	OutcomeMalformed   = "malformed"
	OutcomeRateLimited = "rate_limited"

	EnrichFound       = "found"
	EnrichUnavailable = "unavailable"
	EnrichError       = "error"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Pipeline
	sectionFetches      *prometheus.CounterVec
	sectionItems        *prometheus.HistogramVec
	sectionLatency      *prometheus.HistogramVec
	enrichmentLookups   *prometheus.CounterVec
	genreResolutions    *prometheus.CounterVec
	catalogEmptyResults *prometheus.CounterVec

	// Upstreams
	upstreamRequests   *prometheus.CounterVec
	upstreamLatency    *prometheus.HistogramVec
	upstreamRetries    *prometheus.CounterVec
	circuitBreaker     *prometheus.GaugeVec
	circuitTransitions *prometheus.CounterVec

	// Result cache
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheLoads     *prometheus.CounterVec
	cacheShared    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheEntries   *prometheus.GaugeVec

	// Warm-up queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      *prometheus.CounterVec
	warmupDuplicates        prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "marquee",
		subsystem:        "sections",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, Buckets: buckets, ConstLabels: m.customLabels,
		})
	}
	latencyBuckets := []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	// Pipeline
	m.sectionFetches = m.counterVec("section_fetches_total", "Section fetches by category", "category")
	m.sectionItems = m.histogramVec("section_items", "Number of movies returned per section fetch",
		[]float64{0, 1, 5, 10, 15, 20}, "category")
	m.sectionLatency = m.histogramVec("section_fetch_duration_milliseconds", "End-to-end section fetch latency",
		latencyBuckets, "category")
	m.enrichmentLookups = m.counterVec("enrichment_lookups_total", "Enrichment lookups by kind and result", "lookup", "result")
	m.genreResolutions = m.counterVec("genre_resolutions_total", "Genre name resolutions by result", "result")
	m.catalogEmptyResults = m.counterVec("catalog_empty_results_total", "Catalog listings that degraded to an empty list", "category")

	// Upstreams
	m.upstreamRequests = m.counterVec("upstream_requests_total", "Outbound upstream requests by provider and outcome", "provider", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_request_duration_milliseconds", "Outbound upstream request latency",
		latencyBuckets, "provider")
	m.upstreamRetries = m.counterVec("upstream_retries_total", "Outbound upstream retries by provider", "provider")
	m.circuitBreaker = m.gaugeVec("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "provider")
	m.circuitTransitions = m.counterVec("circuit_breaker_transitions_total", "Circuit breaker state transitions", "provider", "from", "to")

	// Result cache
	m.cacheHits = m.counterVec("cache_hits_total", "Result cache hits", "cache")
	m.cacheMisses = m.counterVec("cache_misses_total", "Result cache misses", "cache")
	m.cacheLoads = m.counterVec("cache_loads_total", "Result cache loader invocations by result", "cache", "result")
	m.cacheShared = m.counterVec("cache_shared_loads_total", "Callers that waited on another caller's in-flight load", "cache")
	m.cacheEvictions = m.counterVec("cache_evictions_total", "Expired entries evicted on access", "cache")
	m.cacheEntries = m.gaugeVec("cache_entries", "Current number of cached entries", "cache")

	// Warm-up queue and workers
	m.queueSize = gauge("warmup_queue_size", "Current number of queued warm-up requests")
	m.queueCapacity = gauge("warmup_queue_capacity", "Capacity of the warm-up queue")
	m.queueEnqueued = counter("warmup_enqueued_total", "Warm-up requests accepted")
	m.queueDequeued = counter("warmup_dequeued_total", "Warm-up requests handed to workers")
	m.queueEnqueueErrors = m.counterVec("warmup_enqueue_errors_total", "Warm-up requests rejected by reason", "reason")
	m.warmupDuplicates = counter("warmup_duplicates_total", "Warm-up requests suppressed as already pending")
	m.workerCount = gauge("worker_count", "Number of warm-up workers")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Warm-up processing latency", latencyBuckets)
	m.workerErrors = counter("worker_errors_total", "Warm-up processing errors")

	// HTTP
	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "method", "error_type")

	// System
	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSectionFetch records one completed section fetch.
func RecordSectionFetch(category string, items int, latencyMs float64) {
	globalManager.sectionFetches.WithLabelValues(category).Inc()
	globalManager.sectionItems.WithLabelValues(category).Observe(float64(items))
	globalManager.sectionLatency.WithLabelValues(category).Observe(latencyMs)
}

// RecordCatalogEmpty records a listing that came back empty.
func RecordCatalogEmpty(category string) {
	globalManager.catalogEmptyResults.WithLabelValues(category).Inc()
}

// RecordEnrichment records the result of one enrichment lookup.
func RecordEnrichment(lookup, result string) {
	globalManager.enrichmentLookups.WithLabelValues(lookup, result).Inc()
}

// RecordGenreResolution records whether a genre name resolved.
func RecordGenreResolution(resolved bool) {
	result := "resolved"
	if !resolved {
		result = "unresolved"
	}
	globalManager.genreResolutions.WithLabelValues(result).Inc()
}

// RecordUpstreamRequest records an outbound request outcome.
func RecordUpstreamRequest(provider, outcome string) {
	globalManager.upstreamRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordUpstreamLatency records outbound request latency in milliseconds.
func RecordUpstreamLatency(provider string, latencyMs float64) {
	globalManager.upstreamLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordUpstreamRetry increments the retry counter for provider.
func RecordUpstreamRetry(provider string) {
	globalManager.upstreamRetries.WithLabelValues(provider).Inc()
}

// SetCircuitBreakerState sets the breaker gauge for provider.
func SetCircuitBreakerState(provider string, state float64) {
	globalManager.circuitBreaker.WithLabelValues(provider).Set(state)
}

// RecordCircuitBreakerTransition counts a breaker state change.
func RecordCircuitBreakerTransition(provider, from, to string) {
	globalManager.circuitTransitions.WithLabelValues(provider, from, to).Inc()
}

// RecordCacheHit increments the hit counter for cache.
func RecordCacheHit(cache string) { globalManager.cacheHits.WithLabelValues(cache).Inc() }

// RecordCacheMiss increments the miss counter for cache.
func RecordCacheMiss(cache string) { globalManager.cacheMisses.WithLabelValues(cache).Inc() }

// RecordCacheShared increments the shared-load counter for cache.
func RecordCacheShared(cache string) { globalManager.cacheShared.WithLabelValues(cache).Inc() }

// RecordCacheEviction increments the eviction counter for cache.
func RecordCacheEviction(cache string) { globalManager.cacheEvictions.WithLabelValues(cache).Inc() }

// RecordCacheLoad records a loader invocation.
func RecordCacheLoad(cache string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	globalManager.cacheLoads.WithLabelValues(cache, result).Inc()
}

// UpdateCacheEntries sets the entry gauge for cache.
func UpdateCacheEntries(cache string, n int) {
	globalManager.cacheEntries.WithLabelValues(cache).Set(float64(n))
}

// UpdateQueueSize updates the warm-up queue size gauge.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity updates the warm-up queue capacity gauge.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the accepted warm-up counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeued warm-up counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError records a rejected warm-up request.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordWarmupDuplicate records a suppressed duplicate warm-up request.
func RecordWarmupDuplicate() { globalManager.warmupDuplicates.Inc() }

// UpdateWorkerCount updates the worker gauge.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records warm-up processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates the memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
