// Package metrics provides Prometheus metrics for the cinematch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Jobs
	jobsEnqueued     prometheus.Counter
	jobsRejected     *prometheus.CounterVec
	jobOutcomes      *prometheus.CounterVec
	jobDuration      prometheus.Histogram
	jobTimeouts      prometheus.Counter
	jobRunning       prometheus.Gauge
	abandonedRunners prometheus.Gauge

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueDequeued    prometheus.Counter

	// Result cache
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheEvictions     prometheus.Counter
	cacheInvalidations prometheus.Counter
	cacheSize          prometheus.Gauge

	// Scoring
	scorerLatency          *prometheus.HistogramVec
	upstreamDegradations   *prometheus.CounterVec
	recommendationsWritten prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cinematch",
		subsystem:        "recommender",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	m.jobsEnqueued = m.counter("jobs_enqueued_total", "Recommendation jobs accepted by the queue")
	m.jobsRejected = m.counterVec("jobs_rejected_total", "Recommendation jobs rejected at enqueue", "reason")
	m.jobOutcomes = m.counterVec("jobs_finished_total", "Recommendation jobs by final status", "status")
	m.jobDuration = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_duration_milliseconds",
		Help:      "Wall-clock time from running to a final status",
		Buckets:   m.histogramBuckets,
	})
	m.jobTimeouts = m.counter("job_timeouts_total", "Jobs terminated by the hard timeout")
	m.jobRunning = m.gauge("job_running", "1 while the worker is executing a job")
	m.abandonedRunners = m.gauge("abandoned_runners", "Runner goroutines still executing after their job timed out")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the FIFO")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum jobs the FIFO accepts")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "queue_size / queue_capacity")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs handed to the worker")

	m.cacheHits = m.counter("cache_hits_total", "Result cache hits")
	m.cacheMisses = m.counter("cache_misses_total", "Result cache misses, including expired entries")
	m.cacheEvictions = m.counter("cache_evictions_total", "Entries evicted for capacity")
	m.cacheInvalidations = m.counter("cache_invalidations_total", "Explicit invalidations on rating mutation or job completion")
	m.cacheSize = m.gauge("cache_resident_users", "Users with a resident cache entry")

	m.scorerLatency = m.histogramVec("scorer_latency_milliseconds", "Latency of each scoring signal", "signal")
	m.upstreamDegradations = m.counterVec("upstream_degradations_total", "Skipped lookups absorbed by the scorers", "source")
	m.recommendationsWritten = m.counter("recommendations_written_total", "Recommendation rows committed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Job metrics.

// RecordJobEnqueued increments the accepted job counter.
func RecordJobEnqueued() { globalManager.jobsEnqueued.Inc() }

// RecordJobRejected increments the rejected job counter for reason.
func RecordJobRejected(reason string) { globalManager.jobsRejected.WithLabelValues(reason).Inc() }

// RecordJobFinished records the final status and duration of a job.
func RecordJobFinished(status string, durationMs float64) {
	globalManager.jobOutcomes.WithLabelValues(status).Inc()
	globalManager.jobDuration.Observe(durationMs)
}

// RecordJobTimeout increments the timeout counter.
func RecordJobTimeout() { globalManager.jobTimeouts.Inc() }

// SetJobRunning flips the running gauge.
func SetJobRunning(running bool) {
	if running {
		globalManager.jobRunning.Set(1)
		return
	}
	globalManager.jobRunning.Set(0)
}

// AddAbandonedRunners adjusts the abandoned runner gauge by delta.
func AddAbandonedRunners(delta int) { globalManager.abandonedRunners.Add(float64(delta)) }

// Queue metrics.

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueSize sets queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// Cache metrics.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// RecordCacheEviction increments the capacity eviction counter.
func RecordCacheEviction() { globalManager.cacheEvictions.Inc() }

// RecordCacheInvalidation increments the invalidation counter.
func RecordCacheInvalidation() { globalManager.cacheInvalidations.Inc() }

// UpdateCacheSize sets the number of resident users.
func UpdateCacheSize(size int) { globalManager.cacheSize.Set(float64(size)) }

// Scoring metrics.

// RecordScorerLatency observes the latency of one scoring signal.
func RecordScorerLatency(signal string, latencyMs float64) {
	globalManager.scorerLatency.WithLabelValues(signal).Observe(latencyMs)
}

// RecordUpstreamDegradation counts a lookup that was skipped.
func RecordUpstreamDegradation(source string) {
	globalManager.upstreamDegradations.WithLabelValues(source).Inc()
}

// RecordRecommendationsWritten adds n committed recommendation rows.
func RecordRecommendationsWritten(n int) { globalManager.recommendationsWritten.Add(float64(n)) }

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
