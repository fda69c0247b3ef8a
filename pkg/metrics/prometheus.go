// Package metrics provides Prometheus metrics for the rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Match intake
	matchesSubmitted prometheus.Counter
	matchesDuplicate prometheus.Counter
	matchesRecorded  prometheus.Counter
	matchesDropped   *prometheus.CounterVec
	pendingMatches   prometheus.Gauge

	// Rating periods
	recalculations       *prometheus.CounterVec
	recalculationLatency prometheus.Histogram
	competitorsUpdated   prometheus.Counter
	engineErrors         *prometheus.CounterVec
	volatilityIterations prometheus.Histogram
	competitors          prometheus.Gauge

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	workerErrors       prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "glicko",
		subsystem:        "ratings",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.matchesSubmitted = m.counter("matches_submitted_total", "Matches accepted for the open rating period")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Match submissions rejected as duplicates")
	m.matchesRecorded = m.counter("matches_recorded_total", "Matches recorded in the period ledger")
	m.matchesDropped = m.counterVec("matches_dropped_total", "Matches dropped by the workers", "reason")
	m.pendingMatches = m.gauge("pending_matches", "Matches waiting for the next recalculation")

	m.recalculations = m.counterVec("recalculations_total", "Rating period recalculations by outcome", "status")
	m.recalculationLatency = m.histogram("recalculation_duration_milliseconds", "Duration of a full recalculation", m.histogramBuckets)
	m.competitorsUpdated = m.counter("competitors_updated_total", "Competitor states written by recalculations")
	m.engineErrors = m.counterVec("engine_errors_total", "Rating engine failures by kind", "kind")
	m.volatilityIterations = m.histogram("volatility_iterations", "Regula falsi steps per competitor update", []float64{0, 1, 2, 3, 4, 5, 8, 13, 21, 34, 55, 100})
	m.competitors = m.gauge("competitors", "Registered competitors")

	m.queueSize = m.gauge("queue_size", "Current size of the match queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the match queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueue attempts", "reason")
	m.workerCount = m.gauge("worker_count", "Workers draining the match queue")
	m.workerErrors = m.counter("worker_errors_total", "Errors returned while recording matches")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordMatchSubmitted increments the accepted matches counter.
func RecordMatchSubmitted() { globalManager.matchesSubmitted.Inc() }

// RecordMatchDuplicate increments the duplicate matches counter.
func RecordMatchDuplicate() { globalManager.matchesDuplicate.Inc() }

// RecordMatchRecorded increments the recorded matches counter.
func RecordMatchRecorded() { globalManager.matchesRecorded.Inc() }

// RecordMatchDropped counts a match the workers could not record.
func RecordMatchDropped(reason string) { globalManager.matchesDropped.WithLabelValues(reason).Inc() }

// UpdatePendingMatches sets the number of matches in the open period.
func UpdatePendingMatches(n int) { globalManager.pendingMatches.Set(float64(n)) }

// RecordRecalculation counts a finished recalculation and its duration.
func RecordRecalculation(status string, durationMs float64) {
	globalManager.recalculations.WithLabelValues(status).Inc()
	globalManager.recalculationLatency.Observe(durationMs)
}

// AddCompetitorsUpdated adds n written competitor states.
func AddCompetitorsUpdated(n int) { globalManager.competitorsUpdated.Add(float64(n)) }

// RecordEngineError counts an engine failure of the given kind.
func RecordEngineError(kind string) { globalManager.engineErrors.WithLabelValues(kind).Inc() }

// RecordVolatilityIterations observes the root-find steps of one update.
func RecordVolatilityIterations(n int) { globalManager.volatilityIterations.Observe(float64(n)) }

// UpdateCompetitors sets the registered competitor count.
func UpdateCompetitors(n int) { globalManager.competitors.Set(float64(n)) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
