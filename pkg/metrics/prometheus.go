// Package metrics provides Prometheus metrics for the RMI scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the RMI service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core Business Metrics - the scoring pipeline
	calculationsTotal    prometheus.Counter
	calculationLatency   prometheus.Histogram
	pillarScore          *prometheus.GaugeVec
	criticalFailures     prometheus.Counter
	evidenceViolations   prometheus.Counter
	narrativeDegradation prometheus.Counter

	// CMMS Analysis Metrics
	analysesTotal  *prometheus.CounterVec
	analysisErrors prometheus.Counter

	// Queue Metrics - narrative job queue performance
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics - narrative worker pool
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rmi",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.calculationsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "calculations_total",
		Help:      "Total number of assessment score calculations",
	})

	m.calculationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "calculation_latency_milliseconds",
		Help:      "Histogram of full assessment calculation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.pillarScore = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pillar_score",
		Help:      "Latest final score per pillar",
	}, []string{"pillar"})

	m.criticalFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "critical_failures_total",
		Help:      "Total number of critical question failures capping a pillar",
	})

	m.evidenceViolations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evidence_violations_total",
		Help:      "Total number of unevidenced high scores flagged",
	})

	m.narrativeDegradation = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "narrative_degradations_total",
		Help:      "Total number of narrative scores that fell back to neutral",
	})

	m.analysesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cmms_analyses_total",
		Help:      "Total number of CMMS metric runs by kind",
	}, []string{"kind"})

	m.analysisErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cmms_analysis_errors_total",
		Help:      "Total number of failed CMMS metric runs",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of narrative jobs waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured narrative queue capacity",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of narrative jobs enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of narrative jobs dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue rejections due to backpressure",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of narrative workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Histogram of narrative job processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of narrative job failures",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordCalculation increments the calculations counter.
func RecordCalculation() {
	if globalManager != nil && globalManager.enabled {
		globalManager.calculationsTotal.Inc()
	}
}

// RecordCalculationLatency records full calculation latency in milliseconds.
func RecordCalculationLatency(latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.calculationLatency.Observe(latencyMs)
	}
}

// UpdatePillarScore sets the latest final score for a pillar.
func UpdatePillarScore(pillar string, score float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.pillarScore.WithLabelValues(pillar).Set(score)
	}
}

// RecordCriticalFailure increments the critical failure counter.
func RecordCriticalFailure() {
	if globalManager != nil && globalManager.enabled {
		globalManager.criticalFailures.Inc()
	}
}

// RecordEvidenceViolation increments the evidence violation counter.
func RecordEvidenceViolation() {
	if globalManager != nil && globalManager.enabled {
		globalManager.evidenceViolations.Inc()
	}
}

// RecordNarrativeDegradation increments the degradation counter.
func RecordNarrativeDegradation() {
	if globalManager != nil && globalManager.enabled {
		globalManager.narrativeDegradation.Inc()
	}
}

// RecordAnalysis increments the CMMS analysis counter for a kind.
func RecordAnalysis(kind string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.analysesTotal.WithLabelValues(kind).Inc()
	}
}

// RecordAnalysisError increments the CMMS analysis error counter.
func RecordAnalysisError() {
	if globalManager != nil && globalManager.enabled {
		globalManager.analysisErrors.Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordEnqueue increments the enqueue counter.
func RecordEnqueue() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueEnqueueRate.Inc()
	}
}

// RecordDequeue increments the dequeue counter.
func RecordDequeue() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueDequeueRate.Inc()
	}
}

// RecordEnqueueError increments the enqueue rejection counter.
func RecordEnqueueError() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records one job's processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// GetRegistry returns the custom registry serving /healthz scrapes.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
