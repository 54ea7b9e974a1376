// Package metrics provides Prometheus metrics for the MARGO reading service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval    = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Manager manages all Prometheus metrics for the MARGO service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Capture pipeline - the event path that builds evidence
	selectionsCaptured prometheus.Counter
	answersApplied     prometheus.Counter
	eventsIgnored      prometheus.Counter
	eventsDuplicate    prometheus.Counter
	dispatchLatency    prometheus.Histogram

	// Session state
	evidenceSpans   prometheus.Gauge
	tasksCompleted  prometheus.Gauge
	tasksTotal      prometheus.Gauge
	progressPercent prometheus.Gauge
	sessionDwellMs  prometheus.Gauge

	// Scoring
	scoringRuns    *prometheus.CounterVec
	scoredLearners prometheus.Counter
	scoringLatency prometheus.Histogram

	// Flag reconciliation
	reconcileRuns  prometheus.Counter
	demoFlags      prometheus.Gauge
	persistedFlags prometheus.Gauge
	learnersTotal  prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Archive
	archiveWrites prometheus.Counter
	archiveErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "margo",
		subsystem:        "reading",
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
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Capture pipeline
	m.selectionsCaptured = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "selections_captured_total",
		Help:      "Total number of selection events that produced an evidence span",
	})

	m.answersApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "answers_applied_total",
		Help:      "Total number of answer-change events applied to tasks",
	})

	m.eventsIgnored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_ignored_total",
		Help:      "Total number of degenerate events dropped as silent no-ops",
	})

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of duplicate events rejected by the idempotency filter",
	})

	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_latency_milliseconds",
		Help:      "Histogram of per-event dispatch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Session state
	m.evidenceSpans = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evidence_spans",
		Help:      "Current number of captured evidence spans in the session",
	})

	m.tasksCompleted = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_completed",
		Help:      "Current number of completed tasks in the session",
	})

	m.tasksTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_total",
		Help:      "Total number of tasks in the session task list",
	})

	m.progressPercent = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "progress_percent",
		Help:      "Aggregate task completion percentage for the session",
	})

	m.sessionDwellMs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_dwell_milliseconds",
		Help:      "Accumulated session dwell time in milliseconds",
	})

	// Scoring
	m.scoringRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "scoring_runs_total",
			Help:      "Total number of batch scoring runs by rubric policy",
		},
		[]string{"policy"},
	)

	m.scoredLearners = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scored_learners_total",
		Help:      "Total number of learner records scored across all runs",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_milliseconds",
		Help:      "Histogram of batch scoring latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Flag reconciliation
	m.reconcileRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_runs_total",
		Help:      "Total number of skim-flag reconciliation passes",
	})

	m.demoFlags = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "demo_flags",
		Help:      "Current number of demo-origin disengagement flags",
	})

	m.persistedFlags = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persisted_flags",
		Help:      "Current number of persisted-origin disengagement flags",
	})

	m.learnersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "learners_total",
		Help:      "Total number of learner records in the roster",
	})

	// Queue
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the capture-event queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum capture-event queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of events enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of events dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue rejections (backpressure)",
	})

	// Archive
	m.archiveWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_writes_total",
		Help:      "Total number of scoring runs written to the archive",
	})

	m.archiveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_errors_total",
		Help:      "Total number of archive write failures",
	})

	// HTTP
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error tracking
	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	// System
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Capture pipeline helpers.

// RecordSelectionCaptured increments the captured-selections counter.
func RecordSelectionCaptured() {
	globalManager.selectionsCaptured.Inc()
}

// RecordAnswerApplied increments the applied-answers counter.
func RecordAnswerApplied() {
	globalManager.answersApplied.Inc()
}

// RecordEventIgnored increments the ignored-events counter.
func RecordEventIgnored() {
	globalManager.eventsIgnored.Inc()
}

// RecordEventDuplicate increments the duplicate-events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordDispatchLatency records per-event dispatch latency in milliseconds.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// Session state helpers.

// UpdateEvidenceSpans sets the current evidence span count.
func UpdateEvidenceSpans(count int) {
	globalManager.evidenceSpans.Set(float64(count))
}

// UpdateTaskProgress sets task completion gauges and the aggregate percent.
func UpdateTaskProgress(completed, total int, percent float64) {
	globalManager.tasksCompleted.Set(float64(completed))
	globalManager.tasksTotal.Set(float64(total))
	globalManager.progressPercent.Set(percent)
}

// UpdateSessionDwell sets the accumulated session dwell time.
func UpdateSessionDwell(dwellMs int64) {
	globalManager.sessionDwellMs.Set(float64(dwellMs))
}

// Scoring helpers.

// RecordScoringRun increments the scoring-run counter for a policy.
func RecordScoringRun(policy string) {
	globalManager.scoringRuns.WithLabelValues(policy).Inc()
}

// RecordScoredLearners adds to the scored-learner counter.
func RecordScoredLearners(count int) {
	globalManager.scoredLearners.Add(float64(count))
}

// RecordScoringLatency records batch scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// Flag reconciliation helpers.

// RecordReconcileRun increments the reconciliation pass counter.
func RecordReconcileRun() {
	globalManager.reconcileRuns.Inc()
}

// UpdateFlagCounts sets the demo and persisted flag gauges.
func UpdateFlagCounts(demo, persisted int) {
	globalManager.demoFlags.Set(float64(demo))
	globalManager.persistedFlags.Set(float64(persisted))
}

// UpdateLearnersTotal sets the roster size gauge.
func UpdateLearnersTotal(count int) {
	globalManager.learnersTotal.Set(float64(count))
}

// Queue helpers.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue rejection counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Archive helpers.

// RecordArchiveWrite increments the archive write counter.
func RecordArchiveWrite() {
	globalManager.archiveWrites.Inc()
}

// RecordArchiveError increments the archive error counter.
func RecordArchiveError() {
	globalManager.archiveErrors.Inc()
}

// HTTP helpers.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error helpers.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System helpers.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// StartSystemRefresher samples runtime memory and goroutine stats on the
// manager's refresh interval until ctx is cancelled.
func StartSystemRefresher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(globalManager.refreshInterval)
		defer ticker.Stop()

		var lastNumGC uint32
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				UpdateSystemMemoryUsage(ms.Alloc)
				UpdateSystemGoroutineCount(runtime.NumGoroutine())
				if ms.NumGC > lastNumGC {
					recent := ms.PauseNs[(ms.NumGC+255)%256]
					RecordSystemGCPauseTime(float64(recent) / nanosecondsPerMillisecond)
					lastNumGC = ms.NumGC
				}
			}
		}
	}()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
