// Package metrics provides Prometheus metrics for the WebDAV server.
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

// Manager manages all Prometheus metrics for the DAV service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// HTTP surface: per DAV method and status.
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestBodySize prometheus.Histogram

	// Filesystem backend.
	fsNodes     prometheus.Gauge
	fsBytes     prometheus.Gauge
	fsOpLatency *prometheus.HistogramVec
	fsErrors    *prometheus.CounterVec

	// Lock system.
	locksActive    prometheus.Gauge
	locksGranted   prometheus.Counter
	locksRefreshed prometheus.Counter
	locksDenied    prometheus.Counter
	locksExpired   prometheus.Counter

	// Change journal.
	journalDepth    prometheus.Gauge
	journalCapacity prometheus.Gauge
	journalChanges  *prometheus.CounterVec
	journalDropped  prometheus.Counter

	// System.
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
		namespace:        "dav",
		subsystem:        "server",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
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

	m.requests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "requests_total",
			Help:      "Total number of requests by DAV method and status code",
		},
		[]string{"method", "status_code"},
	)

	m.requestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "request_duration_milliseconds",
			Help:      "Request duration in milliseconds by DAV method and status code",
			Buckets:   m.histogramBuckets,
		},
		[]string{"method", "status_code"},
	)

	m.requestBodySize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "request_body_bytes",
		Help:      "Size of pre-read request bodies in bytes",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	})

	m.fsNodes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fs_nodes",
		Help:      "Current number of nodes in the filesystem backend",
	})

	m.fsBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fs_bytes",
		Help:      "Total bytes stored by the filesystem backend",
	})

	m.fsOpLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "fs_op_latency_milliseconds",
			Help:      "Filesystem operation latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	m.fsErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "fs_errors_total",
			Help:      "Filesystem errors by operation and kind",
		},
		[]string{"op", "kind"},
	)

	m.locksActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "locks_active",
		Help:      "Current number of live locks",
	})

	m.locksGranted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "locks_granted_total",
		Help:      "Total number of locks granted",
	})

	m.locksRefreshed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "locks_refreshed_total",
		Help:      "Total number of lock refreshes",
	})

	m.locksDenied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "locks_denied_total",
		Help:      "Total number of lock requests denied due to conflicts",
	})

	m.locksExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "locks_expired_total",
		Help:      "Total number of locks reaped after timeout",
	})

	m.journalDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_depth",
		Help:      "Current number of queued change events",
	})

	m.journalCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_capacity",
		Help:      "Configured capacity of the change journal queue",
	})

	m.journalChanges = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "journal_changes_total",
			Help:      "Total change events folded into the journal by operation",
		},
		[]string{"op"},
	)

	m.journalDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_dropped_total",
		Help:      "Total change events dropped due to journal backpressure",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated memory in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Package-level helpers operating on the global manager.

// RecordRequest records a completed request.
func RecordRequest(method, statusCode string) {
	globalManager.requests.WithLabelValues(method, statusCode).Inc()
}

// RecordRequestDuration records request latency in milliseconds.
func RecordRequestDuration(method, statusCode string, durationMs float64) {
	globalManager.requestDuration.WithLabelValues(method, statusCode).Observe(durationMs)
}

// RecordRequestBodySize records the size of a pre-read request body.
func RecordRequestBodySize(bytes int) {
	globalManager.requestBodySize.Observe(float64(bytes))
}

// UpdateFSNodes sets the current filesystem node count.
func UpdateFSNodes(count int) {
	globalManager.fsNodes.Set(float64(count))
}

// UpdateFSBytes sets the total bytes stored by the filesystem backend.
func UpdateFSBytes(bytes int64) {
	globalManager.fsBytes.Set(float64(bytes))
}

// RecordFSOpLatency records filesystem operation latency in milliseconds.
func RecordFSOpLatency(op string, latencyMs float64) {
	globalManager.fsOpLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordFSError records a filesystem error by operation and kind.
func RecordFSError(op, kind string) {
	globalManager.fsErrors.WithLabelValues(op, kind).Inc()
}

// UpdateLocksActive sets the current live lock count.
func UpdateLocksActive(count int) {
	globalManager.locksActive.Set(float64(count))
}

// RecordLockGranted counts a granted lock.
func RecordLockGranted() {
	globalManager.locksGranted.Inc()
}

// RecordLockRefreshed counts a lock refresh.
func RecordLockRefreshed() {
	globalManager.locksRefreshed.Inc()
}

// RecordLockDenied counts a lock conflict denial.
func RecordLockDenied() {
	globalManager.locksDenied.Inc()
}

// RecordLockExpired counts a reaped lock.
func RecordLockExpired() {
	globalManager.locksExpired.Inc()
}

// UpdateJournalDepth sets the current journal queue depth.
func UpdateJournalDepth(depth int) {
	globalManager.journalDepth.Set(float64(depth))
}

// UpdateJournalCapacity sets the configured journal capacity.
func UpdateJournalCapacity(capacity int) {
	globalManager.journalCapacity.Set(float64(capacity))
}

// RecordJournalChange counts a folded change event by operation.
func RecordJournalChange(op string) {
	globalManager.journalChanges.WithLabelValues(op).Inc()
}

// RecordJournalDropped counts a dropped change event.
func RecordJournalDropped() {
	globalManager.journalDropped.Inc()
}

// UpdateSystemMemoryUsage sets current allocated memory.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
