// Package metrics provides Prometheus metrics for the team matching service.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Outcome label values for runs and predictor calls.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeNotReady = "not_ready"
	OutcomeError    = "error"
	OutcomeReplayed = "replayed"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Matching runs
	runsTotal          *prometheus.CounterVec
	runLatency         *prometheus.HistogramVec
	peoplePerRun       prometheus.Histogram
	teamsFormed        prometheus.Counter
	balancerIterations prometheus.Histogram
	balancerSwaps      prometheus.Counter
	finalSpread        prometheus.Histogram

	// Predictor
	predictorCalls   *prometheus.CounterVec
	predictorLatency prometheus.Histogram
	predictorPairs   prometheus.Histogram

	// Records
	storedRuns prometheus.Gauge

	// Run queue and workers
	queueDepth    prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueRejected *prometheus.CounterVec
	queueWait     prometheus.Histogram
	workersBusy   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram

	gcMu      sync.Mutex
	lastNumGC uint32
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "teamforge",
		subsystem:        "matching",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.runsTotal = auto.NewCounterVec(
		m.counterOpts("runs_total", "Matching runs by scorer kind and outcome"),
		[]string{"scorer", "outcome"},
	)
	m.runLatency = auto.NewHistogramVec(
		m.histogramOpts("run_latency_milliseconds", "End-to-end matching run latency in milliseconds", m.histogramBuckets),
		[]string{"scorer"},
	)
	m.peoplePerRun = auto.NewHistogram(
		m.histogramOpts("people_per_run", "Population size of matching runs", prometheus.ExponentialBuckets(2, 2, 11)),
	)
	m.teamsFormed = auto.NewCounter(
		m.counterOpts("teams_formed_total", "Total number of teams returned"),
	)
	m.balancerIterations = auto.NewHistogram(
		m.histogramOpts("balancer_iterations", "Balancer passes per run", prometheus.LinearBuckets(0, 5, 11)),
	)
	m.balancerSwaps = auto.NewCounter(
		m.counterOpts("balancer_swaps_total", "Total number of member swaps applied by the balancer"),
	)
	m.finalSpread = auto.NewHistogram(
		m.histogramOpts("final_spread", "Team score spread after balancing", []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1}),
	)

	m.predictorCalls = auto.NewCounterVec(
		m.counterOpts("predictor_calls_total", "Predictor round trips by outcome"),
		[]string{"outcome"},
	)
	m.predictorLatency = auto.NewHistogram(
		m.histogramOpts("predictor_latency_milliseconds", "Predictor round trip latency in milliseconds", m.histogramBuckets),
	)
	m.predictorPairs = auto.NewHistogram(
		m.histogramOpts("predictor_batch_pairs", "Pair vectors sent per predictor call", prometheus.ExponentialBuckets(1, 4, 10)),
	)

	m.storedRuns = auto.NewGauge(
		m.gaugeOpts("stored_runs", "Runs currently held in the run registry"),
	)

	m.queueDepth = auto.NewGauge(
		m.gaugeOpts("queue_depth", "Runs waiting for a worker"),
	)
	m.queueCapacity = auto.NewGauge(
		m.gaugeOpts("queue_capacity", "Maximum number of waiting runs"),
	)
	m.queueRejected = auto.NewCounterVec(
		m.counterOpts("queue_rejected_total", "Runs rejected by the queue by reason"),
		[]string{"reason"},
	)
	m.queueWait = auto.NewHistogram(
		m.histogramOpts("queue_wait_milliseconds", "Time a run waited for a worker in milliseconds", m.histogramBuckets),
	)
	m.workersBusy = auto.NewGauge(
		m.gaugeOpts("workers_busy", "Workers currently executing a run"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by endpoint and error kind"),
		[]string{"endpoint", "method", "kind"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap memory in use in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Current number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "GC pause durations in milliseconds", m.histogramBuckets),
	)
}

// RefreshInterval is how often system gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RecordRun records a finished run.
func (m *Manager) RecordRun(scorer, outcome string, latencyMs float64) {
	m.runsTotal.WithLabelValues(scorer, outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeReplayed {
		m.runLatency.WithLabelValues(scorer).Observe(latencyMs)
	}
}

// RecordRunShape records the size of a successful run's input and output.
func (m *Manager) RecordRunShape(people, teams int) {
	m.peoplePerRun.Observe(float64(people))
	m.teamsFormed.Add(float64(teams))
}

// RecordBalance records how a balancer pass ended.
func (m *Manager) RecordBalance(iterations, swaps int, spread float64) {
	m.balancerIterations.Observe(float64(iterations))
	m.balancerSwaps.Add(float64(swaps))
	m.finalSpread.Observe(spread)
}

// RecordPredictorCall records one predictor round trip.
func (m *Manager) RecordPredictorCall(outcome string, pairs int, latencyMs float64) {
	m.predictorCalls.WithLabelValues(outcome).Inc()
	m.predictorPairs.Observe(float64(pairs))
	m.predictorLatency.Observe(latencyMs)
}

// UpdateStoredRuns sets the run registry size.
func (m *Manager) UpdateStoredRuns(n int) { m.storedRuns.Set(float64(n)) }

// UpdateQueueDepth sets the number of waiting runs.
func (m *Manager) UpdateQueueDepth(n int) { m.queueDepth.Set(float64(n)) }

// UpdateQueueCapacity sets the queue capacity.
func (m *Manager) UpdateQueueCapacity(n int) { m.queueCapacity.Set(float64(n)) }

// RecordQueueRejected counts a run the queue refused.
func (m *Manager) RecordQueueRejected(reason string) { m.queueRejected.WithLabelValues(reason).Inc() }

// RecordQueueWait records how long a run waited for a worker.
func (m *Manager) RecordQueueWait(waitMs float64) { m.queueWait.Observe(waitMs) }

// UpdateWorkersBusy sets the number of busy workers.
func (m *Manager) UpdateWorkersBusy(n int) { m.workersBusy.Set(float64(n)) }

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func (m *Manager) RecordHTTPError(endpoint, method, kind string) {
	m.httpErrors.WithLabelValues(endpoint, method, kind).Inc()
}

// UpdateSystemMetrics samples memory, goroutine and GC statistics.
func (m *Manager) UpdateSystemMetrics() {
	m.gcMu.Lock()
	defer m.gcMu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.HeapInuse))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))

	// PauseNs is a circular buffer of the most recent 256 pauses.
	from := m.lastNumGC
	if ms.NumGC-from > uint32(len(ms.PauseNs)) {
		from = ms.NumGC - uint32(len(ms.PauseNs))
	}
	for i := from; i < ms.NumGC; i++ {
		m.systemGCPauseTime.Observe(float64(ms.PauseNs[i%256]) / float64(time.Millisecond))
	}
	m.lastNumGC = ms.NumGC
}

// Package-level helpers on the global manager.

// RecordRun records a finished run.
func RecordRun(scorer, outcome string, latencyMs float64) {
	globalManager.RecordRun(scorer, outcome, latencyMs)
}

// RecordRunShape records the population and team count of a run.
func RecordRunShape(people, teams int) { globalManager.RecordRunShape(people, teams) }

// RecordBalance records how a balancer pass ended.
func RecordBalance(iterations, swaps int, spread float64) {
	globalManager.RecordBalance(iterations, swaps, spread)
}

// RecordPredictorCall records one predictor round trip.
func RecordPredictorCall(outcome string, pairs int, latencyMs float64) {
	globalManager.RecordPredictorCall(outcome, pairs, latencyMs)
}

// UpdateStoredRuns sets the run registry size.
func UpdateStoredRuns(n int) { globalManager.UpdateStoredRuns(n) }

// UpdateQueueDepth sets the number of waiting runs.
func UpdateQueueDepth(n int) { globalManager.UpdateQueueDepth(n) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(n int) { globalManager.UpdateQueueCapacity(n) }

// RecordQueueRejected counts a run the queue refused.
func RecordQueueRejected(reason string) { globalManager.RecordQueueRejected(reason) }

// RecordQueueWait records how long a run waited for a worker.
func RecordQueueWait(waitMs float64) { globalManager.RecordQueueWait(waitMs) }

// UpdateWorkersBusy sets the number of busy workers.
func UpdateWorkersBusy(n int) { globalManager.UpdateWorkersBusy(n) }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, kind string) {
	globalManager.RecordHTTPError(endpoint, method, kind)
}

// UpdateSystemMetrics samples runtime statistics into the system gauges.
func UpdateSystemMetrics() { globalManager.UpdateSystemMetrics() }

// RefreshInterval is the global manager's refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
