package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

// Evaluation submission outcomes used as metric labels.
const (
	EvaluationAccepted  = "accepted"
	EvaluationDuplicate = "duplicate"
	EvaluationRejected  = "rejected"
)

// MetricsService wraps the Prometheus registry and keeps running totals for
// the JSON snapshot.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	evaluations     *prometheus.CounterVec
	reportJobs      *prometheus.CounterVec

	sourceMu       sync.RWMutex
	realtimeSource func() int
	queueSource    func() int

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	evaluationCount      uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	m := &MetricsService{registry: registry}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})
	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheLatency = cacheLatency
	m.cacheWrite = cacheWrite

	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})
	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})
	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	m.dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of instrumented database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	m.evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_evaluations_total",
		Help: "Course evaluation submissions by outcome",
	}, []string{"result"})

	m.reportJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_jobs_total",
		Help: "Finished report jobs by type and status",
	}, []string{"type", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	realtimeClients := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "realtime_clients",
		Help: "Connected discussion websocket clients",
	}, func() float64 {
		return float64(m.realtimeClients())
	})

	queueDepth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "report_queue_depth",
		Help: "Report jobs waiting for a worker",
	}, func() float64 {
		return float64(m.queueDepth())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, cacheLatency, cacheWrite, m.cacheHitRatio, m.cacheHits,
		m.cacheMisses, m.dbQueryDuration, m.evaluations, m.reportJobs, goroutines, realtimeClients, queueDepth)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// SetRealtimeSource installs the function reporting connected websocket clients.
func (m *MetricsService) SetRealtimeSource(source func() int) {
	if m == nil {
		return
	}
	m.sourceMu.Lock()
	m.realtimeSource = source
	m.sourceMu.Unlock()
}

// SetQueueSource installs the function reporting buffered report jobs.
func (m *MetricsService) SetQueueSource(source func() int) {
	if m == nil {
		return
	}
	m.sourceMu.Lock()
	m.queueSource = source
	m.sourceMu.Unlock()
}

func (m *MetricsService) queueDepth() int {
	m.sourceMu.RLock()
	defer m.sourceMu.RUnlock()
	if m.queueSource == nil {
		return 0
	}
	return m.queueSource()
}

func (m *MetricsService) realtimeClients() int {
	m.sourceMu.RLock()
	defer m.sourceMu.RUnlock()
	if m.realtimeSource == nil {
		return 0
	}
	return m.realtimeSource()
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records the timing of a labelled query.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordEvaluation counts an evaluation submission attempt by outcome.
func (m *MetricsService) RecordEvaluation(result string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(result).Inc()
	if result == EvaluationAccepted {
		atomic.AddUint64(&m.evaluationCount, 1)
	}
}

// RecordReportJob counts a report job reaching a terminal status.
func (m *MetricsService) RecordReportJob(reportType models.ReportType, status models.ReportStatus) {
	if m == nil {
		return
	}
	m.reportJobs.WithLabelValues(string(reportType), string(status)).Inc()
}

// Snapshot aggregates the running totals.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	snapshot := models.SystemMetrics{
		CacheHits:            hits,
		CacheMisses:          misses,
		RequestsTotal:        requests,
		DBQueryCount:         dbCount,
		EvaluationsSubmitted: atomic.LoadUint64(&m.evaluationCount),
		RealtimeClients:      m.realtimeClients(),
		ReportQueueDepth:     m.queueDepth(),
		Goroutines:           runtime.NumGoroutine(),
		GeneratedAt:          time.Now().UTC(),
	}
	if hits+misses > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(hits+misses)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	if dbCount > 0 {
		snapshot.AverageDBQueryDurationMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}
	return snapshot
}
