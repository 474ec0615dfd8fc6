package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gleeclub/portal-api/internal/models"
)

// MetricsService owns the Prometheus registry and a few atomic counters for JSON snapshots.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	dbQueryDuration *prometheus.HistogramVec

	gradeRuns        *prometheus.CounterVec
	gradeRunDuration prometheus.Histogram
	gradeRosterSize  prometheus.Gauge
	gradeCommits     *prometheus.CounterVec
	summaryWrites    prometheus.Counter
	reportJobs       *prometheus.CounterVec
	queueDepth       atomic.Pointer[func() int]

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	gradeRunCount        uint64
	gradeRunFailures     uint64
	summaryWriteCount    uint64
}

// NewMetricsService registers the HTTP, cache, database and gradebook collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grade_cache_lookups_total",
			Help: "Roster cache lookups by result",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grade_cache_latency_seconds",
			Help:    "Latency of roster cache reads",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grade_cache_write_seconds",
			Help:    "Latency of roster cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of upstream table reads",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		gradeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grade_calculations_total",
			Help: "Grade roster calculations by outcome",
		}, []string{"outcome"}),
		gradeRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grade_calculation_duration_seconds",
			Help:    "Wall time of a full roster calculation",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		gradeRosterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grade_roster_students",
			Help: "Students in the most recent roster calculation",
		}),
		gradeCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grade_summary_commits_total",
			Help: "Summary commits by mode and outcome",
		}, []string{"mode", "outcome"}),
		summaryWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grade_summaries_written_total",
			Help: "Summary rows upserted",
		}),
		reportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_jobs_total",
			Help: "Roster export jobs by format and final status",
		}, []string{"format", "status"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	reportQueueDepth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "report_queue_depth",
		Help: "Export jobs waiting for a worker",
	}, func() float64 {
		return float64(m.reportQueueDepth())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLookups, m.cacheLatency, m.cacheWrite,
		m.dbQueryDuration,
		m.gradeRuns, m.gradeRunDuration, m.gradeRosterSize, m.gradeCommits, m.summaryWrites,
		m.reportJobs, reportQueueDepth,
		goroutines,
	)
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a roster cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks roster cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records the duration of one upstream source read.
func (m *MetricsService) ObserveDBQuery(source string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(source).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveGradeRun records a roster calculation.
func (m *MetricsService) ObserveGradeRun(students int, err error, duration time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.gradeRunCount, 1)
	if err != nil {
		m.gradeRuns.WithLabelValues("error").Inc()
		atomic.AddUint64(&m.gradeRunFailures, 1)
		return
	}
	m.gradeRuns.WithLabelValues("ok").Inc()
	m.gradeRunDuration.Observe(duration.Seconds())
	m.gradeRosterSize.Set(float64(students))
}

// ObserveCommit records a summary commit and the rows it wrote.
func (m *MetricsService) ObserveCommit(atomicMode bool, written int, err error) {
	if m == nil {
		return
	}
	mode := "sequential"
	if atomicMode {
		mode = "atomic"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gradeCommits.WithLabelValues(mode, outcome).Inc()
	if written > 0 {
		m.summaryWrites.Add(float64(written))
		atomic.AddUint64(&m.summaryWriteCount, uint64(written))
	}
}

// ObserveReportJob counts export job status transitions.
func (m *MetricsService) ObserveReportJob(format models.ReportFormat, status models.ReportStatus) {
	if m == nil {
		return
	}
	m.reportJobs.WithLabelValues(string(format), string(status)).Inc()
}

// TrackReportQueue sets the source of the export queue depth gauge.
func (m *MetricsService) TrackReportQueue(depth func() int) {
	if m == nil || depth == nil {
		return
	}
	m.queueDepth.Store(&depth)
}

func (m *MetricsService) reportQueueDepth() int {
	if fn := m.queueDepth.Load(); fn != nil {
		return (*fn)()
	}
	return 0
}

// Snapshot returns aggregated counters for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)

	snapshot := models.MetricsSnapshot{
		RequestsTotal:    requests,
		CacheHits:        hits,
		CacheMisses:      misses,
		DBQueryCount:     dbCount,
		GradeRuns:        atomic.LoadUint64(&m.gradeRunCount),
		GradeRunFailures: atomic.LoadUint64(&m.gradeRunFailures),
		SummariesWritten: atomic.LoadUint64(&m.summaryWriteCount),
		ReportQueueDepth: m.reportQueueDepth(),
		Goroutines:       runtime.NumGoroutine(),
		GeneratedAt:      time.Now().UTC(),
	}
	if lookups := hits + misses; lookups > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(lookups)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(atomic.LoadUint64(&m.requestDurationTotal)) / float64(requests) / float64(time.Millisecond)
	}
	if dbCount > 0 {
		snapshot.AverageDBQueryDurationMs = float64(atomic.LoadUint64(&m.dbQueryDurationTotal)) / float64(dbCount) / float64(time.Millisecond)
	}
	return snapshot
}
