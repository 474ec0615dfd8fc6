package models

import "time"

// MetricsSnapshot is a JSON friendly view of the in-process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	GradeRuns                uint64    `json:"grade_runs"`
	GradeRunFailures         uint64    `json:"grade_run_failures"`
	SummariesWritten         uint64    `json:"summaries_written"`
	ReportQueueDepth         int       `json:"report_queue_depth"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
