// Package metrics defines the prometheus instrumentation for scoring,
// recalculation and the job queue.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache Metrics
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcompat_cache_requests_total",
			Help: "Score cache lookups by backend and result",
		},
		[]string{"backend", "result"}, // "hit", "miss", "error"
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcompat_cache_invalidations_total",
			Help: "Score cache keys invalidated after writes",
		},
		[]string{"backend"},
	)

	// Queue Metrics
	Enqueues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcompat_enqueue_total",
			Help: "Enqueue requests by outcome",
		},
		[]string{"result"}, // "created", "updated", "unchanged", "skipped"
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcompat_jobs_finished_total",
			Help: "Jobs leaving the processing state by outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "released"
	)

	PendingJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchcompat_pending_jobs",
			Help: "Jobs still pending after the last worker tick",
		},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchcompat_tick_duration_seconds",
			Help:    "Wall time of incremental worker ticks",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// Recalculation Metrics
	RecalcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchcompat_recalc_duration_seconds",
			Help:    "Wall time of a single user's recalculation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"}, // "merge", "reset"
	)

	PairWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcompat_pair_writes_total",
			Help: "Pair rows written by recalculation",
		},
		[]string{"op"}, // "insert", "update", "swapped", "unchanged"
	)

	PairErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchcompat_pair_errors_total",
			Help: "Pairs skipped because scoring failed",
		},
	)
)

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequests.WithLabelValues(backend, result).Inc()
}

// RecordCacheError records a failed cache operation
func RecordCacheError(backend string) {
	CacheRequests.WithLabelValues(backend, "error").Inc()
}

// RecordRecalc records one recalculation run
func RecordRecalc(fullReset bool, duration time.Duration) {
	mode := "merge"
	if fullReset {
		mode = "reset"
	}
	RecalcDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordPairWrites adds the counts from one batch write
func RecordPairWrites(inserted, updated, swapped, unchanged int) {
	PairWrites.WithLabelValues("insert").Add(float64(inserted))
	PairWrites.WithLabelValues("update").Add(float64(updated))
	PairWrites.WithLabelValues("swapped").Add(float64(swapped))
	PairWrites.WithLabelValues("unchanged").Add(float64(unchanged))
}
