package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikesTotal counts successful like operations.
	LikesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_likes_total",
		Help: "Total number of likes applied to posts",
	})

	// CommentsCreatedTotal counts persisted comments.
	CommentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_comments_created_total",
		Help: "Total number of comments created",
	})

	// FallbackReadsTotal counts reads served by the non-authoritative fallback store.
	FallbackReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_fallback_reads_total",
		Help: "Total number of reads served from the fallback store by operation",
	}, []string{"operation"})

	// PartialFailuresTotal counts multi-step writes interrupted after their first step.
	PartialFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_partial_failures_total",
		Help: "Total number of partially applied operations by operation",
	}, []string{"operation"})

	// OperationLatency records engine operation latency by operation and outcome.
	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_operation_latency_seconds",
		Help:    "Engine operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
)

// TrackOperation returns a function that records the latency of an operation when
// called (e.g. defer). The outcome label is "error" when *errp is non-nil.
func TrackOperation(operation string, errp *error) func() {
	start := time.Now()
	return func() {
		outcome := "ok"
		if errp != nil && *errp != nil {
			outcome = "error"
		}
		OperationLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	}
}
