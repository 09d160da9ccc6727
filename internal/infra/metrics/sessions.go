package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		sessionInits,
		sessionCleanups,
		cleanupResourceFailures,
		indexingPollAttempts,
		indexingWaitSeconds,
	)
}

var (
	sessionInits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_inits_total",
			Help: "Session initializations by outcome (reused/created/failed).",
		},
		[]string{"outcome"},
	)

	sessionCleanups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_cleanups_total",
			Help: "Session cleanups by completeness (full/partial).",
		},
		[]string{"result"},
	)

	cleanupResourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cleanup_resource_failures_total",
			Help: "Provider-side deletions that failed during cleanup, per resource.",
		},
		[]string{"resource"},
	)

	indexingPollAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_indexing_poll_attempts",
			Help:    "Status checks needed before the vector store file reached a terminal state.",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 45, 60},
		},
		[]string{"result"},
	)

	indexingWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_indexing_wait_seconds",
			Help:    "Wall-clock time spent waiting for indexing.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90},
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncSessionInit(outcome string) {
	sessionInits.WithLabelValues(norm(outcome)).Inc()
}

func ObserveCleanup(full bool, failedResources ...string) {
	result := "full"
	if !full {
		result = "partial"
	}
	sessionCleanups.WithLabelValues(result).Inc()
	for _, r := range failedResources {
		cleanupResourceFailures.WithLabelValues(norm(r)).Inc()
	}
}

func ObserveIndexingWait(attempts int, seconds float64, success bool) {
	indexingPollAttempts.WithLabelValues(strconv.FormatBool(success)).Observe(float64(attempts))
	indexingWaitSeconds.Observe(seconds)
}
