package application

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	calendarCalls    *prometheus.CounterVec
	caseTransitions  *prometheus.CounterVec
	cleanupFailures  *prometheus.CounterVec
	reconcileDeleted prometheus.Counter
	busyCache        *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		calendarCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meeting_finder",
			Name:      "calendar_calls_total",
			Help:      "Total number of calendar provider calls.",
		}, []string{"operation", "result"}),
		caseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meeting_finder",
			Name:      "case_transitions_total",
			Help:      "Total number of case lifecycle transitions.",
		}, []string{"transition"}),
		cleanupFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meeting_finder",
			Name:      "cleanup_failures_total",
			Help:      "Total number of best-effort hold deletions that failed.",
		}, []string{"operation"}),
		reconcileDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "meeting_finder",
			Name:      "reconcile_deleted_holds_total",
			Help:      "Total number of provisional holds removed by reconciliation.",
		}),
		busyCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meeting_finder",
			Name:      "busy_cache_lookups_total",
			Help:      "Total number of free/busy cache lookups.",
		}, []string{"result"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func callResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *metrics) observeCall(operation string, err error) {
	m.calendarCalls.WithLabelValues(operation, callResult(err)).Inc()
}
