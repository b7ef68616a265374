package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	workflowTransitions  *prometheus.CounterVec
	workflowRejections   *prometheus.CounterVec
	workflowOutcomes     *prometheus.CounterVec
	xpAwardsTotalCounter prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questline_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "questline_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		workflowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questline_workflow_transitions_total",
			Help: "Committed submission workflow transitions.",
		}, []string{"transition", "from", "to"})

		workflowRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questline_workflow_rejections_total",
			Help: "Transition requests rejected before commit.",
		}, []string{"transition", "reason"})

		workflowOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questline_workflow_outcomes_total",
			Help: "Outcome events emitted to downstream consumers.",
		}, []string{"kind"})

		xpAwardsTotalCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "questline_xp_awarded_points_total",
			Help: "Total XP points written to the ledger.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			workflowTransitions,
			workflowRejections,
			workflowOutcomes,
			xpAwardsTotalCounter,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// WorkflowTransitions exposes the counter for committed transitions.
func WorkflowTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowTransitions
}

// WorkflowRejections exposes the counter for rejected transition requests.
func WorkflowRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowRejections
}

// WorkflowOutcomes exposes the counter for emitted outcome events.
func WorkflowOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowOutcomes
}

// XPAwardsTotal exposes the counter for awarded XP points.
func XPAwardsTotal() prometheus.Counter {
	RegisterMetrics()
	return xpAwardsTotalCounter
}
