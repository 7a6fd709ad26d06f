package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// StoreActions counts store actions by resource, action and outcome.
	StoreActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogdesk_store_actions_total",
		Help: "Total number of store actions by resource, action and outcome",
	}, []string{"resource", "action", "outcome"})

	// APIRequestLatency records backend call latency by method, endpoint and status.
	APIRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogdesk_api_request_latency_seconds",
		Help:    "Blog API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// StaleResponses counts responses discarded by the sequence-number check.
	StaleResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogdesk_stale_responses_discarded_total",
		Help: "Total number of superseded responses discarded per resource",
	}, []string{"resource"})

	// SessionClears counts session teardowns by reason.
	SessionClears = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogdesk_session_clears_total",
		Help: "Total number of session clears by reason",
	}, []string{"reason"})

	// StorageErrors counts durable storage failures by operation.
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogdesk_storage_errors_total",
		Help: "Total number of durable storage errors by operation",
	}, []string{"operation"})
)

// RecordAction increments StoreActions for the given outcome.
func RecordAction(resource, action string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	StoreActions.WithLabelValues(resource, action, outcome).Inc()
}

// TrackRequest returns a function that records API latency when called (e.g. defer).
func TrackRequest(method, endpoint string) func(status string) {
	start := time.Now()
	return func(status string) {
		APIRequestLatency.WithLabelValues(method, endpoint, status).Observe(time.Since(start).Seconds())
	}
}
