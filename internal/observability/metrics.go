package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	storeRequestsTotal  *prometheus.CounterVec
	storeLatencySeconds *prometheus.HistogramVec
	gradeSyncTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_api_requests_total",
			Help: "Total number of submissions API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "submissions_api_latency_seconds",
			Help:    "Latency distribution for submissions API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_api_errors_total",
			Help: "Total number of error responses returned by the submissions API.",
		}, []string{"method", "route", "status"})

		storeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "record_store_requests_total",
			Help: "Total number of outbound record-store requests by outcome.",
		}, []string{"table", "method", "outcome"})

		storeLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "record_store_latency_seconds",
			Help:    "Latency distribution for outbound record-store requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"table", "method"})

		gradeSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grade_sync_total",
			Help: "Total number of grade synchronization attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			storeRequestsTotal,
			storeLatencySeconds,
			gradeSyncTotal,
		)
	})
}

// APIRequests exposes the counter for served submissions API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for submissions API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for submissions API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RecordStoreRequests exposes the counter for outbound record-store requests.
func RecordStoreRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return storeRequestsTotal
}

// RecordStoreLatency exposes the latency histogram for record-store requests.
func RecordStoreLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return storeLatencySeconds
}

// GradeSyncAttempts exposes the counter for grade synchronization outcomes.
func GradeSyncAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeSyncTotal
}
