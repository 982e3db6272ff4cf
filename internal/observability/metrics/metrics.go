package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "staffdesk_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	employeeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_employee_operations_total",
		Help: "Count of employee record mutations by operation and result",
	}, []string{"operation", "result"})

	dashboardComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "staffdesk_dashboard_compute_duration_seconds",
		Help:    "Duration of dashboard metric aggregation",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	employeeRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "staffdesk_employee_records",
		Help: "Number of employee records across all tenants",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveEmployeeOperation increments the mutation counter for the given
// operation and result.
func ObserveEmployeeOperation(operation, result string) {
	employeeOperations.WithLabelValues(operation, result).Inc()
}

// ObserveDashboardCompute records the duration of one aggregation pass.
// Source distinguishes request-driven computes from the live stream.
func ObserveDashboardCompute(source string, duration time.Duration) {
	dashboardComputeDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveLogin increments the login attempt counter.
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// SetEmployeeRecords sets the record count gauge.
func SetEmployeeRecords(count int64) {
	if count < 0 {
		count = 0
	}
	employeeRecords.Set(float64(count))
}
