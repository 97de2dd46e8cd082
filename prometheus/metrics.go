package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Status code category counter (2xx, 4xx, 5xx)
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_http_status_category_total",
			Help: "Total number of responses by status category",
		},
		[]string{"category", "method", "endpoint"},
	)

	// Customer operation counter
	CustomerOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_operations_total",
			Help: "Total number of customer operations",
		},
		[]string{"operation"}, // list, create, update, delete
	)

	// Customer error counter
	CustomerErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_errors_total",
			Help: "Total number of failed customer operations",
		},
		[]string{"operation", "kind"}, // kind: unauthorized, no_tenant, validation, not_found, store
	)

	// Auth errors raised while resolving the session
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_auth_errors_total",
			Help: "Total number of session resolution errors",
		},
		[]string{"type"}, // invalid_auth_format, invalid_token
	)

	// Requests that reached a handler without an active organization
	TenantContextMissingCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "customer_tenant_context_missing_total",
			Help: "Total number of requests without tenant context",
		},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "customer_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "customer_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // query, insert, merge, delete
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(StatusCategoryCounter)
	prometheus.MustRegister(CustomerOperationCounter)
	prometheus.MustRegister(CustomerErrorCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(TenantContextMissingCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{"operation": operation}).Observe(time.Since(start).Seconds())
	}
}

// RecordCustomerOperation records a customer operation
func RecordCustomerOperation(operation string) {
	CustomerOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordCustomerError records a failed customer operation by kind
func RecordCustomerError(operation, kind string) {
	CustomerErrorCounter.With(prometheus.Labels{"operation": operation, "kind": kind}).Inc()
}

// RecordAuthError records a session resolution error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordTenantContextMissing records a request with no active organization
func RecordTenantContextMissing() {
	TenantContextMissingCounter.Inc()
}

// StatusCategory returns "2xx", "4xx" or "5xx", or "" for anything else
func StatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return ""
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			statusCode := c.Response().Status
			status := strconv.Itoa(statusCode)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			if category := StatusCategory(statusCode); category != "" {
				StatusCategoryCounter.With(prometheus.Labels{
					"category": category,
					"method":   method,
					"endpoint": endpoint,
				}).Inc()
			}

			return err
		}
	}
}
