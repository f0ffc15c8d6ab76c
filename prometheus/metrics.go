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
	// Tenant lifecycle operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_operations_total",
			Help: "Total number of tenant schema operations",
		},
		[]string{"operation"}, // operation can be "create", "drop", "rename", "migrate", "list", "exists"
	)

	// Tenant operation error counter by failure classification
	TenantErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_errors_total",
			Help: "Total number of failed tenant schema operations",
		},
		[]string{"kind"}, // kind mirrors the tenant error taxonomy
	)

	// Migration script counter
	MigrationAppliedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenancy_migrations_applied_total",
			Help: "Total number of migration scripts applied across all tenants",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenancy_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Tenant operation duration
	TenantOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenancy_operation_duration_seconds",
			Help:    "Duration of tenant schema operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	// Provisioned tenants
	TenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenancy_tenants",
			Help: "Number of currently provisioned tenant schemas",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenancy_info",
			Help: "Information about the tenancy service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(TenantErrorCounter)
	prometheus.MustRegister(MigrationAppliedCounter)
	prometheus.MustRegister(HTTPRequestCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(TenantOperationDuration)

	// Register gauges
	prometheus.MustRegister(TenantsGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTenantOperation records a tenant schema operation
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordTenantError records a failed tenant schema operation by kind
func RecordTenantError(kind string) {
	TenantErrorCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordMigrationsApplied counts migration scripts applied in a run
func RecordMigrationsApplied(count int) {
	MigrationAppliedCounter.Add(float64(count))
}

// UpdateTenantCount updates the provisioned tenants gauge
func UpdateTenantCount(count int) {
	TenantsGauge.Set(float64(count))
}

// TrackTenantOperation measures tenant operation durations
func TrackTenantOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		TenantOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
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

			return err
		}
	}
}
