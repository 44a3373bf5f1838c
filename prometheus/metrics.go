package prometheus

import (
	"time"

	"listing-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Listing metrics
	ListingOperationsCounter *prometheus.CounterVec
	QuotaRejectionsCounter   *prometheus.CounterVec
	CacheLookupsCounter      *prometheus.CounterVec

	// Payment webhook metrics
	WebhookOutcomesCounter *prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration.
// Recording helpers are no-ops until InitMetrics has run.
func InitMetrics(config *config.Config) {
	prefix := config.Metrics.Prefix

	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of rejected access tokens",
		},
	)

	DbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	ListingOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_operations_total",
			Help: "Total number of listing operations",
		},
		[]string{"operation", "vertical"},
	)

	QuotaRejectionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_quota_rejections_total",
			Help: "Total number of writes rejected by plan limits",
		},
		[]string{"kind", "vertical"},
	)

	CacheLookupsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_cache_lookups_total",
			Help: "Listing read cache lookups by result",
		},
		[]string{"result"},
	)

	WebhookOutcomesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_payment_webhooks_total",
			Help: "Payment webhook notifications by outcome",
		},
		[]string{"outcome"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DbOperationDuration == nil {
			return
		}
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordHTTPRequest records count and latency of one HTTP request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if HttpRequestsTotal == nil {
		return
	}
	HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordAuthAttempt counts a bearer token check
func RecordAuthAttempt(ok bool) {
	if AuthAttemptsCounter == nil {
		return
	}
	AuthAttemptsCounter.Inc()
	if !ok {
		AuthErrorsCounter.Inc()
	}
}

// RecordListingOperation increments the counter for listing operations
func RecordListingOperation(operation, vertical string) {
	if ListingOperationsCounter == nil {
		return
	}
	ListingOperationsCounter.WithLabelValues(operation, vertical).Inc()
}

// RecordQuotaRejection counts a create or publish rejected by plan limits
func RecordQuotaRejection(kind, vertical string) {
	if QuotaRejectionsCounter == nil {
		return
	}
	QuotaRejectionsCounter.WithLabelValues(kind, vertical).Inc()
}

// RecordCacheLookup counts a read cache hit or miss
func RecordCacheLookup(hit bool) {
	if CacheLookupsCounter == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsCounter.WithLabelValues(result).Inc()
}

// RecordWebhookOutcome counts a processed payment notification
func RecordWebhookOutcome(outcome string) {
	if WebhookOutcomesCounter == nil {
		return
	}
	WebhookOutcomesCounter.WithLabelValues(outcome).Inc()
}
