package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for the trust-and-access core, registered in the
// default registry and exposed via /metrics.
var (
	// httpRequestsTotal counts requests by method, path, and status for
	// request and error rate monitoring.
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures handler latency for SLO tracking.
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// authAttemptsTotal counts login outcomes (success, invalid_state,
	// exchange_failed, session_failed) for fraud monitoring.
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// tokenVerifyFailures counts rejected session tokens by failure tag so
	// credential aging (expired) and attack traffic (signature_invalid,
	// malformed) chart separately.
	tokenVerifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verify_failures_total",
			Help: "Total number of session token verification failures",
		},
		[]string{"failure"},
	)

	// uploadsTotal counts upload requests by resource category and outcome
	// (accepted, rejected_size, rejected_type, rate_limited, storage_error).
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Total number of media upload requests",
		},
		[]string{"category", "result"},
	)

	// uploadBytes tracks accepted upload payload sizes per category.
	uploadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_upload_bytes",
			Help:    "Accepted media upload sizes in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"category"},
	)

	// rateLimitRejections counts 429s per category.
	rateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of rate-limited requests",
		},
		[]string{"category"},
	)

	// activeSessions tracks live session rows, updated by the sweeper.
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_active_sessions",
			Help: "Number of active user sessions",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		authAttemptsTotal,
		tokenVerifyFailures,
		uploadsTotal,
		uploadBytes,
		rateLimitRejections,
		activeSessions,
	)
}

// Metrics creates middleware recording request counts and latency.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
			httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler returns the Prometheus scrape handler for /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthAttempt increments the login outcome counter.
func RecordAuthAttempt(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordTokenFailure increments the token rejection counter by failure tag.
func RecordTokenFailure(failure string) {
	tokenVerifyFailures.WithLabelValues(failure).Inc()
}

// RecordUpload increments the upload outcome counter and, for accepted
// uploads, observes the payload size.
func RecordUpload(category, result string, size int64) {
	uploadsTotal.WithLabelValues(category, result).Inc()
	if result == "accepted" {
		uploadBytes.WithLabelValues(category).Observe(float64(size))
	}
}

// RecordRateLimitRejection increments the per-category 429 counter.
func RecordRateLimitRejection(category string) {
	rateLimitRejections.WithLabelValues(category).Inc()
}

// SetActiveSessions updates the live session gauge.
func SetActiveSessions(count float64) {
	activeSessions.Set(count)
}
