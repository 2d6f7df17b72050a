package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	// HTTPRequestDuration tracks request latency by method, path, and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestTimeout counts requests that hit the timeout threshold by path.
	HTTPRequestTimeout = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_timeout_total",
			Help: "Total number of HTTP request timeouts",
		},
		[]string{"path"},
	)
)

// Database metrics
var (
	// DBQueryDuration tracks query duration by operation label.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)
)

// Checkout metrics
var (
	// CheckoutPhaseTransitions counts session phase transitions.
	CheckoutPhaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_phase_transitions_total",
			Help: "Total number of checkout session phase transitions",
		},
		[]string{"from", "to"},
	)

	// CheckoutEventsIgnored counts events rejected by the state machine by event and reason.
	CheckoutEventsIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_events_ignored_total",
			Help: "Total number of checkout events ignored as out of order or re-entrant",
		},
		[]string{"event", "reason"},
	)

	// CheckoutGatewayCallDuration tracks outbound gateway call latency by operation and outcome.
	CheckoutGatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_gateway_call_duration_seconds",
			Help:    "Duration of verification and payment gateway calls in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "outcome"},
	)

	// CheckoutSessionsActive gauges the number of live checkout sessions.
	CheckoutSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkout_sessions_active",
			Help: "Number of live checkout sessions",
		},
	)
)

// Verification metrics
var (
	// VerificationCodesSent counts issued verification codes.
	VerificationCodesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_codes_sent_total",
			Help: "Total number of verification codes issued",
		},
	)

	// VerificationChecks counts verification checks by result.
	VerificationChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_checks_total",
			Help: "Total number of verification code checks",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns an HTTP middleware that records request metrics.
// Side effects: records Prometheus metrics and reads the current time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := normalizePath(r.URL.Path)

		HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()

		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			HTTPRequestTimeout.WithLabelValues(path).Inc()
		}
	})
}

// normalizePath normalizes URL paths to avoid cardinality explosion.
// Replaces session UUIDs with a placeholder.
func normalizePath(path string) string {
	const prefix = "/checkout/sessions/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if _, action, found := strings.Cut(rest, "/"); found {
		return prefix + "{id}/" + action
	}
	return prefix + "{id}"
}

// RecordQueryDuration records a database query duration.
// Side effects: records a Prometheus metric.
func RecordQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPhaseTransition increments the phase transition counter.
// Side effects: records a Prometheus metric.
func RecordPhaseTransition(from, to string) {
	CheckoutPhaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordEventIgnored increments the ignored event counter.
// Side effects: records a Prometheus metric.
func RecordEventIgnored(event, reason string) {
	CheckoutEventsIgnored.WithLabelValues(event, reason).Inc()
}

// RecordGatewayCall records an outbound gateway call duration.
// Side effects: records a Prometheus metric.
func RecordGatewayCall(operation, outcome string, duration time.Duration) {
	CheckoutGatewayCallDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// RecordVerificationCheck increments the verification check counter.
// Side effects: records a Prometheus metric.
func RecordVerificationCheck(result string) {
	VerificationChecks.WithLabelValues(result).Inc()
}
