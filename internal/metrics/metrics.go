// Package metrics exposes Prometheus collectors for the HTTP layer and the
// order and OTP workflows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "couture",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couture",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "couture",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couture",
			Subsystem: "custom_orders",
			Name:      "transitions_total",
			Help:      "Custom order status transitions by source and target status.",
		},
		[]string{"from", "to"},
	)

	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couture",
			Subsystem: "custom_orders",
			Name:      "created_total",
			Help:      "Custom orders submitted, by occasion.",
		},
		[]string{"occasion"},
	)

	otpIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couture",
			Subsystem: "otp",
			Name:      "issued_total",
			Help:      "One-time codes issued, by purpose and whether the email was dispatched.",
		},
		[]string{"purpose", "dispatched"},
	)

	otpVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couture",
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "One-time code verification attempts by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		orderTransitions,
		ordersCreated,
		otpIssued,
		otpVerifications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted tracks an in-flight request and returns the function that
// records its completion.
func RequestStarted() func(method, route string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(method, route string, status int) {
		httpInFlight.Dec()
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordTransition counts a successful status transition.
func RecordTransition(from, to string) {
	orderTransitions.WithLabelValues(from, to).Inc()
}

// RecordOrderCreated counts a submitted custom order.
func RecordOrderCreated(occasion string) {
	ordersCreated.WithLabelValues(occasion).Inc()
}

// RecordOTPIssued counts an issued code.
func RecordOTPIssued(purpose string, dispatched bool) {
	otpIssued.WithLabelValues(purpose, strconv.FormatBool(dispatched)).Inc()
}

// RecordOTPVerification counts a verification attempt. Outcome is "success"
// or the failure code.
func RecordOTPVerification(purpose, outcome string) {
	otpVerifications.WithLabelValues(purpose, outcome).Inc()
}
