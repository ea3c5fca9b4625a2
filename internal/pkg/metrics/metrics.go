package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RegistrationsTotal counts successful account creations.
	RegistrationsTotal prometheus.Counter
	// LoginsTotal counts successful logins.
	LoginsTotal prometheus.Counter
	// AuthFailuresTotal counts rejected credentials and rejected tokens, by reason.
	AuthFailuresTotal *prometheus.CounterVec
	// InterventionOpsTotal counts intervention operations by kind (create/update/delete/pin/search/list).
	InterventionOpsTotal *prometheus.CounterVec
	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration *prometheus.HistogramVec
	// RateLimitWaitDuration observes time spent waiting for a rate-limit token.
	RateLimitWaitDuration prometheus.Histogram
	// RateLimitTimeoutTotal counts requests dropped because the bucket never opened.
	RateLimitTimeoutTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics registers all collectors. Safe to call more than once; tests
// rely on that.
func InitMetrics() {
	initOnce.Do(func() {
		RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_registrations_total",
			Help: "Successful account registrations.",
		})
		LoginsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_logins_total",
			Help: "Successful logins.",
		})
		AuthFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_auth_failures_total",
			Help: "Authentication failures by reason.",
		}, []string{"reason"})
		InterventionOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_intervention_ops_total",
			Help: "Intervention operations by kind.",
		}, []string{"op"})
		HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})
		RateLimitWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_ratelimit_wait_seconds",
			Help:    "Time spent waiting for a rate limit token.",
			Buckets: prometheus.DefBuckets,
		})
		RateLimitTimeoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_ratelimit_timeout_total",
			Help: "Requests dropped on rate limit wait timeout.",
		})

		prometheus.MustRegister(
			RegistrationsTotal,
			LoginsTotal,
			AuthFailuresTotal,
			InterventionOpsTotal,
			HTTPRequestDuration,
			RateLimitWaitDuration,
			RateLimitTimeoutTotal,
		)
	})
}
