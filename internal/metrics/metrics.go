// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotaDecisions counts tweet-creation gate outcomes:
	// allowed, exceeded, fail_open, rejected.
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "twiller",
		Name:      "quota_decisions_total",
		Help:      "Tweet quota gate decisions by outcome.",
	}, []string{"outcome"})

	QuotaResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "twiller",
		Name:      "quota_resets_total",
		Help:      "Monthly tweet counter resets.",
	})

	Subscriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "twiller",
		Name:      "subscriptions_total",
		Help:      "Subscriptions purchased by plan.",
	}, []string{"plan"})

	WindowRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "twiller",
		Name:      "window_rejections_total",
		Help:      "Actions rejected outside their time window.",
	}, []string{"purpose"})

	// OTPEvents counts issued, verified, mismatch, expired and not_found.
	OTPEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "twiller",
		Name:      "otp_events_total",
		Help:      "One-time passcode lifecycle events.",
	}, []string{"event"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
