// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qnet_gateway"

type Metrics struct {
	// Decisions counts gateway outcomes by tier and decision
	// (proceed, missing_key, rate_limited, hardware_denied).
	Decisions *prometheus.CounterVec

	// RequestDuration observes end-to-end handler latency by route.
	RequestDuration *prometheus.HistogramVec

	// StoreErrors counts rate limit store failures, split by outcome
	// (failover, error).
	StoreErrors *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Gateway access decisions by tier and outcome.",
		}, []string{"tier", "decision"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Rate limit store failures.",
		}, []string{"outcome"}),
	}
}
