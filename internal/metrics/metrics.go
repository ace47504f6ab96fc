// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider attempt outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeStatus      = "status"
	OutcomeTransport   = "transport"
	OutcomeTimeout     = "timeout"
	OutcomeEmpty       = "empty"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeRateLimited = "rate_limited"
)

var (
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_provider_attempts_total",
			Help: "Generation attempts per provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_provider_latency_seconds",
			Help:    "Latency of provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	ProviderTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_provider_tokens_total",
			Help: "Tokens consumed per provider and direction (input, output)",
		},
		[]string{"provider", "direction"},
	)

	ProviderCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_provider_cost_usd_total",
			Help: "Estimated provider spend in USD",
		},
		[]string{"provider"},
	)

	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_fallbacks_total",
			Help: "Deterministic fallbacks served per adapter and reason",
		},
		[]string{"adapter", "reason"},
	)

	TaskCorrections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_task_corrections_total",
			Help: "Suggested task fields replaced during materialization",
		},
		[]string{"field"},
	)

	TasksPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_tasks_persisted_total",
			Help: "Suggested tasks written to the store by source",
		},
		[]string{"source"},
	)
)
