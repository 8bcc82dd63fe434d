// Package metrics exposes Prometheus instrumentation for the generation
// pipeline: provider calls, recovery outcomes, and fallback behavior.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tidings-hq/tidings/pkg/config"
)

// Collector owns the metrics registry and the generation metric vectors.
type Collector struct {
	registry *prometheus.Registry

	// Total provider calls by provider and outcome.
	providerCalls *prometheus.CounterVec

	// Provider call latency histogram.
	providerLatency *prometheus.HistogramVec

	// Provider errors by provider and error type.
	providerErrors *prometheus.CounterVec

	// Successful recoveries by the stage that produced the result.
	recoveryStages *prometheus.CounterVec

	// Fallback runs by outcome and the number of providers attempted.
	fallbackRuns *prometheus.CounterVec

	// Insight cache hits and misses.
	cacheLookups *prometheus.CounterVec
}

// NewCollector creates a collector and registers all generation metrics plus
// the standard Go runtime and process collectors. A nil registry creates a
// fresh one.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,

		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_calls_total",
				Help:      "Total provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),

		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_latency_seconds",
				Help:      "Provider call latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),

		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_errors_total",
				Help:      "Total provider errors by type",
			},
			[]string{"provider", "error_type"},
		),

		recoveryStages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "recovery_stage_total",
				Help:      "Successful recoveries by the stage that produced the result",
			},
			[]string{"stage"},
		),

		fallbackRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "fallback_runs_total",
				Help:      "Fallback chain runs by outcome and attempts used",
			},
			[]string{"outcome", "attempts"},
		),

		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_lookups_total",
				Help:      "Insight cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.providerCalls,
		c.providerLatency,
		c.providerErrors,
		c.recoveryStages,
		c.fallbackRuns,
		c.cacheLookups,
	)

	return c
}

// RecordProviderCall records one provider call and its latency. outcome is
// "success" or the error type of the failure.
func (c *Collector) RecordProviderCall(provider, outcome string, latencySeconds float64) {
	c.providerCalls.WithLabelValues(provider, outcome).Inc()
	c.providerLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordProviderError records a provider error. errorType is one of
// "transport", "empty_response", "malformed_output", or "other".
func (c *Collector) RecordProviderError(provider, errorType string) {
	c.providerErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordRecoveryStage records which recovery stage produced a usable result.
func (c *Collector) RecordRecoveryStage(stage string) {
	c.recoveryStages.WithLabelValues(stage).Inc()
}

// RecordFallbackRun records the outcome of one fallback chain run. outcome is
// "success", "exhausted", or "cancelled"; attempts is the number of providers
// tried.
func (c *Collector) RecordFallbackRun(outcome string, attempts int) {
	c.fallbackRuns.WithLabelValues(outcome, strconv.Itoa(attempts)).Inc()
}

// RecordCacheLookup records an insight cache lookup. result is "hit" or
// "miss".
func (c *Collector) RecordCacheLookup(result string) {
	c.cacheLookups.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry, for tests and custom handlers.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
