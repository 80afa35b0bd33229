// Package metrics exposes the Prometheus collectors of the generation
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flashgen"

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
	OutcomeReplaced    = "replaced"
	OutcomeFallback    = "fallback"
)

type Metrics struct {
	registry      *prometheus.Registry
	generations   *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	regenerations *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation requests by output kind and outcome (success or error code).",
		}, []string{"kind", "outcome"}),
		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Calls made to the model provider by outcome.",
		}, []string{"outcome"}),
		regenerations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_regenerations_total",
			Help:      "Expert policy regenerations by outcome (replaced or fallback).",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generation latency including regeneration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveGeneration(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ProviderCall(outcome string) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Regeneration(outcome string) {
	if m == nil {
		return
	}
	m.regenerations.WithLabelValues(outcome).Inc()
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
