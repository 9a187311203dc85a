// Package metrics holds the Prometheus collectors for provider calls.
package metrics

import (
	"errors"
	"time"

	"github.com/poiesic/broadlistening/ai"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for Calls.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Metrics contains the gateway collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Calls    *prometheus.CounterVec   // By operation, provider and outcome
	Retries  *prometheus.CounterVec   // By operation and provider
	Tokens   *prometheus.CounterVec   // By provider and kind (input/output)
	Duration *prometheus.HistogramVec // By operation and provider
}

// New creates the collectors and registers them on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broadlistening",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of provider calls",
		}, []string{"operation", "provider", "outcome"}),

		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broadlistening",
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Total number of rate-limit retries",
		}, []string{"operation", "provider"}),

		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broadlistening",
			Subsystem: "provider",
			Name:      "tokens_total",
			Help:      "Total number of tokens reported by chat calls",
		}, []string{"provider", "kind"}),

		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "broadlistening",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "provider"}),
	}

	for _, c := range []prometheus.Collector{m.Calls, m.Retries, m.Tokens, m.Duration} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCall records one finished call. A nil receiver is a no-op.
func (m *Metrics) ObserveCall(operation, provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(operation, provider, outcome(err)).Inc()
	m.Duration.WithLabelValues(operation, provider).Observe(time.Since(started).Seconds())
}

// ObserveRetry records one retry. A nil receiver is a no-op.
func (m *Metrics) ObserveRetry(operation, provider string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(operation, provider).Inc()
}

// ObserveTokens records reported token counts. A nil receiver is a no-op.
func (m *Metrics) ObserveTokens(provider string, input, output int) {
	if m == nil {
		return
	}
	m.Tokens.WithLabelValues(provider, "input").Add(float64(input))
	m.Tokens.WithLabelValues(provider, "output").Add(float64(output))
}

// WriteFile dumps the registry in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ai.ErrRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}
