// Package observability wires metrics, tracing, and logging around the
// agent engine. Instrumentation enters the engine through the single
// Ask-boundary hook rather than per-function wrappers.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the agent engine.
type Metrics struct {
	// AskCounter counts Ask calls by outcome.
	// Labels: status (success|error)
	AskCounter *prometheus.CounterVec

	// AskDuration measures Ask latency in seconds.
	// Buckets: 0.1s to 120s
	AskDuration prometheus.Histogram

	// RoundCounter counts provider rounds per Ask, by provider.
	// Labels: provider
	RoundCounter *prometheus.CounterVec

	// ToolResultCounter counts resolved tool results.
	// Labels: tool_name, status (success|failure)
	ToolResultCounter *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics. A nil registerer
// uses the Prometheus default registry; tests pass their own to avoid
// duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AskCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wheelhouse_asks_total",
				Help: "Total number of Ask calls by outcome",
			},
			[]string{"status"},
		),

		AskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wheelhouse_ask_duration_seconds",
				Help:    "Duration of Ask calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),

		RoundCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wheelhouse_rounds_total",
				Help: "Total number of provider rounds by provider",
			},
			[]string{"provider"},
		),

		ToolResultCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wheelhouse_tool_results_total",
				Help: "Total number of resolved tool results by tool and status",
			},
			[]string{"tool_name", "status"},
		),
	}
}
