package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// AskHook builds the instrumentation hook for the agent loop: one span,
// one duration observation, and per-tool result counters per Ask call.
// Any of tracer, metrics, or logger may be nil.
func AskHook(tracer trace.Tracer, metrics *Metrics, logger *slog.Logger, provider string) agent.AskHook {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, input string) func(turn *models.Turn, err error) {
		start := time.Now()

		var span trace.Span
		if tracer != nil {
			_, span = tracer.Start(ctx, "agent.ask", trace.WithAttributes(
				attribute.String("llm.provider", provider),
				attribute.Int("input.length", len(input)),
			))
		}

		return func(turn *models.Turn, err error) {
			elapsed := time.Since(start)

			status := "success"
			if err != nil {
				status = "error"
			}

			steps, results := 0, 0
			if turn != nil {
				steps = len(turn.Steps)
				for _, step := range turn.Steps {
					results += len(step.Results)
				}
			}

			if metrics != nil {
				metrics.AskCounter.WithLabelValues(status).Inc()
				metrics.AskDuration.Observe(elapsed.Seconds())
				if turn != nil {
					for _, step := range turn.Steps {
						for _, res := range step.Results {
							metrics.ToolResultCounter.WithLabelValues(res.Name, string(res.Status)).Inc()
						}
					}
					// One round per step plus the final round.
					rounds := steps
					if turn.Final != nil {
						rounds++
					}
					metrics.RoundCounter.WithLabelValues(provider).Add(float64(rounds))
				}
			}

			if span != nil {
				span.SetAttributes(
					attribute.Int("turn.steps", steps),
					attribute.Int("turn.tool_results", results),
				)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				span.End()
			}

			if err != nil {
				logger.Error("ask failed", "provider", provider, "duration", elapsed, "error", err)
			} else {
				logger.Info("ask complete", "provider", provider, "duration", elapsed,
					"steps", steps, "tool_results", results)
			}
		}
	}
}
