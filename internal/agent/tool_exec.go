package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// ExecutorConfig configures tool execution behavior.
type ExecutorConfig struct {
	// ToolTimeout bounds a single tool invocation. Zero disables the
	// per-tool timeout; callers then rely on the ask-level context.
	ToolTimeout time.Duration
}

// Executor runs a step's pending tool calls against a registry.
//
// Calls within one step run strictly in request order, because later
// calls in the same round may be deliberately sequenced by the model.
// No failure mode propagates out of the executor: tool-not-found,
// validation errors, returned errors, and panics all resolve into
// failure outputs on the result.
type Executor struct {
	registry *ToolRegistry
	config   ExecutorConfig
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *ToolRegistry, config ExecutorConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, config: config, logger: logger}
}

// RunStep resolves every pending result of a step in request order, then
// marks the step done and returns the synthesized user message carrying
// the step's tool results for the next round. The progress callback, if
// non-nil, fires after each individual output lands on the step.
func (e *Executor) RunStep(ctx context.Context, step *models.Step, progress func()) (*models.Message, error) {
	for i := range step.Results {
		res := &step.Results[i]
		if res.Status != models.ToolStatusPending {
			continue
		}

		start := time.Now()
		for out := range e.executeTool(ctx, res.Name, res.Input) {
			res.Output = out.Text
			res.Status = out.Status
			res.Metadata = out.Metadata
			if progress != nil {
				progress()
			}
		}

		e.logger.Debug("tool resolved",
			"tool", res.Name,
			"call_id", res.ID,
			"status", res.Status,
			"duration", time.Since(start))
	}

	step.Status = models.StepDone

	msg := &models.Message{
		ID:          "toolmsg_" + uuid.NewString(),
		Role:        models.RoleUser,
		ToolResults: make([]models.ToolResult, len(step.Results)),
		CreatedAt:   time.Now().UTC(),
	}
	for i, res := range step.Results {
		msg.ToolResults[i] = res.Clone()
	}
	return msg, nil
}

// executeTool runs one tool call and returns its output sequence. The
// channel always delivers at least one output and is always closed.
func (e *Executor) executeTool(ctx context.Context, name string, args map[string]any) <-chan *ToolOutput {
	tool, ok := e.registry.Get(name)
	if !ok {
		return singleOutput(Failure(fmt.Sprintf("Error: Tool '%s' not found.", name)))
	}

	if err := e.registry.Validate(name, args); err != nil {
		return singleOutput(Failure(fmt.Sprintf("Error: invalid arguments for tool '%s': %v", name, err)))
	}

	results := make(chan *ToolOutput)
	go func() {
		defer close(results)
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("tool panicked",
					"tool", name,
					"panic", r,
					"stack", string(debug.Stack()))
				results <- Failure(fmt.Sprintf("Error: tool '%s' panicked: %v", name, r))
			}
		}()

		runCtx := ctx
		if e.config.ToolTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, e.config.ToolTimeout)
			defer cancel()
		}

		if st, ok := tool.(StreamingTool); ok {
			stream, err := st.ExecuteStream(runCtx, args)
			if err != nil {
				results <- Failure("Error: " + err.Error())
				return
			}
			delivered := false
			for o := range stream {
				if o == nil {
					continue
				}
				delivered = true
				results <- o
			}
			if !delivered {
				// A stream that closes without output would leave the
				// result pending forever.
				results <- Failure(fmt.Sprintf("Error: tool '%s' produced no output.", name))
			}
			return
		}

		o, err := tool.Execute(runCtx, args)
		if err != nil {
			results <- Failure("Error: " + err.Error())
			return
		}
		if o == nil {
			results <- Failure(fmt.Sprintf("Error: tool '%s' produced no output.", name))
			return
		}
		results <- o
	}()
	return results
}

func singleOutput(o *ToolOutput) <-chan *ToolOutput {
	out := make(chan *ToolOutput, 1)
	out <- o
	close(out)
	return out
}
