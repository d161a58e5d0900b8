package agent

import (
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// TurnFromMessage starts a new turn from the first assistant message of
// a round. A message with no tool calls is the turn's final answer; one
// with tool calls becomes a pending step with one pending result per
// requested call.
func TurnFromMessage(msg *models.Message) *models.Turn {
	turn := &models.Turn{}
	UpdateTurn(turn, msg)
	return turn
}

// UpdateTurn folds an assistant message into the turn in place.
//
// During one streaming round the same logical message is re-observed
// many times with growing content, so the fold is idempotent by message
// identifier: a message with tool calls replaces the existing step with
// its identifier (or appends a new one), and a message without tool
// calls becomes the final answer. Each direction clears the other's
// stale state, because a streaming snapshot can look final before its
// tool calls arrive and can look tool-calling before the authoritative
// form resolves to plain text.
func UpdateTurn(turn *models.Turn, msg *models.Message) {
	if !msg.HasToolCalls() {
		turn.Final = msg.Clone()
		dropStep(turn, msg.ID)
		return
	}

	turn.Final = nil
	step := buildStep(msg)
	if existing := turn.StepFor(msg.ID); existing != nil {
		*existing = *step
		return
	}
	turn.Steps = append(turn.Steps, step)
}

// buildStep synthesizes the pending step for a tool-calling message:
// one pending result per requested call, in request order.
func buildStep(msg *models.Message) *models.Step {
	step := &models.Step{
		Message: *msg.Clone(),
		Status:  models.StepPending,
		Results: make([]models.ToolResult, len(msg.ToolCalls)),
	}
	for i, call := range msg.ToolCalls {
		step.Results[i] = models.ToolResult{
			ID:     call.ID,
			Name:   call.Name,
			Input:  call.Clone().Args,
			Status: models.ToolStatusPending,
		}
	}
	return step
}

func dropStep(turn *models.Turn, id string) {
	for i, s := range turn.Steps {
		if s.Message.ID == id {
			turn.Steps = append(turn.Steps[:i], turn.Steps[i+1:]...)
			return
		}
	}
}
