package models

// StepStatus is the execution status of one agent step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepDone    StepStatus = "done"
)

// Step is one tool-call round: the assistant message that requested the
// calls plus the results derived from it. A step's identity is the ID of
// its originating assistant message; re-observing the same message during
// streaming updates the step in place rather than duplicating it.
type Step struct {
	Message Message      `json:"message"`
	Results []ToolResult `json:"results"`
	Status  StepStatus   `json:"status"`
}

// Pending reports whether the step still has unexecuted tool results.
func (s *Step) Pending() bool {
	return s.Status == StepPending
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	clone := &Step{
		Message: *s.Message.Clone(),
		Status:  s.Status,
	}
	if s.Results != nil {
		clone.Results = make([]ToolResult, len(s.Results))
		for i, r := range s.Results {
			clone.Results[i] = r.Clone()
		}
	}
	return clone
}

// Turn is the aggregate record of one user query's processing cycle:
// zero or more steps followed by at most one final message. A turn is
// complete when Final is set and no step remains pending.
type Turn struct {
	Steps []*Step  `json:"steps"`
	Final *Message `json:"final,omitempty"`
}

// StepFor returns the step whose originating message ID matches id.
func (t *Turn) StepFor(id string) *Step {
	for _, s := range t.Steps {
		if s.Message.ID == id {
			return s
		}
	}
	return nil
}

// PendingSteps returns the steps that still have unexecuted results,
// in order.
func (t *Turn) PendingSteps() []*Step {
	var pending []*Step
	for _, s := range t.Steps {
		if s.Pending() {
			pending = append(pending, s)
		}
	}
	return pending
}

// Clone returns a deep copy of the turn. The engine hands clones to
// callers so snapshots never alias live aggregation state.
func (t *Turn) Clone() *Turn {
	if t == nil {
		return nil
	}
	clone := &Turn{Final: t.Final.Clone()}
	if t.Steps != nil {
		clone.Steps = make([]*Step, len(t.Steps))
		for i, s := range t.Steps {
			clone.Steps[i] = s.Clone()
		}
	}
	return clone
}
