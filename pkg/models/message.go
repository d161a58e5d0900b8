package models

import (
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolStatus tracks the lifecycle of a tool result. A result is created
// pending the moment its originating call is observed and is resolved to
// success or failure exactly once by the executor.
type ToolStatus string

const (
	ToolStatusPending ToolStatus = "pending"
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusFailure ToolStatus = "failure"
)

// ToolCall represents an assistant's request to execute a tool.
//
// RawArgs is the undecoded argument text exactly as streamed by the
// provider; it accumulates across events and is what gets echoed back on
// the wire in later rounds. Args is the best-effort decoded form and may
// be empty while arguments are still streaming.
type ToolCall struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	RawArgs string         `json:"raw_args"`
	Args    map[string]any `json:"args,omitempty"`
}

// ToolResult is the output of one tool call, reported back to the
// provider on the next round.
type ToolResult struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Input    map[string]any `json:"input,omitempty"`
	Output   string         `json:"output,omitempty"`
	Status   ToolStatus     `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Reasoning carries a provider's reasoning trace for one assistant message.
type Reasoning struct {
	ID        string   `json:"id"`
	Summaries []string `json:"summaries,omitempty"`
	Contents  []string `json:"contents,omitempty"`
}

// Message is a single conversation message.
//
// Assistant messages may carry tool call requests and a reasoning trace.
// User messages may carry tool results being reported back. Messages are
// immutable once appended to history, except that pending tool results on
// a user message are populated in place by the executor.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Reasoning   *Reasoning   `json:"reasoning,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitzero"`
}

// HasToolCalls reports whether the message requests any tool executions.
func (m *Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	clone := *m
	if m.ToolCalls != nil {
		clone.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			clone.ToolCalls[i] = tc.Clone()
		}
	}
	if m.ToolResults != nil {
		clone.ToolResults = make([]ToolResult, len(m.ToolResults))
		for i, tr := range m.ToolResults {
			clone.ToolResults[i] = tr.Clone()
		}
	}
	if m.Reasoning != nil {
		r := Reasoning{
			ID:        m.Reasoning.ID,
			Summaries: append([]string(nil), m.Reasoning.Summaries...),
			Contents:  append([]string(nil), m.Reasoning.Contents...),
		}
		clone.Reasoning = &r
	}
	return &clone
}

// Clone returns a deep copy of the tool call.
func (tc ToolCall) Clone() ToolCall {
	clone := tc
	clone.Args = cloneMap(tc.Args)
	return clone
}

// Clone returns a deep copy of the tool result.
func (tr ToolResult) Clone() ToolResult {
	clone := tr
	clone.Input = cloneMap(tr.Input)
	clone.Metadata = cloneMap(tr.Metadata)
	return clone
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
