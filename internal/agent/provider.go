package agent

import (
	"context"
	"encoding/json"

	"github.com/wheelhouse-ai/wheelhouse/internal/stream"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// ToolDef describes one tool to the reasoning backend: name, a human
// description, and a JSON Schema for the argument object.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// CompletionRequest contains all parameters for one provider round.
type CompletionRequest struct {
	// Model specifies which model to use. If empty, the provider's
	// default model is used.
	Model string `json:"model"`

	// Instructions is the system prompt, handled separately from the
	// message history by every provider API.
	Instructions string `json:"instructions,omitempty"`

	// Messages is the conversation history in chronological order.
	Messages []models.Message `json:"messages"`

	// Tools defines the callable tools for this round.
	Tools []ToolDef `json:"tools,omitempty"`

	// MaxTokens limits the generated response length. Zero means the
	// provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ProviderEvent is one element of a provider's event stream: either a
// protocol event or a terminal error. After an event with Err set, or
// after channel close, no further events arrive.
type ProviderEvent struct {
	Event *stream.Event
	Err   error
}

// Provider is the reasoning backend contract.
//
// Implementations translate their native wire format into the protocol
// event sequence the assembler consumes, ending with a completed event
// that carries the authoritative response tree. Implementations must be
// safe for concurrent use across conversations.
type Provider interface {
	// Stream sends the request and returns the response event stream.
	// A nil error with a channel means the call was accepted; failures
	// after that point arrive as ProviderEvent.Err.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan ProviderEvent, error)

	// Name returns the provider name.
	Name() string
}
