package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
	"github.com/wheelhouse-ai/wheelhouse/internal/stream"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-20250514"
	defaultAnthropicMaxTokens = 4096
)

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	// APIKey authenticates against the Anthropic API.
	APIKey string

	// BaseURL overrides the API endpoint, for proxies and gateways.
	BaseURL string

	// Model is the default model when a request does not name one.
	Model string
}

// AnthropicProvider streams messages from the Anthropic API.
//
// The Anthropic wire format already frames output into indexed content
// blocks, so the mapping onto protocol events is positional: each block
// becomes one output item, block deltas become the matching delta
// events, and block stop emits the authoritative done events. Safe for
// concurrent use.
type AnthropicProvider struct {
	BaseProvider
	client anthropic.Client
	config AnthropicConfig
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	return &AnthropicProvider{
		BaseProvider: NewBaseProvider("anthropic", 3, time.Second),
		client:       anthropic.NewClient(options...),
		config:       config,
	}, nil
}

// Stream implements agent.Provider.
func (p *AnthropicProvider) Stream(ctx context.Context, req *agent.CompletionRequest) (<-chan agent.ProviderEvent, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	out := make(chan agent.ProviderEvent)
	go func() {
		defer close(out)

		emit := func(pe agent.ProviderEvent) bool {
			select {
			case out <- pe:
				return true
			case <-ctx.Done():
				return false
			}
		}

		sse := p.client.Messages.NewStreaming(ctx, params)
		asm := stream.NewAssembler()
		blocks := make(map[int]*blockState)

		forward := func(evs []stream.Event) bool {
			for _, ev := range evs {
				if _, err := asm.AddEvent(ev); err != nil {
					emit(agent.ProviderEvent{Err: err})
					return false
				}
				if !emit(agent.ProviderEvent{Event: &ev}) {
					return false
				}
			}
			return true
		}

		for sse.Next() {
			event := sse.Current()
			evs, err := translateAnthropicEvent(event, blocks, asm)
			if err != nil {
				emit(agent.ProviderEvent{Err: err})
				return
			}
			if !forward(evs) {
				return
			}
		}
		if err := sse.Err(); err != nil {
			emit(agent.ProviderEvent{Err: fmt.Errorf("anthropic: stream: %w", err)})
		}
	}()
	return out, nil
}

// blockState tracks one content block's accumulated payload so block
// stop can emit authoritative done events.
type blockState struct {
	kind stream.ItemKind
	text string
	args string
}

func translateAnthropicEvent(event anthropic.MessageStreamEventUnion, blocks map[int]*blockState, asm *stream.Assembler) ([]stream.Event, error) {
	switch event.Type {
	case "message_start":
		messageStart := event.AsMessageStart()
		return []stream.Event{{
			Kind:     stream.EventResponseCreated,
			Response: &stream.Response{ID: messageStart.Message.ID},
		}}, nil

	case "content_block_start":
		blockStart := event.AsContentBlockStart()
		idx := int(blockStart.Index)
		block := blockStart.ContentBlock

		switch block.Type {
		case "text":
			blocks[idx] = &blockState{kind: stream.ItemMessage}
			return []stream.Event{
				{
					Kind:        stream.EventOutputItemAdded,
					OutputIndex: idx,
					Item:        &stream.OutputItem{Kind: stream.ItemMessage, ID: fmt.Sprintf("block_%d", idx)},
				},
				{
					Kind:        stream.EventContentPartAdded,
					OutputIndex: idx,
					Part:        &stream.Part{Type: stream.PartOutputText},
				},
			}, nil

		case "tool_use":
			toolUse := block.AsToolUse()
			blocks[idx] = &blockState{kind: stream.ItemFunctionCall}
			return []stream.Event{{
				Kind:        stream.EventOutputItemAdded,
				OutputIndex: idx,
				Item: &stream.OutputItem{
					Kind:   stream.ItemFunctionCall,
					ID:     fmt.Sprintf("block_%d", idx),
					CallID: toolUse.ID,
					Name:   toolUse.Name,
				},
			}}, nil

		case "thinking":
			blocks[idx] = &blockState{kind: stream.ItemReasoning}
			return []stream.Event{
				{
					Kind:        stream.EventOutputItemAdded,
					OutputIndex: idx,
					Item:        &stream.OutputItem{Kind: stream.ItemReasoning, ID: fmt.Sprintf("block_%d", idx)},
				},
				{
					Kind:        stream.EventReasoningSummaryPartAdded,
					OutputIndex: idx,
					Part:        &stream.Part{Type: stream.PartSummaryText},
				},
			}, nil

		default:
			return nil, fmt.Errorf("%w: content block type %q", stream.ErrUnknownEvent, block.Type)
		}

	case "content_block_delta":
		blockDelta := event.AsContentBlockDelta()
		idx := int(blockDelta.Index)
		state := blocks[idx]
		if state == nil {
			return nil, fmt.Errorf("%w: delta for unknown block %d", stream.ErrMalformedEvent, idx)
		}
		delta := blockDelta.Delta

		switch delta.Type {
		case "text_delta":
			state.text += delta.Text
			return []stream.Event{{
				Kind:        stream.EventOutputTextDelta,
				OutputIndex: idx,
				Delta:       delta.Text,
			}}, nil

		case "input_json_delta":
			state.args += delta.PartialJSON
			return []stream.Event{{
				Kind:        stream.EventFunctionCallArgumentsDelta,
				OutputIndex: idx,
				Delta:       delta.PartialJSON,
			}}, nil

		case "thinking_delta":
			state.text += delta.Thinking
			return []stream.Event{{
				Kind:        stream.EventReasoningSummaryTextDelta,
				OutputIndex: idx,
				Delta:       delta.Thinking,
			}}, nil

		case "signature_delta":
			// Thinking signatures have no representation in the
			// response tree.
			return nil, nil

		default:
			return nil, fmt.Errorf("%w: delta type %q", stream.ErrUnknownEvent, delta.Type)
		}

	case "content_block_stop":
		blockStop := event.AsContentBlockStop()
		idx := int(blockStop.Index)
		state := blocks[idx]
		if state == nil {
			return nil, fmt.Errorf("%w: stop for unknown block %d", stream.ErrMalformedEvent, idx)
		}

		switch state.kind {
		case stream.ItemMessage:
			return []stream.Event{
				{Kind: stream.EventOutputTextDone, OutputIndex: idx, Text: state.text},
				{Kind: stream.EventContentPartDone, OutputIndex: idx,
					Part: &stream.Part{Type: stream.PartOutputText, Text: state.text}},
			}, nil
		case stream.ItemFunctionCall:
			return []stream.Event{{
				Kind:        stream.EventFunctionCallArgumentsDone,
				OutputIndex: idx,
				Arguments:   state.args,
			}}, nil
		default:
			return []stream.Event{
				{Kind: stream.EventReasoningSummaryTextDone, OutputIndex: idx, Text: state.text},
				{Kind: stream.EventReasoningSummaryPartDone, OutputIndex: idx,
					Part: &stream.Part{Type: stream.PartSummaryText, Text: state.text}},
			}, nil
		}

	case "message_delta", "ping":
		// Usage accounting and keepalives; nothing lands in the tree.
		return nil, nil

	case "message_stop":
		snap, err := asm.Response()
		if err != nil {
			return nil, err
		}
		return []stream.Event{{
			Kind:     stream.EventResponseCompleted,
			Response: snap,
		}}, nil

	default:
		return nil, fmt.Errorf("%w: anthropic event %q", stream.ErrUnknownEvent, event.Type)
	}
}

func (p *AnthropicProvider) buildParams(req *agent.CompletionRequest) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	messages, err := convertAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.Instructions}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertAnthropicTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	return params, nil
}

func convertAnthropicMessages(messages []models.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, msg := range messages {
		// System text travels in params.System, not the message array.
		if msg.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		for _, tr := range msg.ToolResults {
			content = append(content, anthropic.NewToolResultBlock(
				tr.ID,
				tr.Output,
				tr.Status == models.ToolStatusFailure,
			))
		}
		for _, tc := range msg.ToolCalls {
			input := tc.Args
			if input == nil {
				input = map[string]any{}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}
		if len(content) == 0 {
			continue
		}

		if msg.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, nil
}

func convertAnthropicTools(tools []agent.ToolDef) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(tool.Schema) > 0 {
			if err := json.Unmarshal(tool.Schema, &schema); err != nil {
				return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
			}
		}

		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, toolParam)
	}
	return result, nil
}
