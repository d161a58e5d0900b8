package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
	"github.com/wheelhouse-ai/wheelhouse/internal/stream"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIProvider streams chat completions from the OpenAI API.
//
// The chat-completions wire format delivers plain content and tool-call
// deltas without item/part framing, so the provider synthesizes the
// framing itself: one message item for the content stream, one
// function_call item per tool-call index, with done events emitted once
// the stream ends. Safe for concurrent use; each Stream call owns an
// independent SSE stream and goroutine.
type OpenAIProvider struct {
	BaseProvider
	client *openai.Client
	apiKey string
}

// NewOpenAIProvider creates an OpenAI provider. An empty API key defers
// the failure to the first Stream call.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return NewOpenAIProviderWithBaseURL(apiKey, "")
}

// NewOpenAIProviderWithBaseURL targets an OpenAI-compatible endpoint.
func NewOpenAIProviderWithBaseURL(apiKey, baseURL string) *OpenAIProvider {
	p := &OpenAIProvider{
		BaseProvider: NewBaseProvider("openai", 3, time.Second),
		apiKey:       apiKey,
	}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		p.client = openai.NewClientWithConfig(cfg)
	}
	return p
}

// Stream implements agent.Provider.
func (p *OpenAIProvider) Stream(ctx context.Context, req *agent.CompletionRequest) (<-chan agent.ProviderEvent, error) {
	if p.client == nil {
		return nil, ErrNoAPIKey
	}

	oreq := p.convertRequest(req)

	var sse *openai.ChatCompletionStream
	err := p.Retry(ctx, isRetryable, func() error {
		var err error
		sse, err = p.client.CreateChatCompletionStream(ctx, oreq)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create stream: %w", err)
	}

	out := make(chan agent.ProviderEvent)
	go func() {
		defer close(out)
		defer sse.Close()

		emit := func(pe agent.ProviderEvent) bool {
			select {
			case out <- pe:
				return true
			case <-ctx.Done():
				return false
			}
		}

		asm := stream.NewAssembler()
		tr := &openaiTranslator{}
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

		for {
			resp, err := sse.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				emit(agent.ProviderEvent{Err: fmt.Errorf("openai: recv: %w", err)})
				return
			}
			if !forward(tr.feed(resp)) {
				return
			}
		}

		if !forward(tr.finish()) {
			return
		}
		snap, err := asm.Response()
		if err != nil {
			emit(agent.ProviderEvent{Err: err})
			return
		}
		emit(agent.ProviderEvent{Event: &stream.Event{
			Kind:     stream.EventResponseCompleted,
			Response: snap,
		}})
	}()
	return out, nil
}

func (p *OpenAIProvider) convertRequest(req *agent.CompletionRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	var msgs []openai.ChatCompletionMessage
	if req.Instructions != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, convertOpenAIMessage(m)...)
	}

	var tools []openai.Tool
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toolParameters(t.Schema),
			},
		})
	}

	return openai.ChatCompletionRequest{
		Model:     model,
		Messages:  msgs,
		Tools:     tools,
		MaxTokens: req.MaxTokens,
		Stream:    true,
	}
}

func convertOpenAIMessage(m models.Message) []openai.ChatCompletionMessage {
	switch m.Role {
	case models.RoleSystem:
		return []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: m.Content}}

	case models.RoleAssistant:
		out := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
		for _, tc := range m.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.RawArgs,
				},
			})
		}
		return []openai.ChatCompletionMessage{out}

	default:
		// Tool results need one role-tool message per result; any plain
		// text rides along as a separate user message.
		var out []openai.ChatCompletionMessage
		for _, tr := range m.ToolResults {
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    tr.Output,
				ToolCallID: tr.ID,
			})
		}
		if m.Content != "" || len(out) == 0 {
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		}
		return out
	}
}

func toolParameters(schema json.RawMessage) any {
	if len(schema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var v any
	if err := json.Unmarshal(schema, &v); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return v
}

// openaiTranslator turns one chat-completion chunk stream into protocol
// events. It is a pure accumulator, which keeps the mapping testable
// without a live SSE stream.
type openaiTranslator struct {
	created bool
	respID  string

	nextIndex int

	// message item state
	msgIndex  int
	msgActive bool
	text      string

	// tool-call index (wire) -> output index, plus accumulated args
	callIndex map[int]int
	callArgs  map[int]string
}

func (t *openaiTranslator) feed(resp openai.ChatCompletionStreamResponse) []stream.Event {
	var evs []stream.Event

	if !t.created {
		t.created = true
		t.respID = resp.ID
		if t.respID == "" {
			t.respID = "chatcmpl-unknown"
		}
		t.msgIndex = -1
		t.callIndex = make(map[int]int)
		t.callArgs = make(map[int]string)
		evs = append(evs, stream.Event{
			Kind:     stream.EventResponseCreated,
			Response: &stream.Response{ID: t.respID},
		})
	}

	if len(resp.Choices) == 0 {
		return evs
	}
	delta := resp.Choices[0].Delta

	if delta.Content != "" {
		if !t.msgActive {
			t.msgActive = true
			t.msgIndex = t.nextIndex
			t.nextIndex++
			evs = append(evs,
				stream.Event{
					Kind:        stream.EventOutputItemAdded,
					OutputIndex: t.msgIndex,
					Item:        &stream.OutputItem{Kind: stream.ItemMessage, ID: t.respID + "-msg"},
				},
				stream.Event{
					Kind:         stream.EventContentPartAdded,
					OutputIndex:  t.msgIndex,
					ContentIndex: 0,
					Part:         &stream.Part{Type: stream.PartOutputText},
				},
			)
		}
		t.text += delta.Content
		evs = append(evs, stream.Event{
			Kind:         stream.EventOutputTextDelta,
			OutputIndex:  t.msgIndex,
			ContentIndex: 0,
			Delta:        delta.Content,
		})
	}

	for _, tc := range delta.ToolCalls {
		wireIdx := 0
		if tc.Index != nil {
			wireIdx = *tc.Index
		}
		outIdx, ok := t.callIndex[wireIdx]
		if !ok {
			outIdx = t.nextIndex
			t.nextIndex++
			t.callIndex[wireIdx] = outIdx
			evs = append(evs, stream.Event{
				Kind:        stream.EventOutputItemAdded,
				OutputIndex: outIdx,
				Item: &stream.OutputItem{
					Kind:   stream.ItemFunctionCall,
					ID:     fmt.Sprintf("%s-call-%d", t.respID, wireIdx),
					CallID: tc.ID,
					Name:   tc.Function.Name,
				},
			})
		}
		if tc.Function.Arguments != "" {
			t.callArgs[wireIdx] += tc.Function.Arguments
			evs = append(evs, stream.Event{
				Kind:        stream.EventFunctionCallArgumentsDelta,
				OutputIndex: outIdx,
				Delta:       tc.Function.Arguments,
			})
		}
	}

	return evs
}

// finish emits the authoritative done events once the SSE stream ends.
// The terminal completed event is built by the caller from its assembled
// tree.
func (t *openaiTranslator) finish() []stream.Event {
	var evs []stream.Event
	if t.msgActive {
		evs = append(evs,
			stream.Event{
				Kind:         stream.EventOutputTextDone,
				OutputIndex:  t.msgIndex,
				ContentIndex: 0,
				Text:         t.text,
			},
			stream.Event{
				Kind:         stream.EventContentPartDone,
				OutputIndex:  t.msgIndex,
				ContentIndex: 0,
				Part:         &stream.Part{Type: stream.PartOutputText, Text: t.text},
			},
		)
	}
	wireIdxs := make([]int, 0, len(t.callIndex))
	for wireIdx := range t.callIndex {
		wireIdxs = append(wireIdxs, wireIdx)
	}
	sort.Ints(wireIdxs)
	for _, wireIdx := range wireIdxs {
		evs = append(evs, stream.Event{
			Kind:        stream.EventFunctionCallArgumentsDone,
			OutputIndex: t.callIndex[wireIdx],
			Arguments:   t.callArgs[wireIdx],
		})
	}
	return evs
}
