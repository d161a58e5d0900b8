package providers

import (
	"reflect"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
	"github.com/wheelhouse-ai/wheelhouse/internal/stream"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

func chunkText(id, text string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		ID: id,
		Choices: []openai.ChatCompletionStreamChoice{{
			Delta: openai.ChatCompletionStreamChoiceDelta{Content: text},
		}},
	}
}

func chunkToolCall(id string, index int, callID, name, args string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		ID: id,
		Choices: []openai.ChatCompletionStreamChoice{{
			Delta: openai.ChatCompletionStreamChoiceDelta{
				ToolCalls: []openai.ToolCall{{
					Index: &index,
					ID:    callID,
					Type:  openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      name,
						Arguments: args,
					},
				}},
			},
		}},
	}
}

// runTranslator pushes chunks through the translator and an assembler,
// mirroring what Stream does, and returns the assembled tree.
func runTranslator(t *testing.T, chunks []openai.ChatCompletionStreamResponse) *stream.Response {
	t.Helper()
	tr := &openaiTranslator{}
	asm := stream.NewAssembler()

	apply := func(evs []stream.Event) {
		for _, ev := range evs {
			if _, err := asm.AddEvent(ev); err != nil {
				t.Fatalf("AddEvent(%s) error: %v", ev.Kind, err)
			}
		}
	}
	for _, c := range chunks {
		apply(tr.feed(c))
	}
	apply(tr.finish())

	resp, err := asm.Response()
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestOpenAITranslatorText(t *testing.T) {
	resp := runTranslator(t, []openai.ChatCompletionStreamResponse{
		chunkText("chatcmpl-1", "Hel"),
		chunkText("chatcmpl-1", "lo"),
	})

	if resp.ID != "chatcmpl-1" {
		t.Errorf("response ID = %q", resp.ID)
	}
	msg, err := stream.ToMessage(resp)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "Hello" {
		t.Errorf("content = %q", msg.Content)
	}
}

func TestOpenAITranslatorToolCalls(t *testing.T) {
	resp := runTranslator(t, []openai.ChatCompletionStreamResponse{
		chunkToolCall("chatcmpl-1", 0, "call_a", "search_vehicles", ""),
		chunkToolCall("chatcmpl-1", 0, "", "", `{"model":`),
		chunkToolCall("chatcmpl-1", 0, "", "", `"XUV700"}`),
		chunkToolCall("chatcmpl-1", 1, "call_b", "search_faq", `{"query":"emi"}`),
	})

	msg, err := stream.ToMessage(resp)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(msg.ToolCalls))
	}
	first := msg.ToolCalls[0]
	if first.ID != "call_a" || first.Name != "search_vehicles" || first.RawArgs != `{"model":"XUV700"}` {
		t.Errorf("first call = %+v", first)
	}
	if !reflect.DeepEqual(first.Args, map[string]any{"model": "XUV700"}) {
		t.Errorf("first args = %#v", first.Args)
	}
	second := msg.ToolCalls[1]
	if second.ID != "call_b" || second.Name != "search_faq" {
		t.Errorf("second call = %+v", second)
	}
}

func TestOpenAITranslatorMixedTextAndCalls(t *testing.T) {
	resp := runTranslator(t, []openai.ChatCompletionStreamResponse{
		chunkText("chatcmpl-1", "Let me look that up."),
		chunkToolCall("chatcmpl-1", 0, "call_a", "search_vehicles", `{}`),
	})

	msg, err := stream.ToMessage(resp)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "Let me look that up." {
		t.Errorf("content = %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Errorf("tool calls = %d, want 1", len(msg.ToolCalls))
	}
}

func TestOpenAITranslatorEventOrdering(t *testing.T) {
	tr := &openaiTranslator{}
	evs := tr.feed(chunkText("chatcmpl-1", "hi"))

	want := []stream.EventKind{
		stream.EventResponseCreated,
		stream.EventOutputItemAdded,
		stream.EventContentPartAdded,
		stream.EventOutputTextDelta,
	}
	if len(evs) != len(want) {
		t.Fatalf("events = %d, want %d", len(evs), len(want))
	}
	for i, kind := range want {
		if evs[i].Kind != kind {
			t.Errorf("event %d = %s, want %s", i, evs[i].Kind, kind)
		}
	}
}

func TestConvertOpenAIMessages(t *testing.T) {
	p := NewOpenAIProvider("test-key")
	req := &agent.CompletionRequest{
		Model:        "gpt-4o",
		Instructions: "Be helpful.",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "find a 7 seater"},
			{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
				{ID: "call_a", Name: "search_vehicles", RawArgs: `{"seating":7}`},
			}},
			{Role: models.RoleUser, ToolResults: []models.ToolResult{
				{ID: "call_a", Name: "search_vehicles", Output: "XUV700, Scorpio-N", Status: models.ToolStatusSuccess},
			}},
		},
	}

	oreq := p.convertRequest(req)
	if oreq.Model != "gpt-4o" || !oreq.Stream {
		t.Errorf("request = %+v", oreq)
	}

	roles := make([]string, len(oreq.Messages))
	for i, m := range oreq.Messages {
		roles[i] = m.Role
	}
	want := []string{
		openai.ChatMessageRoleSystem,
		openai.ChatMessageRoleUser,
		openai.ChatMessageRoleAssistant,
		openai.ChatMessageRoleTool,
	}
	if !reflect.DeepEqual(roles, want) {
		t.Fatalf("roles = %v, want %v", roles, want)
	}

	assistant := oreq.Messages[2]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].Function.Arguments != `{"seating":7}` {
		t.Errorf("assistant message = %+v", assistant)
	}
	toolMsg := oreq.Messages[3]
	if toolMsg.ToolCallID != "call_a" || toolMsg.Content != "XUV700, Scorpio-N" {
		t.Errorf("tool message = %+v", toolMsg)
	}
}

func TestConvertOpenAITools(t *testing.T) {
	p := NewOpenAIProvider("test-key")
	oreq := p.convertRequest(&agent.CompletionRequest{
		Tools: []agent.ToolDef{
			{Name: "search_faq", Description: "Search the FAQ.", Schema: []byte(`{"type":"object"}`)},
			{Name: "no_schema"},
		},
	})

	if len(oreq.Tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(oreq.Tools))
	}
	if oreq.Tools[0].Function.Name != "search_faq" {
		t.Errorf("tool = %+v", oreq.Tools[0].Function)
	}
	// A missing schema becomes an empty object schema, not nil.
	params, ok := oreq.Tools[1].Function.Parameters.(map[string]any)
	if !ok || params["type"] != "object" {
		t.Errorf("fallback parameters = %#v", oreq.Tools[1].Function.Parameters)
	}
}
