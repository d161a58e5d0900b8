package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wheelhouse-ai/wheelhouse/internal/stream"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// scriptedProvider replays one event script per Stream call, in order.
type scriptedProvider struct {
	scripts [][]ProviderEvent
	calls   int
	// requests records each round's request for assertions.
	requests []*CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan ProviderEvent, error) {
	p.requests = append(p.requests, req)
	if p.calls >= len(p.scripts) {
		return nil, errors.New("no script for call")
	}
	script := p.scripts[p.calls]
	p.calls++

	ch := make(chan ProviderEvent)
	go func() {
		defer close(ch)
		for _, ev := range script {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func textResponse(respID, msgID, text string) *stream.Response {
	return &stream.Response{ID: respID, Output: []*stream.OutputItem{{
		Kind:    stream.ItemMessage,
		ID:      msgID,
		Content: []stream.Part{{Type: stream.PartOutputText, Text: text}},
	}}}
}

func toolCallResponse(respID, msgID, callID, name, args string) *stream.Response {
	return &stream.Response{ID: respID, Output: []*stream.OutputItem{{
		Kind:      stream.ItemFunctionCall,
		ID:        msgID,
		CallID:    callID,
		Name:      name,
		Arguments: args,
	}}}
}

func completedScript(resp *stream.Response) []ProviderEvent {
	return []ProviderEvent{
		{Event: &stream.Event{Kind: stream.EventResponseCreated, Response: &stream.Response{ID: resp.ID}}},
		{Event: &stream.Event{Kind: stream.EventResponseCompleted, Response: resp}},
	}
}

func drain(t *testing.T, updates <-chan TurnUpdate) (TurnUpdate, int) {
	t.Helper()
	var last TurnUpdate
	n := 0
	for u := range updates {
		last = u
		n++
	}
	if n == 0 {
		t.Fatal("no updates received")
	}
	return last, n
}

func TestAskImmediateFinal(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]ProviderEvent{
		completedScript(textResponse("resp_1", "msg_1", "Hello there!")),
	}}
	conv, err := NewConversation(provider, NewToolRegistry(), LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}

	updates, err := conv.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	last, _ := drain(t, updates)
	if last.Err != nil {
		t.Fatal(last.Err)
	}

	turn := last.Turn
	if turn.Final == nil || turn.Final.Content != "Hello there!" {
		t.Fatalf("final = %+v", turn.Final)
	}
	if len(turn.Steps) != 0 {
		t.Errorf("steps = %d, want 0", len(turn.Steps))
	}

	history := conv.History()
	if len(history) != 2 {
		t.Fatalf("history = %d messages, want 2", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "hello" {
		t.Errorf("history[0] = %+v", history[0])
	}
	if history[1].Role != models.RoleAssistant || history[1].Content != "Hello there!" {
		t.Errorf("history[1] = %+v", history[1])
	}
}

func TestAskToolRoundWithFailure(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]ProviderEvent{
		completedScript(toolCallResponse("resp_1", "msg_1", "call_1", "search_car", `{"model":"XUV700"}`)),
		completedScript(textResponse("resp_2", "msg_2", "Sorry, I could not find that model.")),
	}}
	registry := NewToolRegistry()
	registry.MustRegister(&staticTool{name: "search_car", fn: func(ctx context.Context, args map[string]any) (*ToolOutput, error) {
		return Failure("not found"), nil
	}})

	conv, err := NewConversation(provider, registry, LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := conv.Ask(context.Background(), "find me an XUV700")
	if err != nil {
		t.Fatal(err)
	}
	last, _ := drain(t, updates)
	if last.Err != nil {
		t.Fatal(last.Err)
	}

	turn := last.Turn
	if len(turn.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(turn.Steps))
	}
	step := turn.Steps[0]
	if step.Status != models.StepDone {
		t.Error("step not done")
	}
	if len(step.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(step.Results))
	}
	res := step.Results[0]
	if res.Status != models.ToolStatusFailure || res.Output != "not found" {
		t.Errorf("result = %+v", res)
	}
	if res.Input["model"] != "XUV700" {
		t.Errorf("input = %#v", res.Input)
	}
	if turn.Final == nil {
		t.Fatal("final not set after second round")
	}

	// History: user, assistant tool call, user with tool result, final.
	history := conv.History()
	if len(history) != 4 {
		t.Fatalf("history = %d messages, want 4", len(history))
	}
	toolMsg := history[2]
	if toolMsg.Role != models.RoleUser || len(toolMsg.ToolResults) != 1 {
		t.Fatalf("history[2] = %+v", toolMsg)
	}
	if toolMsg.ToolResults[0].Output != "not found" {
		t.Errorf("history tool result = %+v", toolMsg.ToolResults[0])
	}

	// The second round must have seen the appended tool results.
	if len(provider.requests) != 2 {
		t.Fatalf("provider saw %d requests, want 2", len(provider.requests))
	}
	second := provider.requests[1]
	if len(second.Messages) != 3 {
		t.Errorf("second round saw %d messages, want 3", len(second.Messages))
	}
}

func TestAskStreamingEmitsGrowingSnapshots(t *testing.T) {
	script := []ProviderEvent{
		{Event: &stream.Event{Kind: stream.EventResponseCreated, Response: &stream.Response{ID: "resp_1"}}},
		{Event: &stream.Event{Kind: stream.EventOutputItemAdded, OutputIndex: 0,
			Item: &stream.OutputItem{Kind: stream.ItemMessage, ID: "msg_1"}}},
		{Event: &stream.Event{Kind: stream.EventContentPartAdded, OutputIndex: 0, ContentIndex: 0,
			Part: &stream.Part{Type: stream.PartOutputText}}},
		{Event: &stream.Event{Kind: stream.EventOutputTextDelta, OutputIndex: 0, ContentIndex: 0, Delta: "Hel"}},
		{Event: &stream.Event{Kind: stream.EventOutputTextDelta, OutputIndex: 0, ContentIndex: 0, Delta: "lo"}},
		{Event: &stream.Event{Kind: stream.EventOutputTextDone, OutputIndex: 0, ContentIndex: 0, Text: "Hello"}},
		{Event: &stream.Event{Kind: stream.EventResponseCompleted,
			Response: textResponse("resp_1", "msg_1", "Hello")}},
	}
	provider := &scriptedProvider{scripts: [][]ProviderEvent{script}}
	conv, err := NewConversation(provider, NewToolRegistry(), LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}

	updates, err := conv.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}

	var contents []string
	var last TurnUpdate
	for u := range updates {
		last = u
		if u.Turn != nil && u.Turn.Final != nil {
			contents = append(contents, u.Turn.Final.Content)
		}
	}
	if last.Err != nil {
		t.Fatal(last.Err)
	}

	// Snapshots must only ever grow toward the final text.
	prev := ""
	sawHel := false
	for _, c := range contents {
		if len(c) < len(prev) {
			t.Fatalf("content regressed from %q to %q", prev, c)
		}
		if c == "Hel" {
			sawHel = true
		}
		prev = c
	}
	if !sawHel {
		t.Errorf("intermediate snapshot missing, contents = %#v", contents)
	}
	if prev != "Hello" {
		t.Errorf("final content = %q", prev)
	}
}

func TestAskMaxRoundsFatal(t *testing.T) {
	// Provider requests the same tool forever.
	var scripts [][]ProviderEvent
	for i := 0; i < 20; i++ {
		scripts = append(scripts, completedScript(
			toolCallResponse("resp", "msg", "call", "loop_tool", `{}`)))
	}
	registry := NewToolRegistry()
	registry.MustRegister(&staticTool{name: "loop_tool", fn: func(ctx context.Context, args map[string]any) (*ToolOutput, error) {
		return Success("again"), nil
	}})

	conv, err := NewConversation(&scriptedProvider{scripts: scripts}, registry, LoopConfig{MaxRounds: 3})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := conv.Ask(context.Background(), "go")
	if err != nil {
		t.Fatal(err)
	}
	last, _ := drain(t, updates)
	if !errors.Is(last.Err, ErrMaxRounds) {
		t.Errorf("err = %v, want ErrMaxRounds", last.Err)
	}
	var re *RoundError
	if !errors.As(last.Err, &re) {
		t.Fatalf("err = %T, want *RoundError", last.Err)
	}
	if re.Round != 4 {
		t.Errorf("round = %d, want 4", re.Round)
	}
}

func TestAskBackendErrorFatal(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]ProviderEvent{{
		{Event: &stream.Event{Kind: stream.EventResponseCreated, Response: &stream.Response{ID: "resp_1"}}},
		{Err: errors.New("connection reset")},
	}}}
	conv, err := NewConversation(provider, NewToolRegistry(), LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := conv.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	last, _ := drain(t, updates)
	if last.Err == nil {
		t.Fatal("backend error swallowed")
	}
	var re *RoundError
	if !errors.As(last.Err, &re) || re.Phase != PhaseStream {
		t.Errorf("err = %v", last.Err)
	}

	// No partial assistant message may have been committed.
	history := conv.History()
	if len(history) != 1 {
		t.Fatalf("history = %d messages, want only the user message", len(history))
	}
}

func TestAskUnknownEventFatal(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]ProviderEvent{{
		{Event: &stream.Event{Kind: stream.EventResponseCreated, Response: &stream.Response{ID: "resp_1"}}},
		{Event: &stream.Event{Kind: "response.audio.delta"}},
	}}}
	conv, err := NewConversation(provider, NewToolRegistry(), LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := conv.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	last, _ := drain(t, updates)
	if !errors.Is(last.Err, stream.ErrUnknownEvent) {
		t.Errorf("err = %v, want ErrUnknownEvent", last.Err)
	}
}

func TestAskMissingTerminalResponseFatal(t *testing.T) {
	// Stream closes without any response-carrying event.
	provider := &scriptedProvider{scripts: [][]ProviderEvent{{}}}
	conv, err := NewConversation(provider, NewToolRegistry(), LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := conv.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	last, _ := drain(t, updates)
	if !errors.Is(last.Err, stream.ErrNoResponse) {
		t.Errorf("err = %v, want ErrNoResponse", last.Err)
	}
}

func TestAskEmptyInput(t *testing.T) {
	conv, err := NewConversation(&scriptedProvider{}, NewToolRegistry(), LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conv.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestAskHookFiresOnce(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]ProviderEvent{
		completedScript(textResponse("resp_1", "msg_1", "done")),
	}}

	var started, finished int
	hook := func(ctx context.Context, input string) func(*models.Turn, error) {
		started++
		return func(turn *models.Turn, err error) { finished++ }
	}

	conv, err := NewConversation(provider, NewToolRegistry(), LoopConfig{Hook: hook})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := conv.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	drain(t, updates)

	if started != 1 || finished != 1 {
		t.Errorf("hook fired start=%d finish=%d, want 1/1", started, finished)
	}
}

func TestAskSequentialPerConversation(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]ProviderEvent{
		completedScript(textResponse("resp_1", "msg_1", "first")),
		completedScript(textResponse("resp_2", "msg_2", "second")),
	}}
	conv, err := NewConversation(provider, NewToolRegistry(), LoopConfig{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	u1, err := conv.Ask(ctx, "one")
	if err != nil {
		t.Fatal(err)
	}
	u2, err := conv.Ask(ctx, "two")
	if err != nil {
		t.Fatal(err)
	}
	drain(t, u1)
	drain(t, u2)

	history := conv.History()
	if len(history) != 4 {
		t.Fatalf("history = %d messages, want 4", len(history))
	}
	if history[1].Content != "first" || history[3].Content != "second" {
		t.Errorf("rounds interleaved: %q, %q", history[1].Content, history[3].Content)
	}
}
