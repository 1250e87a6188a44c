package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/akofink/textual-cli-agent/model"
	"github.com/akofink/textual-cli-agent/provider/testutil"
)

// fakeExecutor is a minimal local tool backend for engine tests.
type fakeExecutor struct {
	specs   []model.ToolSpec
	execute func(ctx context.Context, name string, args map[string]any) (any, error)
}

func (f *fakeExecutor) Specs() []model.ToolSpec { return f.specs }

func (f *fakeExecutor) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	if f.execute == nil {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return f.execute(ctx, name, args)
}

func collectEvents(t *testing.T, ch <-chan model.Event) []model.Event {
	t.Helper()
	var events []model.Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("stream did not close in time")
		}
	}
}

func userMessages() []model.Message {
	return []model.Message{{Role: "user", Content: "hello"}}
}

func TestRunStreamTextOnlyRound(t *testing.T) {
	provider := testutil.NewScriptedProvider("test-model",
		model.TextEvent("Hello, "),
		model.TextEvent("world."),
	)
	engine := NewEngine(provider, nil, nil, EngineConfig{})

	events := collectEvents(t, engine.RunStream(context.Background(), userMessages()))

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(events), events)
	}
	if events[0].Delta != "Hello, " || events[1].Delta != "world." {
		t.Errorf("unexpected text deltas: %+v", events[:2])
	}
	if events[2].Type != model.EventAppendMessage || events[2].Message == nil || events[2].Message.Role != "assistant" {
		t.Errorf("expected assistant append_message, got %+v", events[2])
	}
	last := events[len(events)-1]
	if last.Type != model.EventRoundComplete || last.HadToolCalls {
		t.Errorf("expected terminal round_complete(false), got %+v", last)
	}
}

// A text-only round must still hand the assistant message back through
// append_message: the caller appends to its transcript from that event
// alone, so dropping it loses the reply from every later turn.
func TestRunStreamTextOnlyRoundAppendsAssistant(t *testing.T) {
	provider := testutil.NewScriptedProvider("test-model",
		model.TextEvent("The answer "),
		model.TextEvent("is 42."),
	)
	engine := NewEngine(provider, nil, nil, EngineConfig{})

	events := collectEvents(t, engine.RunStream(context.Background(), userMessages()))

	var assistant *model.Message
	for i := range events {
		if events[i].Type == model.EventAppendMessage && events[i].Message != nil && events[i].Message.Role == "assistant" {
			assistant = events[i].Message
			break
		}
	}
	if assistant == nil {
		t.Fatal("no assistant append_message in a text-only round")
	}
	if !strings.Contains(assistant.Content, "The answer is 42.") {
		t.Errorf("assistant content = %q, want accumulated text", assistant.Content)
	}
}

func TestRunStreamToolRoundOrdering(t *testing.T) {
	call1 := model.ToolCall{ID: "c1", Name: "alpha", Arguments: map[string]any{"x": 1.0}}
	call2 := model.ToolCall{ID: "c2", Name: "beta", Arguments: map[string]any{}}
	provider := testutil.NewScriptedProvider("test-model",
		model.TextEvent("Running tools."),
		model.ToolCallEvent(call1),
		model.ToolCallEvent(call2),
	)
	executor := &fakeExecutor{
		execute: func(_ context.Context, name string, _ map[string]any) (any, error) {
			return "done:" + name, nil
		},
	}
	engine := NewEngine(provider, executor, nil, EngineConfig{})

	events := collectEvents(t, engine.RunStream(context.Background(), userMessages()))

	var types []model.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	want := []model.EventType{
		model.EventText,
		model.EventToolCall, model.EventToolCall,
		model.EventToolResult, model.EventToolResult,
		model.EventAppendMessage,
		model.EventAppendMessage, model.EventAppendMessage,
		model.EventRoundComplete,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(types), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d: got %s, want %s (all: %v)", i, types[i], want[i], types)
		}
	}

	// Tool results are positionally aligned with the requests.
	if events[3].ID != "c1" || !strings.Contains(events[3].Content, "done:alpha") {
		t.Errorf("first tool result mismatch: %+v", events[3])
	}
	if events[4].ID != "c2" || !strings.Contains(events[4].Content, "done:beta") {
		t.Errorf("second tool result mismatch: %+v", events[4])
	}

	// The assistant append precedes the tool-result appends.
	if events[5].Message.Role != "assistant" {
		t.Errorf("expected assistant message first, got %+v", events[5].Message)
	}
	if events[6].Message.Role != "tool" || events[7].Message.Role != "tool" {
		t.Errorf("expected tool messages after assistant: %+v, %+v", events[6].Message, events[7].Message)
	}

	last := events[len(events)-1]
	if !last.HadToolCalls {
		t.Error("round with tools must report HadToolCalls")
	}
}

func TestRunStreamExactlyOneRoundComplete(t *testing.T) {
	provider := testutil.NewScriptedProvider("test-model", model.TextEvent("hi"))
	engine := NewEngine(provider, nil, nil, EngineConfig{})

	events := collectEvents(t, engine.RunStream(context.Background(), userMessages()))

	count := 0
	for i, ev := range events {
		if ev.Type == model.EventRoundComplete {
			count++
			if i != len(events)-1 {
				t.Error("round_complete must be the final event")
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one round_complete, got %d", count)
	}
}

func TestRunStreamEmptyMessages(t *testing.T) {
	provider := testutil.NewMockProvider("test-model")
	engine := NewEngine(provider, nil, nil, EngineConfig{})

	events := collectEvents(t, engine.RunStream(context.Background(), nil))

	if len(events) != 2 {
		t.Fatalf("expected error + round_complete, got %+v", events)
	}
	if !strings.Contains(events[0].Delta, "[ERROR] No messages to send") {
		t.Errorf("unexpected error text: %q", events[0].Delta)
	}
	if events[1].Type != model.EventRoundComplete || events[1].HadToolCalls {
		t.Errorf("expected round_complete(false), got %+v", events[1])
	}
}

func TestRunStreamMessageMissingRole(t *testing.T) {
	provider := testutil.NewMockProvider("test-model")
	engine := NewEngine(provider, nil, nil, EngineConfig{})

	messages := []model.Message{
		{Role: "user", Content: "ok"},
		{Content: "no role"},
	}
	events := collectEvents(t, engine.RunStream(context.Background(), messages))

	if !strings.Contains(events[0].Delta, "[ERROR] Message 1 has no role") {
		t.Errorf("unexpected error text: %q", events[0].Delta)
	}
	if events[len(events)-1].Type != model.EventRoundComplete {
		t.Error("stream must still terminate with round_complete")
	}
}

func TestRunStreamRecoversFromPanic(t *testing.T) {
	provider := testutil.NewMockProvider("test-model")
	provider.StreamFunc = func(context.Context, []model.Message, []model.ToolSpec) <-chan model.Event {
		panic("provider exploded")
	}
	engine := NewEngine(provider, nil, nil, EngineConfig{})

	events := collectEvents(t, engine.RunStream(context.Background(), userMessages()))

	if len(events) != 2 {
		t.Fatalf("expected error + round_complete, got %+v", events)
	}
	if !strings.Contains(events[0].Delta, "[ERROR] Unexpected error: provider exploded") {
		t.Errorf("unexpected panic text: %q", events[0].Delta)
	}
	last := events[1]
	if last.Type != model.EventRoundComplete || last.HadToolCalls {
		t.Errorf("expected round_complete(false) after panic, got %+v", last)
	}
}

func TestRunStreamBuildAssistantMessagePanicDegrades(t *testing.T) {
	call := model.ToolCall{ID: "c1", Name: "alpha", Arguments: map[string]any{}}
	provider := testutil.NewScriptedProvider("test-model",
		model.TextEvent("text"),
		model.ToolCallEvent(call),
	)
	provider.BuildAssistantMessageFunc = func(string, []model.ToolCall) model.Message {
		panic("bad build")
	}
	executor := &fakeExecutor{
		execute: func(context.Context, string, map[string]any) (any, error) { return "ok", nil },
	}
	engine := NewEngine(provider, executor, nil, EngineConfig{})

	events := collectEvents(t, engine.RunStream(context.Background(), userMessages()))

	var assistant *model.Message
	for _, ev := range events {
		if ev.Type == model.EventAppendMessage && ev.Message.Role == "assistant" {
			assistant = ev.Message
			break
		}
	}
	if assistant == nil {
		t.Fatal("expected an assistant append despite the panic")
	}
	if assistant.Content != "text" {
		t.Errorf("expected minimal text fallback, got %+v", assistant)
	}
	if events[len(events)-1].Type != model.EventRoundComplete {
		t.Error("round must still complete")
	}
}
