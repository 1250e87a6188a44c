// Package testutil provides mock providers and conversation fixtures
// shared by the provider, agent, and ui tests.
package testutil

import (
	"context"

	"github.com/akofink/textual-cli-agent/model"
)

// MockProvider implements model.Provider for testing. Each method
// delegates to a swappable Func field so tests can script exactly the
// stream they need.
type MockProvider struct {
	StreamFunc                func(ctx context.Context, messages []model.Message, tools []model.ToolSpec) <-chan model.Event
	ListModelsFunc            func(ctx context.Context) ([]model.ModelInfo, error)
	PingFunc                  func(ctx context.Context) error
	BuildAssistantMessageFunc func(text string, toolCalls []model.ToolCall) model.Message

	currentModel string
}

// NewMockProvider creates a mock provider with default implementations.
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{currentModel: modelName}
	mock.StreamFunc = mock.defaultStream
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = mock.defaultPing
	return mock
}

// NewScriptedProvider returns a mock whose stream replays the given
// events, in order, for every call.
func NewScriptedProvider(modelName string, events ...model.Event) *MockProvider {
	mock := NewMockProvider(modelName)
	mock.StreamFunc = func(context.Context, []model.Message, []model.ToolSpec) <-chan model.Event {
		out := make(chan model.Event, len(events))
		for _, ev := range events {
			out <- ev
		}
		close(out)
		return out
	}
	return mock
}

func (m *MockProvider) defaultStream(context.Context, []model.Message, []model.ToolSpec) <-chan model.Event {
	out := make(chan model.Event, 1)
	out <- model.TextEvent("mock response")
	close(out)
	return out
}

func (m *MockProvider) defaultListModels(context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{{
		Name:         m.currentModel,
		InternalName: m.currentModel,
		Provider:     "mock",
	}}, nil
}

func (m *MockProvider) defaultPing(context.Context) error {
	return nil
}

// CompletionsStream implements model.Provider.
func (m *MockProvider) CompletionsStream(ctx context.Context, messages []model.Message, tools []model.ToolSpec) <-chan model.Event {
	return m.StreamFunc(ctx, messages, tools)
}

// ListToolsFormat implements model.Provider.
func (m *MockProvider) ListToolsFormat(tools []model.ToolSpec) any {
	return tools
}

// BuildAssistantMessage implements model.Provider with the OpenAI-style
// payload shape.
func (m *MockProvider) BuildAssistantMessage(text string, toolCalls []model.ToolCall) model.Message {
	if m.BuildAssistantMessageFunc != nil {
		return m.BuildAssistantMessageFunc(text, toolCalls)
	}
	msg := model.Message{Role: "assistant", Content: text}
	for _, call := range toolCalls {
		msg.ToolCalls = append(msg.ToolCalls, model.ToolCallPayload{
			ID:       call.ID,
			Type:     "function",
			Function: model.FunctionCall{Name: call.Name},
		})
	}
	return msg
}

// FormatToolResultMessage implements model.Provider.
func (m *MockProvider) FormatToolResultMessage(toolCallID string, content string) model.Message {
	return model.Message{Role: "tool", ToolCallID: toolCallID, Content: content}
}

// ListModels implements model.Provider.
func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

// GetModel implements model.Provider.
func (m *MockProvider) GetModel() string {
	return m.currentModel
}

// SetModel implements model.Provider.
func (m *MockProvider) SetModel(modelName string) {
	m.currentModel = modelName
}

// Ping implements model.Provider.
func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
