package model

import "context"

// Provider abstracts LLM provider implementations (OpenAI, Anthropic, Ollama)
// using provider-agnostic types from the model layer.
//
// This interface is defined in the model package (not provider package) to
// avoid import cycles: provider implementations can import model, and the
// agent engine can use the Provider interface without importing the provider
// package.
type Provider interface {
	// CompletionsStream sends messages (with optional tools) to the vendor
	// and returns a channel of normalized events. The adapter owns vendor
	// call construction, system prompt injection, and partial tool-argument
	// buffering. The channel is closed when the vendor turn ends.
	//
	// Recoverable failures are handled inside the adapter (prune-and-retry,
	// backoff-and-retry); unrecoverable or retry-exhausted failures surface
	// as a single "[ERROR] ..." text event followed by channel close. The
	// stream never delivers an error value to the caller.
	CompletionsStream(ctx context.Context, messages []Message, tools []ToolSpec) <-chan Event

	// ListToolsFormat converts generic tool specs into the vendor's tool
	// schema. Pure transform, no side effects.
	ListToolsFormat(tools []ToolSpec) any

	// BuildAssistantMessage encodes accumulated assistant text plus the
	// tool calls collected this turn into the shape this vendor requires
	// for a subsequent turn.
	BuildAssistantMessage(text string, toolCalls []ToolCall) Message

	// FormatToolResultMessage builds the vendor-specific message that feeds
	// a tool's string result back into the conversation.
	FormatToolResultMessage(toolCallID string, content string) Message

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
