package model

import (
	"encoding/json"
	"time"
)

// Message represents one conversation turn unit in provider-agnostic form.
//
// Most messages carry plain text in Content. Messages produced by the
// Anthropic adapter carry structured Blocks instead (text / tool_use /
// tool_result); when Blocks is non-empty it takes precedence over Content.
// Assistant messages that requested tools carry ToolCalls in the
// OpenAI-compatible wire shape so they can be sent back on the next turn.
type Message struct {
	Role       string            `json:"role"`
	Content    string            `json:"content,omitempty"`
	Blocks     []ContentBlock    `json:"blocks,omitempty"`
	ToolCalls  []ToolCallPayload `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Timestamp  time.Time         `json:"timestamp,omitempty"`
	Rendered   string            `json:"-"` // Cached rendered markdown for the UI
}

// Text returns the textual content of the message, flattening text blocks
// when the message carries structured content.
func (m Message) Text() string {
	if len(m.Blocks) == 0 {
		return m.Content
	}
	var out string
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// Content block types used by Anthropic-style structured messages.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is one typed element of a structured message body.
type ContentBlock struct {
	Type string `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// BlockToolResult
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ToolCall is a run-time request to invoke a tool, normalized across
// providers. Arguments holds the decoded argument JSON; the dispatcher
// rejects anything that is not a JSON object.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// ArgumentsMap returns the arguments as a map when they decode to a JSON
// object, or (nil, false) for any other shape.
func (tc ToolCall) ArgumentsMap() (map[string]any, bool) {
	if tc.Arguments == nil {
		return map[string]any{}, true
	}
	m, ok := tc.Arguments.(map[string]any)
	return m, ok
}

// ToolCallPayload is the OpenAI-compatible wire shape for a tool call
// attached to an assistant message. Ollama accepts the same shape.
type ToolCallPayload struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and raw argument JSON.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolSpec is a declarative description of an invocable tool: a unique name,
// free-text description for the model, and a JSON-schema object describing
// the parameters.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ModelInfo describes an available model reported by a provider.
type ModelInfo struct {
	Name         string // Display name
	InternalName string // Name used for API calls
	Size         int64  // Bytes, 0 when the provider does not report size
	Provider     string // Provider ID this model belongs to
}
