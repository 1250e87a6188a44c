package model

// EventType discriminates the normalized event union that crosses the
// provider adapter boundary and flows from the agent engine to its caller.
type EventType string

const (
	// EventText carries an incremental assistant text fragment. Order
	// matters: concatenating deltas across a turn reconstructs the full
	// assistant text.
	EventText EventType = "text"

	// EventToolCall carries a fully-resolved tool invocation request.
	// Adapters buffer fragmented argument JSON internally and emit this
	// only once the arguments parse.
	EventToolCall EventType = "tool_call"

	// EventAppendMessage instructs the caller to append a fully-formed
	// message to its history.
	EventAppendMessage EventType = "append_message"

	// EventToolResult is the UI-facing echo of a tool's string-serialized
	// result, independent of the append_message the engine also emits.
	EventToolResult EventType = "tool_result"

	// EventRoundComplete is the terminal marker for one provider turn.
	// Exactly one terminates each RunStream invocation, always last.
	EventRoundComplete EventType = "round_complete"
)

// Event is the normalized event shape. Exactly the fields relevant to Type
// are populated.
type Event struct {
	Type EventType

	// EventText
	Delta string

	// EventToolCall
	Call *ToolCall

	// EventAppendMessage
	Message *Message

	// EventToolResult
	ID      string
	Content string

	// EventRoundComplete
	HadToolCalls bool
}

// TextEvent builds a text delta event.
func TextEvent(delta string) Event {
	return Event{Type: EventText, Delta: delta}
}

// ToolCallEvent builds a tool_call event.
func ToolCallEvent(call ToolCall) Event {
	return Event{Type: EventToolCall, Call: &call}
}

// AppendMessageEvent builds an append_message event.
func AppendMessageEvent(msg Message) Event {
	return Event{Type: EventAppendMessage, Message: &msg}
}

// ToolResultEvent builds a tool_result event.
func ToolResultEvent(id, content string) Event {
	return Event{Type: EventToolResult, ID: id, Content: content}
}

// RoundCompleteEvent builds the terminal round_complete event.
func RoundCompleteEvent(hadToolCalls bool) Event {
	return Event{Type: EventRoundComplete, HadToolCalls: hadToolCalls}
}
