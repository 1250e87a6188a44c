package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akofink/textual-cli-agent/model"
)

// Some models, especially smaller local ones, emit their tool call as
// plain text instead of through the API's tool-call channel. The parsers
// here salvage those so the agent loop still runs the tool. They only run
// when a stream produced no API-level tool calls.

// ParseLeakedJSONToolCalls scans assistant text for bare JSON objects of
// the form {"name": ..., "arguments": {...}} and converts them to tool
// calls. Objects missing a name or with non-object arguments are ignored.
// Leaked calls carry no vendor id, so each gets a synthetic call_N id;
// tool-result messages need a non-empty tool_call_id on the next turn.
func ParseLeakedJSONToolCalls(content string) []model.ToolCall {
	var calls []model.ToolCall

	for _, candidate := range extractJSONObjects(content) {
		if call, ok := leakedCallFromJSON(candidate); ok {
			call.ID = fmt.Sprintf("call_%d", len(calls)+1)
			calls = append(calls, call)
		}
	}

	return calls
}

// ParseLeakedXMLToolCalls scans assistant text for <tool_call>...</tool_call>
// blocks whose body is the same JSON object shape.
func ParseLeakedXMLToolCalls(content string) []model.ToolCall {
	var calls []model.ToolCall

	rest := content
	for {
		start := strings.Index(rest, "<tool_call>")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "</tool_call>")
		if end < 0 {
			break
		}

		body := rest[start+len("<tool_call>") : start+end]
		if call, ok := leakedCallFromJSON(strings.TrimSpace(body)); ok {
			call.ID = fmt.Sprintf("call_%d", len(calls)+1)
			calls = append(calls, call)
		}

		rest = rest[start+end+len("</tool_call>"):]
	}

	return calls
}

func leakedCallFromJSON(raw string) (model.ToolCall, bool) {
	var payload struct {
		Name       string          `json:"name"`
		Arguments  json.RawMessage `json:"arguments"`
		Parameters json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return model.ToolCall{}, false
	}
	if payload.Name == "" {
		return model.ToolCall{}, false
	}

	rawArgs := payload.Arguments
	if rawArgs == nil {
		rawArgs = payload.Parameters
	}

	args := make(map[string]any)
	if rawArgs != nil {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return model.ToolCall{}, false
		}
	}

	return model.ToolCall{Name: payload.Name, Arguments: args}, true
}

// extractJSONObjects returns every balanced top-level {...} span in the
// text, tracking string literals so braces inside them don't miscount.
func extractJSONObjects(content string) []string {
	var objects []string

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range content {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				objects = append(objects, content[start:i+1])
				start = -1
			}
		}
	}

	return objects
}
