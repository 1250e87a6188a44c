package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akofink/textual-cli-agent/model"
)

// toolCallBuffer reassembles streamed tool calls whose argument JSON
// arrives in fragments across chunks. Fragments are keyed by the
// stream's tool-call index; a call is emitted exactly once, as soon as
// its accumulated arguments parse as a JSON object.
type toolCallBuffer struct {
	order   []int64
	partial map[int64]*partialToolCall
}

type partialToolCall struct {
	id      string
	name    string
	args    strings.Builder
	emitted bool
}

func newToolCallBuffer() *toolCallBuffer {
	return &toolCallBuffer{partial: make(map[int64]*partialToolCall)}
}

// addFragment merges one streamed delta into the buffer. Any of id,
// name, and argsFragment may be empty on a given chunk.
func (b *toolCallBuffer) addFragment(index int64, id, name, argsFragment string) {
	p, ok := b.partial[index]
	if !ok {
		p = &partialToolCall{}
		b.partial[index] = p
		b.order = append(b.order, index)
	}

	if id != "" {
		p.id = id
	}
	if name != "" {
		p.name = name
	}
	if argsFragment != "" {
		p.args.WriteString(argsFragment)
	}
}

// completed returns the calls whose arguments have become parseable
// since the last check, in stream order.
func (b *toolCallBuffer) completed() []model.ToolCall {
	var ready []model.ToolCall
	for _, index := range b.order {
		p := b.partial[index]
		if p.emitted || p.name == "" {
			continue
		}

		// An empty argument string is not proof of a parameterless
		// call while the stream is live; fragments may still arrive.
		// flush handles those once the stream ends.
		raw := strings.TrimSpace(p.args.String())
		if raw == "" {
			continue
		}

		args, ok := parseArgObject(raw)
		if !ok {
			continue
		}

		p.emitted = true
		ready = append(ready, model.ToolCall{
			ID:        b.callID(index, p),
			Name:      p.name,
			Arguments: args,
		})
	}
	return ready
}

// flush force-emits every remaining call once the stream has ended.
// Arguments that never became valid JSON degrade to an empty map.
func (b *toolCallBuffer) flush() []model.ToolCall {
	var remaining []model.ToolCall
	for _, index := range b.order {
		p := b.partial[index]
		if p.emitted || p.name == "" {
			continue
		}

		args, ok := parseArgObject(p.args.String())
		if !ok {
			args = make(map[string]any)
		}

		p.emitted = true
		remaining = append(remaining, model.ToolCall{
			ID:        b.callID(index, p),
			Name:      p.name,
			Arguments: args,
		})
	}
	return remaining
}

func (b *toolCallBuffer) callID(index int64, p *partialToolCall) string {
	if p.id != "" {
		return p.id
	}
	return fmt.Sprintf("call_%d", index)
}

// parseArgObject parses an argument string into a map. The empty string
// counts as an empty object since many models send no argument bytes
// for parameterless tools.
func parseArgObject(raw string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return make(map[string]any), true
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, false
	}
	if args == nil {
		args = make(map[string]any)
	}
	return args, true
}

// marshalArguments re-serializes decoded tool arguments for wire shapes
// that carry them as raw JSON. Unserializable input degrades to "{}".
func marshalArguments(args any) json.RawMessage {
	if args == nil {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// ParseToolArguments parses a complete JSON arguments string into a map,
// degrading to an empty map when parsing fails.
func ParseToolArguments(argsJSON string) map[string]any {
	args, ok := parseArgObject(argsJSON)
	if !ok {
		return make(map[string]any)
	}
	return args
}
