package mcp

import (
	"encoding/json"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"github.com/akofink/textual-cli-agent/model"
)

// SpecFromTool converts an MCP tool declaration into the generic spec
// the agent's dispatch layer understands. Both sides speak JSON Schema,
// so the input schema maps straight across.
func SpecFromTool(tool mcptypes.Tool) model.ToolSpec {
	params := map[string]any{
		"type": tool.InputSchema.Type,
	}
	if params["type"] == "" {
		params["type"] = "object"
	}
	if tool.InputSchema.Properties != nil {
		params["properties"] = tool.InputSchema.Properties
	} else {
		params["properties"] = map[string]any{}
	}
	if len(tool.InputSchema.Required) > 0 {
		params["required"] = tool.InputSchema.Required
	}
	if tool.InputSchema.Defs != nil {
		params["$defs"] = tool.InputSchema.Defs
	}

	return model.ToolSpec{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  params,
	}
}

// ResultToString flattens a tool call result into a single string. Text
// content items are joined directly; anything else is serialized as JSON
// so structured payloads survive the trip back to the conversation.
func ResultToString(result *mcptypes.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return "Tool executed successfully (no output)"
	}

	var parts []string
	allText := true
	for _, item := range result.Content {
		if text, ok := item.(mcptypes.TextContent); ok {
			parts = append(parts, text.Text)
		} else {
			allText = false
			break
		}
	}
	if allText {
		return strings.Join(parts, "\n")
	}

	raw, err := json.Marshal(result.Content)
	if err != nil {
		return "tool result could not be serialized"
	}
	return string(raw)
}
