package provider

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"github.com/akofink/textual-cli-agent/model"
)

// schemaParts splits a tool's parameter schema into its properties map
// and required list. Parameters is a JSON-schema object in map form, so
// required may arrive as []string or as []any after a JSON round trip.
func schemaParts(params map[string]any) (map[string]any, []string) {
	if params == nil {
		return map[string]any{}, nil
	}

	properties, _ := params["properties"].(map[string]any)
	if properties == nil {
		properties = map[string]any{}
	}

	var required []string
	switch req := params["required"].(type) {
	case []string:
		required = req
	case []any:
		for _, item := range req {
			if s, ok := item.(string); ok {
				required = append(required, s)
			}
		}
	}

	return properties, required
}

// ConvertSpecsToAnthropicTools converts tool specs to Anthropic's tool
// format for the Claude API.
func ConvertSpecsToAnthropicTools(specs []model.ToolSpec) []anthropic.ToolUnionParam {
	if len(specs) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(specs))
	for i, spec := range specs {
		properties, required := schemaParts(spec.Parameters)

		inputSchema := anthropic.ToolInputSchemaParam{
			// Type defaults to "object" when omitted
			Properties: properties,
		}
		if len(required) > 0 {
			inputSchema.Required = required
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, spec.Name)
		if spec.Description != "" {
			result[i].OfTool.Description = anthropic.String(spec.Description)
		}
	}

	return result
}

// ConvertSpecsToOpenAITools converts tool specs to OpenAI's function
// tool format.
func ConvertSpecsToOpenAITools(specs []model.ToolSpec) []openai.ChatCompletionToolUnionParam {
	if len(specs) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(specs))
	for i, spec := range specs {
		properties, required := schemaParts(spec.Parameters)

		params := openai.FunctionParameters{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			params["required"] = required
		}

		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  params,
			},
		)
	}

	return result
}

// ConvertSpecsToOllamaTools converts tool specs to the Ollama API tool
// format.
func ConvertSpecsToOllamaTools(specs []model.ToolSpec) []api.Tool {
	if len(specs) == 0 {
		return nil
	}

	result := make([]api.Tool, 0, len(specs))
	for _, spec := range specs {
		properties, required := schemaParts(spec.Parameters)

		params := api.ToolFunctionParameters{
			Type:       "object",
			Required:   required,
			Properties: make(map[string]api.ToolProperty, len(properties)),
		}
		for name, value := range properties {
			params.Properties[name] = convertPropertyValue(value)
		}

		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  params,
			},
		})
	}

	return result
}

// convertPropertyValue converts one JSON-schema property into Ollama's
// typed ToolProperty shape.
func convertPropertyValue(propValue any) api.ToolProperty {
	toolProp := api.ToolProperty{}

	propMap, ok := propValue.(map[string]any)
	if !ok {
		bytes, err := json.Marshal(propValue)
		if err != nil {
			return toolProp
		}
		var m map[string]any
		if err := json.Unmarshal(bytes, &m); err != nil {
			return toolProp
		}
		propMap = m
	}

	if typeVal, ok := propMap["type"]; ok {
		switch t := typeVal.(type) {
		case string:
			toolProp.Type = api.PropertyType{t}
		case []string:
			toolProp.Type = api.PropertyType(t)
		case []any:
			types := make([]string, 0, len(t))
			for _, v := range t {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
			toolProp.Type = api.PropertyType(types)
		}
	}

	if desc, ok := propMap["description"].(string); ok {
		toolProp.Description = desc
	}

	if enumVal, ok := propMap["enum"]; ok {
		if enumSlice, ok := enumVal.([]any); ok {
			toolProp.Enum = enumSlice
		}
	}

	if items, ok := propMap["items"]; ok {
		toolProp.Items = items
	}

	if anyOfVal, ok := propMap["anyOf"]; ok {
		if anyOfSlice, ok := anyOfVal.([]any); ok {
			anyOfProps := make([]api.ToolProperty, 0, len(anyOfSlice))
			for _, item := range anyOfSlice {
				anyOfProps = append(anyOfProps, convertPropertyValue(item))
			}
			toolProp.AnyOf = anyOfProps
		}
	}

	return toolProp
}
