package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileParameters compiles a tool's parameter map (a JSON-schema object
// in map form) into a validator.
func CompileParameters(name string, params map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}

	schema, err := jsonschema.CompileString(name+".schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// ValidateArguments checks args against a compiled schema. The arguments
// are round-tripped through JSON so that Go-native numeric types compare
// the way the schema library expects.
func ValidateArguments(schema *jsonschema.Schema, args map[string]any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments are not JSON-encodable: %w", err)
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}

	return schema.Validate(value)
}

// ObjectSchema builds the standard parameter shape for a tool: an object
// with the given properties and required names.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringParam describes a string property.
func StringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// IntegerParam describes an integer property.
func IntegerParam(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// BooleanParam describes a boolean property.
func BooleanParam(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

// ArrayParam describes an array property with the given item schema.
func ArrayParam(description string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": description, "items": items}
}
