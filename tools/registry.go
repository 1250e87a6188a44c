// Package tools provides the built-in tool registry: a thread-safe map of
// named tools with JSON-schema argument validation, plus the bundled
// filesystem, HTTP, todo, and parallel-execution tools.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// ErrUnknownTool is returned by Execute for a name no tool was
// registered under.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes one tool call. args has already passed schema
// validation when the tool declared parameters.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type registration struct {
	spec    model.ToolSpec
	handler Handler
	schema  *jsonschema.Schema
}

// Registry holds named tools. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registration)}
}

// Register adds a tool. The spec's Parameters, when present, are compiled
// to a JSON schema that Execute validates arguments against.
// Registering a name again replaces the earlier tool.
func (r *Registry) Register(spec model.ToolSpec, handler Handler) error {
	if spec.Name == "" {
		return fmt.Errorf("tool spec has no name")
	}
	if handler == nil {
		return fmt.Errorf("tool %q has no handler", spec.Name)
	}

	var schema *jsonschema.Schema
	if spec.Parameters != nil {
		compiled, err := CompileParameters(spec.Name, spec.Parameters)
		if err != nil {
			return fmt.Errorf("tool %q has invalid parameters: %w", spec.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.Name]; exists {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Tools] Replacing registration for %q", spec.Name)
		}
	}
	r.tools[spec.Name] = registration{spec: spec, handler: handler, schema: schema}
	return nil
}

// Specs returns all registered tool specs, sorted by name.
func (r *Registry) Specs() []model.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]model.ToolSpec, 0, len(r.tools))
	for _, reg := range r.tools {
		specs = append(specs, reg.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Execute validates args against the tool's schema and runs its handler.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if args == nil {
		args = make(map[string]any)
	}

	if reg.schema != nil {
		if err := ValidateArguments(reg.schema, args); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
	}

	return reg.handler(ctx, args)
}
