package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// ToolExecutor is the local tool backend. tools.Registry satisfies it.
type ToolExecutor interface {
	Specs() []model.ToolSpec
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// ToolProvider is an external tool-provider manager (an MCP bridge). The
// engine tries it first for any tool name it advertises, falling back to
// the local registry.
type ToolProvider interface {
	Specs(ctx context.Context) ([]model.ToolSpec, error)
	Has(name string) bool
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// dispatchAll executes the queued tool calls concurrently and returns their
// string-serialized results positionally aligned with calls. Every failure
// mode (bad argument shape, execution error, timeout, serialization
// failure) becomes an {"error": ...} payload at that call's position; a
// dispatch never aborts the batch.
func (e *Engine) dispatchAll(ctx context.Context, calls []model.ToolCall) []string {
	results := make([]string, len(calls))

	var sem chan struct{}
	if e.cfg.ToolConcurrency > 0 {
		sem = make(chan struct{}, e.cfg.ToolConcurrency)
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, call model.ToolCall) {
			defer wg.Done()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[idx] = errorPayload("context canceled")
					return
				}
			}

			results[idx] = e.dispatchOne(ctx, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

// dispatchOne runs a single tool call with argument validation and a
// per-call timeout.
func (e *Engine) dispatchOne(ctx context.Context, call model.ToolCall) string {
	args, ok := call.ArgumentsMap()
	if !ok {
		return errorPayload(fmt.Sprintf("tool %q arguments must be a dictionary", call.Name))
	}

	timeout := e.cfg.ToolTimeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execOutcome struct {
		result any
		err    error
	}
	outcomeCh := make(chan execOutcome, 1)

	go func() {
		result, err := e.executeTool(toolCtx, call.Name, args)
		select {
		case outcomeCh <- execOutcome{result: result, err: err}:
		default:
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[Dispatch] Tool %s finished after timeout, result discarded", call.Name)
			}
		}
	}()

	select {
	case <-toolCtx.Done():
		if toolCtx.Err() == context.DeadlineExceeded {
			return errorPayload(fmt.Sprintf("tool %q timed out after %s", call.Name, timeout))
		}
		return errorPayload("tool execution canceled")
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			return errorPayload(outcome.err.Error())
		}
		return serializeResult(outcome.result)
	}
}

// executeTool routes a call to the external tool provider when it
// advertises the name, otherwise to the local registry.
func (e *Engine) executeTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if e.external != nil && e.external.Has(name) {
		result, err := e.external.Execute(ctx, name, args)
		if err == nil {
			return result, nil
		}
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Dispatch] External tool %s failed (%v), trying local registry", name, err)
		}
		if e.registry != nil {
			if local, localErr := e.registry.Execute(ctx, name, args); localErr == nil {
				return local, nil
			}
		}
		return nil, err
	}

	if e.registry == nil {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return e.registry.Execute(ctx, name, args)
}

// serializeResult JSON-encodes a tool result. A result that cannot be
// encoded becomes an error payload instead of crashing the turn.
func serializeResult(result any) string {
	data, err := json.Marshal(result)
	if err != nil {
		return errorPayload("result serialization failed: " + err.Error())
	}
	return string(data)
}

func errorPayload(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error": "internal error"}`
	}
	return string(data)
}
