package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// DefaultToolTimeout bounds a single tool execution unless EngineConfig
// overrides it.
const DefaultToolTimeout = 60 * time.Second

// EngineConfig tunes a single Engine.
type EngineConfig struct {
	// ToolTimeout bounds each tool call. Zero means DefaultToolTimeout.
	ToolTimeout time.Duration

	// ToolConcurrency caps in-flight tool executions. Zero means
	// unbounded.
	ToolConcurrency int
}

// Engine drives one conversation round against a provider: stream the
// completion, execute any requested tools, and append the resulting
// messages to the transcript the caller maintains.
type Engine struct {
	provider model.Provider
	registry ToolExecutor
	external ToolProvider
	cfg      EngineConfig
}

// NewEngine builds an Engine. registry and external may each be nil;
// a call naming a tool neither backend knows resolves to an unknown-tool
// error result for that call only.
func NewEngine(provider model.Provider, registry ToolExecutor, external ToolProvider, cfg EngineConfig) *Engine {
	return &Engine{
		provider: provider,
		registry: registry,
		external: external,
		cfg:      cfg,
	}
}

// RunStream runs one conversation round and returns a channel of events.
//
// The channel always carries exactly one EventRoundComplete, always last,
// and is closed after it. The method never panics outward: any panic in
// the round is converted into an "[ERROR] Unexpected error" text event
// followed by the terminal round_complete.
//
// Event order within a round:
//
//  1. EventText deltas and EventToolCall events as the provider streams
//     them.
//  2. One EventToolResult per requested call, in request order.
//  3. One EventAppendMessage carrying the assistant message. This is
//     emitted on every round, including rounds with no tool calls; the
//     caller owns the transcript and appends from this event alone.
//  4. One EventAppendMessage per tool result, in request order.
//  5. EventRoundComplete, with HadToolCalls set when tools ran.
func (e *Engine) RunStream(ctx context.Context, messages []model.Message) <-chan model.Event {
	out := make(chan model.Event, 32)

	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				out <- model.TextEvent(fmt.Sprintf("[ERROR] Unexpected error: %v", r))
				out <- model.RoundCompleteEvent(false)
			}
		}()

		e.runRound(ctx, messages, out)
	}()

	return out
}

func (e *Engine) runRound(ctx context.Context, messages []model.Message, out chan<- model.Event) {
	if len(messages) == 0 {
		out <- model.TextEvent("[ERROR] No messages to send")
		out <- model.RoundCompleteEvent(false)
		return
	}
	for i, msg := range messages {
		if msg.Role == "" {
			out <- model.TextEvent(fmt.Sprintf("[ERROR] Message %d has no role", i))
			out <- model.RoundCompleteEvent(false)
			return
		}
	}

	specs := e.gatherTools(ctx)

	var textBuf strings.Builder
	var calls []model.ToolCall

	stream := e.provider.CompletionsStream(ctx, messages, specs)
	for ev := range stream {
		switch ev.Type {
		case model.EventText:
			textBuf.WriteString(ev.Delta)
			out <- ev
		case model.EventToolCall:
			if ev.Call != nil {
				calls = append(calls, *ev.Call)
			}
			out <- ev
		default:
			out <- ev
		}
	}

	assistant := e.safeAssistantMessage(textBuf.String(), calls)

	if len(calls) == 0 {
		out <- model.AppendMessageEvent(assistant)
		out <- model.RoundCompleteEvent(false)
		return
	}

	results := e.dispatchAll(ctx, calls)

	toolMessages := make([]model.Message, len(calls))
	for i, call := range calls {
		out <- model.ToolResultEvent(call.ID, results[i])
		toolMessages[i] = e.provider.FormatToolResultMessage(call.ID, results[i])
	}

	out <- model.AppendMessageEvent(assistant)
	for i := range toolMessages {
		out <- model.AppendMessageEvent(toolMessages[i])
	}

	out <- model.RoundCompleteEvent(true)
}

// gatherTools merges local registry specs with external provider specs.
// External spec retrieval is best effort; a failing provider contributes
// nothing rather than failing the round.
func (e *Engine) gatherTools(ctx context.Context) []model.ToolSpec {
	var specs []model.ToolSpec
	if e.registry != nil {
		specs = append(specs, e.registry.Specs()...)
	}
	if e.external != nil {
		external, err := e.external.Specs(ctx)
		if err != nil {
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[Engine] External tool specs unavailable: %v", err)
			}
		} else {
			specs = append(specs, external...)
		}
	}
	return specs
}

// safeAssistantMessage asks the provider to build its native assistant
// message shape. A provider panic here degrades to a minimal text-only
// message so the round still completes.
func (e *Engine) safeAssistantMessage(text string, calls []model.ToolCall) (msg model.Message) {
	defer func() {
		if r := recover(); r != nil {
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[Engine] BuildAssistantMessage panicked: %v", r)
			}
			msg = model.Message{Role: "assistant", Content: text}
		}
	}()
	return e.provider.BuildAssistantMessage(text, calls)
}
