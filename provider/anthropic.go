package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/akofink/textual-cli-agent/model"
)

// AnthropicProvider implements the Provider interface using Anthropic's
// official Go SDK for direct Claude API access.
type AnthropicProvider struct {
	client       *anthropic.Client
	model        anthropic.Model
	baseURL      string
	apiKey       string
	systemPrompt string
	recovery     *recoverer
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Defaults: baseURL "https://api.anthropic.com", model
// "claude-sonnet-4-20250514". Returns an error if the API key is missing.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		anthropicModel = anthropic.Model("claude-sonnet-4-20250514")
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return &AnthropicProvider{
		client:       &client,
		model:        anthropicModel,
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		recovery:     newRecoverer(),
	}, nil
}

// CompletionsStream implements model.Provider. Transient API failures
// are retried inside the stream; terminal failures surface as a single
// "[ERROR]" text event before the channel closes.
func (p *AnthropicProvider) CompletionsStream(ctx context.Context, messages []model.Message, tools []model.ToolSpec) <-chan model.Event {
	out := make(chan model.Event, 32)

	go func() {
		defer close(out)
		p.recovery.run(ctx, "anthropic", messages, out, func(msgs []model.Message) error {
			return p.streamOnce(ctx, msgs, tools, out)
		})
	}()

	return out
}

func (p *AnthropicProvider) streamOnce(ctx context.Context, messages []model.Message, tools []model.ToolSpec, out chan<- model.Event) error {
	anthropicMessages, systemBlocks := p.convertMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  anthropicMessages,
		MaxTokens: 4096, // Required by the Anthropic API
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(tools) > 0 {
		params.Tools = ConvertSpecsToAnthropicTools(tools)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()

		if err := msg.Accumulate(event); err != nil {
			return fmt.Errorf("error accumulating message: %w", err)
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				out <- model.TextEvent(deltaVariant.Text)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("Anthropic streaming error: %w", err)
	}

	// Tool use blocks arrive complete in the accumulated message
	for _, call := range extractToolUses(msg.Content) {
		out <- model.ToolCallEvent(call)
	}

	return nil
}

// convertMessages converts provider-agnostic messages to Anthropic
// format. System content (configured prompt first, then system-role
// messages) is returned separately since Anthropic takes it as a
// request parameter rather than a message.
func (p *AnthropicProvider) convertMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	if p.systemPrompt != "" {
		systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: p.systemPrompt})
	}

	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})
			continue
		}

		content := convertBlocks(msg)
		if len(content) == 0 {
			continue
		}

		if msg.Role == "assistant" {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			// User and tool roles both map to user messages
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}

	return result, systemBlocks
}

func convertBlocks(msg model.Message) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion

	if len(msg.Blocks) == 0 {
		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		return content
	}

	for _, block := range msg.Blocks {
		switch block.Type {
		case model.BlockText:
			if block.Text != "" {
				content = append(content, anthropic.NewTextBlock(block.Text))
			}
		case model.BlockToolUse:
			input := block.Input
			if input == nil {
				input = map[string]any{}
			}
			content = append(content, anthropic.NewToolUseBlock(block.ID, input, block.Name))
		case model.BlockToolResult:
			content = append(content, anthropic.NewToolResultBlock(block.ToolUseID, block.Content, false))
		}
	}

	return content
}

// extractToolUses pulls tool_use blocks out of an accumulated message.
func extractToolUses(content []anthropic.ContentBlockUnion) []model.ToolCall {
	var calls []model.ToolCall

	for _, block := range content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}

		var args map[string]any
		if err := json.Unmarshal(toolUse.Input, &args); err != nil {
			continue
		}
		if args == nil {
			args = map[string]any{}
		}

		calls = append(calls, model.ToolCall{
			ID:        toolUse.ID,
			Name:      toolUse.Name,
			Arguments: args,
		})
	}

	return calls
}

// ListToolsFormat implements model.Provider.
func (p *AnthropicProvider) ListToolsFormat(tools []model.ToolSpec) any {
	return ConvertSpecsToAnthropicTools(tools)
}

// BuildAssistantMessage implements model.Provider. The assistant turn is
// rebuilt as structured blocks: text first, then one tool_use block per
// call, matching what the API streamed.
func (p *AnthropicProvider) BuildAssistantMessage(text string, toolCalls []model.ToolCall) model.Message {
	var blocks []model.ContentBlock
	if text != "" {
		blocks = append(blocks, model.ContentBlock{Type: model.BlockText, Text: text})
	}

	for _, call := range toolCalls {
		input, ok := call.ArgumentsMap()
		if !ok {
			input = map[string]any{}
		}
		blocks = append(blocks, model.ContentBlock{
			Type:  model.BlockToolUse,
			ID:    call.ID,
			Name:  call.Name,
			Input: input,
		})
	}

	return model.Message{Role: "assistant", Blocks: blocks}
}

// FormatToolResultMessage implements model.Provider. Anthropic expects
// tool results inside a user message as tool_result blocks.
func (p *AnthropicProvider) FormatToolResultMessage(toolCallID string, content string) model.Message {
	return model.Message{
		Role: "user",
		Blocks: []model.ContentBlock{{
			Type:      model.BlockToolResult,
			ToolUseID: toolCallID,
			Content:   content,
		}},
	}
}

// ListModels implements model.Provider. Anthropic has no model-list
// endpoint, so a curated list of known Claude models is returned.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models := []string{
		"claude-sonnet-4-20250514",
		"claude-3-7-sonnet-20250219",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, model.ModelInfo{
			Name:         m,
			InternalName: m,
			Size:         0,
			Provider:     "anthropic",
		})
	}

	return result, nil
}

// GetModel implements model.Provider.
func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

// SetModel implements model.Provider.
func (p *AnthropicProvider) SetModel(m string) {
	p.model = anthropic.Model(m)
}

// Ping implements model.Provider by making a minimal request, since
// Anthropic has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}
