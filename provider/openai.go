package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// OpenAIProvider implements the Provider interface using OpenAI's
// official Go SDK. Any OpenAI-compatible endpoint works through BaseURL.
type OpenAIProvider struct {
	client       openai.Client
	model        string
	baseURL      string
	apiKey       string
	systemPrompt string
	recovery     *recoverer
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Defaults: baseURL "https://api.openai.com/v1", model "gpt-4o-mini".
// Returns an error if the API key is missing.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return &OpenAIProvider{
		client:       client,
		model:        modelName,
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		recovery:     newRecoverer(),
	}, nil
}

// CompletionsStream implements model.Provider.
func (p *OpenAIProvider) CompletionsStream(ctx context.Context, messages []model.Message, tools []model.ToolSpec) <-chan model.Event {
	out := make(chan model.Event, 32)

	go func() {
		defer close(out)
		p.recovery.run(ctx, "openai", messages, out, func(msgs []model.Message) error {
			return p.streamOnce(ctx, msgs, tools, out)
		})
	}()

	return out
}

func (p *OpenAIProvider) streamOnce(ctx context.Context, messages []model.Message, tools []model.ToolSpec, out chan<- model.Event) error {
	params := openai.ChatCompletionNewParams{
		Messages: p.convertMessages(messages),
		Model:    openai.ChatModel(p.model),
	}
	if len(tools) > 0 {
		params.Tools = ConvertSpecsToOpenAITools(tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	// Tool call arguments arrive as JSON fragments spread across chunks,
	// keyed by index. The buffer reassembles them and releases each call
	// exactly once, as soon as its arguments parse.
	buffer := newToolCallBuffer()
	var contentBuilder strings.Builder
	toolCallsEmitted := false

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			contentBuilder.WriteString(delta.Content)
			out <- model.TextEvent(delta.Content)
		}

		for _, tc := range delta.ToolCalls {
			buffer.addFragment(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
		}
		for _, call := range buffer.completed() {
			toolCallsEmitted = true
			out <- model.ToolCallEvent(call)
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("OpenAI streaming error: %w", err)
	}

	for _, call := range buffer.flush() {
		toolCallsEmitted = true
		out <- model.ToolCallEvent(call)
	}

	// Safety net: some models print the tool call into the text instead
	// of the tool-call channel
	if !toolCallsEmitted {
		fullContent := contentBuilder.String()
		leaked := ParseLeakedJSONToolCalls(fullContent)
		leaked = append(leaked, ParseLeakedXMLToolCalls(fullContent)...)
		// Both parse passes number from call_1; renumber the combined
		// batch so ids stay unique.
		for i := range leaked {
			leaked[i].ID = fmt.Sprintf("call_%d", i+1)
		}
		if len(leaked) > 0 {
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[OpenAI] Salvaged %d leaked tool calls from text", len(leaked))
			}
			for _, call := range leaked {
				out <- model.ToolCallEvent(call)
			}
		}
	}

	return nil
}

// convertMessages converts provider-agnostic messages to OpenAI format.
// The configured system prompt, when set, becomes the first message.
func (p *OpenAIProvider) convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if p.systemPrompt != "" {
		result = append(result, openai.SystemMessage(p.systemPrompt))
	}

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(msg.Content))
		case "assistant":
			result = append(result, convertAssistantMessage(msg))
		case "tool":
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			result = append(result, openai.UserMessage(msg.Text()))
		}
	}

	return result
}

// convertAssistantMessage rebuilds an assistant turn, reattaching any
// tool calls it made so the API accepts the tool results that follow.
func convertAssistantMessage(msg model.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Text())
	}

	toolCalls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		args := string(call.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Function.Name,
					Arguments: args,
				},
			},
		})
	}

	assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
	if text := msg.Text(); text != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

// ListToolsFormat implements model.Provider.
func (p *OpenAIProvider) ListToolsFormat(tools []model.ToolSpec) any {
	return ConvertSpecsToOpenAITools(tools)
}

// BuildAssistantMessage implements model.Provider. Tool calls are kept
// in the OpenAI wire shape with their argument JSON re-serialized.
func (p *OpenAIProvider) BuildAssistantMessage(text string, toolCalls []model.ToolCall) model.Message {
	msg := model.Message{Role: "assistant", Content: text}

	for _, call := range toolCalls {
		msg.ToolCalls = append(msg.ToolCalls, model.ToolCallPayload{
			ID:   call.ID,
			Type: "function",
			Function: model.FunctionCall{
				Name:      call.Name,
				Arguments: marshalArguments(call.Arguments),
			},
		})
	}

	return msg
}

// FormatToolResultMessage implements model.Provider.
func (p *OpenAIProvider) FormatToolResultMessage(toolCallID string, content string) model.Message {
	return model.Message{
		Role:       "tool",
		ToolCallID: toolCallID,
		Content:    content,
	}
}

// ListModels implements model.Provider.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			Name:         m.ID,
			InternalName: m.ID,
			Size:         0,
			Provider:     "openai",
		})
	}

	return result, nil
}

// GetModel implements model.Provider.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// SetModel implements model.Provider.
func (p *OpenAIProvider) SetModel(m string) {
	p.model = m
}

// Ping implements model.Provider by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}
