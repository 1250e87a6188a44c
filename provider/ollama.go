package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"github.com/akofink/textual-cli-agent/model"
)

// OllamaProvider implements the Provider interface against a local
// Ollama server.
//
// Ollama's API has no tool-call IDs, so the adapter mints a UUID per
// call and remembers which tool name it belongs to; tool-result
// messages need the name on the way back.
type OllamaProvider struct {
	client       *api.Client
	model        string
	baseURL      string
	systemPrompt string
	recovery     *recoverer

	mu        sync.Mutex
	callNames map[string]string // synthesized call ID -> tool name
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Defaults: baseURL "http://localhost:11434", model "llama3.1:latest".
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaProvider{
		client:       api.NewClient(parsedURL, http.DefaultClient),
		model:        modelName,
		baseURL:      baseURL,
		systemPrompt: cfg.SystemPrompt,
		recovery:     newRecoverer(),
		callNames:    make(map[string]string),
	}, nil
}

// CompletionsStream implements model.Provider.
func (p *OllamaProvider) CompletionsStream(ctx context.Context, messages []model.Message, tools []model.ToolSpec) <-chan model.Event {
	out := make(chan model.Event, 32)

	go func() {
		defer close(out)
		p.recovery.run(ctx, "ollama", messages, out, func(msgs []model.Message) error {
			return p.streamOnce(ctx, msgs, tools, out)
		})
	}()

	return out
}

func (p *OllamaProvider) streamOnce(ctx context.Context, messages []model.Message, tools []model.ToolSpec, out chan<- model.Event) error {
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: p.convertMessages(messages),
		Tools:    ConvertSpecsToOllamaTools(tools),
		Stream:   func(b bool) *bool { return &b }(true),
	}

	respFunc := func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			out <- model.TextEvent(resp.Message.Content)
		}

		// Ollama delivers tool calls whole, never fragmented
		for _, tc := range resp.Message.ToolCalls {
			callID := uuid.NewString()
			p.rememberCall(callID, tc.Function.Name)

			out <- model.ToolCallEvent(model.ToolCall{
				ID:        callID,
				Name:      tc.Function.Name,
				Arguments: map[string]any(tc.Function.Arguments),
			})
		}
		return nil
	}

	if err := p.client.Chat(ctx, req, respFunc); err != nil {
		return fmt.Errorf("Ollama chat error: %w", err)
	}
	return nil
}

func (p *OllamaProvider) rememberCall(callID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callNames[callID] = name
}

func (p *OllamaProvider) callName(callID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callNames[callID]
}

// convertMessages converts provider-agnostic messages to Ollama format.
// The configured system prompt, when set, becomes the first message.
func (p *OllamaProvider) convertMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, 0, len(messages)+1)
	if p.systemPrompt != "" {
		result = append(result, api.Message{Role: "system", Content: p.systemPrompt})
	}

	for _, msg := range messages {
		apiMsg := api.Message{
			Role:    msg.Role,
			Content: msg.Text(),
		}

		for _, call := range msg.ToolCalls {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      call.Function.Name,
					Arguments: api.ToolCallFunctionArguments(ParseToolArguments(string(call.Function.Arguments))),
				},
			})
		}

		result = append(result, apiMsg)
	}

	return result
}

// ListToolsFormat implements model.Provider.
func (p *OllamaProvider) ListToolsFormat(tools []model.ToolSpec) any {
	return ConvertSpecsToOllamaTools(tools)
}

// BuildAssistantMessage implements model.Provider.
func (p *OllamaProvider) BuildAssistantMessage(text string, toolCalls []model.ToolCall) model.Message {
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

// FormatToolResultMessage implements model.Provider. The tool name is
// recovered from the adapter's call map since Ollama keys results by
// name rather than ID.
func (p *OllamaProvider) FormatToolResultMessage(toolCallID string, content string) model.Message {
	return model.Message{
		Role:       "tool",
		ToolCallID: toolCallID,
		Name:       p.callName(toolCallID),
		Content:    content,
	}
}

// ListModels implements model.Provider.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:         m.Name,
			InternalName: m.Name,
			Size:         m.Size,
			Provider:     "ollama",
		}
	}

	return models, nil
}

// GetModel implements model.Provider.
func (p *OllamaProvider) GetModel() string {
	return p.model
}

// SetModel implements model.Provider.
func (p *OllamaProvider) SetModel(m string) {
	p.model = m
}

// Ping implements model.Provider with a short timeout so a missing
// local server fails fast.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.List(ctx)
	return err
}
