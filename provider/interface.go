// Package provider implements model.Provider for each supported backend:
// Anthropic, OpenAI, and a local Ollama server.
//
// The Provider interface itself lives in the model package
// (model/provider.go) to avoid import cycles; this package supplies the
// concrete adapters plus the shared error-recovery loop they stream
// through.
//
// # Responsibilities
//
// Each adapter normalizes its SDK's streaming shape into model.Event
// values: text deltas as they arrive, tool calls once their argument
// JSON is complete, and transient API failures absorbed by retry and
// context pruning before anything surfaces to the caller.
//
// # Usage
//
//	cfg := provider.Config{
//	    Type:   provider.ProviderTypeAnthropic,
//	    APIKey: "sk-ant-...",
//	    Model:  "claude-sonnet-4-20250514",
//	}
//	p, err := provider.NewProvider(cfg)
//	if err != nil {
//	    // handle error
//	}
//	events := p.CompletionsStream(ctx, messages, tools)
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeOllama    ProviderType = "ollama"
)

// Config holds provider-specific configuration.
type Config struct {
	Type         ProviderType
	BaseURL      string
	Model        string
	APIKey       string // For OpenAI/Anthropic (unused for Ollama)
	SystemPrompt string // Prepended to every conversation when set
}
