package provider

import (
	"fmt"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory for creating any provider type. It
// dispatches on Config.Type to the matching constructor.
//
// Returns an error if:
//   - The provider type is unknown
//   - The provider-specific constructor fails (missing API key, bad URL)
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a factory
// ProviderType. Unknown IDs pass through unchanged so the factory can
// report them.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "anthropic":
		return ProviderTypeAnthropic
	case "openai":
		return ProviderTypeOpenAI
	case "ollama":
		return ProviderTypeOllama
	default:
		return ProviderType(id)
	}
}

// FromAppConfig resolves a provider ID against the loaded application
// config, pulling its base URL, default model, API key, and the default
// system prompt.
func FromAppConfig(appCfg *config.Config, providerID string) (Config, error) {
	pc := appCfg.Provider(providerID)
	if pc == nil {
		return Config{}, fmt.Errorf("provider %q is not configured", providerID)
	}

	return Config{
		Type:         MapProviderIDToType(providerID),
		BaseURL:      pc.BaseURL,
		Model:        pc.DefaultModel,
		APIKey:       appCfg.APIKey(providerID),
		SystemPrompt: appCfg.DefaultSystemPrompt,
	}, nil
}
