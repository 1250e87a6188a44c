package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/textual-cli-agent",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		DefaultProvider: "anthropic",
		Providers: []ProviderConfig{
			{
				ID:           "anthropic",
				Name:         "Anthropic",
				Enabled:      true,
				DefaultModel: "claude-sonnet-4-20250514",
			},
			{
				ID:           "openai",
				Name:         "OpenAI",
				Enabled:      false,
				BaseURL:      "https://api.openai.com/v1",
				DefaultModel: "gpt-4o",
			},
			{
				ID:           "ollama",
				Name:         "Ollama",
				Enabled:      false,
				BaseURL:      "http://localhost:11434",
				DefaultModel: "llama3.1:latest",
			},
		},
		Agent: AgentConfig{
			ToolTimeoutSeconds: 60,
			ToolConcurrency:    0,
			MaxToolRounds:      8,
			MaxContextMessages: 50,
			TokenCeiling:       50000,
		},
		Security: SecurityConfig{
			Method: "plaintext",
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# System Configuration
# Location: ~/.config/textual-cli-agent/settings.toml
# This file uses TOML format: https://toml.io

# Directory where sessions and user config are stored
data_directory = "~/.local/share/textual-cli-agent"
`
}

func GenerateUserConfigTemplate() string {
	return `# User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Provider used when starting a new session
default_provider = "anthropic"

# Default system prompt for new sessions (optional)
# Example: "You are a helpful coding assistant."
default_system_prompt = ""

[[providers]]
id = "anthropic"
name = "Anthropic"
enabled = true
default_model = "claude-sonnet-4-20250514"

[[providers]]
id = "openai"
name = "OpenAI"
enabled = false
base_url = "https://api.openai.com/v1"
default_model = "gpt-4o"

[[providers]]
id = "ollama"
name = "Ollama"
enabled = false
base_url = "http://localhost:11434"
default_model = "llama3.1:latest"

[agent]
# Seconds a single tool call may run before it is abandoned
tool_timeout_seconds = 60

# Maximum concurrent tool executions (0 = unbounded)
tool_concurrency = 0

# Maximum assistant/tool rounds for one user message
max_tool_rounds = 8

# Conversation pruning thresholds
max_context_messages = 50
token_ceiling = 50000

[security]
# Credential storage: "plaintext" or "ssh_key"
method = "plaintext"
# ssh_key_path = "~/.ssh/id_ed25519"
`
}
