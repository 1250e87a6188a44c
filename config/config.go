// Package config loads and persists the two-level configuration:
// a small system file under ~/.config/textual-cli-agent pointing at the
// data directory, and a user config.toml inside the data directory with
// provider and agent settings.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// ProviderConfig describes one configured model provider.
type ProviderConfig struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Enabled      bool   `toml:"enabled"`
	BaseURL      string `toml:"base_url,omitempty"`
	DefaultModel string `toml:"default_model,omitempty"`
}

// AgentConfig holds the tool-loop tuning knobs.
type AgentConfig struct {
	ToolTimeoutSeconds int `toml:"tool_timeout_seconds"`
	ToolConcurrency    int `toml:"tool_concurrency"`
	MaxToolRounds      int `toml:"max_tool_rounds"`
	MaxContextMessages int `toml:"max_context_messages"`
	TokenCeiling       int `toml:"token_ceiling"`
}

type UserConfig struct {
	DefaultProvider     string            `toml:"default_provider"`
	DefaultSystemPrompt string            `toml:"default_system_prompt,omitempty"`
	Providers           []ProviderConfig  `toml:"providers"`
	Agent               AgentConfig       `toml:"agent"`
	Security            SecurityConfig    `toml:"security"`
	MCPServers          []MCPServerConfig `toml:"mcp_servers,omitempty"`
}

// MCPServerConfig describes one external tool server. Local servers are
// spawned as subprocesses over stdio; remote servers are reached over
// streamable HTTP.
type MCPServerConfig struct {
	ID        string            `toml:"id"`
	Enabled   bool              `toml:"enabled"`
	Transport string            `toml:"transport"` // "stdio" or "http"
	Command   string            `toml:"command,omitempty"`
	Args      []string          `toml:"args,omitempty"`
	Env       map[string]string `toml:"env,omitempty"`
	ServerURL string            `toml:"server_url,omitempty"`
	Headers   map[string]string `toml:"headers,omitempty"`
}

// SecurityConfig selects how API credentials are stored.
type SecurityConfig struct {
	Method     string `toml:"method"` // "plaintext" or "ssh_key"
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

// Config is the resolved runtime configuration.
type Config struct {
	DataDirectory       string
	DefaultProvider     string
	DefaultSystemPrompt string
	Providers           []ProviderConfig
	Agent               AgentConfig
	MCPServers          []MCPServerConfig
	CredentialStore     *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Provider returns the config block for a provider ID, or nil.
func (c *Config) Provider(id string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			return &c.Providers[i]
		}
	}
	return nil
}

// APIKey resolves a provider's API key: environment variable first, then
// the credential store.
func (c *Config) APIKey(providerID string) string {
	if key := envAPIKey(providerID); key != "" {
		return key
	}
	if c.CredentialStore != nil {
		return c.CredentialStore.Get(providerID)
	}
	return ""
}

func envAPIKey(providerID string) string {
	switch providerID {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("TCA_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if provider := os.Getenv("TCA_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if model := os.Getenv("TCA_MODEL"); model != "" {
		if p := c.Provider(c.DefaultProvider); p != nil {
			p.DefaultModel = model
		}
	}
	if host := os.Getenv("TCA_OLLAMA_HOST"); host != "" {
		if p := c.Provider("ollama"); p != nil {
			p.BaseURL = host
		}
	}
}

func CheckDebug() bool {
	debug := os.Getenv("TCA_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (TCA_DEBUG=%s) ===", os.Getenv("TCA_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

func Load() (*Config, error) {
	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.DefaultProvider = userCfg.DefaultProvider
	cfg.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
	cfg.Providers = userCfg.Providers
	cfg.Agent = userCfg.Agent
	cfg.MCPServers = userCfg.MCPServers

	store := NewCredentialStore(SecurityMethod(userCfg.Security.Method), ExpandPath(userCfg.Security.SSHKeyPath))
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	cfg.applyEnvOverrides()

	return cfg, nil
}
