package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

func LoadSystemConfig() (*SystemConfig, error) {
	cfg := DefaultSystemConfig()
	settingsPath := GetSettingsFilePath()

	if !FileExists(settingsPath) {
		if err := CreateDefaultSystemConfig(); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return cfg, nil
	}

	_, err := toml.DecodeFile(settingsPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	return cfg, nil
}

func LoadUserConfig(dataDir string) (*UserConfig, error) {
	cfg := DefaultUserConfig()
	userConfigPath := filepath.Join(dataDir, "config.toml")

	if !FileExists(userConfigPath) {
		if err := CreateDefaultUserConfig(dataDir); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return cfg, nil
	}

	loaded := &UserConfig{}
	_, err := toml.DecodeFile(userConfigPath, loaded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	mergeUserConfig(cfg, loaded)
	return cfg, nil
}

// mergeUserConfig overlays a loaded config onto the defaults so that a
// config.toml written by an older build keeps sane values for any field
// it does not mention.
func mergeUserConfig(base, loaded *UserConfig) {
	if loaded.DefaultProvider != "" {
		base.DefaultProvider = loaded.DefaultProvider
	}
	if loaded.DefaultSystemPrompt != "" {
		base.DefaultSystemPrompt = loaded.DefaultSystemPrompt
	}
	if len(loaded.Providers) > 0 {
		base.Providers = loaded.Providers
	}
	if loaded.Agent.ToolTimeoutSeconds > 0 {
		base.Agent.ToolTimeoutSeconds = loaded.Agent.ToolTimeoutSeconds
	}
	base.Agent.ToolConcurrency = loaded.Agent.ToolConcurrency
	if loaded.Agent.MaxToolRounds > 0 {
		base.Agent.MaxToolRounds = loaded.Agent.MaxToolRounds
	}
	if loaded.Agent.MaxContextMessages > 0 {
		base.Agent.MaxContextMessages = loaded.Agent.MaxContextMessages
	}
	if loaded.Agent.TokenCeiling > 0 {
		base.Agent.TokenCeiling = loaded.Agent.TokenCeiling
	}
	if loaded.Security.Method != "" {
		base.Security = loaded.Security
	}
	if len(loaded.MCPServers) > 0 {
		base.MCPServers = loaded.MCPServers
	}
}

func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userConfigPath := filepath.Join(dataDir, "config.toml")
	// 0600: holds provider settings
	f, err := os.OpenFile(userConfigPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create user config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}

	return nil
}

func CreateDefaultSystemConfig() error {
	configDir := GetConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := GetSettingsFilePath()
	if FileExists(settingsPath) {
		return nil
	}

	content := GenerateSystemConfigTemplate()
	if err := os.WriteFile(settingsPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write system config: %w", err)
	}

	return nil
}

func CreateDefaultUserConfig(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userConfigPath := filepath.Join(dataDir, "config.toml")
	if FileExists(userConfigPath) {
		return nil
	}

	content := GenerateUserConfigTemplate()
	if err := os.WriteFile(userConfigPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}
