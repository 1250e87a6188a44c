package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestLoadUserConfigCreatesDefault(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.DefaultProvider != "anthropic" {
		t.Errorf("DefaultProvider = %q, want anthropic", cfg.DefaultProvider)
	}
	if len(cfg.Providers) != 3 {
		t.Errorf("len(Providers) = %d, want 3", len(cfg.Providers))
	}
	if cfg.Agent.MaxToolRounds != 8 {
		t.Errorf("MaxToolRounds = %d, want 8", cfg.Agent.MaxToolRounds)
	}

	path := filepath.Join(dataDir, "config.toml")
	if !FileExists(path) {
		t.Fatalf("expected %s to be written", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config.toml perms = %o, want 0600", perm)
	}
}

func TestLoadUserConfigMergesPartialFile(t *testing.T) {
	dataDir := t.TempDir()
	partial := `default_provider = "ollama"

[agent]
max_tool_rounds = 3
`
	path := filepath.Join(dataDir, "config.toml")
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.DefaultProvider != "ollama" {
		t.Errorf("DefaultProvider = %q, want ollama", cfg.DefaultProvider)
	}
	if cfg.Agent.MaxToolRounds != 3 {
		t.Errorf("MaxToolRounds = %d, want 3", cfg.Agent.MaxToolRounds)
	}
	// Fields the file leaves out keep their defaults.
	if cfg.Agent.ToolTimeoutSeconds != 60 {
		t.Errorf("ToolTimeoutSeconds = %d, want 60", cfg.Agent.ToolTimeoutSeconds)
	}
	if cfg.Agent.TokenCeiling != 50000 {
		t.Errorf("TokenCeiling = %d, want 50000", cfg.Agent.TokenCeiling)
	}
	if len(cfg.Providers) != 3 {
		t.Errorf("len(Providers) = %d, want default 3", len(cfg.Providers))
	}
	if cfg.Security.Method != "plaintext" {
		t.Errorf("Security.Method = %q, want plaintext", cfg.Security.Method)
	}
}

func TestLoadUserConfigInvalidTOML(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "config.toml")
	if err := os.WriteFile(path, []byte("default_provider = [broken"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadUserConfig(dataDir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveUserConfigRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	cfg := DefaultUserConfig()
	cfg.DefaultProvider = "openai"
	cfg.DefaultSystemPrompt = "You are terse."
	cfg.Agent.ToolConcurrency = 4
	cfg.MCPServers = []MCPServerConfig{
		{
			ID:        "files",
			Enabled:   true,
			Transport: "stdio",
			Command:   "mcp-files",
			Args:      []string{"--root", "/tmp"},
		},
		{
			ID:        "search",
			Enabled:   true,
			Transport: "http",
			ServerURL: "https://example.com/mcp",
			Headers:   map[string]string{"Authorization": "Bearer x"},
		},
	}

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		t.Fatalf("SaveUserConfig: %v", err)
	}

	loaded, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if loaded.DefaultProvider != "openai" {
		t.Errorf("DefaultProvider = %q, want openai", loaded.DefaultProvider)
	}
	if loaded.DefaultSystemPrompt != "You are terse." {
		t.Errorf("DefaultSystemPrompt = %q", loaded.DefaultSystemPrompt)
	}
	if loaded.Agent.ToolConcurrency != 4 {
		t.Errorf("ToolConcurrency = %d, want 4", loaded.Agent.ToolConcurrency)
	}
	if len(loaded.MCPServers) != 2 {
		t.Fatalf("len(MCPServers) = %d, want 2", len(loaded.MCPServers))
	}
	if loaded.MCPServers[0].Command != "mcp-files" || len(loaded.MCPServers[0].Args) != 2 {
		t.Errorf("MCPServers[0] = %+v", loaded.MCPServers[0])
	}
	if loaded.MCPServers[1].ServerURL != "https://example.com/mcp" {
		t.Errorf("MCPServers[1].ServerURL = %q", loaded.MCPServers[1].ServerURL)
	}
	if loaded.MCPServers[1].Headers["Authorization"] != "Bearer x" {
		t.Errorf("MCPServers[1].Headers = %v", loaded.MCPServers[1].Headers)
	}
}

func TestGenerateUserConfigTemplateParses(t *testing.T) {
	var cfg UserConfig
	if _, err := toml.Decode(GenerateUserConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if cfg.DefaultProvider != "anthropic" {
		t.Errorf("template default_provider = %q", cfg.DefaultProvider)
	}
	if len(cfg.Providers) != 3 {
		t.Errorf("template providers = %d, want 3", len(cfg.Providers))
	}
}

func TestProviderLookup(t *testing.T) {
	cfg := &Config{Providers: DefaultUserConfig().Providers}

	if p := cfg.Provider("ollama"); p == nil || p.BaseURL != "http://localhost:11434" {
		t.Errorf("Provider(ollama) = %+v", p)
	}
	if p := cfg.Provider("missing"); p != nil {
		t.Errorf("Provider(missing) = %+v, want nil", p)
	}
}

func TestExpandPath(t *testing.T) {
	home := GetHomeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~/data", filepath.Join(home, "data")},
		{"/absolute/path", "/absolute/path"},
		{"/a/b/../c", "/a/c"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandPathEnvVars(t *testing.T) {
	t.Setenv("TCA_TEST_DIR", "/var/data")
	if got := ExpandPath("$TCA_TEST_DIR/sessions"); got != "/var/data/sessions" {
		t.Errorf("ExpandPath = %q", got)
	}
}

func TestEnsureDataDirPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := EnsureDataDirPermissions(dir); err != nil {
		t.Fatalf("EnsureDataDirPermissions: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("perms = %o, want 0700", perm)
	}
}

func TestCheckDebug(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"0", false},
		{"yes", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv("TCA_DEBUG", tt.value)
		if got := CheckDebug(); got != tt.want {
			t.Errorf("CheckDebug with TCA_DEBUG=%q = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestAPIKeyEnvOverridesStore(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("anthropic", "stored-key")
	cfg := &Config{CredentialStore: store}

	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	if got := cfg.APIKey("anthropic"); got != "env-key" {
		t.Errorf("APIKey = %q, want env-key", got)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	if got := cfg.APIKey("anthropic"); got != "stored-key" {
		t.Errorf("APIKey = %q, want stored-key", got)
	}
}

func TestAPIKeyNilStore(t *testing.T) {
	cfg := &Config{}
	t.Setenv("OPENAI_API_KEY", "")
	if got := cfg.APIKey("openai"); got != "" {
		t.Errorf("APIKey = %q, want empty", got)
	}
}
