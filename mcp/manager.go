// Package mcp bridges external MCP tool servers into the agent's tool
// surface. Each configured server is started (stdio subprocess or
// streamable HTTP), initialized, and its tools are cached and exposed
// under a namespaced "serverID.toolName" so names never collide across
// servers.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

const protocolVersion = "2025-06-18"

// serverConn is one running MCP server with its cached tool list.
type serverConn struct {
	id     string
	client *client.Client
	cmd    *exec.Cmd // nil for remote servers
	tools  []mcptypes.Tool
}

// Manager owns the set of running MCP servers and routes namespaced tool
// calls to the server that declared the tool.
type Manager struct {
	mu      sync.RWMutex
	servers map[string]*serverConn
}

func NewManager() *Manager {
	return &Manager{servers: make(map[string]*serverConn)}
}

// StartAll starts every enabled server from the configuration. Failures
// are collected rather than aborting the remaining servers: one broken
// server should not take the rest of the tool surface down with it.
func (m *Manager) StartAll(ctx context.Context, servers []config.MCPServerConfig) error {
	var errs []string
	for _, sc := range servers {
		if !sc.Enabled {
			continue
		}
		if err := m.Start(ctx, sc); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[MCP] Failed to start server %s: %v", sc.ID, err)
			}
			errs = append(errs, fmt.Sprintf("%s: %v", sc.ID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to start MCP servers: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Start launches a single server, initializes the session, and caches its
// tool list.
func (m *Manager) Start(ctx context.Context, sc config.MCPServerConfig) error {
	if sc.ID == "" {
		return fmt.Errorf("MCP server config missing id")
	}

	m.mu.RLock()
	_, exists := m.servers[sc.ID]
	m.mu.RUnlock()
	if exists {
		return fmt.Errorf("MCP server %s already running", sc.ID)
	}

	var (
		mcpClient *client.Client
		cmd       *exec.Cmd
		err       error
	)
	switch sc.Transport {
	case "http":
		mcpClient, err = m.createHTTPClient(ctx, sc)
	case "stdio", "":
		mcpClient, cmd, err = m.createStdioClient(ctx, sc)
	default:
		return fmt.Errorf("unknown MCP transport %q for server %s", sc.Transport, sc.ID)
	}
	if err != nil {
		return err
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "textual-cli-agent",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP server %s: %w", sc.ID, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools for %s: %w", sc.ID, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Server %s ready with %d tools", sc.ID, len(toolsResult.Tools))
	}

	m.mu.Lock()
	m.servers[sc.ID] = &serverConn{
		id:     sc.ID,
		client: mcpClient,
		cmd:    cmd,
		tools:  toolsResult.Tools,
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) createHTTPClient(ctx context.Context, sc config.MCPServerConfig) (*client.Client, error) {
	if sc.ServerURL == "" {
		return nil, fmt.Errorf("MCP server %s has http transport but no server_url", sc.ID)
	}

	var opts []transport.StreamableHTTPCOption
	if len(sc.Headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(sc.Headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(sc.ServerURL, opts...)
	if err != nil {
		return nil, err
	}

	// HTTP transport must be started before Initialize/ListTools.
	if err := mcpClient.GetTransport().Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start HTTP transport for %s: %w", sc.ID, err)
	}
	return mcpClient, nil
}

func (m *Manager) createStdioClient(ctx context.Context, sc config.MCPServerConfig) (*client.Client, *exec.Cmd, error) {
	if sc.Command == "" {
		return nil, nil, fmt.Errorf("MCP server %s has stdio transport but no command", sc.ID)
	}

	env := os.Environ()
	for k, v := range sc.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	var capturedCmd *exec.Cmd
	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		capturedCmd = cmd
		return cmd, nil
	}

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		sc.Command,
		env,
		sc.Args,
		transport.WithCommandFunc(cmdFunc),
	)
	if err != nil {
		return nil, nil, err
	}

	if capturedCmd != nil && capturedCmd.Process != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Started server %s with PID %d", sc.ID, capturedCmd.Process.Pid)
	}
	return mcpClient, capturedCmd, nil
}

// Specs returns every tool from every running server, namespaced as
// "serverID.toolName" and sorted for stable ordering.
func (m *Manager) Specs(ctx context.Context) ([]model.ToolSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var specs []model.ToolSpec
	for id, conn := range m.servers {
		for _, tool := range conn.tools {
			spec := SpecFromTool(tool)
			spec.Name = id + "." + tool.Name
			specs = append(specs, spec)
		}
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// Has reports whether a namespaced tool name belongs to a running server.
func (m *Manager) Has(name string) bool {
	serverID, toolName, ok := splitToolName(name)
	if !ok {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.servers[serverID]
	if !ok {
		return false
	}
	for _, tool := range conn.tools {
		if tool.Name == toolName {
			return true
		}
	}
	return false
}

// Execute routes a namespaced call to its server and flattens the result
// to a string payload.
func (m *Manager) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	serverID, toolName, ok := splitToolName(name)
	if !ok {
		return nil, fmt.Errorf("invalid MCP tool name %q, expected server.tool", name)
	}

	m.mu.RLock()
	conn, running := m.servers[serverID]
	m.mu.RUnlock()
	if !running {
		return nil, fmt.Errorf("MCP server %s is not running", serverID)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Calling %s on server %s", toolName, serverID)
	}

	result, err := conn.client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("MCP tool %s failed: %w", name, err)
	}

	content := ResultToString(result)
	if result.IsError {
		return nil, fmt.Errorf("MCP tool %s returned an error: %s", name, content)
	}
	return content, nil
}

// Stop shuts down one server and drops its tools.
func (m *Manager) Stop(serverID string) error {
	m.mu.Lock()
	conn, ok := m.servers[serverID]
	if ok {
		delete(m.servers, serverID)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("MCP server %s is not running", serverID)
	}

	conn.client.Close()
	if conn.cmd != nil && conn.cmd.Process != nil {
		_ = conn.cmd.Process.Kill()
	}
	return nil
}

// Shutdown stops every running server.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := make([]*serverConn, 0, len(m.servers))
	for _, conn := range m.servers {
		conns = append(conns, conn)
	}
	m.servers = make(map[string]*serverConn)
	m.mu.Unlock()

	for _, conn := range conns {
		conn.client.Close()
		if conn.cmd != nil && conn.cmd.Process != nil {
			_ = conn.cmd.Process.Kill()
		}
	}
}

// splitToolName splits "serverID.toolName" on the first dot. Tool names
// may themselves contain dots, server IDs may not.
func splitToolName(name string) (serverID, toolName string, ok bool) {
	idx := strings.Index(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}
