package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/akofink/textual-cli-agent/agent"
	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/mcp"
	"github.com/akofink/textual-cli-agent/provider"
	"github.com/akofink/textual-cli-agent/storage"
	"github.com/akofink/textual-cli-agent/tools"
	"github.com/akofink/textual-cli-agent/ui"
)

const Version = "v0.1.0"

func main() {
	resume := flag.Bool("resume", false, "continue the most recent session")
	sessionQuery := flag.String("session", "", "continue the session whose name best matches this query")
	listSessions := flag.Bool("sessions", false, "list saved sessions and exit")
	grepQuery := flag.String("grep", "", "search saved messages for this text and exit")
	deleteID := flag.String("delete-session", "", "delete the session with this id and exit")
	renameID := flag.String("rename-session", "", "rename the session with this id (use with -name) and exit")
	newName := flag.String("name", "", "new session name for -rename-session")
	flag.Parse()

	config.CheckDebug()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	store, err := storage.Open(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to open session storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if handled := runSessionCommand(store, *listSessions, *grepQuery, *deleteID, *renameID, *newName); handled {
		return
	}

	restored, err := sessionToResume(store, *resume, *sessionQuery)
	if err != nil {
		fmt.Printf("Failed to resume session: %v\n", err)
		os.Exit(1)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry); err != nil {
		fmt.Printf("Failed to register built-in tools: %v\n", err)
		os.Exit(1)
	}
	if err := tools.RegisterParallelTool(registry); err != nil {
		fmt.Printf("Failed to register parallel tool: %v\n", err)
		os.Exit(1)
	}
	if err := tools.RegisterTodoTools(registry, store.Todos()); err != nil {
		fmt.Printf("Failed to register todo tools: %v\n", err)
		os.Exit(1)
	}

	mcpManager := mcp.NewManager()
	defer mcpManager.Shutdown()
	if len(cfg.MCPServers) > 0 {
		startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mcpManager.StartAll(startCtx, cfg.MCPServers); err != nil {
			// MCP servers are optional; the chat still works without them.
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		cancel()
	}

	providerID := cfg.DefaultProvider
	providerCfg, err := provider.FromAppConfig(cfg, providerID)
	if err != nil {
		fmt.Printf("Failed to configure provider %s: %v\n", providerID, err)
		os.Exit(1)
	}
	p, err := provider.NewProvider(providerCfg)
	if err != nil {
		fmt.Printf("Failed to create provider %s: %v\n", providerID, err)
		os.Exit(1)
	}

	engine := agent.NewEngine(p, registry, mcpManager, agent.EngineConfig{
		ToolTimeout:     time.Duration(cfg.Agent.ToolTimeoutSeconds) * time.Second,
		ToolConcurrency: cfg.Agent.ToolConcurrency,
	})

	app := ui.NewApp(engine, store, cfg, providerID, providerCfg.Model)
	if restored != nil {
		app.RestoreSession(restored)
	}
	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runSessionCommand handles the non-interactive session flags. It
// reports whether one of them ran, in which case main exits without
// starting the chat screen.
func runSessionCommand(store *storage.Store, list bool, grep, deleteID, renameID, newName string) bool {
	switch {
	case list:
		metas, err := store.ListSessions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return true
		}
		if len(metas) == 0 {
			fmt.Println("No saved sessions.")
			return true
		}
		for _, meta := range metas {
			fmt.Printf("%s  %s  %3d msgs  %s\n",
				meta.ID, meta.UpdatedAt.Format("2006-01-02 15:04"), meta.MessageCount, meta.Name)
		}
		return true

	case grep != "":
		matches, err := store.SearchMessages(grep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return true
		}
		if len(matches) == 0 {
			fmt.Printf("No messages match %q.\n", grep)
			return true
		}
		for _, m := range matches {
			fmt.Printf("%s (%s) #%d [%s]: %s\n", m.SessionName, m.SessionID, m.MessageIndex, m.Role, m.Preview)
		}
		return true

	case deleteID != "":
		if err := store.DeleteSession(deleteID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			fmt.Printf("Deleted session %s.\n", deleteID)
		}
		return true

	case renameID != "":
		if newName == "" {
			fmt.Fprintln(os.Stderr, "Error: -rename-session requires -name")
			return true
		}
		if err := store.RenameSession(renameID, newName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			fmt.Printf("Renamed session %s to %q.\n", renameID, newName)
		}
		return true
	}
	return false
}

// sessionToResume picks the session the chat screen should continue:
// the best fuzzy name match for -session, or the most recent one for
// -resume. Without either flag a fresh session starts.
func sessionToResume(store *storage.Store, resume bool, query string) (*storage.Session, error) {
	switch {
	case query != "":
		matches, err := store.SearchSessions(query)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no session name matches %q", query)
		}
		return store.LoadSession(matches[0].ID)

	case resume:
		metas, err := store.ListSessions()
		if err != nil {
			return nil, err
		}
		if len(metas) == 0 {
			return nil, nil
		}
		return store.LoadSession(metas[0].ID)
	}
	return nil, nil
}
