// Package ui is the terminal chat interface: a scrollback viewport over
// the conversation, a textarea for input, and a stream pump that turns
// agent engine events into display updates.
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/akofink/textual-cli-agent/agent"
	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
	"github.com/akofink/textual-cli-agent/storage"
)

// displayMessage is one rendered row of the transcript.
type displayMessage struct {
	Role      string
	Content   string
	Rendered  string
	Timestamp time.Time
}

// App is the bubbletea model for the chat screen.
type App struct {
	engine   *agent.Engine
	store    *storage.Store
	cfg      *config.Config
	provider string
	modelID  string

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	// Conversation state. history is what goes to the provider; display
	// is what the user sees.
	history []model.Message
	display []displayMessage

	// Streaming state
	streaming   bool
	currentResp strings.Builder
	round       int
	maxRounds   int

	runCtx    context.Context
	runCancel context.CancelFunc

	sessionID string
	err       error
}

// NewApp builds the chat screen around a ready engine and store.
func NewApp(engine *agent.Engine, store *storage.Store, cfg *config.Config, providerID, modelID string) App {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	vp := viewport.New(0, 0)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	maxRounds := cfg.Agent.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 8
	}

	a := App{
		engine:    engine,
		store:     store,
		cfg:       cfg,
		provider:  providerID,
		modelID:   modelID,
		viewport:  vp,
		textarea:  ta,
		spinner:   sp,
		maxRounds: maxRounds,
	}

	if prompt := cfg.DefaultSystemPrompt; prompt != "" {
		a.history = append(a.history, model.Message{Role: "system", Content: prompt})
	}
	return a
}

func (a App) Init() tea.Cmd {
	return textarea.Blink
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleResize(msg), nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case streamStartedMsg:
		return a, waitForEvent(msg.events)

	case streamEventMsg:
		next := a.handleEvent(msg.event)
		return next, tea.Batch(waitForEvent(msg.events), next.spinner.Tick)

	case streamClosedMsg:
		return a.handleStreamClosed()

	case spinner.TickMsg:
		if !a.streaming {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a App) handleResize(msg tea.WindowSizeMsg) App {
	a.width = msg.Width
	a.height = msg.Height

	inputHeight := a.textarea.Height() + 1
	statusHeight := 1
	a.viewport.Width = msg.Width
	a.viewport.Height = msg.Height - inputHeight - statusHeight
	a.textarea.SetWidth(msg.Width - 2)

	if !a.ready {
		a.ready = true
	}
	a.refreshViewport(false)
	return a
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if a.runCancel != nil {
			a.runCancel()
		}
		return a, tea.Quit

	case "esc":
		if a.streaming {
			// Cancel the in-flight run; the engine closes the stream.
			if a.runCancel != nil {
				a.runCancel()
			}
			return a, nil
		}

	case "enter":
		if a.streaming {
			return a, nil
		}
		input := strings.TrimSpace(a.textarea.Value())
		if input == "" {
			return a, nil
		}
		return a.submit(input)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// submit sends one user message and starts the first round.
func (a App) submit(input string) (tea.Model, tea.Cmd) {
	a.textarea.Reset()
	now := time.Now()

	a.history = append(a.history, model.Message{Role: "user", Content: input, Timestamp: now})
	a.display = append(a.display, displayMessage{Role: "user", Content: input, Timestamp: now})

	a.streaming = true
	a.round = 1
	a.currentResp.Reset()
	a.err = nil
	a.newRunContext()
	a.refreshViewport(true)

	return a, tea.Batch(a.startRound(), a.spinner.Tick)
}

// handleEvent folds one normalized engine event into UI state.
func (a App) handleEvent(ev model.Event) App {
	switch ev.Type {
	case model.EventText:
		a.currentResp.WriteString(ev.Delta)
		a.refreshViewport(true)

	case model.EventToolCall:
		if ev.Call != nil {
			a.display = append(a.display, displayMessage{
				Role:      "tool",
				Content:   fmt.Sprintf("▶ %s(%s)", ev.Call.Name, compactArgs(ev.Call.Arguments)),
				Timestamp: time.Now(),
			})
			a.refreshViewport(true)
		}

	case model.EventToolResult:
		preview := ev.Content
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		a.display = append(a.display, displayMessage{
			Role:      "tool",
			Content:   "◀ " + preview,
			Timestamp: time.Now(),
		})
		a.refreshViewport(true)

	case model.EventAppendMessage:
		if ev.Message != nil {
			a.history = append(a.history, *ev.Message)
		}

	case model.EventRoundComplete:
		if text := a.currentResp.String(); text != "" {
			a.display = append(a.display, displayMessage{
				Role:      "assistant",
				Content:   text,
				Rendered:  RenderMarkdown(text, a.width),
				Timestamp: time.Now(),
			})
			a.currentResp.Reset()
		}
		if ev.HadToolCalls && a.round < a.maxRounds {
			a.round++
		} else {
			a.round = 0
		}
		a.refreshViewport(true)
	}
	return a
}

// handleStreamClosed either starts the next round (the previous one
// requested tools) or finalizes the turn.
func (a App) handleStreamClosed() (tea.Model, tea.Cmd) {
	if a.round > 1 && a.streaming {
		return a, a.startRound()
	}

	a.streaming = false
	a.round = 0
	if err := a.saveSession(); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Session save failed: %v", err)
	}
	a.refreshViewport(true)
	return a, nil
}

// RestoreSession seeds the app with a previously saved conversation so
// the next user message continues it. Call before the program starts.
func (a *App) RestoreSession(sess *storage.Session) {
	if sess == nil {
		return
	}
	a.sessionID = sess.ID

	if sess.SystemPrompt != "" && len(a.history) == 0 {
		a.history = append(a.history, model.Message{Role: "system", Content: sess.SystemPrompt})
	}

	for _, stored := range sess.Messages {
		msg := restoredMessage(stored)
		a.history = append(a.history, msg)

		switch msg.Role {
		case "user":
			a.display = append(a.display, displayMessage{
				Role:      "user",
				Content:   msg.Text(),
				Timestamp: stored.Timestamp,
			})
		case "assistant":
			if text := msg.Text(); text != "" {
				a.display = append(a.display, displayMessage{
					Role:      "assistant",
					Content:   text,
					Timestamp: stored.Timestamp,
				})
			}
		}
	}
}

// restoredMessage rebuilds a model message from its stored form. The
// JSON payload, when present, preserves structured parts (blocks, tool
// calls) exactly as they were sent.
func restoredMessage(stored storage.StoredMessage) model.Message {
	if len(stored.Payload) > 0 {
		var msg model.Message
		if err := json.Unmarshal(stored.Payload, &msg); err == nil && msg.Role != "" {
			return msg
		}
	}
	return model.Message{
		Role:       stored.Role,
		Content:    stored.Content,
		ToolCallID: stored.ToolCallID,
		Timestamp:  stored.Timestamp,
	}
}

// saveSession persists the current history under the running session ID.
func (a *App) saveSession() error {
	if a.store == nil {
		return nil
	}

	session := &storage.Session{
		ID:           a.sessionID,
		Provider:     a.provider,
		Model:        a.modelID,
		SystemPrompt: a.cfg.DefaultSystemPrompt,
	}
	for _, msg := range a.history {
		if msg.Role == "system" {
			continue
		}
		stored := storage.StoredMessage{
			Role:       msg.Role,
			Content:    msg.Text(),
			ToolCallID: msg.ToolCallID,
			Timestamp:  msg.Timestamp,
		}
		if len(msg.ToolCalls) > 0 || len(msg.Blocks) > 0 {
			if raw, err := json.Marshal(msg); err == nil {
				stored.Payload = raw
			}
		}
		session.Messages = append(session.Messages, stored)
	}

	if err := a.store.SaveSession(session); err != nil {
		return err
	}
	a.sessionID = session.ID
	return nil
}

// refreshViewport rebuilds the scrollback content.
func (a *App) refreshViewport(scrollToBottom bool) {
	if !a.ready {
		return
	}

	var b strings.Builder
	if len(a.display) == 0 && !a.streaming {
		b.WriteString(TitleStyle.Render("textual-cli-agent") + "\n")
		b.WriteString(DimStyle.Render("Type a message and press enter.") + "\n")
	}
	for _, msg := range a.display {
		switch msg.Role {
		case "user":
			b.WriteString(UserStyle.Render("You: ") + msg.Content)
		case "assistant":
			if noticeLine(msg.Content) {
				b.WriteString(ErrorStyle.Render(strings.TrimSpace(msg.Content)))
				break
			}
			body := msg.Rendered
			if body == "" {
				body = msg.Content
			}
			b.WriteString(AssistantStyle.Render("Assistant:") + "\n" + body)
		case "tool":
			b.WriteString(ToolStyle.Render(msg.Content))
		default:
			b.WriteString(DimStyle.Render(msg.Content))
		}
		b.WriteString("\n\n")
	}

	if a.streaming {
		if partial := a.currentResp.String(); partial != "" {
			if noticeLine(partial) {
				b.WriteString(ErrorStyle.Render(strings.TrimSpace(partial)))
			} else {
				b.WriteString(AssistantStyle.Render("Assistant:") + "\n" + partial)
			}
		} else {
			b.WriteString(a.spinner.View() + DimStyle.Render(" thinking..."))
		}
		b.WriteString("\n")
	}

	a.viewport.SetContent(b.String())
	if scrollToBottom {
		a.viewport.GotoBottom()
	}
}

func (a App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	status := fmt.Sprintf(" %s · %s", a.provider, a.modelID)
	if a.streaming {
		status += fmt.Sprintf(" · round %d/%d", a.round, a.maxRounds)
	}
	statusLine := StatusStyle.Render(truncateToWidth(status, a.width))

	return a.viewport.View() + "\n" + statusLine + "\n" + a.textarea.View()
}

// noticeLine reports whether assistant text is an error or recovery
// notice rather than model prose.
func noticeLine(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "[ERROR]") || strings.HasPrefix(s, "[RECOVERY]")
}

// compactArgs renders tool arguments on one line for the transcript.
func compactArgs(args any) string {
	if args == nil {
		return ""
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	s := string(raw)
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}
