package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// Stream pump messages. One engine round flows as: streamStartedMsg,
// zero or more streamEventMsg, then streamClosedMsg when the engine
// closes the channel after round_complete.
type streamStartedMsg struct {
	events <-chan model.Event
}

type streamEventMsg struct {
	event  model.Event
	events <-chan model.Event
}

type streamClosedMsg struct{}

// startRound kicks off one engine round over the current history.
func (a *App) startRound() tea.Cmd {
	engine := a.engine
	history := make([]model.Message, len(a.history))
	copy(history, a.history)
	ctx := a.runCtx
	round := a.round

	return func() tea.Msg {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Starting round %d with %d messages", round, len(history))
		}
		return streamStartedMsg{events: engine.RunStream(ctx, history)}
	}
}

// waitForEvent blocks on the event channel and reports the next event,
// or channel closure.
func waitForEvent(events <-chan model.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{event: ev, events: events}
	}
}

// newRunContext replaces the run context so Esc can cancel an in-flight
// round without touching the program context.
func (a *App) newRunContext() {
	if a.runCancel != nil {
		a.runCancel()
	}
	a.runCtx, a.runCancel = context.WithCancel(context.Background())
}
