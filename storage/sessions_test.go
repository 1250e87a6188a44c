package storage

import (
	"encoding/json"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadSession(t *testing.T) {
	store := openTestStore(t)

	payload := json.RawMessage(`{"tool_calls":[{"id":"call_1","function":{"name":"get_weather"}}]}`)
	session := &Session{
		Name:     "weather chat",
		Provider: "openai",
		Model:    "gpt-4o",
		Messages: []StoredMessage{
			{Role: "user", Content: "What's the weather?"},
			{Role: "assistant", Content: "Let me check.", Payload: payload},
			{Role: "tool", Content: `{"temp": 21}`, ToolCallID: "call_1"},
		},
	}

	if err := store.SaveSession(session); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected ID to be assigned on save")
	}

	loaded, err := store.LoadSession(session.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Name != "weather chat" || loaded.Provider != "openai" || loaded.Model != "gpt-4o" {
		t.Errorf("metadata mismatch: %+v", loaded)
	}
	if len(loaded.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != "user" || loaded.Messages[0].Content != "What's the weather?" {
		t.Errorf("first message mismatch: %+v", loaded.Messages[0])
	}
	if string(loaded.Messages[1].Payload) != string(payload) {
		t.Errorf("payload mismatch: %s", loaded.Messages[1].Payload)
	}
	if loaded.Messages[2].ToolCallID != "call_1" {
		t.Errorf("tool_call_id mismatch: %q", loaded.Messages[2].ToolCallID)
	}
}

func TestSaveSessionReplacesMessages(t *testing.T) {
	store := openTestStore(t)

	session := &Session{
		Name:     "test",
		Messages: []StoredMessage{{Role: "user", Content: "one"}},
	}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	session.Messages = append(session.Messages, StoredMessage{Role: "assistant", Content: "two"})
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := store.LoadSession(session.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("expected 2 messages after resave, got %d", len(loaded.Messages))
	}
}

func TestSessionNameDerivedFromFirstUserMessage(t *testing.T) {
	store := openTestStore(t)

	session := &Session{
		Messages: []StoredMessage{
			{Role: "system", Content: "You are helpful."},
			{Role: "user", Content: "Explain goroutines"},
		},
	}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if session.Name != "Explain goroutines" {
		t.Errorf("expected derived name, got %q", session.Name)
	}
}

func TestListSessionsOrderedByUpdate(t *testing.T) {
	store := openTestStore(t)

	first := &Session{Name: "first"}
	second := &Session{Name: "second"}
	if err := store.SaveSession(first); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveSession(second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Touch the first session so it becomes most recent.
	first.Messages = []StoredMessage{{Role: "user", Content: "hi"}}
	if err := store.SaveSession(first); err != nil {
		t.Fatalf("resave failed: %v", err)
	}

	list, err := store.ListSessions()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].ID != first.ID {
		t.Errorf("expected most recently updated session first, got %q", list[0].Name)
	}
	if list[0].MessageCount != 1 {
		t.Errorf("expected message count 1, got %d", list[0].MessageCount)
	}
}

func TestDeleteSession(t *testing.T) {
	store := openTestStore(t)

	session := &Session{Name: "doomed", Messages: []StoredMessage{{Role: "user", Content: "x"}}}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := store.DeleteSession(session.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.LoadSession(session.ID); err == nil {
		t.Error("expected load of deleted session to fail")
	}
	if err := store.DeleteSession(session.ID); err == nil {
		t.Error("expected second delete to report not found")
	}
}

func TestRenameSession(t *testing.T) {
	store := openTestStore(t)

	session := &Session{Name: "old name"}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := store.RenameSession(session.ID, "new name"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	loaded, err := store.LoadSession(session.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Name != "new name" {
		t.Errorf("expected renamed session, got %q", loaded.Name)
	}

	if err := store.RenameSession("missing", "x"); err == nil {
		t.Error("expected rename of missing session to fail")
	}
}
