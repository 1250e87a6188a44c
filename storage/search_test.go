package storage

import "testing"

func TestSearchSessionsFuzzy(t *testing.T) {
	store := openTestStore(t)

	for _, name := range []string{"weather in tokyo", "golang generics", "trip planning"} {
		if err := store.SaveSession(&Session{Name: name}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	matches, err := store.SearchSessions("golang")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "golang generics" {
		t.Fatalf("unexpected matches: %+v", matches)
	}

	all, err := store.SearchSessions("")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected empty query to return all sessions, got %d", len(all))
	}
}

func TestSearchMessages(t *testing.T) {
	store := openTestStore(t)

	session := &Session{
		Name: "chat",
		Messages: []StoredMessage{
			{Role: "system", Content: "You love goroutines."},
			{Role: "user", Content: "Tell me about Goroutines"},
			{Role: "assistant", Content: "A goroutine is a lightweight thread."},
			{Role: "user", Content: "Thanks"},
		},
	}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	matches, err := store.SearchMessages("goroutine")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	// System messages are excluded, the match is case-insensitive.
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(matches), matches)
	}
	for _, m := range matches {
		if m.Role == "system" {
			t.Error("system message should not match")
		}
		if m.SessionID != session.ID {
			t.Errorf("unexpected session id %q", m.SessionID)
		}
	}

	empty, err := store.SearchMessages("")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty query to match nothing, got %d", len(empty))
	}
}

func TestSearchMessagesPreviewTruncation(t *testing.T) {
	store := openTestStore(t)

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	session := &Session{
		Name:     "long",
		Messages: []StoredMessage{{Role: "user", Content: string(long)}},
	}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	matches, err := store.SearchMessages("aaa")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if len(matches[0].Preview) != 103 {
		t.Errorf("expected preview of 100 chars plus ellipsis, got %d", len(matches[0].Preview))
	}
}
