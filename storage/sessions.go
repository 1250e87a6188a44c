// Package storage persists chat sessions and todo lists in a local
// SQLite database under the data directory.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Session is one saved conversation.
type Session struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Messages     []StoredMessage
}

// StoredMessage is one persisted conversation turn. Structured parts
// (blocks, tool calls) are JSON-encoded into a single payload column so
// provider-specific shapes survive round trips unchanged.
type StoredMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SessionMetadata is a lightweight view used for listing.
type SessionMetadata struct {
	ID           string
	Name         string
	Provider     string
	Model        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Store wraps the SQLite database holding sessions and todos.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dataDir/agent.db.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "agent.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		payload TEXT,
		tool_call_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, seq),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession writes the session and its full message list. Messages are
// replaced wholesale; the session row is upserted.
func (s *Store) SaveSession(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}
	if session.Name == "" {
		session.Name = deriveSessionName(session.Messages)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	INSERT OR REPLACE INTO sessions (id, name, provider, model, system_prompt, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.Name, session.Provider, session.Model, session.SystemPrompt,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	for i, msg := range session.Messages {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = session.UpdatedAt
		}
		var payload any
		if len(msg.Payload) > 0 {
			payload = string(msg.Payload)
		}
		_, err := tx.Exec(`
		INSERT INTO messages (session_id, seq, role, content, payload, tool_call_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, session.ID, i, msg.Role, msg.Content, payload, msg.ToolCallID, ts)
		if err != nil {
			return fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadSession reads one session with all its messages.
func (s *Store) LoadSession(id string) (*Session, error) {
	session := &Session{ID: id}
	err := s.db.QueryRow(`
	SELECT name, provider, model, system_prompt, created_at, updated_at
	FROM sessions WHERE id = ?
	`, id).Scan(&session.Name, &session.Provider, &session.Model,
		&session.SystemPrompt, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	rows, err := s.db.Query(`
	SELECT role, content, payload, tool_call_id, created_at
	FROM messages WHERE session_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg StoredMessage
		var payload sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &payload, &msg.ToolCallID, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if payload.Valid {
			msg.Payload = json.RawMessage(payload.String)
		}
		session.Messages = append(session.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return session, nil
}

// ListSessions returns metadata for all sessions, most recently updated
// first.
func (s *Store) ListSessions() ([]SessionMetadata, error) {
	rows, err := s.db.Query(`
	SELECT s.id, s.name, s.provider, s.model, s.created_at, s.updated_at,
	       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
	FROM sessions s
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var list []SessionMetadata
	for rows.Next() {
		var meta SessionMetadata
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Provider, &meta.Model,
			&meta.CreatedAt, &meta.UpdatedAt, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		list = append(list, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

// DeleteSession removes a session and its messages.
func (s *Store) DeleteSession(id string) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// RenameSession updates a session's display name.
func (s *Store) RenameSession(id, name string) error {
	res, err := s.db.Exec(`UPDATE sessions SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// deriveSessionName takes the first user message as the name, truncated
// to something that fits a list row.
func deriveSessionName(messages []StoredMessage) string {
	for _, msg := range messages {
		if msg.Role == "user" && msg.Content != "" {
			name := msg.Content
			if len(name) > 50 {
				name = name[:50] + "..."
			}
			return name
		}
	}
	return "New Session"
}
