package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Todos returns the database-backed todo list.
func (s *Store) Todos() *TodoList {
	return &TodoList{db: s.db}
}

// TodoList persists the agent's working todo items. Indexes are
// zero-based and follow insertion order.
type TodoList struct {
	db *sql.DB
}

// List returns all items in insertion order.
func (t *TodoList) List(ctx context.Context) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT item FROM todos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Add appends an item.
func (t *TodoList) Add(ctx context.Context, item string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO todos (item, created_at) VALUES (?, ?)`, item, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add todo: %w", err)
	}
	return nil
}

// Remove deletes the item at index. Returns false when the index is out
// of range.
func (t *TodoList) Remove(ctx context.Context, index int) (bool, error) {
	id, ok, err := t.idAt(ctx, index)
	if err != nil || !ok {
		return false, err
	}
	_, err = t.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove todo: %w", err)
	}
	return true, nil
}

// Set replaces the item at index. Returns false when the index is out of
// range.
func (t *TodoList) Set(ctx context.Context, index int, item string) (bool, error) {
	id, ok, err := t.idAt(ctx, index)
	if err != nil || !ok {
		return false, err
	}
	_, err = t.db.ExecContext(ctx, `UPDATE todos SET item = ? WHERE id = ?`, item, id)
	if err != nil {
		return false, fmt.Errorf("failed to update todo: %w", err)
	}
	return true, nil
}

func (t *TodoList) idAt(ctx context.Context, index int) (int64, bool, error) {
	if index < 0 {
		return 0, false, nil
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id FROM todos ORDER BY id LIMIT 1 OFFSET ?`, index)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up todo: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, false, err
	}
	return id, true, nil
}
