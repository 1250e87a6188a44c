package storage

import (
	"context"
	"testing"
)

func TestTodoListCRUD(t *testing.T) {
	store := openTestStore(t)
	todos := store.Todos()
	ctx := context.Background()

	items, err := todos.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %v", items)
	}

	if err := todos.Add(ctx, "write tests"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := todos.Add(ctx, "review PR"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	items, err = todos.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 || items[0] != "write tests" || items[1] != "review PR" {
		t.Fatalf("unexpected items: %v", items)
	}

	ok, err := todos.Set(ctx, 1, "review the PR")
	if err != nil || !ok {
		t.Fatalf("set failed: ok=%v err=%v", ok, err)
	}

	ok, err = todos.Remove(ctx, 0)
	if err != nil || !ok {
		t.Fatalf("remove failed: ok=%v err=%v", ok, err)
	}

	items, err = todos.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0] != "review the PR" {
		t.Fatalf("unexpected items after edit/remove: %v", items)
	}
}

func TestTodoListOutOfRange(t *testing.T) {
	store := openTestStore(t)
	todos := store.Todos()
	ctx := context.Background()

	if ok, err := todos.Remove(ctx, 0); err != nil || ok {
		t.Errorf("expected remove on empty list to return false, got ok=%v err=%v", ok, err)
	}
	if ok, err := todos.Set(ctx, 5, "x"); err != nil || ok {
		t.Errorf("expected set out of range to return false, got ok=%v err=%v", ok, err)
	}
	if ok, err := todos.Remove(ctx, -1); err != nil || ok {
		t.Errorf("expected negative index to return false, got ok=%v err=%v", ok, err)
	}
}
