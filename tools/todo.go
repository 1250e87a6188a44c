package tools

import (
	"context"
	"fmt"

	"github.com/akofink/textual-cli-agent/model"
)

// TodoStore is the persistence backend for the todo tools.
// storage.TodoStore satisfies it.
type TodoStore interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, item string) error
	Remove(ctx context.Context, index int) (bool, error)
	Set(ctx context.Context, index int, item string) (bool, error)
}

// RegisterTodoTools exposes the todo list to the model. Indexes in the
// tool surface are 1-based; the store uses 0-based positions.
func RegisterTodoTools(r *Registry, store TodoStore) error {
	if err := r.Register(model.ToolSpec{
		Name:        "todo_list",
		Description: "List TODO items.",
		Parameters:  ObjectSchema(map[string]any{}),
	}, func(ctx context.Context, _ map[string]any) (any, error) {
		items, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []string{}
		}
		return items, nil
	}); err != nil {
		return err
	}

	if err := r.Register(model.ToolSpec{
		Name:        "todo_add",
		Description: "Add a TODO item.",
		Parameters: ObjectSchema(map[string]any{
			"item": StringParam("Text of the new item"),
		}, "item"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		item, _ := stringArg(args, "item")
		if err := store.Add(ctx, item); err != nil {
			return nil, err
		}
		return item, nil
	}); err != nil {
		return err
	}

	if err := r.Register(model.ToolSpec{
		Name:        "todo_remove",
		Description: "Remove a TODO item by 1-based index.",
		Parameters: ObjectSchema(map[string]any{
			"index": IntegerParam("1-based position of the item"),
		}, "index"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		index, ok := intArg(args, "index")
		if !ok {
			return nil, fmt.Errorf("index must be an integer")
		}
		return store.Remove(ctx, clampIndex(index))
	}); err != nil {
		return err
	}

	return r.Register(model.ToolSpec{
		Name:        "todo_edit",
		Description: "Edit a TODO item by 1-based index.",
		Parameters: ObjectSchema(map[string]any{
			"index": IntegerParam("1-based position of the item"),
			"item":  StringParam("Replacement text"),
		}, "index", "item"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		index, ok := intArg(args, "index")
		if !ok {
			return nil, fmt.Errorf("index must be an integer")
		}
		item, _ := stringArg(args, "item")
		return store.Set(ctx, clampIndex(index), item)
	})
}

func clampIndex(oneBased int) int {
	if oneBased < 1 {
		return 0
	}
	return oneBased - 1
}
