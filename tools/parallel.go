package tools

import (
	"context"
	"sync"

	"github.com/akofink/textual-cli-agent/model"
)

// RegisterParallelTool adds parallel_run, which fans a batch of tool
// calls out over goroutines against the same registry. Each task's
// failure is isolated: a failing task yields an {"error": ...} entry at
// its position and never disturbs its siblings.
func RegisterParallelTool(r *Registry) error {
	return r.Register(model.ToolSpec{
		Name:        "parallel_run",
		Description: "Run multiple tools in parallel. Input: list of {tool, arguments}. Returns list of results in order.",
		Parameters: ObjectSchema(map[string]any{
			"tasks": ArrayParam("Tool invocations to run concurrently", map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tool": StringParam("Tool name to run"),
					"arguments": map[string]any{
						"type":        "object",
						"description": "Arguments for the tool",
					},
				},
				"required": []string{"tool"},
			}),
		}, "tasks"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return runParallel(ctx, r, args)
	})
}

func runParallel(ctx context.Context, r *Registry, args map[string]any) (any, error) {
	rawTasks, _ := args["tasks"].([]any)
	results := make([]any, len(rawTasks))

	var wg sync.WaitGroup
	for i, raw := range rawTasks {
		wg.Add(1)
		go func(idx int, raw any) {
			defer wg.Done()
			results[idx] = runParallelTask(ctx, r, raw)
		}(i, raw)
	}
	wg.Wait()

	return results, nil
}

func runParallelTask(ctx context.Context, r *Registry, raw any) any {
	task, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{"error": "task must be an object with tool and arguments"}
	}

	name, _ := task["tool"].(string)
	taskArgs, _ := task["arguments"].(map[string]any)
	if taskArgs == nil {
		taskArgs = make(map[string]any)
	}

	result, err := r.Execute(ctx, name, taskArgs)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}
