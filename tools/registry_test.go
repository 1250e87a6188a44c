package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akofink/textual-cli-agent/model"
)

func echoSpec(name string) model.ToolSpec {
	return model.ToolSpec{
		Name:        name,
		Description: "Echo the input text",
		Parameters: ObjectSchema(map[string]any{
			"text": StringParam("Text to echo"),
		}, "text"),
	}
}

func echoHandler(_ context.Context, args map[string]any) (any, error) {
	return args["text"], nil
}

func TestRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoSpec("echo"), echoHandler); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if !r.Has("echo") {
		t.Error("Has should report the registered tool")
	}
	if r.Has("nope") {
		t.Error("Has should not report unregistered tools")
	}

	result, err := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result != "hi" {
		t.Errorf("result = %v", result)
	}
}

func TestRegisterRejectsBadSpecs(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(model.ToolSpec{}, echoHandler); err == nil {
		t.Error("empty name should fail")
	}
	if err := r.Register(echoSpec("other"), nil); err == nil {
		t.Error("nil handler should fail")
	}
}

func TestRegisterSameNameOverwrites(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoSpec("echo"), echoHandler); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	replacement := func(_ context.Context, _ map[string]any) (any, error) {
		return "replaced", nil
	}
	if err := r.Register(echoSpec("echo"), replacement); err != nil {
		t.Fatalf("re-registration should succeed, got %v", err)
	}

	result, err := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result != "replaced" {
		t.Errorf("result = %v, want the replacement handler's output", result)
	}

	// The name is registered once, not twice.
	count := 0
	for _, spec := range r.Specs() {
		if spec.Name == "echo" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("echo appears %d times in Specs, want 1", count)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Execute(context.Background(), "ghost", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the tool: %v", err)
	}
}

func TestExecuteValidatesArguments(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoSpec("echo"), echoHandler); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Missing required property.
	_, err := r.Execute(context.Background(), "echo", map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "invalid arguments for echo") {
		t.Errorf("expected validation failure, got %v", err)
	}

	// Wrong type.
	_, err = r.Execute(context.Background(), "echo", map[string]any{"text": 42})
	if err == nil {
		t.Error("expected type mismatch to fail validation")
	}
}

func TestExecuteNilArgsBecomeEmptyMap(t *testing.T) {
	r := NewRegistry()
	spec := model.ToolSpec{
		Name:        "list",
		Description: "No required parameters",
		Parameters:  ObjectSchema(map[string]any{}),
	}
	handler := func(_ context.Context, args map[string]any) (any, error) {
		if args == nil {
			t.Error("handler should never see nil args")
		}
		return "ok", nil
	}
	if err := r.Register(spec, handler); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := r.Execute(context.Background(), "list", nil); err != nil {
		t.Errorf("execute with nil args failed: %v", err)
	}
}

func TestSpecsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(echoSpec(name), echoHandler); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	specs := r.Specs()
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	if specs[0].Name != "alpha" || specs[1].Name != "mid" || specs[2].Name != "zeta" {
		t.Errorf("specs not sorted: %v", specs)
	}
}

func TestIntegerSchemaAcceptsWholeFloats(t *testing.T) {
	// Decoded JSON hands integers to tools as float64; the schema
	// validation must accept them for integer parameters.
	r := NewRegistry()
	spec := model.ToolSpec{
		Name:        "take",
		Description: "Take n items",
		Parameters: ObjectSchema(map[string]any{
			"n": IntegerParam("How many"),
		}, "n"),
	}
	if err := r.Register(spec, func(_ context.Context, args map[string]any) (any, error) {
		return args["n"], nil
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := r.Execute(context.Background(), "take", map[string]any{"n": 3.0}); err != nil {
		t.Errorf("whole float should validate as integer: %v", err)
	}
	if _, err := r.Execute(context.Background(), "take", map[string]any{"n": 3.5}); err == nil {
		t.Error("fractional value should fail integer validation")
	}
}
