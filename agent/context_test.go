package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/akofink/textual-cli-agent/model"
)

func makeConversation(n int) []model.Message {
	msgs := []model.Message{{Role: "system", Content: "You are helpful."}}
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, model.Message{Role: role, Content: fmt.Sprintf("message %d", i)})
	}
	return msgs
}

func TestEstimateTokens(t *testing.T) {
	cm := NewContextManager()

	msgs := []model.Message{
		{Role: "user", Content: strings.Repeat("a", 400)},
	}
	if got := cm.EstimateTokens(msgs); got != 100 {
		t.Errorf("expected 100 tokens for 400 chars, got %d", got)
	}

	// A tool call adds a flat 50 plus its arguments.
	args := json.RawMessage(strings.Repeat("b", 40))
	msgs = []model.Message{
		{
			Role: "assistant",
			ToolCalls: []model.ToolCallPayload{
				{Function: model.FunctionCall{Name: "x", Arguments: args}},
			},
		},
	}
	if got := cm.EstimateTokens(msgs); got != 60 {
		t.Errorf("expected 60 tokens for tool call, got %d", got)
	}
}

func TestShouldPrune(t *testing.T) {
	cm := NewContextManager()

	if cm.ShouldPrune(makeConversation(10), "") {
		t.Error("small conversation with no error should not prune")
	}
	if !cm.ShouldPrune(makeConversation(60), "") {
		t.Error("conversation over the message ceiling should prune")
	}
	if !cm.ShouldPrune(makeConversation(5), "maximum context length exceeded") {
		t.Error("context keyword in error should force pruning")
	}
	if !cm.ShouldPrune(makeConversation(5), "too many tokens") {
		t.Error("token keyword in error should force pruning")
	}

	big := []model.Message{{Role: "user", Content: strings.Repeat("x", 300000)}}
	if !cm.ShouldPrune(big, "") {
		t.Error("conversation over the token ceiling should prune")
	}
}

func TestPruneKeepsSystemAndRecent(t *testing.T) {
	cm := NewContextManager()
	msgs := makeConversation(40)

	pruned := cm.Prune(msgs, 0.5)

	if pruned[0].Role != "system" {
		t.Fatal("system message must survive pruning")
	}
	nonSystem := len(pruned) - 1
	if nonSystem != 20 {
		t.Errorf("expected 20 non-system messages after 50%% reduction, got %d", nonSystem)
	}
	// The tail is preserved in order.
	if pruned[len(pruned)-1].Content != "message 39" {
		t.Errorf("expected newest message last, got %q", pruned[len(pruned)-1].Content)
	}
}

func TestPruneFloorsAtPreserveRecent(t *testing.T) {
	cm := NewContextManager()
	msgs := makeConversation(12)

	pruned := cm.Prune(msgs, 0.9)

	nonSystem := len(pruned) - 1
	if nonSystem != cm.PreserveRecent {
		t.Errorf("expected floor of %d non-system messages, got %d", cm.PreserveRecent, nonSystem)
	}
}

func TestPruneNoOpWhenTargetNotSmaller(t *testing.T) {
	cm := NewContextManager()
	msgs := makeConversation(8)

	pruned := cm.Prune(msgs, 0.3)
	if len(pruned) != len(msgs) {
		t.Errorf("expected no-op when floor covers the whole tail, got %d of %d", len(pruned), len(msgs))
	}
}

func TestPruneIdempotent(t *testing.T) {
	cm := NewContextManager()
	msgs := makeConversation(40)

	once := cm.Prune(msgs, 0.5)
	twice := cm.Prune(once, 0.5)
	thrice := cm.Prune(twice, 0.5)

	// Repeated pruning converges at the PreserveRecent floor.
	if len(thrice) < cm.PreserveRecent {
		t.Errorf("pruning went below the floor: %d", len(thrice))
	}
	floor := cm.Prune(thrice, 0.5)
	if len(floor) != len(thrice) {
		t.Errorf("pruning at the floor should be a no-op: %d -> %d", len(thrice), len(floor))
	}
}

func TestPruneForErrorLevels(t *testing.T) {
	cm := NewContextManager()
	msgs := makeConversation(100)

	tokenPruned := cm.PruneForError(msgs, "too many tokens")
	contextPruned := cm.PruneForError(msgs, "context length exceeded")
	otherPruned := cm.PruneForError(msgs, "503 server error")

	if !(len(tokenPruned) < len(contextPruned) && len(contextPruned) < len(otherPruned)) {
		t.Errorf("expected token < context < other retention, got %d, %d, %d",
			len(tokenPruned), len(contextPruned), len(otherPruned))
	}
}

func TestAdaptivePruneWithSummary(t *testing.T) {
	cm := NewContextManager()
	msgs := makeConversation(60)

	result := cm.AdaptivePruneWithSummary(msgs, "maximum context length exceeded")

	if len(result) >= len(msgs) {
		t.Fatal("expected the conversation to shrink")
	}
	if result[0].Role != "system" || result[0].Content != "You are helpful." {
		t.Fatal("original system message must come first")
	}
	if result[1].Role != "system" || !strings.Contains(result[1].Content, "was summarized") {
		t.Fatalf("expected summary placeholder after system messages, got %+v", result[1])
	}

	// No pruning needed: input returned unchanged.
	small := makeConversation(4)
	if got := cm.AdaptivePruneWithSummary(small, ""); len(got) != len(small) {
		t.Errorf("expected unchanged conversation, got %d messages", len(got))
	}
}
