package agent

import (
	"fmt"
	"math"
	"strings"

	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// ContextManager decides whether and how aggressively to shrink a
// conversation when it approaches provider limits. System messages are
// always retained verbatim; pruning removes the oldest non-system messages
// and preserves a tail of recent turns.
type ContextManager struct {
	// MaxContextMessages is the message-count ceiling before pruning kicks in.
	MaxContextMessages int

	// PreserveRecent is the minimum number of recent non-system messages
	// a prune always keeps.
	PreserveRecent int

	// TokenCeiling is the estimated-token threshold before pruning kicks in.
	TokenCeiling int
}

// NewContextManager returns a ContextManager with the default thresholds:
// 50 messages, 10 preserved recent messages, 50k estimated tokens.
func NewContextManager() *ContextManager {
	return &ContextManager{
		MaxContextMessages: 50,
		PreserveRecent:     10,
		TokenCeiling:       50000,
	}
}

// EstimateTokens gives a rough token count for a message list. Text
// contributes one token per four characters; each tool call carries a flat
// 50-token overhead plus its serialized arguments at the same ratio.
func (cm *ContextManager) EstimateTokens(messages []model.Message) int {
	total := 0
	for _, msg := range messages {
		if len(msg.Blocks) > 0 {
			for _, b := range msg.Blocks {
				if b.Type == model.BlockText {
					total += len(b.Text) / 4
				}
			}
		} else {
			total += len(msg.Content) / 4
		}

		for _, tc := range msg.ToolCalls {
			total += 50
			total += len(string(tc.Function.Arguments)) / 4
		}
	}
	return total
}

var pruneKeywords = []string{"context", "token", "too large", "maximum context length", "limit"}

// ShouldPrune reports whether the conversation should be pruned, based on
// an error's text (context/token keywords), the message count, or the
// estimated token footprint.
func (cm *ContextManager) ShouldPrune(messages []model.Message, errText string) bool {
	lower := strings.ToLower(errText)
	for _, kw := range pruneKeywords {
		if lower != "" && strings.Contains(lower, kw) {
			return true
		}
	}

	if len(messages) > cm.MaxContextMessages {
		return true
	}

	return cm.EstimateTokens(messages) > cm.TokenCeiling
}

// Prune shrinks the conversation by targetReduction (0..1), keeping all
// system messages and the most recent non-system messages. It never keeps
// fewer than PreserveRecent non-system messages and is a no-op when the
// target would not remove anything.
func (cm *ContextManager) Prune(messages []model.Message, targetReduction float64) []model.Message {
	if len(messages) == 0 {
		return messages
	}

	var system, rest []model.Message
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	if len(rest) == 0 {
		return messages
	}

	targetCount := int(math.Round(float64(len(rest)) * (1.0 - targetReduction)))
	if targetCount < cm.PreserveRecent {
		targetCount = cm.PreserveRecent
	}
	if targetCount >= len(rest) {
		return messages
	}

	kept := rest[len(rest)-targetCount:]
	result := make([]model.Message, 0, len(system)+len(kept))
	result = append(result, system...)
	result = append(result, kept...)

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Context] Pruned %d -> %d messages (reduction %.0f%%)",
			len(messages), len(result), targetReduction*100)
	}

	return result
}

// PruneForError picks a reduction level from the error text: aggressive for
// token/size limits, moderate for context limits, conservative otherwise.
func (cm *ContextManager) PruneForError(messages []model.Message, errText string) []model.Message {
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "token") || strings.Contains(lower, "too large"):
		return cm.Prune(messages, 0.7)
	case strings.Contains(lower, "context"):
		return cm.Prune(messages, 0.5)
	default:
		return cm.Prune(messages, 0.3)
	}
}

// summaryMessage builds the synthetic system message inserted in place of
// removed history.
func (cm *ContextManager) summaryMessage(messages []model.Message) model.Message {
	nonSystem := 0
	for _, msg := range messages {
		if msg.Role != "system" {
			nonSystem++
		}
	}
	return model.Message{
		Role: "system",
		Content: fmt.Sprintf("[Previous conversation context with %d messages was summarized "+
			"to manage token limits. Key points from the conversation are preserved in this session.]",
			nonSystem),
	}
}

// AdaptivePruneWithSummary prunes when ShouldPrune says so and inserts a
// summary placeholder immediately after any system messages, before the
// retained conversation tail. Returns the input unchanged when no pruning
// is needed.
func (cm *ContextManager) AdaptivePruneWithSummary(messages []model.Message, errText string) []model.Message {
	if !cm.ShouldPrune(messages, errText) {
		return messages
	}

	summary := cm.summaryMessage(messages)
	pruned := cm.PruneForError(messages, errText)

	var system, rest []model.Message
	for _, msg := range pruned {
		if msg.Role == "system" {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	result := make([]model.Message, 0, len(pruned)+1)
	result = append(result, system...)
	result = append(result, summary)
	result = append(result, rest...)
	return result
}
