package provider

import (
	"context"
	"fmt"

	"github.com/akofink/textual-cli-agent/agent"
	"github.com/akofink/textual-cli-agent/config"
	"github.com/akofink/textual-cli-agent/model"
)

// maxContextRetries bounds how many times one request may be re-sent
// with a pruned transcript before the error is surfaced.
const maxContextRetries = 2

// recoverer wraps one provider's API call with the shared recovery
// policy: classify the failure, wait and retry transient errors, prune
// the transcript on context overflows, and give up with an "[ERROR]"
// event once the budgets are spent.
//
// Emitted status lines:
//   - "[RECOVERY] ..." before each retry attempt
//   - "[ERROR] API call failed: ..." when recovery is exhausted
type recoverer struct {
	retries    *agent.RetryController
	contextMgr *agent.ContextManager
}

func newRecoverer() *recoverer {
	return &recoverer{
		retries:    agent.NewRetryController(),
		contextMgr: agent.NewContextManager(),
	}
}

// run calls attempt until it succeeds or recovery is exhausted. attempt
// receives the (possibly pruned) message slice for that try and must
// be safe to call repeatedly.
func (r *recoverer) run(ctx context.Context, key string, messages []model.Message, out chan<- model.Event, attempt func([]model.Message) error) {
	msgs := messages
	contextRetries := 0

	for {
		err := attempt(msgs)
		if err == nil {
			r.retries.Reset(key)
			return
		}

		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Recovery] %s attempt failed: %v", key, err)
		}

		analysis := agent.Analyze(err)

		if analysis.ShouldPruneMessages && contextRetries < maxContextRetries {
			contextRetries++
			msgs = r.contextMgr.AdaptivePruneWithSummary(msgs, err.Error())
			out <- model.TextEvent("[RECOVERY] " + analysis.RecoveryMessage + "\n")
			continue
		}

		if _, retry := r.retries.HandleError(ctx, err, key); retry {
			out <- model.TextEvent("[RECOVERY] " + analysis.RecoveryMessage + "\n")
			continue
		}

		out <- model.TextEvent(fmt.Sprintf("[ERROR] API call failed: %v", err))
		return
	}
}
