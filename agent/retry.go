package agent

import (
	"context"
	"sync"
	"time"

	"github.com/akofink/textual-cli-agent/config"
)

// RetryController bounds automatic retries per logical operation. Each
// retryable call site uses a stable key; the controller tracks how many
// retries that key has consumed and refuses further retries past
// MaxRetries. Callers reset the key after a successful completion so a
// temporary burst of failures does not count against unrelated future
// calls.
//
// The controller is mutex-guarded: unlike the original single-threaded
// design, adapters here retry from their own stream goroutines.
type RetryController struct {
	mu         sync.Mutex
	counts     map[string]int
	maxRetries int
}

// NewRetryController returns a controller allowing up to 3 retries per key.
func NewRetryController() *RetryController {
	return &RetryController{
		counts:     make(map[string]int),
		maxRetries: 3,
	}
}

// MaxRetries returns the per-key retry cap.
func (rc *RetryController) MaxRetries() int {
	return rc.maxRetries
}

// Attempts returns the retries consumed so far for key.
func (rc *RetryController) Attempts(key string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.counts[key]
}

// Reset clears a key's retry counter. Call after a successful completion.
func (rc *RetryController) Reset(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.counts, key)
}

// HandleError decides whether the caller may retry after err. It returns
// the error's analysis and true when a retry is permitted, in which case
// the key's counter has been incremented and any suggested backoff wait has
// already elapsed (the wait aborts early if ctx is cancelled). It returns
// false when the error is terminal: not recoverable, not retryable, the
// key's retry budget is exhausted, or ctx was cancelled during backoff.
func (rc *RetryController) HandleError(ctx context.Context, err error, key string) (ErrorAnalysis, bool) {
	analysis := Analyze(err)

	if !analysis.IsRecoverable {
		rc.debugf("[Retry] Non-recoverable error for %s: %s", key, analysis.RecoveryMessage)
		return analysis, false
	}

	rc.mu.Lock()
	count := rc.counts[key]
	if count >= rc.maxRetries {
		rc.mu.Unlock()
		rc.debugf("[Retry] Max retries (%d) exceeded for %s", rc.maxRetries, key)
		return analysis, false
	}
	if !analysis.ShouldRetry {
		rc.mu.Unlock()
		rc.debugf("[Retry] Error should not be retried for %s: %s", key, analysis.RecoveryMessage)
		return analysis, false
	}
	rc.counts[key] = count + 1
	rc.mu.Unlock()

	rc.debugf("[Retry] Attempting retry %d/%d for %s: %s",
		count+1, rc.maxRetries, key, analysis.RecoveryMessage)

	if analysis.WaitSeconds > 0 {
		wait := time.Duration(analysis.WaitSeconds * float64(time.Second))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return analysis, false
		}
	}

	return analysis, true
}

func (rc *RetryController) debugf(format string, args ...any) {
	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf(format, args...)
	}
}
