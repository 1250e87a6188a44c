package agent

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryControllerAllowsUpToMax(t *testing.T) {
	rc := NewRetryController()
	ctx := context.Background()
	// No suggested wait, so retries return immediately.
	err := errors.New("request timeout")

	for i := 0; i < rc.MaxRetries(); i++ {
		analysis, ok := rc.HandleError(ctx, err, "op")
		if !ok {
			t.Fatalf("retry %d should be permitted", i+1)
		}
		if analysis.ErrorType != ErrorNetwork {
			t.Fatalf("expected network_error, got %s", analysis.ErrorType)
		}
	}

	if _, ok := rc.HandleError(ctx, err, "op"); ok {
		t.Error("retry past the cap should be refused")
	}
	if got := rc.Attempts("op"); got != rc.MaxRetries() {
		t.Errorf("attempts = %d, want %d", got, rc.MaxRetries())
	}
}

func TestRetryControllerResetClearsBudget(t *testing.T) {
	rc := NewRetryController()
	ctx := context.Background()
	err := errors.New("connection refused")

	for i := 0; i < rc.MaxRetries(); i++ {
		rc.HandleError(ctx, err, "op")
	}
	rc.Reset("op")

	if _, ok := rc.HandleError(ctx, err, "op"); !ok {
		t.Error("reset should restore the retry budget")
	}
}

func TestRetryControllerKeysAreIndependent(t *testing.T) {
	rc := NewRetryController()
	ctx := context.Background()
	err := errors.New("network unreachable")

	for i := 0; i < rc.MaxRetries(); i++ {
		rc.HandleError(ctx, err, "a")
	}
	if _, ok := rc.HandleError(ctx, err, "a"); ok {
		t.Error("key a should be exhausted")
	}
	if _, ok := rc.HandleError(ctx, err, "b"); !ok {
		t.Error("key b should still have budget")
	}
}

func TestRetryControllerRefusesNonRecoverable(t *testing.T) {
	rc := NewRetryController()
	ctx := context.Background()

	analysis, ok := rc.HandleError(ctx, errors.New("401 Unauthorized"), "op")
	if ok {
		t.Error("auth errors must not be retried")
	}
	if analysis.ErrorType != ErrorAuth {
		t.Errorf("expected auth_error, got %s", analysis.ErrorType)
	}
	if rc.Attempts("op") != 0 {
		t.Error("refused retries should not consume budget")
	}
}

func TestRetryControllerRefusesNoRetryAnalysis(t *testing.T) {
	rc := NewRetryController()
	ctx := context.Background()

	// 422 is recoverable (via pruning) but not blind-retryable.
	analysis, ok := rc.HandleError(ctx, errors.New("422 Unprocessable Entity"), "op")
	if ok {
		t.Error("validation errors must not be blind-retried")
	}
	if !analysis.IsRecoverable {
		t.Error("validation errors are recoverable")
	}
}

func TestRetryControllerAbortsWaitOnCancel(t *testing.T) {
	rc := NewRetryController()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	// Network errors suggest a 2 second wait; cancellation must cut it short.
	_, ok := rc.HandleError(ctx, errors.New("request timeout"), "op")
	if ok {
		t.Error("cancelled context should refuse the retry")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait did not abort on cancel, took %v", elapsed)
	}
}
