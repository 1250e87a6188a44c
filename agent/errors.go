// Package agent implements the provider-agnostic agent core: the streaming
// run loop, concurrent tool dispatch, API error classification, retry
// control, and conversation context pruning.
//
// The package deliberately has no knowledge of any vendor wire protocol.
// Vendor adapters live in the provider package and talk to the engine
// exclusively through model.Provider and model.Event.
package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType is the closed taxonomy used by the API error classifier.
type ErrorType string

const (
	ErrorRateLimit       ErrorType = "rate_limit"
	ErrorTokenLimit      ErrorType = "token_limit"
	ErrorContextExceeded ErrorType = "context_exceeded"
	ErrorAuth            ErrorType = "auth_error"
	ErrorForbidden       ErrorType = "forbidden"
	ErrorValidation      ErrorType = "validation_error"
	ErrorServer          ErrorType = "server_error"
	ErrorNetwork         ErrorType = "network_error"
	ErrorUnknown         ErrorType = "unknown"
)

// ErrorAnalysis is the classifier's verdict on an API error: what category
// it falls into, whether recovery is possible, and which recovery levers
// (retry, context reduction, message pruning, backoff wait) apply.
type ErrorAnalysis struct {
	ErrorType           ErrorType
	IsRecoverable       bool
	ShouldRetry         bool
	ShouldReduceContext bool
	ShouldPruneMessages bool
	WaitSeconds         float64 // 0 means no wait suggested
	RecoveryMessage     string
}

var retryAfterPattern = regexp.MustCompile(`try again in (\d+)s`)

// Analyze classifies an API error from its string representation.
//
// Matching is heuristic, case-insensitive substring matching against known
// status codes and keywords, evaluated in a fixed precedence order (first
// match wins). A 429 rate-limit message that also mentions "context" is
// still rate_limit because the rate-limit rule fires first. Providers whose
// SDK errors carry a status code must include it in the error string for
// classification to work (the adapters in the provider package do).
func Analyze(err error) ErrorAnalysis {
	if err == nil {
		return unknownAnalysis("")
	}
	return AnalyzeString(err.Error())
}

// AnalyzeString is Analyze on a raw error string.
func AnalyzeString(errStr string) ErrorAnalysis {
	lower := strings.ToLower(errStr)

	// Rate limit (429)
	if strings.Contains(errStr, "429") && strings.Contains(lower, "rate_limit_exceeded") {
		return analyzeRateLimit(lower)
	}

	// Token limit reported as a 400
	if strings.Contains(errStr, "400") &&
		(strings.Contains(lower, "token") || strings.Contains(lower, "context")) {
		return ErrorAnalysis{
			ErrorType:           ErrorTokenLimit,
			IsRecoverable:       true,
			ShouldRetry:         true,
			ShouldReduceContext: true,
			ShouldPruneMessages: true,
			RecoveryMessage:     "Token limit exceeded. Reducing conversation history and retrying...",
		}
	}

	// Context window exceeded
	if (strings.Contains(lower, "context") && strings.Contains(lower, "window")) ||
		strings.Contains(lower, "maximum context length") {
		return ErrorAnalysis{
			ErrorType:           ErrorContextExceeded,
			IsRecoverable:       true,
			ShouldRetry:         true,
			ShouldReduceContext: true,
			ShouldPruneMessages: true,
			RecoveryMessage:     "Context window exceeded. Reducing message history and retrying...",
		}
	}

	// Other 4XX client errors
	if containsAny(errStr, "400", "401", "403", "404", "422", "429") {
		switch {
		case strings.Contains(errStr, "401"):
			return ErrorAnalysis{
				ErrorType:       ErrorAuth,
				RecoveryMessage: "Authentication failed. Please check your API key.",
			}
		case strings.Contains(errStr, "403"):
			return ErrorAnalysis{
				ErrorType:       ErrorForbidden,
				RecoveryMessage: "Access forbidden. Check API permissions or usage limits.",
			}
		case strings.Contains(errStr, "422"):
			return ErrorAnalysis{
				ErrorType:           ErrorValidation,
				IsRecoverable:       true,
				ShouldRetry:         false,
				ShouldReduceContext: true,
				ShouldPruneMessages: true,
				RecoveryMessage:     "Request validation failed. Attempting to fix request format...",
			}
		}
		// 400/404/429 without the keywords above fall through to the
		// remaining rules.
	}

	// 5XX server errors
	if containsAny(errStr, "500", "502", "503", "504") {
		return ErrorAnalysis{
			ErrorType:       ErrorServer,
			IsRecoverable:   true,
			ShouldRetry:     true,
			WaitSeconds:     5.0,
			RecoveryMessage: "Server error encountered. Retrying in 5 seconds...",
		}
	}

	// Network and timeout errors
	if containsAny(lower, "timeout", "connection", "network") {
		return ErrorAnalysis{
			ErrorType:       ErrorNetwork,
			IsRecoverable:   true,
			ShouldRetry:     true,
			WaitSeconds:     2.0,
			RecoveryMessage: "Network error. Retrying in 2 seconds...",
		}
	}

	return unknownAnalysis(errStr)
}

func analyzeRateLimit(lower string) ErrorAnalysis {
	wait := 60.0

	if m := retryAfterPattern.FindStringSubmatch(lower); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			wait = float64(secs)
		}
	} else if strings.Contains(lower, "tpm") || strings.Contains(lower, "tokens per min") {
		wait = 20.0
	} else if strings.Contains(lower, "rpm") || strings.Contains(lower, "requests per min") {
		wait = 60.0
	}

	// Token-based limits are the only rate limits where shrinking the
	// conversation helps.
	tokenBound := strings.Contains(lower, "tpm") || strings.Contains(lower, "tokens")

	return ErrorAnalysis{
		ErrorType:           ErrorRateLimit,
		IsRecoverable:       true,
		ShouldRetry:         true,
		ShouldReduceContext: tokenBound,
		ShouldPruneMessages: tokenBound,
		WaitSeconds:         wait,
		RecoveryMessage:     fmt.Sprintf("Rate limit exceeded. Waiting %gs before retrying...", wait),
	}
}

func unknownAnalysis(errStr string) ErrorAnalysis {
	return ErrorAnalysis{
		ErrorType:       ErrorUnknown,
		RecoveryMessage: "Unknown error: " + errStr,
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ShouldPruneContext reports whether pruning the conversation is the right
// recovery for this error.
func ShouldPruneContext(err error) bool {
	return Analyze(err).ShouldPruneMessages
}

// RecoveryMessage returns the user-facing recovery text for an error.
func RecoveryMessage(err error) string {
	return Analyze(err).RecoveryMessage
}
