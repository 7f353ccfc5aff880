package models

import "time"

// ErrorCode is a canonical failure classification. Every invocation failure
// maps onto exactly one code; the code alone decides retryability.
type ErrorCode string

// Canonical error codes. The first group is retryable (transient upstream
// conditions); the second is terminal for the attempt.
const (
	ErrCodeBedrockThrottling     ErrorCode = "BEDROCK_THROTTLING"
	ErrCodeDataSourceUnavailable ErrorCode = "DATA_SOURCE_UNAVAILABLE"
	ErrCodeRateLimitExceeded     ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeTimeout               ErrorCode = "TIMEOUT"

	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"
	ErrCodeSchemaValidationFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeOutputValidationFailed ErrorCode = "OUTPUT_VALIDATION_FAILED"
	ErrCodeLowConfidence          ErrorCode = "LOW_CONFIDENCE"
	ErrCodeBudgetExceeded         ErrorCode = "BUDGET_EXCEEDED"
	ErrCodeGuardrailBlocked       ErrorCode = "GUARDRAIL_BLOCKED"
	ErrCodeInternalError          ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnknownError           ErrorCode = "UNKNOWN_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeBedrockThrottling:     true,
	ErrCodeDataSourceUnavailable: true,
	ErrCodeRateLimitExceeded:     true,
	ErrCodeTimeout:               true,
}

// Retryable reports whether the code represents a transient condition.
func (c ErrorCode) Retryable() bool {
	return retryableCodes[c]
}

// NewStructuredError builds a StructuredError stamped with the current time.
func NewStructuredError(agentID string, code ErrorCode, message string, attempt int) StructuredError {
	return StructuredError{
		AgentID:      agentID,
		ErrorCode:    code,
		Message:      message,
		Retryable:    code.Retryable(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		RetryAttempt: attempt,
	}
}
