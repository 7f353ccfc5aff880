package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/incident-ops/quorum/pkg/models"
)

func TestClassify_InvocationErrorKeepsCode(t *testing.T) {
	err := NewInvocationError(models.ErrCodeGuardrailBlocked, "blocked", nil)
	assert.Equal(t, models.ErrCodeGuardrailBlocked, Classify(err))

	wrapped := fmt.Errorf("attempt failed: %w", err)
	assert.Equal(t, models.ErrCodeGuardrailBlocked, Classify(wrapped))
}

func TestClassify_ContextDeadline(t *testing.T) {
	assert.Equal(t, models.ErrCodeTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, models.ErrCodeTimeout,
		Classify(fmt.Errorf("call failed: %w", context.DeadlineExceeded)))
}

func TestClassify_APIErrorCodes(t *testing.T) {
	cases := map[string]models.ErrorCode{
		"ThrottlingException":         models.ErrCodeBedrockThrottling,
		"TooManyRequestsException":    models.ErrCodeBedrockThrottling,
		"ServiceUnavailableException": models.ErrCodeDataSourceUnavailable,
		"InternalServerException":     models.ErrCodeDataSourceUnavailable,
		"DependencyFailedException":   models.ErrCodeDataSourceUnavailable,
		"AccessDeniedException":       models.ErrCodeInternalError,
		"ValidationException":         models.ErrCodeInvalidInput,
		"ResourceNotFoundException":   models.ErrCodeInternalError,
		"SomethingNovelException":     models.ErrCodeUnknownError,
	}
	for code, expected := range cases {
		err := &apiError{code: code, message: "x"}
		assert.Equal(t, expected, Classify(err), "code %s", code)
	}
}

func TestClassify_UnknownError(t *testing.T) {
	assert.Equal(t, models.ErrCodeUnknownError, Classify(errors.New("boom")))
}

func TestClassify_RetryabilityMatchesTaxonomy(t *testing.T) {
	retryable := []models.ErrorCode{
		models.ErrCodeBedrockThrottling,
		models.ErrCodeDataSourceUnavailable,
		models.ErrCodeRateLimitExceeded,
		models.ErrCodeTimeout,
	}
	terminal := []models.ErrorCode{
		models.ErrCodeInvalidInput,
		models.ErrCodeSchemaValidationFailed,
		models.ErrCodeOutputValidationFailed,
		models.ErrCodeLowConfidence,
		models.ErrCodeBudgetExceeded,
		models.ErrCodeGuardrailBlocked,
		models.ErrCodeInternalError,
		models.ErrCodeUnknownError,
	}
	for _, code := range retryable {
		assert.True(t, code.Retryable(), "%s should be retryable", code)
	}
	for _, code := range terminal {
		assert.False(t, code.Retryable(), "%s should be terminal", code)
	}
}
