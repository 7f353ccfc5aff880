package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitialState(t *testing.T) {
	input := testInput()
	state := NewInitialState(input, 25.0)

	assert.Equal(t, input, state.AgentInput)
	assert.Empty(t, state.Hypotheses)
	assert.Empty(t, state.ExecutionTrace)
	assert.Empty(t, state.Errors)
	assert.Equal(t, 25.0, state.BudgetRemaining)
	assert.Equal(t, input.SessionID, state.SessionID)
	assert.Equal(t, input.Timestamp, state.StartTimestamp)
}

func TestGraphState_FunctionalUpdates(t *testing.T) {
	state := NewInitialState(testInput(), 25.0)

	h := Hypothesis{AgentID: "signal-intelligence", Status: StatusSuccess, Confidence: 0.8}
	next := state.WithHypothesis(h)

	// Original untouched
	assert.Empty(t, state.Hypotheses)
	assert.Len(t, next.Hypotheses, 1)
	assert.Equal(t, h, next.Hypotheses["signal-intelligence"])

	withTrace := next.WithTrace(TraceEntry{NodeID: "signal-intelligence", Status: TraceCompleted})
	assert.Empty(t, state.ExecutionTrace)
	assert.Len(t, next.ExecutionTrace, 0)
	assert.Len(t, withTrace.ExecutionTrace, 1)

	withErr := withTrace.WithError(NewStructuredError("historical-pattern", ErrCodeTimeout, "deadline exceeded", 1))
	assert.Len(t, withTrace.Errors, 0)
	assert.Len(t, withErr.Errors, 1)
	assert.True(t, withErr.Errors[0].Retryable)

	withRetry := withErr.WithRetry("historical-pattern", 2)
	assert.Equal(t, 0, withErr.RetryCount["historical-pattern"])
	assert.Equal(t, 2, withRetry.RetryCount["historical-pattern"])

	withBudget := withRetry.WithBudget(24.5)
	assert.Equal(t, 25.0, withRetry.BudgetRemaining)
	assert.Equal(t, 24.5, withBudget.BudgetRemaining)
}

func TestGraphState_CloneIndependence(t *testing.T) {
	state := NewInitialState(testInput(), 10.0)
	state = state.WithHypothesis(Hypothesis{AgentID: "a", Confidence: 0.5})

	clone := state.Clone()
	clone.Hypotheses["b"] = Hypothesis{AgentID: "b"}
	clone.RetryCount["a"] = 9
	clone.ExecutionTrace = append(clone.ExecutionTrace, TraceEntry{NodeID: "x"})

	assert.Len(t, state.Hypotheses, 1)
	assert.NotContains(t, state.Hypotheses, "b")
	assert.Zero(t, state.RetryCount["a"])
	assert.Empty(t, state.ExecutionTrace)
}

func TestGraphState_MarshalRoundTrip(t *testing.T) {
	state := NewInitialState(testInput(), 25.0)
	state = state.WithHypothesis(Hypothesis{
		AgentID:    "signal-intelligence",
		Status:     StatusSuccess,
		Confidence: 0.91,
		Findings:   map[string]any{"root_cause": "deploy"},
		Disclaimer: Disclaimer,
		Cost:       InvocationCost{InputTokens: 100, OutputTokens: 50, EstimatedCost: 0.00105, Model: "claude-3-5-sonnet"},
	})
	state = state.WithTrace(TraceEntry{NodeID: "ENTRY", Status: TraceCompleted})
	state = state.WithConsensus(ConsensusResult{AggregatedConfidence: 0.91, AgreementLevel: 1.0})

	blob, err := state.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalState(blob)
	require.NoError(t, err)

	assert.Equal(t, state.SessionID, restored.SessionID)
	assert.Equal(t, state.BudgetRemaining, restored.BudgetRemaining)
	assert.Equal(t, state.Hypotheses["signal-intelligence"].Confidence, restored.Hypotheses["signal-intelligence"].Confidence)
	require.NotNil(t, restored.Consensus)
	assert.Equal(t, 0.91, restored.Consensus.AggregatedConfidence)
	assert.Len(t, restored.ExecutionTrace, 1)
}

func TestUnmarshalState_NormalizesNilCollections(t *testing.T) {
	restored, err := UnmarshalState([]byte(`{"session_id":"s","budget_remaining":1}`))
	require.NoError(t, err)

	assert.NotNil(t, restored.Hypotheses)
	assert.NotNil(t, restored.RetryCount)
	assert.NotNil(t, restored.ExecutionTrace)
	assert.NotNil(t, restored.Errors)
}

func TestUnmarshalState_RejectsGarbage(t *testing.T) {
	_, err := UnmarshalState([]byte(`not json`))
	assert.Error(t, err)
}

func TestErrorCode_Retryable(t *testing.T) {
	retryable := []ErrorCode{
		ErrCodeBedrockThrottling,
		ErrCodeDataSourceUnavailable,
		ErrCodeRateLimitExceeded,
		ErrCodeTimeout,
	}
	for _, code := range retryable {
		assert.True(t, code.Retryable(), string(code))
	}

	terminal := []ErrorCode{
		ErrCodeInvalidInput,
		ErrCodeSchemaValidationFailed,
		ErrCodeOutputValidationFailed,
		ErrCodeLowConfidence,
		ErrCodeBudgetExceeded,
		ErrCodeGuardrailBlocked,
		ErrCodeInternalError,
		ErrCodeUnknownError,
	}
	for _, code := range terminal {
		assert.False(t, code.Retryable(), string(code))
	}
}
