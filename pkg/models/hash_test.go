package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput() AgentInput {
	return AgentInput{
		IncidentID: "INC-1001",
		EvidenceBundle: map[string]any{
			"alarms":  []any{"cpu-high", "latency-p99"},
			"service": "checkout",
		},
		Timestamp:   "2025-06-01T10:00:00Z",
		ExecutionID: "exec-INC-1001-1748772000",
		SessionID:   "sess-abc",
	}
}

func TestDeterministicHash_Stable(t *testing.T) {
	input := testInput()
	findings := map[string]any{"root_cause": "deploy", "severity": "high"}

	h1, err := DeterministicHash(input, 0.87, findings)
	require.NoError(t, err)
	h2, err := DeterministicHash(input, 0.87, findings)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "hex-encoded SHA-256")
}

func TestDeterministicHash_FindingsKeyOrderIrrelevant(t *testing.T) {
	input := testInput()
	a := map[string]any{"x": 1.0, "y": "z", "nested": map[string]any{"b": 2.0, "a": 1.0}}
	b := map[string]any{"nested": map[string]any{"a": 1.0, "b": 2.0}, "y": "z", "x": 1.0}

	ha, err := DeterministicHash(input, 0.5, a)
	require.NoError(t, err)
	hb, err := DeterministicHash(input, 0.5, b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb, "map insertion order must not change the hash")
}

func TestDeterministicHash_ConfidenceRounding(t *testing.T) {
	input := testInput()
	findings := map[string]any{"k": "v"}

	// Differences below the round4 threshold collapse to the same hash.
	h1, err := DeterministicHash(input, 0.12341, findings)
	require.NoError(t, err)
	h2, err := DeterministicHash(input, 0.12342, findings)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Differences at the fourth decimal do not.
	h3, err := DeterministicHash(input, 0.1234, findings)
	require.NoError(t, err)
	h4, err := DeterministicHash(input, 0.1236, findings)
	require.NoError(t, err)
	assert.NotEqual(t, h3, h4)
}

func TestDeterministicHash_ExcludesVolatileFields(t *testing.T) {
	findings := map[string]any{"k": "v"}

	a := testInput()
	b := testInput()
	b.Timestamp = "2030-01-01T00:00:00Z"
	b.SessionID = "another-session"

	ha, err := DeterministicHash(a, 0.7, findings)
	require.NoError(t, err)
	hb, err := DeterministicHash(b, 0.7, findings)
	require.NoError(t, err)

	assert.Equal(t, ha, hb, "timestamp and session id must not participate in the hash")
}

func TestDeterministicHash_SensitiveToSemanticFields(t *testing.T) {
	findings := map[string]any{"k": "v"}

	a := testInput()
	b := testInput()
	b.ExecutionID = "exec-other"

	ha, err := DeterministicHash(a, 0.7, findings)
	require.NoError(t, err)
	hb, err := DeterministicHash(b, 0.7, findings)
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.1235, Round4(0.12346))
	assert.Equal(t, 0.1234, Round4(0.12344))
	assert.Equal(t, 1.0, Round4(1.0))
	assert.Equal(t, -0.1235, Round4(-0.12346))
}

func TestRound6(t *testing.T) {
	assert.Equal(t, 0.000001, Round6(0.0000014))
	assert.Equal(t, 0.000002, Round6(0.0000016))
	assert.Equal(t, 0.003456, Round6(0.0034559))
}
