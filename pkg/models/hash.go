package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// Round4 rounds to 4 decimal places, half away from zero. Used to normalize
// confidence before hashing so float noise below 1e-4 cannot change a hash.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round6 rounds to 6 decimal places, half away from zero. Canonical rounding
// for USD cost figures.
func Round6(v float64) float64 {
	return math.Round(v*1000000) / 1000000
}

// DeterministicHash computes the replay hash for a hypothesis: SHA-256 over
// the canonical JSON of the semantic payload. Only replay-stable fields
// participate: incident id, evidence bundle, execution id, rounded
// confidence, and findings. Timestamps, session ids, reasoning, disclaimers,
// citations and cost are excluded; they vary between runs without changing
// what the agent concluded.
//
// Canonical form is encoding/json output: object keys sorted (maps marshal
// in key order), no insignificant whitespace.
func DeterministicHash(input AgentInput, confidence float64, findings map[string]any) (string, error) {
	payload := map[string]any{
		"agent_input": map[string]any{
			"incident_id":     input.IncidentID,
			"evidence_bundle": input.EvidenceBundle,
			"execution_id":    input.ExecutionID,
		},
		"confidence": Round4(confidence),
		"findings":   findings,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize hash payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
