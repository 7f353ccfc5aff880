package api

import "github.com/incident-ops/quorum/pkg/models"

// OrchestrateRequest is the POST /api/v1/incidents/orchestrate body.
type OrchestrateRequest struct {
	IncidentID      string         `json:"incident_id" binding:"required"`
	EvidenceBundle  map[string]any `json:"evidence_bundle" binding:"required"`
	Timestamp       string         `json:"timestamp,omitempty"`
	ExecutionID     string         `json:"execution_id,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
	BudgetRemaining *float64       `json:"budget_remaining,omitempty"`
}

// toEvent converts the request into the driver's invocation event.
func (r OrchestrateRequest) toEvent() models.InvocationEvent {
	return models.InvocationEvent{Detail: models.InvocationDetail{
		IncidentID:      r.IncidentID,
		EvidenceBundle:  r.EvidenceBundle,
		Timestamp:       r.Timestamp,
		ExecutionID:     r.ExecutionID,
		SessionID:       r.SessionID,
		Context:         r.Context,
		BudgetRemaining: r.BudgetRemaining,
	}}
}

// CheckpointSummary is one row of the checkpoint list response. The state
// blob is omitted; fetch a single checkpoint for the full snapshot.
type CheckpointSummary struct {
	CheckpointID string `json:"checkpoint_id"`
	NodeName     string `json:"node_name"`
	CreatedAt    string `json:"created_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
