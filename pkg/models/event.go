package models

// InvocationDetail is the payload of an invocation event: the agent input
// fields plus the optional budget. Session and execution ids are synthesized
// deterministically when absent.
type InvocationDetail struct {
	IncidentID      string         `json:"incident_id"`
	EvidenceBundle  map[string]any `json:"evidence_bundle"`
	Timestamp       string         `json:"timestamp,omitempty"`
	ExecutionID     string         `json:"execution_id,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
	BudgetRemaining *float64       `json:"budget_remaining,omitempty"`
}

// InvocationEvent is the transport-neutral trigger for one orchestration run.
type InvocationEvent struct {
	Detail InvocationDetail `json:"detail"`
}
