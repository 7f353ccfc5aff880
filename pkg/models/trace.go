package models

import "time"

// TraceVersion identifies the LLM trace envelope layout.
const TraceVersion = "v1"

// TracePrompt is the prompt side of an LLM trace event. Text and variables
// are redacted before the event leaves the process.
type TracePrompt struct {
	Text      string         `json:"text"`
	Tokens    int            `json:"tokens"`
	Template  string         `json:"template,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// TraceResponse is the response side of an LLM trace event.
type TraceResponse struct {
	Text         string `json:"text"`
	Tokens       int    `json:"tokens"`
	FinishReason string `json:"finish_reason,omitempty"`
	LatencyMs    int64  `json:"latency_ms"`
}

// LLMTrace is one agent invocation trace event. Emission is best-effort:
// losing a trace never changes a run's outcome.
type LLMTrace struct {
	TraceID      string         `json:"trace_id"`
	TraceVersion string         `json:"trace_version"`
	Timestamp    string         `json:"timestamp"`
	AgentID      string         `json:"agent_id"`
	IncidentID   string         `json:"incident_id"`
	ExecutionID  string         `json:"execution_id"`
	Model        string         `json:"model"`
	ModelVersion string         `json:"model_version,omitempty"`
	Prompt       TracePrompt    `json:"prompt"`
	Response     TraceResponse  `json:"response"`
	Cost         InvocationCost `json:"cost"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ViolationDetail describes what the guardrail flagged.
type ViolationDetail struct {
	Type       string  `json:"type"`
	Action     string  `json:"action"` // BLOCK | WARN
	Category   string  `json:"category,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ViolationContent carries the redacted surrounding content of a violation.
// DetectedText is always the literal "[REDACTED]"; the flagged span itself
// is never persisted.
type ViolationContent struct {
	Input            string `json:"input"`
	Output           string `json:"output,omitempty"`
	DetectedText     string `json:"detected_text"`
	InputRedactions  int    `json:"input_redactions"`
	OutputRedactions int    `json:"output_redactions"`
}

// ViolationResponse records how the invocation proceeded after the
// violation.
type ViolationResponse struct {
	Blocked      bool   `json:"blocked"`
	Message      string `json:"message,omitempty"`
	RetryAllowed bool   `json:"retry_allowed"`
}

// GuardrailViolation is one persisted guardrail event.
type GuardrailViolation struct {
	ViolationID string            `json:"violation_id"`
	Timestamp   string            `json:"timestamp"`
	TraceID     string            `json:"trace_id"`
	AgentID     string            `json:"agent_id"`
	IncidentID  string            `json:"incident_id"`
	ExecutionID string            `json:"execution_id"`
	Violation   ViolationDetail   `json:"violation"`
	Content     ViolationContent  `json:"content"`
	Response    ViolationResponse `json:"response"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// Recommendation is the persisted terminal output of a run.
type Recommendation struct {
	RecommendationID string         `json:"recommendation_id"`
	IncidentID       string         `json:"incident_id"`
	SessionID        string         `json:"session_id"`
	ExecutionID      string         `json:"execution_id"`
	Output           TerminalOutput `json:"output"`
	CreatedAt        time.Time      `json:"created_at"`
}
