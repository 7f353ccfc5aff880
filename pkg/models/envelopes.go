// Package models contains the orchestration state envelopes and
// request/response models shared across services.
//
// Envelope values are immutable by convention: they are created once by the
// node that owns them and never modified afterwards. Everything here must
// stay JSON-serializable because the whole graph state is checkpointed as a
// single blob between nodes.
package models

// Hypothesis status values.
const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusTimeout = "TIMEOUT"
	StatusFailure = "FAILURE"
)

// Execution trace status values.
const (
	TraceStarted   = "STARTED"
	TraceCompleted = "COMPLETED"
	TraceFailed    = "FAILED"
	TraceRetrying  = "RETRYING"
)

// SchemaVersion is stamped into every hypothesis replay_metadata block.
const SchemaVersion = "1.0.0"

// Disclaimer is the required marker for every hypothesis: agent findings are
// advisory input to consensus, never an authoritative verdict.
const Disclaimer = "HYPOTHESIS_ONLY_NOT_AUTHORITATIVE"

// FailureHash is the deterministic-hash placeholder for failure hypotheses.
const FailureHash = "FAILURE"

// AgentInput is the canonical input envelope. It is frozen at the entry node
// and the identical value is handed to every agent in the chain.
type AgentInput struct {
	IncidentID     string         `json:"incident_id"`
	EvidenceBundle map[string]any `json:"evidence_bundle"`
	Timestamp      string         `json:"timestamp"` // ISO-8601
	ExecutionID    string         `json:"execution_id"`
	SessionID      string         `json:"session_id"`
	Context        map[string]any `json:"context,omitempty"`
	ReplayMetadata map[string]any `json:"replay_metadata,omitempty"`
}

// InvocationCost is the per-invocation cost block carried on a hypothesis.
type InvocationCost struct {
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"` // USD
	Model         string  `json:"model"`
}

// ReplayMetadata carries the determinism stamp for a hypothesis.
type ReplayMetadata struct {
	DeterministicHash string `json:"deterministic_hash"`
	SchemaVersion     string `json:"schema_version"`
}

// Hypothesis is the canonical agent output envelope. A failed invocation
// still yields a Hypothesis (status FAILURE, confidence 0) so one agent's
// failure never stops the chain.
type Hypothesis struct {
	AgentID        string           `json:"agent_id"`
	AgentVersion   string           `json:"agent_version"`
	ExecutionID    string           `json:"execution_id"`
	Timestamp      string           `json:"timestamp"`
	Duration       int64            `json:"duration"` // milliseconds
	Status         string           `json:"status"`
	Confidence     float64          `json:"confidence"` // normalized [0,1]
	Reasoning      string           `json:"reasoning"`
	Disclaimer     string           `json:"disclaimer"`
	Findings       map[string]any   `json:"findings"`
	Citations      []map[string]any `json:"citations,omitempty"`
	Cost           InvocationCost   `json:"cost"`
	Error          map[string]any   `json:"error,omitempty"`
	ReplayMetadata ReplayMetadata   `json:"replay_metadata"`
}

// Succeeded reports whether the hypothesis carries usable findings.
func (h Hypothesis) Succeeded() bool {
	return h.Status != StatusFailure
}

// Conflict describes a detected divergence between hypotheses.
type Conflict struct {
	Agents      []string `json:"agents"`
	Type        string   `json:"conflict_type"` // ACTION_TYPE_DIVERGENCE | CONFIDENCE_DIVERGENCE
	Description string   `json:"description"`
	Resolution  string   `json:"resolution"`
}

// QualityMetrics summarizes evidence quality across the hypothesis set.
type QualityMetrics struct {
	DataCompleteness   float64 `json:"data_completeness"`
	CitationQuality    float64 `json:"citation_quality"`
	ReasoningCoherence float64 `json:"reasoning_coherence"`
}

// ConsensusResult is the consensus node output. Pure computation: the same
// hypothesis set always produces the same result (timestamp aside).
type ConsensusResult struct {
	AggregatedConfidence  float64        `json:"aggregated_confidence"`
	AgreementLevel        float64        `json:"agreement_level"`
	ConflictsDetected     []Conflict     `json:"conflicts_detected"`
	UnifiedRecommendation string         `json:"unified_recommendation"`
	MinorityOpinions      []string       `json:"minority_opinions"`
	QualityMetrics        QualityMetrics `json:"quality_metrics"`
	Timestamp             string         `json:"timestamp"`
}

// BudgetProjections extrapolates the incident cost forward using the current
// incident as the per-incident average.
type BudgetProjections struct {
	MonthlyBurn        float64 `json:"monthlyBurn"`        // USD/month
	IncidentsRemaining int     `json:"incidentsRemaining"` // at current cost
}

// AgentCost is one entry of the per-agent cost breakdown.
type AgentCost struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	Cost         float64 `json:"cost"`
	Model        string  `json:"model"`
}

// BudgetReport is the cost guardian output. Signal-only: budget_exceeded is
// advisory and never aborts a run.
type BudgetReport struct {
	TotalCost       float64              `json:"total_cost"`
	BudgetRemaining float64              `json:"budget_remaining"`
	BudgetExceeded  bool                 `json:"budget_exceeded"`
	PerAgentCost    map[string]AgentCost `json:"per_agent_cost"`
	Projections     BudgetProjections    `json:"projections"`
	Timestamp       string               `json:"timestamp"`
}

// StructuredError records one classified failure for the audit trail.
type StructuredError struct {
	AgentID      string         `json:"agent_id"`
	ErrorCode    ErrorCode      `json:"error_code"`
	Message      string         `json:"message"`
	Retryable    bool           `json:"retryable"`
	Timestamp    string         `json:"timestamp"`
	RetryAttempt int            `json:"retry_attempt"`
	Details      map[string]any `json:"details,omitempty"`
}

// TraceEntry is one audit-trail event. The trace is append-only.
type TraceEntry struct {
	NodeID     string         `json:"node_id"`
	Timestamp  string         `json:"timestamp"`
	DurationMs int64          `json:"duration_ms"`
	Status     string         `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
