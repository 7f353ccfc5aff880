package models

// RecommendationSummary is the operator-facing digest inside the terminal
// output.
type RecommendationSummary struct {
	Unified           string   `json:"unified"`
	Confidence        float64  `json:"confidence"`
	AgreementLevel    float64  `json:"agreement_level"`
	ConflictsDetected int      `json:"conflicts_detected"`
	MinorityOpinions  []string `json:"minority_opinions"`
}

// CostSummary is the budget digest inside the terminal output.
type CostSummary struct {
	Total           float64              `json:"total"`
	BudgetRemaining float64              `json:"budget_remaining"`
	Exceeded        bool                 `json:"exceeded"`
	PerAgent        map[string]AgentCost `json:"per_agent"`
	Projections     BudgetProjections    `json:"projections"`
}

// ExecutionSummary aggregates run statistics for the terminal output.
type ExecutionSummary struct {
	DurationMs      int64 `json:"duration_ms"`
	AgentsSucceeded int   `json:"agents_succeeded"`
	AgentsFailed    int   `json:"agents_failed"`
	TotalRetries    int   `json:"total_retries"`
	ErrorsCount     int   `json:"errors_count"`
}

// TerminalOutput is the complete result of one orchestration run. It is the
// response body of the orchestrate endpoint and the payload of the persisted
// recommendation record.
type TerminalOutput struct {
	IncidentID       string                `json:"incident_id"`
	Recommendation   RecommendationSummary `json:"recommendation"`
	AgentOutputs     map[string]Hypothesis `json:"agent_outputs"`
	Consensus        *ConsensusResult      `json:"consensus"`
	Cost             CostSummary           `json:"cost"`
	ExecutionSummary ExecutionSummary      `json:"execution_summary"`
	ExecutionTrace   []TraceEntry          `json:"execution_trace"`
	Errors           []StructuredError     `json:"errors"`
	Timestamp        string                `json:"timestamp"`
}
