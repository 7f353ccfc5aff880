package models

import (
	"encoding/json"
	"fmt"
)

// GraphState is the complete orchestration state carried between nodes and
// serialized into every checkpoint.
//
// Rules:
//  1. Every field is JSON-serializable.
//  2. Nodes never mutate a received state; transitions go through the
//     With* helpers, which clone before writing.
//  3. budget_remaining is the single source of truth for budget.
//  4. hypotheses, execution_trace and errors only ever grow.
type GraphState struct {
	AgentInput      AgentInput            `json:"agent_input"`
	Hypotheses      map[string]Hypothesis `json:"hypotheses"`
	Consensus       *ConsensusResult      `json:"consensus,omitempty"`
	CostGuardian    *BudgetReport         `json:"cost_guardian,omitempty"`
	BudgetRemaining float64               `json:"budget_remaining"` // USD
	RetryCount      map[string]int        `json:"retry_count"`
	ExecutionTrace  []TraceEntry          `json:"execution_trace"`
	Errors          []StructuredError     `json:"errors"`
	SessionID       string                `json:"session_id"`
	StartTimestamp  string                `json:"start_timestamp"` // ISO-8601
}

// NewInitialState builds the state committed by the entry node.
func NewInitialState(input AgentInput, budgetRemaining float64) GraphState {
	return GraphState{
		AgentInput:      input,
		Hypotheses:      map[string]Hypothesis{},
		BudgetRemaining: budgetRemaining,
		RetryCount:      map[string]int{},
		ExecutionTrace:  []TraceEntry{},
		Errors:          []StructuredError{},
		SessionID:       input.SessionID,
		StartTimestamp:  input.Timestamp,
	}
}

// Clone returns a state value whose maps and slices are independent copies.
// Envelope values inside are treated as immutable and shared.
func (s GraphState) Clone() GraphState {
	out := s
	out.Hypotheses = make(map[string]Hypothesis, len(s.Hypotheses))
	for k, v := range s.Hypotheses {
		out.Hypotheses[k] = v
	}
	out.RetryCount = make(map[string]int, len(s.RetryCount))
	for k, v := range s.RetryCount {
		out.RetryCount[k] = v
	}
	out.ExecutionTrace = append([]TraceEntry(nil), s.ExecutionTrace...)
	out.Errors = append([]StructuredError(nil), s.Errors...)
	return out
}

// WithHypothesis commits an agent's hypothesis and returns the new state.
func (s GraphState) WithHypothesis(h Hypothesis) GraphState {
	out := s.Clone()
	out.Hypotheses[h.AgentID] = h
	return out
}

// WithTrace appends an execution trace entry and returns the new state.
func (s GraphState) WithTrace(entry TraceEntry) GraphState {
	out := s.Clone()
	out.ExecutionTrace = append(out.ExecutionTrace, entry)
	return out
}

// WithError appends a structured error and returns the new state.
func (s GraphState) WithError(e StructuredError) GraphState {
	out := s.Clone()
	out.Errors = append(out.Errors, e)
	return out
}

// WithRetry sets the retry counter for an agent and returns the new state.
func (s GraphState) WithRetry(agentID string, attempt int) GraphState {
	out := s.Clone()
	out.RetryCount[agentID] = attempt
	return out
}

// WithBudget sets budget_remaining and returns the new state.
func (s GraphState) WithBudget(remaining float64) GraphState {
	out := s.Clone()
	out.BudgetRemaining = remaining
	return out
}

// WithConsensus commits the consensus result and returns the new state.
func (s GraphState) WithConsensus(c ConsensusResult) GraphState {
	out := s.Clone()
	out.Consensus = &c
	return out
}

// WithCostGuardian commits the budget report and returns the new state.
func (s GraphState) WithCostGuardian(r BudgetReport) GraphState {
	out := s.Clone()
	out.CostGuardian = &r
	return out
}

// Marshal serializes the state for checkpointing.
func (s GraphState) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph state: %w", err)
	}
	return data, nil
}

// UnmarshalState restores a state from a checkpoint blob. Nil maps and
// slices are normalized so resumed states satisfy the same invariants as
// fresh ones.
func UnmarshalState(data []byte) (GraphState, error) {
	var s GraphState
	if err := json.Unmarshal(data, &s); err != nil {
		return GraphState{}, fmt.Errorf("failed to unmarshal graph state: %w", err)
	}
	if s.Hypotheses == nil {
		s.Hypotheses = map[string]Hypothesis{}
	}
	if s.RetryCount == nil {
		s.RetryCount = map[string]int{}
	}
	if s.ExecutionTrace == nil {
		s.ExecutionTrace = []TraceEntry{}
	}
	if s.Errors == nil {
		s.Errors = []StructuredError{}
	}
	return s, nil
}
