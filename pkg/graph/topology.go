// Package graph executes the incident-response agent chain: a fixed linear
// topology from the entry node through the specialist agents to consensus and
// the cost guardian, with a checkpoint after every node.
package graph

import "github.com/incident-ops/quorum/pkg/models"

// Node ids of the fixed topology, in execution order.
const (
	NodeEntry              = "entry"
	NodeSignalIntelligence = "signal-intelligence"
	NodeHistoricalPattern  = "historical-pattern"
	NodeChangeIntelligence = "change-intelligence"
	NodeRiskBlastRadius    = "risk-blast-radius"
	NodeKnowledgeRAG       = "knowledge-rag"
	NodeResponseStrategy   = "response-strategy"
	NodeConsensus          = "consensus"
	NodeCostGuardian       = "cost-guardian"
)

// agentOrder is the fixed agent execution order. Agent node ids double as
// agent ids.
var agentOrder = []string{
	NodeSignalIntelligence,
	NodeHistoricalPattern,
	NodeChangeIntelligence,
	NodeRiskBlastRadius,
	NodeKnowledgeRAG,
	NodeResponseStrategy,
}

// nodeSequence fixes the checkpoint sequence number of every node, so
// checkpoint ids are stable across runs and resume attempts.
var nodeSequence = map[string]int{
	NodeEntry:              1,
	NodeSignalIntelligence: 2,
	NodeHistoricalPattern:  3,
	NodeChangeIntelligence: 4,
	NodeRiskBlastRadius:    5,
	NodeKnowledgeRAG:       6,
	NodeResponseStrategy:   7,
	NodeConsensus:          8,
	NodeCostGuardian:       9,
}

// AgentOrder returns the agent chain in execution order.
func AgentOrder() []string {
	return append([]string(nil), agentOrder...)
}

// nextNode derives the next node to execute from the state content alone.
// The derivation makes resume independent of which node name the checkpoint
// was recorded under: state is the single source of truth.
func nextNode(state models.GraphState) string {
	for _, agentID := range agentOrder {
		if _, ok := state.Hypotheses[agentID]; !ok {
			return agentID
		}
	}
	if state.Consensus == nil {
		return NodeConsensus
	}
	if state.CostGuardian == nil {
		return NodeCostGuardian
	}
	return ""
}
