// Package config provides configuration management for the quorum
// orchestrator: agent endpoints, consensus weights, model pricing, driver
// behavior, and retention policy.
package config

import (
	"fmt"
	"sort"
	"sync"
)

// AgentConfig defines one specialist agent: the endpoint pair it answers at,
// the version stamped into its hypotheses, and its consensus weight.
type AgentConfig struct {
	// EndpointID is the remote agent id (Bedrock agent id).
	EndpointID string `yaml:"endpoint_id"`

	// AliasID selects the published endpoint alias.
	AliasID string `yaml:"alias_id"`

	// Version is reported as agent_version in every hypothesis.
	Version string `yaml:"version,omitempty"`

	// Weight is the agent's consensus weight. Nil means the built-in weight
	// (or the 0.5 fallback for agents outside the built-in set).
	Weight *float64 `yaml:"weight,omitempty"`

	// Description is human-readable, for logs and docs.
	Description string `yaml:"description,omitempty"`
}

// AgentRegistry stores agent configurations in memory with thread-safe access.
type AgentRegistry struct {
	agents map[string]*AgentConfig
	mu     sync.RWMutex
}

// NewAgentRegistry creates a new agent registry.
func NewAgentRegistry(agents map[string]*AgentConfig) *AgentRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*AgentConfig, len(agents))
	for k, v := range agents {
		copied[k] = v
	}
	return &AgentRegistry{
		agents: copied,
	}
}

// Get retrieves an agent configuration by id (thread-safe).
func (r *AgentRegistry) Get(agentID string) (*AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[agentID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	return agent, nil
}

// GetAll returns all agent configurations (thread-safe, returns copy).
func (r *AgentRegistry) GetAll() map[string]*AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*AgentConfig, len(r.agents))
	for k, v := range r.agents {
		result[k] = v
	}
	return result
}

// Has checks if an agent exists in the registry (thread-safe).
func (r *AgentRegistry) Has(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.agents[agentID]
	return exists
}

// Len returns the number of agents in the registry (thread-safe).
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// IDs returns all agent ids in sorted order.
func (r *AgentRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WeightTable returns the consensus weight for every registered agent,
// falling back to the built-in weight where the entry leaves it unset.
func (r *AgentRegistry) WeightTable() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	weights := make(map[string]float64, len(r.agents))
	for id, agent := range r.agents {
		if agent.Weight != nil {
			weights[id] = *agent.Weight
			continue
		}
		if w, ok := builtinWeights[id]; ok {
			weights[id] = w
		} else {
			weights[id] = FallbackAgentWeight
		}
	}
	return weights
}
