package config

import "sync"

// FallbackAgentWeight applies to agents outside the built-in weight table.
const FallbackAgentWeight = 0.5

// DefaultModel is assumed when an agent reports no model identifier.
const DefaultModel = "claude-3-5-sonnet"

// builtinWeights is the canonical consensus weight table. Signal telemetry
// outranks strategy suggestions.
var builtinWeights = map[string]float64{
	"signal-intelligence": 1.0,
	"historical-pattern":  0.9,
	"change-intelligence": 0.9,
	"risk-blast-radius":   0.8,
	"knowledge-rag":       0.7,
	"response-strategy":   0.6,
}

// BuiltinConfig holds all built-in configuration data: the six specialist
// agents, the pricing table, and system defaults. User YAML overrides these
// per field.
type BuiltinConfig struct {
	Agents  map[string]AgentConfig
	Pricing map[string]ModelPricing
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration
// (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Agents:  initBuiltinAgents(),
		Pricing: initBuiltinPricing(),
	}
}

func initBuiltinAgents() map[string]AgentConfig {
	agents := map[string]AgentConfig{
		"signal-intelligence": {
			Description: "Correlates metrics, logs and alarms into a fault signal",
		},
		"historical-pattern": {
			Description: "Matches the incident against past incident outcomes",
		},
		"change-intelligence": {
			Description: "Links the incident to recent deploys and config changes",
		},
		"risk-blast-radius": {
			Description: "Maps affected services and downstream exposure",
		},
		"knowledge-rag": {
			Description: "Retrieves runbook and postmortem knowledge",
		},
		"response-strategy": {
			Description: "Proposes the response plan from the other hypotheses",
		},
	}

	for id, agent := range agents {
		w := builtinWeights[id]
		agent.Weight = &w
		agent.Version = "1.0.0"
		agents[id] = agent
	}
	return agents
}

func initBuiltinPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		DefaultModel: {
			InputPer1K:  0.003,
			OutputPer1K: 0.015,
		},
	}
}
