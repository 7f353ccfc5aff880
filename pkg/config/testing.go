package config

import (
	"testing"
	"time"
)

// NewTestConfig returns a fully wired configuration for tests: all six
// built-in agents with synthetic endpoint identifiers, the built-in pricing
// table, and default driver/guardian/retention settings.
func NewTestConfig(t *testing.T) *Config {
	t.Helper()

	builtin := GetBuiltinConfig()
	agents := make(map[string]*AgentConfig, len(builtin.Agents))
	for id, agent := range builtin.Agents {
		agentCopy := agent
		agentCopy.EndpointID = "agent-" + id
		agentCopy.AliasID = "alias-1"
		agents[id] = &agentCopy
	}

	cfg := &Config{
		configDir:       t.TempDir(),
		Driver:          DefaultDriverConfig(),
		Guardian:        DefaultGuardianConfig(),
		Retention:       DefaultRetentionConfig(),
		Bedrock:         &BedrockConfig{Region: "us-east-1"},
		AgentRegistry:   NewAgentRegistry(agents),
		PricingRegistry: NewPricingRegistry(builtin.Pricing, DefaultModel),
	}
	cfg.Driver.AgentTimeout = 5 * time.Second
	return cfg
}
