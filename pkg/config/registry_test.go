package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentRegistry(t *testing.T) {
	w := 0.8
	reg := NewAgentRegistry(map[string]*AgentConfig{
		"signal-intelligence": {EndpointID: "A1", AliasID: "B1"},
		"custom-agent":        {EndpointID: "A2", AliasID: "B2", Weight: &w},
	})

	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Has("signal-intelligence"))
	assert.False(t, reg.Has("nope"))

	agent, err := reg.Get("signal-intelligence")
	require.NoError(t, err)
	assert.Equal(t, "A1", agent.EndpointID)

	_, err = reg.Get("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	assert.Equal(t, []string{"custom-agent", "signal-intelligence"}, reg.IDs())
}

func TestAgentRegistry_WeightTable(t *testing.T) {
	w := 0.95
	reg := NewAgentRegistry(map[string]*AgentConfig{
		"signal-intelligence": {EndpointID: "A1", AliasID: "B1"},           // built-in weight
		"historical-pattern":  {EndpointID: "A2", AliasID: "B2", Weight: &w}, // explicit override
		"custom-agent":        {EndpointID: "A3", AliasID: "B3"},           // outside built-in set
	})

	weights := reg.WeightTable()
	assert.Equal(t, 1.0, weights["signal-intelligence"])
	assert.Equal(t, 0.95, weights["historical-pattern"])
	assert.Equal(t, FallbackAgentWeight, weights["custom-agent"])
}

func TestPricingRegistry(t *testing.T) {
	reg := NewPricingRegistry(map[string]ModelPricing{
		"claude-3-5-sonnet": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-haiku":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	}, "claude-3-5-sonnet")

	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Has("claude-3-haiku"))
	assert.False(t, reg.Has("gpt-4o"))
	assert.Equal(t, "claude-3-5-sonnet", reg.DefaultModel())

	assert.Equal(t, 0.00025, reg.Get("claude-3-haiku").InputPer1K)
	// Unknown models get the default model's pricing
	assert.Equal(t, 0.003, reg.Get("gpt-4o").InputPer1K)
	assert.Equal(t, 0.015, reg.Get("gpt-4o").OutputPer1K)
}

func TestBuiltinConfig(t *testing.T) {
	builtin := GetBuiltinConfig()

	require.Len(t, builtin.Agents, 6)
	for _, id := range []string{
		"signal-intelligence", "historical-pattern", "change-intelligence",
		"risk-blast-radius", "knowledge-rag", "response-strategy",
	} {
		agent, ok := builtin.Agents[id]
		require.True(t, ok, id)
		require.NotNil(t, agent.Weight, id)
		assert.Equal(t, builtinWeights[id], *agent.Weight)
		assert.Equal(t, "1.0.0", agent.Version)
	}

	pricing, ok := builtin.Pricing[DefaultModel]
	require.True(t, ok)
	assert.Equal(t, 0.003, pricing.InputPer1K)
	assert.Equal(t, 0.015, pricing.OutputPer1K)
}
