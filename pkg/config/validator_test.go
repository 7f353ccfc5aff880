package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig builds a fully valid Config for validator tests to mutate.
func validConfig(t *testing.T) *Config {
	t.Helper()
	agents := make(map[string]*AgentConfig)
	for id, builtin := range GetBuiltinConfig().Agents {
		agentCopy := builtin
		agentCopy.EndpointID = "AGT" + id
		agentCopy.AliasID = "ALIAS"
		agents[id] = &agentCopy
	}
	return &Config{
		Driver:          DefaultDriverConfig(),
		Guardian:        DefaultGuardianConfig(),
		Retention:       DefaultRetentionConfig(),
		Bedrock:         &BedrockConfig{Region: "us-east-1"},
		AgentRegistry:   NewAgentRegistry(agents),
		PricingRegistry: NewPricingRegistry(GetBuiltinConfig().Pricing, DefaultModel),
	}
}

func TestValidateAll_Valid(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, NewValidator(cfg).ValidateAll())
}

func TestValidateAgents_MissingEndpoint(t *testing.T) {
	cfg := validConfig(t)
	cfg.AgentRegistry = NewAgentRegistry(map[string]*AgentConfig{
		"signal-intelligence": {AliasID: "ALIAS"},
	})

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint_id")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "agent", verr.Component)
	assert.Equal(t, "signal-intelligence", verr.ID)
}

func TestValidateAgents_WeightOutOfRange(t *testing.T) {
	cfg := validConfig(t)
	bad := 1.5
	cfg.AgentRegistry = NewAgentRegistry(map[string]*AgentConfig{
		"signal-intelligence": {EndpointID: "A", AliasID: "B", Weight: &bad},
	})

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight")
}

func TestValidatePricing_DefaultModelUnpriced(t *testing.T) {
	cfg := validConfig(t)
	cfg.PricingRegistry = NewPricingRegistry(map[string]ModelPricing{
		"claude-3-haiku": {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	}, "claude-3-5-sonnet")

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default model")
}

func TestValidatePricing_NegativePrice(t *testing.T) {
	cfg := validConfig(t)
	cfg.PricingRegistry = NewPricingRegistry(map[string]ModelPricing{
		DefaultModel: {InputPer1K: -0.01, OutputPer1K: 0.015},
	}, DefaultModel)

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
}

func TestValidateDriver(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DriverConfig)
		errMsg string
	}{
		{
			name:   "negative max_retries",
			mutate: func(d *DriverConfig) { d.MaxRetries = -1 },
			errMsg: "max_retries",
		},
		{
			name:   "zero agent_timeout",
			mutate: func(d *DriverConfig) { d.AgentTimeout = 0 },
			errMsg: "agent_timeout",
		},
		{
			name:   "unknown checkpoint policy",
			mutate: func(d *DriverConfig) { d.CheckpointPolicy = "maybe" },
			errMsg: "checkpoint_policy",
		},
		{
			name:   "negative default budget",
			mutate: func(d *DriverConfig) { d.DefaultBudget = -1 },
			errMsg: "default_budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg.Driver)

			err := NewValidator(cfg).ValidateAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateGuardian(t *testing.T) {
	cfg := validConfig(t)
	cfg.Guardian.IncidentsPerDay = 0

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incidents_per_day")
}

func TestValidateRetention(t *testing.T) {
	cfg := validConfig(t)
	cfg.Retention.TraceRetentionDays = 0

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace_retention_days")

	cfg = validConfig(t)
	cfg.Retention.CleanupInterval = -time.Hour

	err = NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup_interval")
}

func TestCheckpointPolicy_IsValid(t *testing.T) {
	assert.True(t, CheckpointPolicyContinue.IsValid())
	assert.True(t, CheckpointPolicyAbort.IsValid())
	assert.False(t, CheckpointPolicy("").IsValid())
	assert.False(t, CheckpointPolicy("retry").IsValid())
}
