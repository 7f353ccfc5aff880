package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfigDir writes a minimal valid quorum.yaml giving every
// built-in agent an endpoint pair.
func setupTestConfigDir(t *testing.T) string {
	t.Helper()
	configDir := t.TempDir()

	quorumYAML := `
system:
  bedrock:
    region: us-east-1
    guardrail:
      id: gr-test
      version: "1"

agents:
  signal-intelligence:
    endpoint_id: AGT1SIGNAL
    alias_id: TSTALIASID
  historical-pattern:
    endpoint_id: AGT2HIST
    alias_id: TSTALIASID
  change-intelligence:
    endpoint_id: AGT3CHANGE
    alias_id: TSTALIASID
  risk-blast-radius:
    endpoint_id: AGT4RISK
    alias_id: TSTALIASID
  knowledge-rag:
    endpoint_id: AGT5RAG
    alias_id: TSTALIASID
  response-strategy:
    endpoint_id: AGT6STRAT
    alias_id: TSTALIASID
`
	err := os.WriteFile(filepath.Join(configDir, "quorum.yaml"), []byte(quorumYAML), 0644)
	require.NoError(t, err)

	return configDir
}

func TestInitialize(t *testing.T) {
	configDir := setupTestConfigDir(t)

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.NotNil(t, cfg.AgentRegistry)
	assert.NotNil(t, cfg.PricingRegistry)
	assert.NotNil(t, cfg.Driver)
	assert.NotNil(t, cfg.Guardian)
	assert.NotNil(t, cfg.Retention)

	// Built-in agents are present with their weights intact
	assert.True(t, cfg.AgentRegistry.Has("signal-intelligence"))
	weights := cfg.Weights()
	assert.Equal(t, 1.0, weights["signal-intelligence"])
	assert.Equal(t, 0.6, weights["response-strategy"])

	// Endpoint ids came from user YAML
	agent, err := cfg.GetAgent("signal-intelligence")
	require.NoError(t, err)
	assert.Equal(t, "AGT1SIGNAL", agent.EndpointID)

	// Default model is priced out of the box
	pricing := cfg.Pricing("claude-3-5-sonnet")
	assert.Equal(t, 0.003, pricing.InputPer1K)
	assert.Equal(t, 0.015, pricing.OutputPer1K)

	// Driver defaults applied
	assert.Equal(t, 2, cfg.Driver.MaxRetries)
	assert.Equal(t, CheckpointPolicyContinue, cfg.Driver.CheckpointPolicy)
	assert.Equal(t, 5.0, cfg.Driver.DefaultBudget)

	// Guardrail settings resolved
	assert.Equal(t, "gr-test", cfg.Bedrock.GuardrailID())
	assert.Equal(t, "1", cfg.Bedrock.GuardrailVersion())
	assert.True(t, cfg.Bedrock.TraceEnabled())

	stats := cfg.Stats()
	assert.Equal(t, 6, stats.Agents)
	assert.Greater(t, stats.PricedModels, 0)
}

func TestInitializeConfigNotFound(t *testing.T) {
	ctx := context.Background()
	_, err := Initialize(ctx, "/nonexistent/directory")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitializeInvalidYAML(t *testing.T) {
	configDir := t.TempDir()

	invalidYAML := `agents: [not: a: map`
	err := os.WriteFile(filepath.Join(configDir, "quorum.yaml"), []byte(invalidYAML), 0644)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = Initialize(ctx, configDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitializeValidationFailure(t *testing.T) {
	configDir := t.TempDir()

	// No endpoint ids anywhere: the built-in agents cannot pass validation.
	err := os.WriteFile(filepath.Join(configDir, "quorum.yaml"), []byte("agents: {}\n"), 0644)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = Initialize(ctx, configDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "endpoint_id")
}

func TestInitializeEnvExpansion(t *testing.T) {
	configDir := setupTestConfigDir(t)
	t.Setenv("QUORUM_GUARDRAIL_ID", "gr-from-env")

	quorumYAML := `
system:
  bedrock:
    region: us-east-1
    guardrail:
      id: "{{.QUORUM_GUARDRAIL_ID}}"
      version: "2"

agents:
  signal-intelligence: {endpoint_id: A1, alias_id: B1}
  historical-pattern: {endpoint_id: A2, alias_id: B2}
  change-intelligence: {endpoint_id: A3, alias_id: B3}
  risk-blast-radius: {endpoint_id: A4, alias_id: B4}
  knowledge-rag: {endpoint_id: A5, alias_id: B5}
  response-strategy: {endpoint_id: A6, alias_id: B6}
`
	err := os.WriteFile(filepath.Join(configDir, "quorum.yaml"), []byte(quorumYAML), 0644)
	require.NoError(t, err)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)
	assert.Equal(t, "gr-from-env", cfg.Bedrock.GuardrailID())
}

func TestInitializeDriverOverride(t *testing.T) {
	configDir := setupTestConfigDir(t)

	driverYAML := `
driver:
  max_retries: 1
  checkpoint_policy: abort
`
	// Append to the valid base config
	base, err := os.ReadFile(filepath.Join(configDir, "quorum.yaml"))
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(configDir, "quorum.yaml"), append(base, []byte(driverYAML)...), 0644)
	require.NoError(t, err)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Driver.MaxRetries)
	assert.Equal(t, CheckpointPolicyAbort, cfg.Driver.CheckpointPolicy)
	// Fields the user left unset keep their defaults
	assert.Equal(t, 60*time.Second, cfg.Driver.AgentTimeout)
	assert.Equal(t, 5.0, cfg.Driver.DefaultBudget)
}

func TestInitializePricingOverride(t *testing.T) {
	configDir := setupTestConfigDir(t)

	pricingYAML := `
default_model: claude-3-5-sonnet
models:
  claude-3-5-sonnet:
    input_per_1k: 0.004
    output_per_1k: 0.020
  claude-3-haiku:
    input_per_1k: 0.00025
    output_per_1k: 0.00125
`
	err := os.WriteFile(filepath.Join(configDir, "pricing.yaml"), []byte(pricingYAML), 0644)
	require.NoError(t, err)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)

	assert.Equal(t, 0.004, cfg.Pricing("claude-3-5-sonnet").InputPer1K)
	assert.Equal(t, 0.00025, cfg.Pricing("claude-3-haiku").InputPer1K)
	// Unknown models fall back to the default model's pricing
	assert.Equal(t, 0.004, cfg.Pricing("some-unknown-model").InputPer1K)
}

func TestInitializeRetentionOverride(t *testing.T) {
	configDir := setupTestConfigDir(t)

	retentionYAML := `
system:
  retention:
    checkpoint_retention_days: 30
    cleanup_interval: 1h
  bedrock:
    region: us-east-1
agents:
  signal-intelligence: {endpoint_id: A1, alias_id: B1}
  historical-pattern: {endpoint_id: A2, alias_id: B2}
  change-intelligence: {endpoint_id: A3, alias_id: B3}
  risk-blast-radius: {endpoint_id: A4, alias_id: B4}
  knowledge-rag: {endpoint_id: A5, alias_id: B5}
  response-strategy: {endpoint_id: A6, alias_id: B6}
`
	err := os.WriteFile(filepath.Join(configDir, "quorum.yaml"), []byte(retentionYAML), 0644)
	require.NoError(t, err)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Retention.CheckpointRetentionDays)
	assert.Equal(t, time.Hour, cfg.Retention.CleanupInterval)
	// Unset fields keep defaults
	assert.Equal(t, 90, cfg.Retention.TraceRetentionDays)
	assert.Equal(t, 90, cfg.Retention.RecommendationRetentionDays)
}
