package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// QuorumYAMLConfig represents the complete quorum.yaml file structure.
type QuorumYAMLConfig struct {
	System   *SystemYAMLConfig      `yaml:"system"`
	Agents   map[string]AgentConfig `yaml:"agents"`
	Driver   *DriverConfig          `yaml:"driver"`
	Guardian *GuardianConfig        `yaml:"guardian"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	Bedrock   *BedrockConfig   `yaml:"bedrock"`
	Retention *RetentionConfig `yaml:"retention"`
}

// PricingYAMLConfig represents the complete pricing.yaml file structure.
type PricingYAMLConfig struct {
	DefaultModel string                  `yaml:"default_model"`
	Models       map[string]ModelPricing `yaml:"models"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined configurations
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"agents", stats.Agents,
		"priced_models", stats.PricedModels)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	// 1. Load quorum.yaml (agents, driver, guardian, system)
	quorumConfig, err := loader.loadQuorumYAML()
	if err != nil {
		return nil, NewLoadError("quorum.yaml", err)
	}

	// 2. Load pricing.yaml (optional; built-in table covers the default
	// model)
	pricing, err := loader.loadPricingYAML()
	if err != nil {
		return nil, NewLoadError("pricing.yaml", err)
	}

	// 3. Get built-in configuration
	builtin := GetBuiltinConfig()

	// 4. Merge built-in + user-defined components
	agents, err := mergeAgents(builtin.Agents, quorumConfig.Agents)
	if err != nil {
		return nil, fmt.Errorf("failed to merge agent config: %w", err)
	}
	models := mergePricing(builtin.Pricing, pricing.Models)
	defaultModel := pricing.DefaultModel
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	// 5. Build registries
	agentRegistry := NewAgentRegistry(agents)
	pricingRegistry := NewPricingRegistry(models, defaultModel)

	// 6. Resolve driver config (merge user YAML into built-in defaults so
	// unset fields keep their defaults)
	driverConfig := DefaultDriverConfig()
	if quorumConfig.Driver != nil {
		if err := mergo.Merge(driverConfig, quorumConfig.Driver, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge driver config: %w", err)
		}
	}

	guardianConfig := DefaultGuardianConfig()
	if quorumConfig.Guardian != nil {
		if err := mergo.Merge(guardianConfig, quorumConfig.Guardian, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge guardian config: %w", err)
		}
	}

	// 7. Resolve system config
	retentionCfg := resolveRetentionConfig(quorumConfig.System)
	bedrockCfg := resolveBedrockConfig(quorumConfig.System)

	return &Config{
		configDir:       configDir,
		Driver:          driverConfig,
		Guardian:        guardianConfig,
		Retention:       retentionCfg,
		Bedrock:         bedrockCfg,
		AgentRegistry:   agentRegistry,
		PricingRegistry: pricingRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax.
	// ExpandEnv passes the original data through on parse/execution errors
	// so the YAML parser produces the clearer message.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadQuorumYAML() (*QuorumYAMLConfig, error) {
	var config QuorumYAMLConfig

	// Initialize maps to avoid nil maps
	config.Agents = make(map[string]AgentConfig)

	if err := l.loadYAML("quorum.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (l *configLoader) loadPricingYAML() (*PricingYAMLConfig, error) {
	var config PricingYAMLConfig
	config.Models = make(map[string]ModelPricing)

	if err := l.loadYAML("pricing.yaml", &config); err != nil {
		// pricing.yaml is optional: the built-in table covers the default
		// model.
		if errors.Is(err, ErrConfigNotFound) {
			return &config, nil
		}
		return nil, err
	}

	return &config, nil
}

// mergeAgents merges built-in and user-defined agent configurations per
// field: a user entry overrides only the fields it sets, so supplying the
// endpoint pair does not wipe the built-in weight.
func mergeAgents(builtinAgents map[string]AgentConfig, userAgents map[string]AgentConfig) (map[string]*AgentConfig, error) {
	result := make(map[string]*AgentConfig, len(builtinAgents))

	for id, builtin := range builtinAgents {
		agentCopy := builtin
		result[id] = &agentCopy
	}

	for id, userAgent := range userAgents {
		base, exists := result[id]
		if !exists {
			agentCopy := userAgent
			result[id] = &agentCopy
			continue
		}
		if err := mergo.Merge(base, userAgent, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("agent %q: %w", id, err)
		}
	}

	return result, nil
}

// mergePricing merges built-in and user-defined pricing entries. User
// entries replace built-in entries with the same model id.
func mergePricing(builtinModels, userModels map[string]ModelPricing) map[string]ModelPricing {
	result := make(map[string]ModelPricing, len(builtinModels)+len(userModels))
	for id, p := range builtinModels {
		result[id] = p
	}
	for id, p := range userModels {
		result[id] = p
	}
	return result
}

// resolveRetentionConfig resolves retention configuration from system YAML,
// applying defaults.
func resolveRetentionConfig(sys *SystemYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if sys == nil || sys.Retention == nil {
		return cfg
	}

	r := sys.Retention
	if r.CheckpointRetentionDays > 0 {
		cfg.CheckpointRetentionDays = r.CheckpointRetentionDays
	}
	if r.TraceRetentionDays > 0 {
		cfg.TraceRetentionDays = r.TraceRetentionDays
	}
	if r.ViolationRetentionDays > 0 {
		cfg.ViolationRetentionDays = r.ViolationRetentionDays
	}
	if r.RecommendationRetentionDays > 0 {
		cfg.RecommendationRetentionDays = r.RecommendationRetentionDays
	}
	if r.CleanupInterval > 0 {
		cfg.CleanupInterval = r.CleanupInterval
	}

	return cfg
}

// resolveBedrockConfig resolves endpoint transport settings from system
// YAML, applying defaults.
func resolveBedrockConfig(sys *SystemYAMLConfig) *BedrockConfig {
	cfg := &BedrockConfig{}

	if sys == nil || sys.Bedrock == nil {
		return cfg
	}

	b := sys.Bedrock
	if b.Region != "" {
		cfg.Region = b.Region
	}
	if b.Guardrail != nil {
		guardrailCopy := *b.Guardrail
		cfg.Guardrail = &guardrailCopy
	}
	if b.EnableTrace != nil {
		enableCopy := *b.EnableTrace
		cfg.EnableTrace = &enableCopy
	}

	return cfg
}
