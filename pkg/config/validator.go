package config

import "fmt"

// ConfigValidator validates configuration comprehensively with clear error
// messages.
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateAgents(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}

	if err := v.validatePricing(); err != nil {
		return fmt.Errorf("pricing validation failed: %w", err)
	}

	if err := v.validateDriver(); err != nil {
		return fmt.Errorf("driver validation failed: %w", err)
	}

	if err := v.validateGuardian(); err != nil {
		return fmt.Errorf("guardian validation failed: %w", err)
	}

	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateAgents() error {
	for id, agent := range v.cfg.AgentRegistry.GetAll() {
		if agent.EndpointID == "" {
			return NewValidationError("agent", id, "endpoint_id", ErrMissingRequiredField)
		}
		if agent.AliasID == "" {
			return NewValidationError("agent", id, "alias_id", ErrMissingRequiredField)
		}
		if agent.Weight != nil && (*agent.Weight < 0 || *agent.Weight > 1) {
			return NewValidationError("agent", id, "weight",
				fmt.Errorf("%w: must be within [0,1], got %v", ErrInvalidValue, *agent.Weight))
		}
	}
	return nil
}

func (v *ConfigValidator) validatePricing() error {
	reg := v.cfg.PricingRegistry
	if !reg.Has(reg.DefaultModel()) {
		return NewValidationError("pricing", reg.DefaultModel(), "",
			fmt.Errorf("%w: default model has no pricing entry", ErrMissingRequiredField))
	}
	for model, p := range reg.models {
		if p.InputPer1K < 0 || p.OutputPer1K < 0 {
			return NewValidationError("pricing", model, "",
				fmt.Errorf("%w: prices must be non-negative", ErrInvalidValue))
		}
	}
	return nil
}

func (v *ConfigValidator) validateDriver() error {
	d := v.cfg.Driver
	if d.MaxRetries < 0 {
		return NewValidationError("driver", "driver", "max_retries",
			fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	if d.AgentTimeout <= 0 {
		return NewValidationError("driver", "driver", "agent_timeout",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if !d.CheckpointPolicy.IsValid() {
		return NewValidationError("driver", "driver", "checkpoint_policy",
			fmt.Errorf("%w: must be %q or %q, got %q", ErrInvalidValue,
				CheckpointPolicyContinue, CheckpointPolicyAbort, d.CheckpointPolicy))
	}
	if d.DefaultBudget < 0 {
		return NewValidationError("driver", "driver", "default_budget",
			fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateGuardian() error {
	g := v.cfg.Guardian
	if g.IncidentsPerDay <= 0 {
		return NewValidationError("guardian", "guardian", "incidents_per_day",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if g.DaysPerMonth <= 0 {
		return NewValidationError("guardian", "guardian", "days_per_month",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateRetention() error {
	r := v.cfg.Retention
	days := map[string]int{
		"checkpoint_retention_days":     r.CheckpointRetentionDays,
		"trace_retention_days":          r.TraceRetentionDays,
		"violation_retention_days":      r.ViolationRetentionDays,
		"recommendation_retention_days": r.RecommendationRetentionDays,
	}
	for field, value := range days {
		if value <= 0 {
			return NewValidationError("retention", "retention", field,
				fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "retention", "cleanup_interval",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}
