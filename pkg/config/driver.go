package config

import "time"

// CheckpointPolicy decides what the driver does when a checkpoint write
// fails mid-run.
type CheckpointPolicy string

const (
	// CheckpointPolicyContinue logs the failure and keeps executing. The run
	// loses resumability from that point but still terminates normally.
	CheckpointPolicyContinue CheckpointPolicy = "continue"

	// CheckpointPolicyAbort stops the run on the first failed write. For
	// deployments where resumability is contractual.
	CheckpointPolicyAbort CheckpointPolicy = "abort"
)

// IsValid checks whether the policy is a known value.
func (p CheckpointPolicy) IsValid() bool {
	return p == CheckpointPolicyContinue || p == CheckpointPolicyAbort
}

// DriverConfig controls how the graph driver executes a run.
type DriverConfig struct {
	// MaxRetries is the retry cap per agent for retryable failures.
	MaxRetries int `yaml:"max_retries"`

	// AgentTimeout bounds a single invocation attempt.
	AgentTimeout time.Duration `yaml:"agent_timeout"`

	// CheckpointPolicy picks the behavior on checkpoint write failure.
	CheckpointPolicy CheckpointPolicy `yaml:"checkpoint_policy"`

	// DefaultBudget is used when the invocation event carries no
	// budget_remaining.
	DefaultBudget float64 `yaml:"default_budget"`
}

// DefaultDriverConfig returns the built-in driver defaults.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		MaxRetries:       2,
		AgentTimeout:     60 * time.Second,
		CheckpointPolicy: CheckpointPolicyContinue,
		DefaultBudget:    5.0,
	}
}

// GuardianConfig carries the cost-projection assumptions.
type GuardianConfig struct {
	// IncidentsPerDay is the assumed daily incident volume.
	IncidentsPerDay int `yaml:"incidents_per_day"`

	// DaysPerMonth is the projection horizon.
	DaysPerMonth int `yaml:"days_per_month"`
}

// DefaultGuardianConfig returns the built-in projection assumptions.
func DefaultGuardianConfig() *GuardianConfig {
	return &GuardianConfig{
		IncidentsPerDay: 10,
		DaysPerMonth:    30,
	}
}
