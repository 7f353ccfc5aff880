package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// CheckpointRetentionDays is how many days to keep checkpoint rows.
	CheckpointRetentionDays int `yaml:"checkpoint_retention_days"`

	// TraceRetentionDays is how many days to keep LLM trace rows.
	TraceRetentionDays int `yaml:"trace_retention_days"`

	// ViolationRetentionDays is how many days to keep guardrail violation
	// rows.
	ViolationRetentionDays int `yaml:"violation_retention_days"`

	// RecommendationRetentionDays is how many days to keep persisted
	// recommendation records.
	RecommendationRetentionDays int `yaml:"recommendation_retention_days"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		CheckpointRetentionDays:     90,
		TraceRetentionDays:          90,
		ViolationRetentionDays:      90,
		RecommendationRetentionDays: 90,
		CleanupInterval:             12 * time.Hour,
	}
}
