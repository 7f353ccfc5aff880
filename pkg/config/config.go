package config

// Config is the umbrella configuration object that encapsulates all
// registries, defaults, and configuration state. This is the primary object
// returned by Initialize() and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// Driver behavior (retries, timeouts, checkpoint policy)
	Driver *DriverConfig

	// Cost projection assumptions
	Guardian *GuardianConfig

	// Retention and cleanup policy
	Retention *RetentionConfig

	// Agent endpoint transport settings
	Bedrock *BedrockConfig

	// Component registries
	AgentRegistry   *AgentRegistry
	PricingRegistry *PricingRegistry
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration
type Stats struct {
	Agents       int
	PricedModels int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.AgentRegistry != nil {
		s.Agents = c.AgentRegistry.Len()
	}
	if c.PricingRegistry != nil {
		s.PricedModels = c.PricingRegistry.Len()
	}
	return s
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetAgent retrieves an agent configuration by id.
// This is a convenience method that wraps AgentRegistry.Get().
func (c *Config) GetAgent(agentID string) (*AgentConfig, error) {
	return c.AgentRegistry.Get(agentID)
}

// Pricing retrieves the pricing for a model, falling back to the default
// model. This is a convenience method that wraps PricingRegistry.Get().
func (c *Config) Pricing(model string) ModelPricing {
	return c.PricingRegistry.Get(model)
}

// AgentIDs returns all registered agent ids in sorted order.
func (c *Config) AgentIDs() []string {
	return c.AgentRegistry.IDs()
}

// Weights returns the consensus weight table for all registered agents.
func (c *Config) Weights() map[string]float64 {
	return c.AgentRegistry.WeightTable()
}
