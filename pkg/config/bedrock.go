package config

// GuardrailConfig identifies the safety guardrail attached to every agent
// invocation. When nil, invocations run without a guardrail.
type GuardrailConfig struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version"`
}

// BedrockConfig holds transport settings shared by all agent endpoints.
type BedrockConfig struct {
	// Region the agent endpoints are deployed in.
	Region string `yaml:"region"`

	// Guardrail is attached to every invocation when set.
	Guardrail *GuardrailConfig `yaml:"guardrail,omitempty"`

	// EnableTrace asks the endpoint for trace events (guardrail
	// assessments arrive on the trace stream). Defaults to true.
	EnableTrace *bool `yaml:"enable_trace,omitempty"`
}

// TraceEnabled resolves the EnableTrace default.
func (c *BedrockConfig) TraceEnabled() bool {
	if c == nil || c.EnableTrace == nil {
		return true
	}
	return *c.EnableTrace
}

// GuardrailID returns the configured guardrail id, or "" when unset.
func (c *BedrockConfig) GuardrailID() string {
	if c == nil || c.Guardrail == nil {
		return ""
	}
	return c.Guardrail.ID
}

// GuardrailVersion returns the configured guardrail version, or "" when
// unset.
func (c *BedrockConfig) GuardrailVersion() string {
	if c == nil || c.Guardrail == nil {
		return ""
	}
	return c.Guardrail.Version
}
