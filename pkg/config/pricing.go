package config

import "sync"

// ModelPricing is the USD price per 1K tokens for one model.
type ModelPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// PricingRegistry maps model identifiers to per-1K-token pricing with
// thread-safe access. Unknown models fall back to the default model's
// pricing so cost accounting never silently produces zero.
type PricingRegistry struct {
	models       map[string]ModelPricing
	defaultModel string
	mu           sync.RWMutex
}

// NewPricingRegistry creates a pricing registry. The default model must be
// present in the table; the validator enforces this.
func NewPricingRegistry(models map[string]ModelPricing, defaultModel string) *PricingRegistry {
	copied := make(map[string]ModelPricing, len(models))
	for k, v := range models {
		copied[k] = v
	}
	return &PricingRegistry{
		models:       copied,
		defaultModel: defaultModel,
	}
}

// Get returns the pricing for a model, substituting the default model's
// pricing when the model is not in the table.
func (r *PricingRegistry) Get(model string) ModelPricing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.models[model]; ok {
		return p
	}
	return r.models[r.defaultModel]
}

// Has checks if a model has an explicit pricing entry.
func (r *PricingRegistry) Has(model string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.models[model]
	return ok
}

// DefaultModel returns the model used when an agent reports no model.
func (r *PricingRegistry) DefaultModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// Len returns the number of priced models.
func (r *PricingRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
