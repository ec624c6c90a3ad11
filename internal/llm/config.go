// Package llm wraps the generative backend: model tiers, the Gemini client and the
// Invoker that bounds each generation call with a timeout and a single retry.
package llm

import "fmt"

// ModelTier represents the capability level of a model
type ModelTier string

const (
	// TierLite is the cheapest model, suitable for short plans
	TierLite ModelTier = "lite"
	// TierStandard is the default tier for plan generation
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long plans with many constraints
	TierAdvanced ModelTier = "advanced"
)

// ParseTier converts a configuration string to a ModelTier
func ParseTier(s string) (ModelTier, error) {
	switch t := ModelTier(s); t {
	case TierLite, TierStandard, TierAdvanced:
		return t, nil
	case "":
		return TierStandard, nil
	default:
		return "", fmt.Errorf("unknown model tier %q", s)
	}
}

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the only supported provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
