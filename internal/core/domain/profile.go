package domain

// ModelStrength is a qualitative capability class for a model.
type ModelStrength string

const (
	StrengthSpeed     ModelStrength = "speed"
	StrengthBalanced  ModelStrength = "balanced"
	StrengthPower     ModelStrength = "power"
	StrengthReasoning ModelStrength = "reasoning"
)

// TopStrength reports whether a model is already at the top capability
// class and therefore never escalates further.
func (s ModelStrength) TopStrength() bool {
	return s == StrengthPower || s == StrengthReasoning
}

// ModelProfile describes an inference backend's capability, cost and speed.
// Name is the unique catalog key; registering the same name again
// overwrites the earlier entry.
type ModelProfile struct {
	Name            string        `json:"name" yaml:"name"`
	Family          string        `json:"family" yaml:"family"`
	Strength        ModelStrength `json:"strength" yaml:"strength"`
	Quantization    Quantization  `json:"quantization" yaml:"quantization"`
	ContextWindow   int           `json:"context_window" yaml:"context_window"`
	TokensPerSecond float64       `json:"tokens_per_second" yaml:"tokens_per_second"`
	CostFactor      float64       `json:"cost_factor" yaml:"cost_factor"`
	DraftCapable    bool          `json:"draft_capable,omitempty" yaml:"draft_capable"`

	// MinTierRank is the lowest hardware tier rank that can run the model
	// at its stated speed. Zero means any tier.
	MinTierRank int `json:"min_tier_rank,omitempty" yaml:"min_tier_rank"`
}

// FitsTier reports whether the given hardware tier satisfies the model's
// resource needs.
func (p *ModelProfile) FitsTier(tier HardwareTier) bool {
	return tier.ID.Rank() >= p.MinTierRank
}
