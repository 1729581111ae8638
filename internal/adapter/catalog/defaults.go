package catalog

import "github.com/mereck/gantry/internal/core/domain"

// Default model profiles, ollama-style naming. Speeds and cost factors are
// rough relative figures used for estimates, not measurements.
func defaultProfiles() []*domain.ModelProfile {
	return []*domain.ModelProfile{
		{Name: "llama3.2:1b", Family: "llama", Strength: domain.StrengthSpeed, Quantization: domain.QuantLight, ContextWindow: 8192, TokensPerSecond: 120, CostFactor: 0.2, DraftCapable: true},
		{Name: "phi3.5:3.8b", Family: "phi", Strength: domain.StrengthSpeed, Quantization: domain.QuantLight, ContextWindow: 16384, TokensPerSecond: 90, CostFactor: 0.3, DraftCapable: true},
		{Name: "llama3.1:8b", Family: "llama", Strength: domain.StrengthBalanced, Quantization: domain.QuantMedium, ContextWindow: 32768, TokensPerSecond: 55, CostFactor: 0.6, DraftCapable: true, MinTierRank: 2},
		{Name: "mistral:7b", Family: "mistral", Strength: domain.StrengthBalanced, Quantization: domain.QuantMedium, ContextWindow: 32768, TokensPerSecond: 60, CostFactor: 0.5, MinTierRank: 2},
		{Name: "qwen2.5-coder:7b", Family: "qwen", Strength: domain.StrengthBalanced, Quantization: domain.QuantMedium, ContextWindow: 32768, TokensPerSecond: 50, CostFactor: 0.6, DraftCapable: true, MinTierRank: 2},
		{Name: "qwen2.5-coder:32b", Family: "qwen", Strength: domain.StrengthPower, Quantization: domain.QuantHeavy, ContextWindow: 32768, TokensPerSecond: 25, CostFactor: 1.6, MinTierRank: 3},
		{Name: "llama3.1:70b", Family: "llama", Strength: domain.StrengthPower, Quantization: domain.QuantHeavy, ContextWindow: 131072, TokensPerSecond: 12, CostFactor: 2.8, MinTierRank: 4},
		{Name: "deepseek-r1:14b", Family: "deepseek", Strength: domain.StrengthReasoning, Quantization: domain.QuantHeavy, ContextWindow: 65536, TokensPerSecond: 20, CostFactor: 2.0, MinTierRank: 3},
	}
}

type defaultAgent struct {
	id         string
	primary    string
	fallbacks  []string
	threshold  float64
	concurrent int
	taste      float64
}

// The 21 default agent mappings. Fallback chains end in a model every tier
// can run so routing always has somewhere to land.
var defaultAgents = []defaultAgent{
	{"general", "llama3.1:8b", []string{"mistral:7b", "llama3.2:1b"}, 0.7, 2, 0.5},
	{"coder", "qwen2.5-coder:7b", []string{"llama3.1:8b", "llama3.2:1b"}, 0.75, 2, 0.6},
	{"reviewer", "qwen2.5-coder:32b", []string{"qwen2.5-coder:7b", "llama3.2:1b"}, 0.8, 1, 0.7},
	{"architect", "deepseek-r1:14b", []string{"qwen2.5-coder:32b", "llama3.1:8b"}, 0.85, 1, 0.8},
	{"tester", "qwen2.5-coder:7b", []string{"llama3.1:8b", "llama3.2:1b"}, 0.7, 2, 0.5},
	{"documenter", "llama3.1:8b", []string{"mistral:7b", "llama3.2:1b"}, 0.65, 2, 0.4},
	{"refactorer", "qwen2.5-coder:7b", []string{"qwen2.5-coder:32b", "llama3.1:8b"}, 0.75, 1, 0.6},
	{"debugger", "deepseek-r1:14b", []string{"qwen2.5-coder:7b", "llama3.1:8b"}, 0.8, 1, 0.7},
	{"researcher", "llama3.1:70b", []string{"llama3.1:8b", "mistral:7b"}, 0.8, 1, 0.6},
	{"planner", "deepseek-r1:14b", []string{"llama3.1:8b", "llama3.2:1b"}, 0.8, 1, 0.7},
	{"summarizer", "mistral:7b", []string{"llama3.2:1b"}, 0.6, 3, 0.3},
	{"translator", "llama3.1:8b", []string{"mistral:7b", "llama3.2:1b"}, 0.65, 2, 0.4},
	{"security-auditor", "qwen2.5-coder:32b", []string{"deepseek-r1:14b", "qwen2.5-coder:7b"}, 0.85, 1, 0.8},
	{"performance-analyst", "deepseek-r1:14b", []string{"qwen2.5-coder:7b", "llama3.1:8b"}, 0.8, 1, 0.6},
	{"data-analyst", "llama3.1:8b", []string{"mistral:7b", "llama3.2:1b"}, 0.7, 2, 0.5},
	{"ui-designer", "llama3.1:8b", []string{"mistral:7b", "llama3.2:1b"}, 0.65, 2, 0.5},
	{"devops", "qwen2.5-coder:7b", []string{"llama3.1:8b", "llama3.2:1b"}, 0.7, 2, 0.5},
	{"migrator", "qwen2.5-coder:32b", []string{"qwen2.5-coder:7b", "llama3.1:8b"}, 0.8, 1, 0.6},
	{"prompt-engineer", "llama3.1:8b", []string{"phi3.5:3.8b", "llama3.2:1b"}, 0.65, 2, 0.4},
	{"orchestrator", "deepseek-r1:14b", []string{"llama3.1:8b", "llama3.2:1b"}, 0.85, 1, 0.8},
	{"critic", "llama3.1:70b", []string{"deepseek-r1:14b", "llama3.1:8b"}, 0.85, 1, 0.7},
}

// WithDefaults registers the built-in model profiles and the 21 default
// agent mappings. Custom registrations may override any of them later.
func (c *MemoryCatalog) WithDefaults() *MemoryCatalog {
	byName := make(map[string]*domain.ModelProfile)
	for _, p := range defaultProfiles() {
		// Register cannot fail here: defaults always carry name and family.
		_ = c.Register(p)
		byName[p.Name] = p
	}

	for _, a := range defaultAgents {
		chain := make([]*domain.ModelProfile, 0, len(a.fallbacks))
		for _, name := range a.fallbacks {
			chain = append(chain, byName[name])
		}
		_ = c.RegisterAgentMapping(&domain.AgentModelMapping{
			AgentID:             a.id,
			Primary:             byName[a.primary],
			FallbackChain:       chain,
			ConfidenceThreshold: a.threshold,
			MaxConcurrent:       a.concurrent,
			TasteWeight:         a.taste,
		})
	}

	return c
}
