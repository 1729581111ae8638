package domain

// AgentModelMapping binds an agent identity to its primary model, ordered
// fallback chain and routing knobs.
type AgentModelMapping struct {
	AgentID             string          `json:"agent_id" yaml:"agent_id"`
	Primary             *ModelProfile   `json:"primary" yaml:"primary"`
	FallbackChain       []*ModelProfile `json:"fallback_chain" yaml:"fallback_chain"`
	ConfidenceThreshold float64         `json:"confidence_threshold" yaml:"confidence_threshold"`
	MaxConcurrent       int             `json:"max_concurrent" yaml:"max_concurrent"`
	TasteWeight         float64         `json:"taste_weight" yaml:"taste_weight"`
}

// ResolutionKind says how an agent lookup was satisfied, so callers can
// assert which branch fired rather than inferring it from side effects.
type ResolutionKind int

const (
	ResolutionFound ResolutionKind = iota
	ResolutionSubstituted
	ResolutionNotFound
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionFound:
		return "found"
	case ResolutionSubstituted:
		return "substituted"
	default:
		return "not_found"
	}
}

// MappingResolution is the tagged result of resolving an agent's mapping.
// When Kind is ResolutionSubstituted, Mapping holds the default agent's
// mapping and SubstitutedFor records the agent that was asked for.
type MappingResolution struct {
	Kind           ResolutionKind
	Mapping        *AgentModelMapping
	SubstitutedFor string
}
