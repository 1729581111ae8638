// Package catalog is the in-memory table of model profiles and per-agent
// routing mappings.
package catalog

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
)

// DefaultFallbackAgent is the mapping substituted for unknown agents when
// present in the catalog.
const DefaultFallbackAgent = "general"

// MemoryCatalog keeps profiles and mappings in separate concurrent maps so
// unrelated agents' lookups never serialise on one lock.
type MemoryCatalog struct {
	profiles *xsync.Map[string, *domain.ModelProfile]
	mappings *xsync.Map[string, *domain.AgentModelMapping]
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		profiles: xsync.NewMap[string, *domain.ModelProfile](),
		mappings: xsync.NewMap[string, *domain.AgentModelMapping](),
	}
}

// Register adds or overwrites a model profile. Name and family are
// required; everything else is the caller's problem.
func (c *MemoryCatalog) Register(profile *domain.ModelProfile) error {
	if profile == nil {
		return domain.NewValidationError("profile", nil, "profile is required")
	}
	if profile.Name == "" {
		return domain.NewValidationError("name", profile.Name, "model name is required")
	}
	if profile.Family == "" {
		return domain.NewValidationError("family", profile.Family, "model family is required")
	}

	cp := *profile
	c.profiles.Store(profile.Name, &cp)
	return nil
}

func (c *MemoryCatalog) Get(name string) (*domain.ModelProfile, bool) {
	return c.profiles.Load(name)
}

// List returns the registered profiles sorted by name for stable iteration.
func (c *MemoryCatalog) List() []*domain.ModelProfile {
	out := make([]*domain.ModelProfile, 0, c.profiles.Size())
	c.profiles.Range(func(_ string, p *domain.ModelProfile) bool {
		out = append(out, p)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterAgentMapping adds or overwrites an agent's routing mapping.
func (c *MemoryCatalog) RegisterAgentMapping(mapping *domain.AgentModelMapping) error {
	if mapping == nil {
		return domain.NewValidationError("mapping", nil, "mapping is required")
	}
	if mapping.AgentID == "" {
		return domain.NewValidationError("agent_id", mapping.AgentID, "agent id is required")
	}
	if mapping.Primary == nil {
		return domain.NewValidationError("primary", nil, "primary model is required")
	}
	if len(mapping.FallbackChain) == 0 {
		return domain.NewValidationError("fallback_chain", 0, "at least one fallback is required")
	}
	if mapping.ConfidenceThreshold <= 0 || mapping.ConfidenceThreshold > 1 {
		return domain.NewValidationError("confidence_threshold", mapping.ConfidenceThreshold, "must be in (0,1]")
	}
	if mapping.MaxConcurrent < 1 {
		return domain.NewValidationError("max_concurrent", mapping.MaxConcurrent, "must be >= 1")
	}
	if mapping.TasteWeight < 0 || mapping.TasteWeight > 1 {
		return domain.NewValidationError("taste_weight", mapping.TasteWeight, "must be in [0,1]")
	}

	c.mappings.Store(mapping.AgentID, mapping)
	return nil
}

func (c *MemoryCatalog) GetForAgent(agentID string) (*domain.AgentModelMapping, bool) {
	return c.mappings.Load(agentID)
}

// ResolveForAgent is the tagged lookup: an exact mapping, the default
// agent's mapping when one exists, or nothing.
func (c *MemoryCatalog) ResolveForAgent(agentID string) domain.MappingResolution {
	if m, ok := c.mappings.Load(agentID); ok {
		return domain.MappingResolution{Kind: domain.ResolutionFound, Mapping: m}
	}
	if m, ok := c.mappings.Load(DefaultFallbackAgent); ok {
		return domain.MappingResolution{
			Kind:           domain.ResolutionSubstituted,
			Mapping:        m,
			SubstitutedFor: agentID,
		}
	}
	return domain.MappingResolution{Kind: domain.ResolutionNotFound}
}

// AgentIDs returns the registered agent identifiers, sorted.
func (c *MemoryCatalog) AgentIDs() []string {
	ids := make([]string, 0, c.mappings.Size())
	c.mappings.Range(func(id string, _ *domain.AgentModelMapping) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

func (c *MemoryCatalog) Clear() {
	c.profiles.Clear()
	c.mappings.Clear()
}

var _ ports.ModelCatalog = (*MemoryCatalog)(nil)
