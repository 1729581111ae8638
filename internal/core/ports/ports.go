// Package ports defines the boundary interfaces between the routing core
// and its adapters. Implementations live under internal/adapter.
package ports

import (
	"context"

	"github.com/mereck/gantry/internal/core/domain"
)

// HardwareSensor reads raw hardware facts from the host. A sensor never
// fails loudly: anything it cannot determine is reported as absent and the
// profiler degrades to the low tier.
type HardwareSensor interface {
	// Sense returns the raw facts for tier classification.
	Sense() HardwareFacts
}

// HardwareFacts are the raw values a sensor reads from the host.
type HardwareFacts struct {
	GPUVendor domain.GPUVendor
	VRAMGB    float64
	RAMGB     float64
	CPUCores  int
}

// HardwareProfiler classifies the host into a tier, caching the result for
// the process lifetime until ClearCache.
type HardwareProfiler interface {
	Detect() domain.HardwareTier
	ClearCache()
	RecommendedQuant(id domain.TierID) domain.Quantization
}

// ModelCatalog registers model profiles and per-agent routing mappings.
type ModelCatalog interface {
	Register(profile *domain.ModelProfile) error
	Get(name string) (*domain.ModelProfile, bool)
	List() []*domain.ModelProfile
	RegisterAgentMapping(mapping *domain.AgentModelMapping) error
	GetForAgent(agentID string) (*domain.AgentModelMapping, bool)
	ResolveForAgent(agentID string) domain.MappingResolution
	Clear()
}

// MetricsTracker records completed-inference samples and aggregates them.
type MetricsTracker interface {
	Record(sample domain.InferenceMetricSample)
	Samples(agentID string) []domain.InferenceMetricSample
	Summary(agentID string) domain.AgentSummary
	GlobalSummary() domain.GlobalSummary
	ExportJSON() ([]byte, error)
	Clear()
}

// GenerateFunc is a black-box call into an inference backend. The decoder's
// control logic is unit-testable by injecting a fake.
type GenerateFunc func(ctx context.Context, model, prompt string, maxTokens int) (GenerateResult, error)

// GenerateResult is what a backend returns for one generation call.
type GenerateResult struct {
	Text       string
	Tokens     []string
	TokensOut  int
	Confidence float64
}
