// Package router picks the model backend for an agent's inference work,
// balancing confidence, hardware fit, cost and per-agent concurrency, and
// defers to the scheduler when capacity is exhausted.
package router

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mereck/gantry/internal/adapter/scheduler"
	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
	"github.com/mereck/gantry/internal/logger"
)

type Config struct {
	// MaxFallbackDepth truncates the candidate chain after the primary.
	MaxFallbackDepth int
	// EscalationEnabled gates ShouldEscalate entirely.
	EscalationEnabled bool
	// EscalationThreshold is the confidence below which a non-top-tier
	// model escalates.
	EscalationThreshold float64
	// SpeculativeEnabled proposes draft/verify decoding for capable models.
	SpeculativeEnabled bool
	// DefaultPriority for requests queued on slot exhaustion.
	DefaultPriority int
	// QueuedTTL bounds how long a slot-exhausted request may wait in the
	// overflow queue before it is discarded. Nobody drains that queue; the
	// caller is expected to retry, so entries must not outlive them.
	QueuedTTL time.Duration
}

func DefaultRouterConfig() Config {
	return Config{
		MaxFallbackDepth:    3,
		EscalationEnabled:   true,
		EscalationThreshold: 0.7,
		SpeculativeEnabled:  true,
		DefaultPriority:     5,
		QueuedTTL:           60 * time.Second,
	}
}

// Router is the routing core's root object. Construct one per process and
// inject its collaborators; there is no package-level state.
type Router struct {
	cfg      Config
	catalog  ports.ModelCatalog
	hardware ports.HardwareProfiler
	metrics  ports.MetricsTracker
	logger   logger.StyledLogger

	// queue is the router's own overflow queue for slot-exhausted requests.
	// It must never be the queue an execution pool drains: these entries
	// are position markers for retrying callers, not admitted work.
	queue *scheduler.PriorityQueue

	complexity *complexityEstimator

	// slots holds per-agent outstanding inference counts. One entry per
	// agent so unrelated agents never contend.
	slots *xsync.Map[string, *agentSlots]
}

type agentSlots struct {
	mu    sync.Mutex
	inUse int
}

func New(cfg Config, catalog ports.ModelCatalog, hardware ports.HardwareProfiler, metrics ports.MetricsTracker, queue *scheduler.PriorityQueue, log logger.StyledLogger) *Router {
	if cfg.MaxFallbackDepth <= 0 {
		cfg.MaxFallbackDepth = DefaultRouterConfig().MaxFallbackDepth
	}
	if cfg.QueuedTTL <= 0 {
		cfg.QueuedTTL = DefaultRouterConfig().QueuedTTL
	}
	return &Router{
		cfg:        cfg,
		catalog:    catalog,
		hardware:   hardware,
		metrics:    metrics,
		queue:      queue,
		logger:     log,
		complexity: newComplexityEstimator(),
		slots:      xsync.NewMap[string, *agentSlots](),
	}
}

// Route picks a model for the agent's task. It fails only when the agent
// is unknown and no default mapping can be substituted; capacity
// exhaustion comes back as a queued decision, not an error.
func (r *Router) Route(agentID, prompt string, confidence float64, opts *domain.RouteOptions) (*domain.RoutingDecision, error) {
	if opts == nil {
		opts = &domain.RouteOptions{}
	}

	resolution := r.catalog.ResolveForAgent(agentID)
	if resolution.Kind == domain.ResolutionNotFound {
		return nil, &domain.AgentNotFoundError{AgentID: agentID}
	}
	mapping := resolution.Mapping

	if resolution.Kind == domain.ResolutionSubstituted && r.logger != nil {
		r.logger.WarnWithAgent("No mapping registered, substituting default for", agentID)
	}

	tier := r.hardware.Detect()
	candidates := r.candidateChain(mapping)
	selected := r.selectModel(candidates, mapping, tier, confidence, opts)

	decision := &domain.RoutingDecision{
		AgentID:         agentID,
		Model:           selected,
		ConsideredChain: candidates,
		Tier:            tier,
		Resolution:      resolution.Kind,
		UseSpeculative:  r.cfg.SpeculativeEnabled && selected.DraftCapable,
	}

	complexity := r.complexity.estimate(prompt)
	decision.EstimatedTokensPerS = estimateTokensPerSec(selected, tier)
	decision.EstimatedCost = selected.CostFactor * complexity

	if !r.acquireSlot(agentID, mapping.MaxConcurrent) {
		r.queue.PruneExpired()
		req := &domain.InferenceRequest{
			AgentID:  agentID,
			Prompt:   prompt,
			Priority: priorityOrDefault(opts.Priority, r.cfg.DefaultPriority),
			Timeout:  r.cfg.QueuedTTL,
		}
		if err := r.queue.Enqueue(req); err != nil {
			return nil, err
		}
		decision.Queued = true
		decision.RequestID = req.ID
		decision.QueuePosition = r.queue.GetPosition(req.ID)

		if r.logger != nil {
			r.logger.InfoWithAgent("Concurrency exhausted, queued request for", agentID,
				"position", decision.QueuePosition)
		}
		return decision, nil
	}

	if r.logger != nil {
		r.logger.InfoWithModel("Routed "+agentID+" to", selected.Name,
			"confidence", confidence,
			"tier", string(tier.ID),
			"speculative", decision.UseSpeculative)
	}
	return decision, nil
}

// ReleaseSlot frees one of the agent's concurrency slots. Callers must
// pair every non-queued Route with exactly one ReleaseSlot or the agent's
// budget permanently shrinks.
func (r *Router) ReleaseSlot(agentID string) {
	if s, ok := r.slots.Load(agentID); ok {
		s.mu.Lock()
		if s.inUse > 0 {
			s.inUse--
		}
		s.mu.Unlock()
	}
}

// ShouldEscalate reports whether low confidence warrants a stronger model.
// Unknown and top-strength models never escalate.
func (r *Router) ShouldEscalate(modelName string, confidence float64) bool {
	if !r.cfg.EscalationEnabled {
		return false
	}
	profile, ok := r.catalog.Get(modelName)
	if !ok {
		return false
	}
	if profile.Strength.TopStrength() {
		return false
	}
	return confidence < r.cfg.EscalationThreshold
}

// EscalationCandidate walks one step up: a same-family model of the next
// strength class when one is registered, otherwise the same model one
// quantization step heavier. Never skips tiers.
func (r *Router) EscalationCandidate(modelName string) (*domain.ModelProfile, bool) {
	current, ok := r.catalog.Get(modelName)
	if !ok || current.Strength.TopStrength() {
		return nil, false
	}

	next := nextStrength(current.Strength)
	var best *domain.ModelProfile
	for _, p := range r.catalog.List() {
		if p.Family != current.Family || p.Strength != next {
			continue
		}
		if best == nil || p.CostFactor < best.CostFactor {
			best = p
		}
	}
	if best != nil {
		return best, true
	}

	if q := domain.NextQuant(current.Quantization); q != current.Quantization {
		stepped := *current
		stepped.Quantization = q
		return &stepped, true
	}
	return nil, false
}

// RecordMetrics appends a completed-inference sample to the bounded history.
func (r *Router) RecordMetrics(sample domain.InferenceMetricSample) {
	r.metrics.Record(sample)
}

// GetMetrics returns recorded samples, filtered by agent when non-empty.
func (r *Router) GetMetrics(agentID string) []domain.InferenceMetricSample {
	return r.metrics.Samples(agentID)
}

// ClearMetrics empties the metric history.
func (r *Router) ClearMetrics() {
	r.metrics.Clear()
}

// SlotsInUse reports the agent's outstanding slot count.
func (r *Router) SlotsInUse(agentID string) int {
	if s, ok := r.slots.Load(agentID); ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.inUse
	}
	return 0
}

func (r *Router) candidateChain(mapping *domain.AgentModelMapping) []*domain.ModelProfile {
	chain := make([]*domain.ModelProfile, 0, 1+len(mapping.FallbackChain))
	chain = append(chain, mapping.Primary)
	for _, p := range mapping.FallbackChain {
		if len(chain) > r.cfg.MaxFallbackDepth {
			break
		}
		chain = append(chain, p)
	}
	return chain
}

// selectModel applies the selection policy: budget filter first, then the
// confidence-gated primary, then the first hardware-compatible fallback.
// It always returns a model.
func (r *Router) selectModel(candidates []*domain.ModelProfile, mapping *domain.AgentModelMapping, tier domain.HardwareTier, confidence float64, opts *domain.RouteOptions) *domain.ModelProfile {
	if opts.MaxBudget > 0 {
		var cheapest, qualifying *domain.ModelProfile
		for _, c := range candidates {
			if cheapest == nil || c.CostFactor < cheapest.CostFactor {
				cheapest = c
			}
			if c.CostFactor > opts.MaxBudget {
				continue
			}
			if qualifying == nil || c.CostFactor < qualifying.CostFactor {
				qualifying = c
			}
		}
		if qualifying != nil {
			return qualifying
		}
		return cheapest
	}

	if opts.Urgent {
		var fastest *domain.ModelProfile
		for _, c := range candidates {
			if !c.FitsTier(tier) {
				continue
			}
			if fastest == nil || c.TokensPerSecond > fastest.TokensPerSecond {
				fastest = c
			}
		}
		if fastest != nil {
			return fastest
		}
	}

	if confidence >= mapping.ConfidenceThreshold && mapping.Primary.FitsTier(tier) {
		return mapping.Primary
	}

	for _, c := range candidates[1:] {
		if c.FitsTier(tier) {
			return c
		}
	}

	// Nothing fits the tier; fall back to the last (cheapest-to-run)
	// chain entry rather than failing.
	return candidates[len(candidates)-1]
}

func (r *Router) acquireSlot(agentID string, maxConcurrent int) bool {
	s, _ := r.slots.LoadOrStore(agentID, &agentSlots{})
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inUse >= maxConcurrent {
		return false
	}
	s.inUse++
	return true
}

// estimateTokensPerSec derives throughput purely from the profile and the
// tier; nothing is measured.
func estimateTokensPerSec(p *domain.ModelProfile, tier domain.HardwareTier) float64 {
	factor := 0.25 * float64(tier.ID.Rank())
	return p.TokensPerSecond * factor
}

func nextStrength(s domain.ModelStrength) domain.ModelStrength {
	switch s {
	case domain.StrengthSpeed:
		return domain.StrengthBalanced
	case domain.StrengthBalanced:
		return domain.StrengthPower
	default:
		return domain.StrengthReasoning
	}
}

func priorityOrDefault(priority, fallback int) int {
	if priority != 0 {
		return priority
	}
	return fallback
}
