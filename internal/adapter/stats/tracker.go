// Package stats aggregates completed-inference measurements into per-agent
// and global summaries for escalation decisions and operator telemetry.
package stats

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
)

// DefaultMaxHistory bounds the in-memory sample window.
const DefaultMaxHistory = 1000

// Tracker keeps a bounded, insertion-ordered sample history. Oldest
// samples are evicted first once the cap is reached.
type Tracker struct {
	maxHistory int
	samples    []domain.InferenceMetricSample
	mu         sync.RWMutex
}

func NewTracker(maxHistory int) *Tracker {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Tracker{
		maxHistory: maxHistory,
		samples:    make([]domain.InferenceMetricSample, 0, maxHistory),
	}
}

// Record appends a sample, evicting the oldest once maxHistory is hit.
func (t *Tracker) Record(sample domain.InferenceMetricSample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) >= t.maxHistory {
		t.samples = t.samples[1:]
	}
	t.samples = append(t.samples, sample)
}

// Samples returns the recorded samples, filtered by agent when agentID is
// non-empty. The returned slice is a copy.
func (t *Tracker) Samples(agentID string) []domain.InferenceMetricSample {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.InferenceMetricSample, 0, len(t.samples))
	for _, s := range t.samples {
		if agentID == "" || s.AgentID == agentID {
			out = append(out, s)
		}
	}
	return out
}

// Summary aggregates one agent's samples. An agent with no samples yields
// an all-zero summary.
func (t *Tracker) Summary(agentID string) domain.AgentSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return summarise(agentID, t.filtered(agentID))
}

// GlobalSummary aggregates everything, keyed by agent, plus a ranked model
// usage list.
func (t *Tracker) GlobalSummary() domain.GlobalSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	global := domain.GlobalSummary{
		Agents: make(map[string]domain.AgentSummary),
	}

	byAgent := make(map[string][]domain.InferenceMetricSample)
	usage := make(map[string]int)
	var confidenceSum float64
	escalated := 0

	for _, s := range t.samples {
		byAgent[s.AgentID] = append(byAgent[s.AgentID], s)
		usage[s.Model]++
		confidenceSum += s.Confidence
		if s.WasEscalated {
			escalated++
		}
	}

	for agentID, samples := range byAgent {
		global.Agents[agentID] = summarise(agentID, samples)
	}

	global.TotalInferences = len(t.samples)
	if len(t.samples) > 0 {
		global.AvgConfidence = confidenceSum / float64(len(t.samples))
		global.EscalationRate = float64(escalated) / float64(len(t.samples))
	}

	for model, count := range usage {
		global.TopModels = append(global.TopModels, domain.ModelUsage{Model: model, Count: count})
	}
	sort.Slice(global.TopModels, func(i, j int) bool {
		if global.TopModels[i].Count != global.TopModels[j].Count {
			return global.TopModels[i].Count > global.TopModels[j].Count
		}
		return global.TopModels[i].Model < global.TopModels[j].Model
	})
	if len(global.TopModels) > 10 {
		global.TopModels = global.TopModels[:10]
	}

	return global
}

// ExportJSON serialises the full sample history.
func (t *Tracker) ExportJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(t.samples)
}

// Clear empties the history.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = t.samples[:0]
}

// Size returns the current sample count.
func (t *Tracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}

// filtered returns the agent's samples without copying. Callers hold the
// read lock.
func (t *Tracker) filtered(agentID string) []domain.InferenceMetricSample {
	out := make([]domain.InferenceMetricSample, 0)
	for _, s := range t.samples {
		if s.AgentID == agentID {
			out = append(out, s)
		}
	}
	return out
}

func summarise(agentID string, samples []domain.InferenceMetricSample) domain.AgentSummary {
	summary := domain.AgentSummary{
		AgentID:    agentID,
		ModelUsage: make(map[string]int),
	}
	if len(samples) == 0 {
		return summary
	}

	durations := make([]int64, 0, len(samples))
	var durationSum, confidenceSum, acceptanceSum float64
	escalated, withAcceptance := 0, 0

	for _, s := range samples {
		durations = append(durations, s.DurationMs)
		durationSum += float64(s.DurationMs)
		confidenceSum += s.Confidence
		summary.ModelUsage[s.Model]++
		if s.WasEscalated {
			escalated++
		}
		if s.HasAcceptance {
			acceptanceSum += s.AcceptanceRate
			withAcceptance++
		}
	}

	n := float64(len(samples))
	summary.TotalInferences = len(samples)
	summary.AvgDurationMs = durationSum / n
	summary.AvgConfidence = confidenceSum / n
	summary.EscalationRate = float64(escalated) / n
	summary.P50DurationMs, summary.P95DurationMs, summary.P99DurationMs = durationPercentiles(durations)
	if withAcceptance > 0 {
		summary.AvgAcceptanceRate = acceptanceSum / float64(withAcceptance)
	}

	return summary
}

var _ ports.MetricsTracker = (*Tracker)(nil)
