// Package speculative implements draft-then-verify token generation: a
// cheap draft model proposes tokens and an accurate verify model confirms
// them. Both model calls are injected so the control logic stays
// unit-testable without a real backend.
package speculative

import (
	"context"
	"sync"
	"time"

	"github.com/mereck/gantry/internal/core/ports"
	"github.com/mereck/gantry/internal/logger"
)

type Config struct {
	MaxDraftTokens int
	// AdaptiveDraftTokens adjusts the per-round draft length toward
	// TargetAcceptanceRate.
	AdaptiveDraftTokens  bool
	TargetAcceptanceRate float64
	// MinSpeedup is the speedup IsBeneficial must see over recent calls.
	MinSpeedup float64
	// MinSamples before IsBeneficial stops defaulting to true.
	MinSamples int
}

func DefaultConfig() Config {
	return Config{
		MaxDraftTokens:       8,
		AdaptiveDraftTokens:  true,
		TargetAcceptanceRate: 0.68,
		MinSpeedup:           1.2,
		MinSamples:           5,
	}
}

// Outcome reports one decode call.
type Outcome struct {
	Output          string  `json:"output"`
	TokensGenerated int     `json:"tokens_generated"`
	DraftTokens     int     `json:"draft_tokens"`
	AcceptedTokens  int     `json:"accepted_tokens"`
	AcceptanceRate  float64 `json:"acceptance_rate"`
	SpeedupFactor   float64 `json:"speedup_factor"`
	DurationMs      int64   `json:"duration_ms"`
}

// Stats accumulate across the decoder's lifetime.
type Stats struct {
	Calls          int64   `json:"calls"`
	DraftTokens    int64   `json:"draft_tokens"`
	AcceptedTokens int64   `json:"accepted_tokens"`
	AvgAcceptance  float64 `json:"avg_acceptance"`
}

type Decoder struct {
	cfg      Config
	generate ports.GenerateFunc
	logger   logger.StyledLogger

	mu            sync.Mutex
	draftLen      int
	calls         int64
	draftTotal    int64
	acceptedTotal int64
	recentAccepts []float64
}

func NewDecoder(cfg Config, generate ports.GenerateFunc, log logger.StyledLogger) *Decoder {
	if cfg.MaxDraftTokens < 1 {
		cfg.MaxDraftTokens = DefaultConfig().MaxDraftTokens
	}
	return &Decoder{
		cfg:      cfg,
		generate: generate,
		logger:   log,
		draftLen: cfg.MaxDraftTokens,
	}
}

// Decode runs one draft pass with draftModel then verifies the same
// continuation with verifyModel. Accepted tokens are the position-wise
// matches; the verify model's output wins wherever they diverge.
func (d *Decoder) Decode(ctx context.Context, prompt, draftModel, verifyModel string, maxTokens int) (Outcome, error) {
	start := time.Now()

	draftLen := d.currentDraftLen()
	if maxTokens > 0 && draftLen > maxTokens {
		draftLen = maxTokens
	}

	draft, err := d.generate(ctx, draftModel, prompt, draftLen)
	if err != nil {
		return Outcome{}, err
	}

	verified, err := d.generate(ctx, verifyModel, prompt, maxTokens)
	if err != nil {
		return Outcome{}, err
	}

	accepted := countMatches(draft.Tokens, verified.Tokens)
	rate := CalculateAcceptanceRate(draft.Tokens, verified.Tokens)

	d.recordRound(len(draft.Tokens), accepted, rate)

	out := Outcome{
		Output:          verified.Text,
		TokensGenerated: len(verified.Tokens),
		DraftTokens:     len(draft.Tokens),
		AcceptedTokens:  accepted,
		AcceptanceRate:  rate,
		SpeedupFactor:   SpeedupFactor(rate),
		DurationMs:      time.Since(start).Milliseconds(),
	}
	if d.logger != nil {
		d.logger.Debug("Speculative round complete",
			"draft_model", draftModel,
			"verify_model", verifyModel,
			"accepted", accepted,
			"rate", rate)
	}
	return out, nil
}

// CalculateAcceptanceRate is the fraction of draft tokens confirmed
// position-wise by the verify pass. An empty draft is 0 by definition,
// never NaN.
func CalculateAcceptanceRate(draft, verified []string) float64 {
	if len(draft) == 0 {
		return 0
	}
	return float64(countMatches(draft, verified)) / float64(len(draft))
}

func countMatches(draft, verified []string) int {
	n := 0
	for i := 0; i < len(draft) && i < len(verified); i++ {
		if draft[i] == verified[i] {
			n++
		}
	}
	return n
}

// SpeedupFactor maps an acceptance rate to the expected end-to-end
// speedup. It is exactly 1.0 at rate 0, monotonically increasing, and
// never below 1.0: rejected drafts cost nothing but the cheap pass.
func SpeedupFactor(acceptanceRate float64) float64 {
	if acceptanceRate <= 0 {
		return 1.0
	}
	if acceptanceRate > 1 {
		acceptanceRate = 1
	}
	// Accepted tokens come nearly free; the tail is paid at full price.
	return 1.0 + acceptanceRate*1.5
}

// GetStats returns cumulative counters across the decoder's lifetime.
func (d *Decoder) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		Calls:          d.calls,
		DraftTokens:    d.draftTotal,
		AcceptedTokens: d.acceptedTotal,
	}
	if d.draftTotal > 0 {
		s.AvgAcceptance = float64(d.acceptedTotal) / float64(d.draftTotal)
	}
	return s
}

// ResetStats zeroes the cumulative counters and the adaptive state.
func (d *Decoder) ResetStats() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = 0
	d.draftTotal = 0
	d.acceptedTotal = 0
	d.recentAccepts = nil
	d.draftLen = d.cfg.MaxDraftTokens
}

// IsBeneficial reports whether the recent average acceptance rate clears
// the minimum speedup threshold. Defaults to true until enough samples
// exist to say otherwise.
func (d *Decoder) IsBeneficial() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.recentAccepts) < d.cfg.MinSamples {
		return true
	}
	var sum float64
	for _, r := range d.recentAccepts {
		sum += r
	}
	avg := sum / float64(len(d.recentAccepts))
	return SpeedupFactor(avg) >= d.cfg.MinSpeedup
}

func (d *Decoder) currentDraftLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draftLen
}

// recordRound folds one round into the cumulative stats and, when
// adaptive drafting is on, nudges the draft length toward the target
// acceptance rate within [1, MaxDraftTokens].
func (d *Decoder) recordRound(draftTokens, accepted int, rate float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	d.draftTotal += int64(draftTokens)
	d.acceptedTotal += int64(accepted)

	d.recentAccepts = append(d.recentAccepts, rate)
	if len(d.recentAccepts) > 20 {
		d.recentAccepts = d.recentAccepts[1:]
	}

	if !d.cfg.AdaptiveDraftTokens {
		return
	}

	switch {
	case rate < d.cfg.TargetAcceptanceRate && d.draftLen > 1:
		d.draftLen--
	case rate > d.cfg.TargetAcceptanceRate && d.draftLen < d.cfg.MaxDraftTokens:
		d.draftLen++
	}
}
