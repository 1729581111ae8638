// Package hardware classifies the local machine into an inference
// capability tier. Detection is cached for the process lifetime; sensing
// is abstracted behind ports.HardwareSensor so tests can force a tier.
package hardware

import (
	"sync"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
	"github.com/mereck/gantry/internal/logger"
)

type Profiler struct {
	sensor ports.HardwareSensor
	logger logger.StyledLogger

	mu       sync.Mutex
	cached   *domain.HardwareTier
	detected bool
}

func NewProfiler(sensor ports.HardwareSensor, log logger.StyledLogger) *Profiler {
	return &Profiler{
		sensor: sensor,
		logger: log,
	}
}

// Detect classifies the host and caches the result until ClearCache.
// Detection cannot fail: undetectable hardware degrades to the low tier.
func (p *Profiler) Detect() domain.HardwareTier {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.detected {
		return *p.cached
	}

	tier := classify(p.sensor.Sense())
	p.cached = &tier
	p.detected = true

	if p.logger != nil {
		p.logger.Info("Hardware tier detected",
			"tier", string(tier.ID),
			"gpu", string(tier.GPUVendor),
			"vram_gb", tier.VRAMGB,
			"ram_gb", tier.RAMGB,
			"cores", tier.CPUCores)
	}

	return tier
}

// ClearCache invalidates the cached tier so the next Detect re-senses.
func (p *Profiler) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
	p.detected = false
}

// RecommendedQuant is a pure lookup, independent of the cached tier.
func (p *Profiler) RecommendedQuant(id domain.TierID) domain.Quantization {
	return domain.QuantForTier(id)
}

func classify(facts ports.HardwareFacts) domain.HardwareTier {
	cores := facts.CPUCores
	if cores < 1 {
		cores = 1
	}

	switch facts.GPUVendor {
	case domain.VendorApple:
		// Unified memory: VRAM and RAM are the same pool.
		ram := facts.RAMGB
		if ram <= 0 {
			ram = facts.VRAMGB
		}
		return domain.HardwareTier{
			ID:               domain.TierAppleSilicon,
			GPUVendor:        domain.VendorApple,
			VRAMGB:           ram,
			RAMGB:            ram,
			CPUCores:         cores,
			RecommendedQuant: domain.QuantForTier(domain.TierAppleSilicon),
		}
	case domain.VendorNVIDIA:
		if facts.VRAMGB > 0 {
			ram := facts.RAMGB
			if ram < facts.VRAMGB {
				ram = facts.VRAMGB
			}
			id := domain.TierForVRAM(facts.VRAMGB)
			return domain.HardwareTier{
				ID:               id,
				GPUVendor:        domain.VendorNVIDIA,
				VRAMGB:           facts.VRAMGB,
				RAMGB:            ram,
				CPUCores:         cores,
				RecommendedQuant: domain.QuantForTier(id),
			}
		}
	}

	// CPU-only or undetectable hardware.
	ram := facts.RAMGB
	if ram < 0 {
		ram = 0
	}
	return domain.HardwareTier{
		ID:               domain.TierLow,
		GPUVendor:        domain.VendorNone,
		VRAMGB:           0,
		RAMGB:            ram,
		CPUCores:         cores,
		RecommendedQuant: domain.QuantForTier(domain.TierLow),
	}
}

var _ ports.HardwareProfiler = (*Profiler)(nil)
