package hardware

import (
	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
)

// StaticSensor returns fixed facts. This is the deterministic override for
// tests and for operators who want to pin the tier in configuration.
type StaticSensor struct {
	Facts ports.HardwareFacts
}

func NewStaticSensor(facts ports.HardwareFacts) *StaticSensor {
	return &StaticSensor{Facts: facts}
}

func (s *StaticSensor) Sense() ports.HardwareFacts {
	return s.Facts
}

// SensorForTier builds a static sensor whose facts classify to the given
// tier, respecting the VRAM threshold invariants.
func SensorForTier(id domain.TierID) *StaticSensor {
	switch id {
	case domain.TierAppleSilicon:
		return NewStaticSensor(ports.HardwareFacts{GPUVendor: domain.VendorApple, VRAMGB: 32, RAMGB: 32, CPUCores: 10})
	case domain.TierUltra:
		return NewStaticSensor(ports.HardwareFacts{GPUVendor: domain.VendorNVIDIA, VRAMGB: 80, RAMGB: 128, CPUCores: 32})
	case domain.TierHigh:
		return NewStaticSensor(ports.HardwareFacts{GPUVendor: domain.VendorNVIDIA, VRAMGB: 24, RAMGB: 64, CPUCores: 16})
	case domain.TierMid:
		return NewStaticSensor(ports.HardwareFacts{GPUVendor: domain.VendorNVIDIA, VRAMGB: 8, RAMGB: 32, CPUCores: 8})
	default:
		return NewStaticSensor(ports.HardwareFacts{CPUCores: 4, RAMGB: 16})
	}
}

var _ ports.HardwareSensor = (*StaticSensor)(nil)
