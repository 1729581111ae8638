package domain

// TierID is a coarse bucket summarising a machine's inference capacity.
type TierID string

const (
	TierAppleSilicon TierID = "apple-silicon"
	TierUltra        TierID = "ultra"
	TierHigh         TierID = "high"
	TierMid          TierID = "mid"
	TierLow          TierID = "low"
)

// GPUVendor identifies the discrete GPU vendor, if any.
type GPUVendor string

const (
	VendorApple  GPUVendor = "apple"
	VendorNVIDIA GPUVendor = "nvidia"
	VendorNone   GPUVendor = ""
)

// Quantization labels form a ladder from lightest to near-lossless.
// Escalation walks this ladder one step at a time.
type Quantization string

const (
	QuantLight    Quantization = "q4_K_M"
	QuantMedium   Quantization = "q5_K_M"
	QuantHeavy    Quantization = "q6_K"
	QuantLossless Quantization = "q8_0"
)

// VRAM thresholds (GB) for NVIDIA tier bucketing. Inferred from observed
// behaviour rather than tuned; overridable through configuration.
const (
	VRAMThresholdMid   = 8
	VRAMThresholdHigh  = 16
	VRAMThresholdUltra = 48
)

// HardwareTier is an immutable snapshot of the local machine's inference
// capacity, computed once and cached by the profiler.
type HardwareTier struct {
	ID               TierID       `json:"id"`
	GPUVendor        GPUVendor    `json:"gpu_vendor,omitempty"`
	VRAMGB           float64      `json:"vram_gb"`
	RAMGB            float64      `json:"ram_gb"`
	CPUCores         int          `json:"cpu_cores"`
	RecommendedQuant Quantization `json:"recommended_quant"`
}

// TierForVRAM buckets a discrete-GPU machine by available VRAM.
func TierForVRAM(vramGB float64) TierID {
	switch {
	case vramGB >= VRAMThresholdUltra:
		return TierUltra
	case vramGB >= VRAMThresholdHigh:
		return TierHigh
	case vramGB >= VRAMThresholdMid:
		return TierMid
	default:
		return TierLow
	}
}

// QuantForTier is a pure lookup from tier to recommended quantization.
func QuantForTier(id TierID) Quantization {
	switch id {
	case TierUltra:
		return QuantLossless
	case TierHigh:
		return QuantHeavy
	case TierMid, TierAppleSilicon:
		return QuantMedium
	default:
		return QuantLight
	}
}

// NextQuant returns the next step up the quantization ladder, or the same
// label when already at the top.
func NextQuant(q Quantization) Quantization {
	switch q {
	case QuantLight:
		return QuantMedium
	case QuantMedium:
		return QuantHeavy
	case QuantHeavy:
		return QuantLossless
	default:
		return q
	}
}

// Rank orders tiers by capacity, low to ultra. Apple silicon sits with
// high because of its unified memory model.
func (t TierID) Rank() int {
	switch t {
	case TierUltra:
		return 4
	case TierHigh, TierAppleSilicon:
		return 3
	case TierMid:
		return 2
	default:
		return 1
	}
}

// Valid reports whether the tier id is one of the five known values.
func (t TierID) Valid() bool {
	switch t {
	case TierAppleSilicon, TierUltra, TierHigh, TierMid, TierLow:
		return true
	default:
		return false
	}
}
