//go:build nonvml

package hardware

// Builds without NVML support report no NVIDIA GPU and fall through to
// CPU-only classification.
func nvidiaVRAMGB() float64 {
	return 0
}
