//go:build !nonvml

package hardware

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// nvidiaVRAMGB probes the largest discrete NVIDIA GPU through NVML.
// Returns 0 when no device is usable; sensing never errors out.
func nvidiaVRAMGB() float64 {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return 0
	}
	defer func() { _ = nvml.Shutdown() }()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return 0
	}

	var maxBytes uint64
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		memInfo, ret := device.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			continue
		}
		if memInfo.Total > maxBytes {
			maxBytes = memInfo.Total
		}
	}

	return float64(maxBytes) / (1 << 30)
}
