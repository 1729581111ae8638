package hardware

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
)

// HostSensor reads real hardware facts from the running machine. Anything
// it cannot determine comes back zero and the profiler degrades safely.
type HostSensor struct{}

func NewHostSensor() *HostSensor {
	return &HostSensor{}
}

func (s *HostSensor) Sense() ports.HardwareFacts {
	facts := ports.HardwareFacts{
		CPUCores: runtime.NumCPU(),
		RAMGB:    totalRAMGB(),
	}

	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		facts.GPUVendor = domain.VendorApple
		facts.VRAMGB = facts.RAMGB
		return facts
	}

	if vram := nvidiaVRAMGB(); vram > 0 {
		facts.GPUVendor = domain.VendorNVIDIA
		facts.VRAMGB = vram
	}

	return facts
}

// totalRAMGB reads /proc/meminfo; other platforms report 0, which the
// profiler clamps against VRAM so tier invariants still hold.
func totalRAMGB() float64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0
		}
		return kb / (1 << 20)
	}
	return 0
}

var _ ports.HardwareSensor = (*HostSensor)(nil)
