package hardware

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/psantana5/modelguard/pkg/models"
)

const (
	// ServerDetectionMinThreads is the thread count above which a host may be a server
	ServerDetectionMinThreads = 16
	// ServerDetectionMinRAMGB is the RAM above which a host may be a server
	ServerDetectionMinRAMGB = 32
)

// Detect reads CPU and memory information for the current host.
// Missing pieces are left at their zero values rather than failing.
func Detect() (*models.NodeCapabilities, error) {
	caps := &models.NodeCapabilities{
		CPUThreads:   runtime.NumCPU(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		caps.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if caps.CPUModel == "" {
		caps.CPUModel = "unknown"
	}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return caps, fmt.Errorf("failed to read memory info: %w", err)
	}
	caps.RAMTotalBytes = vmem.Total
	caps.RAMAvailableBytes = vmem.Available

	return caps, nil
}

// DetectNodeType classifies a host from its thread count and memory
func DetectNodeType(cpuThreads int, ramBytes uint64) models.NodeType {
	if hasLaptopBattery() {
		return models.NodeTypeLaptop
	}

	ramGB := float64(ramBytes) / (1024 * 1024 * 1024)
	if cpuThreads > ServerDetectionMinThreads && ramGB > ServerDetectionMinRAMGB {
		return models.NodeTypeServer
	}
	return models.NodeTypeDesktop
}

func hasLaptopBattery() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	entries, err := os.ReadDir("/sys/class/power_supply")
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if strings.Contains(strings.ToUpper(entry.Name()), "BAT") {
			return true
		}
	}
	return false
}

// FormatRAM renders a byte count in GB
func FormatRAM(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	return fmt.Sprintf("%.1f GB", gb)
}
