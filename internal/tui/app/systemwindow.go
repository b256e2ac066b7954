package app

import (
	"fmt"
	"sort"

	"aurora-kvm-top/internal/eventqueue"
	"aurora-kvm-top/internal/model"
	"aurora-kvm-top/internal/tui/screen"
)

// SystemWindow summarizes host-wide resources: CPU, memory, swap,
// aggregated VM footprint, and per-device disk usage.
type SystemWindow struct {
	*screen.Window
	hostCPUs uint
}

func NewSystemWindow(queue *eventqueue.EventQueue, scr *screen.Screen) *SystemWindow {
	return &SystemWindow{Window: screen.NewWindow(queue, scr, "System [2]")}
}

func (s *SystemWindow) SetHostCPUs(n uint) { s.hostCPUs = n }

// Refresh rebuilds the window content from snap. It includes a one-line
// badge reporting whether a known hardware-virtualization CPU flag (vmx or
// svm) was observed (a supplemented feature the original source's node-info
// text output never exposed directly).
func (s *SystemWindow) Refresh(snap model.Snapshot, cpuFlags map[string]struct{}) {
	virt := "no"
	if _, ok := cpuFlags["vmx"]; ok {
		virt = "yes (vmx)"
	} else if _, ok := cpuFlags["svm"]; ok {
		virt = "yes (svm)"
	}

	lines := []string{
		fmt.Sprintf("Host CPU:     %6.2f%%  (%d logical cores)", snap.HostCPUPercent, s.hostCPUs),
		fmt.Sprintf("VM CPU total: %6.2f%%  (normalized to host cores)", snap.TotalVMCPUPercent),
		fmt.Sprintf("HW virtualization: %s", virt),
		"",
		fmt.Sprintf("Memory: %s used / %s total", formatBytes(snap.Host.Mem.Used()), formatBytes(snap.Host.Mem.Total)),
		fmt.Sprintf("Swap:   %s used / %s total", formatBytes(snap.Host.Swap.Used()), formatBytes(snap.Host.Swap.Total)),
		fmt.Sprintf("VM RSS: %s", formatBytes(snap.TotalVMRSS)),
		"",
		"Disks:",
	}

	devices := make([]string, 0, len(snap.Host.Disks))
	for dev := range snap.Host.Disks {
		devices = append(devices, dev)
	}
	sort.Strings(devices)
	for _, dev := range devices {
		du := snap.Host.Disks[dev]
		lines = append(lines, fmt.Sprintf("  %-14s vm=%-8s free=%s", dev, formatBytes(du.VMBytes), formatBytes(du.Usage.Available)))
	}

	s.SetContent(lines)
}
