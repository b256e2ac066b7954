package cache

import (
	"context"
	"fmt"
	"log/slog"

	"aurora-kvm-top/internal/hypervisor"
	"aurora-kvm-top/internal/model"
	"aurora-kvm-top/internal/sysinfo"
)

const (
	minSetMemoryBytes = 128 * 1024 * 1024
)

// SamplingCache merges the hypervisor adapter's per-VM samples with the
// host's own /proc-derived counters into an immutable Snapshot, replaced
// wholesale on every Update (spec.md §4.3). It is owned exclusively by the
// event-loop thread: no field is protected by a lock.
type SamplingCache struct {
	logger   *slog.Logger
	adapter  *hypervisor.Adapter
	snapshot model.Snapshot
	hostCPUs uint
}

func New(logger *slog.Logger, adapter *hypervisor.Adapter) *SamplingCache {
	return &SamplingCache{
		logger:  logger,
		adapter: adapter,
		snapshot: model.Snapshot{
			PerVM: make(map[string]model.VMCache),
			Host:  model.HostSample{Disks: make(map[string]model.DiskUsage)},
		},
	}
}

// Update runs one full sampling pass: fetch current VM and host data, diff
// against the previous snapshot, and replace it wholesale. On error the
// previous snapshot is left in place (spec.md §7: the current tick aborts,
// the next tick retries).
func (c *SamplingCache) Update(ctx context.Context) error {
	prev := c.snapshot

	current, err := c.adapter.DomainData(ctx)
	if err != nil {
		return fmt.Errorf("sampling cache update: %w", err)
	}

	ram, swap, err := sysinfo.MemoryStats()
	if err != nil {
		return fmt.Errorf("sampling cache update: %w", err)
	}

	cpuSample, err := sysinfo.CPUSample()
	if err != nil {
		return fmt.Errorf("sampling cache update: %w", err)
	}
	hostCPUPercent := sysinfo.CPUUsagePercent(prevCPUSamplePtr(prev), cpuSample)

	if c.hostCPUs == 0 {
		if hostInfo, hostErr := c.adapter.HostInfo(ctx); hostErr == nil {
			c.hostCPUs = hostInfo.CPUs()
		} else {
			c.logger.Warn("failed to refresh host cpu topology", "error", hostErr)
		}
	}

	perVM := make(map[string]model.VMCache, len(current))
	var totalRSS uint64
	var totalCPUPercent float64
	var qcow2 []sysinfo.Qcow2Ref

	for name, data := range current {
		var prevData *model.DomainData
		if pv, ok := prev.PerVM[name]; ok {
			d := pv.Data
			prevData = &d
		}
		perVM[name] = diff(prevData, data)

		if data.Running() && data.MemStat != nil {
			totalRSS += data.MemStat.RSS
		}
		totalCPUPercent += perVM[name].CPUUsagePercent

		for _, disk := range data.Disks {
			if disk.HasPath {
				qcow2 = append(qcow2, sysinfo.Qcow2Ref{Path: disk.Path, PhysicalByte: disk.Physical})
			}
		}
	}

	if c.hostCPUs > 0 {
		totalCPUPercent /= float64(c.hostCPUs)
	} else {
		totalCPUPercent = 0
	}

	disks, err := sysinfo.DiskUsage(ctx, qcow2)
	if err != nil {
		return fmt.Errorf("sampling cache update: %w", err)
	}

	c.snapshot = model.Snapshot{
		PerVM:             perVM,
		HostCPUPercent:    hostCPUPercent,
		TotalVMRSS:        totalRSS,
		TotalVMCPUPercent: totalCPUPercent,
		Host: model.HostSample{
			Mem:   ram,
			Swap:  swap,
			CPU:   cpuSample,
			Disks: disks,
		},
	}
	return nil
}

// diff builds one VM's derived record from its previous and current
// DomainData samples, per spec.md §4.3 step 3.
func diff(prev *model.DomainData, next model.DomainData) model.VMCache {
	vc := model.VMCache{Data: next}

	if prev != nil {
		deltaMs := next.SampledAtMs - prev.SampledAtMs
		if deltaMs > 0 {
			vc.CPUUsagePercent = float64(next.CPUTimeMs-prev.CPUTimeMs) * 100 / float64(deltaMs)
		}
	}

	switch {
	case next.MemStat == nil || !next.Running():
		vc.MemDataAgeSec = nil
	case prev == nil || prev.MemStat == nil:
		age := int64(0)
		vc.MemDataAgeSec = &age
	default:
		age := next.MemStat.LastUpdatedSec - prev.MemStat.LastUpdatedSec
		vc.MemDataAgeSec = &age
	}

	return vc
}

func prevCPUSamplePtr(prev model.Snapshot) *model.CpuSample {
	if prev.Host.CPU == (model.CpuSample{}) {
		return nil
	}
	s := prev.Host.CPU
	return &s
}

// VMNames returns every VM name present in the current snapshot.
func (c *SamplingCache) VMNames() []string {
	names := make([]string, 0, len(c.snapshot.PerVM))
	for name := range c.snapshot.PerVM {
		names = append(names, name)
	}
	return names
}

// Record looks up a VM's full derived cache record.
func (c *SamplingCache) Record(name string) (model.VMCache, bool) {
	vc, ok := c.snapshot.PerVM[name]
	return vc, ok
}

// Info looks up a VM's static DomainInfo.
func (c *SamplingCache) Info(name string) (model.DomainInfo, bool) {
	vc, ok := c.snapshot.PerVM[name]
	if !ok {
		return model.DomainInfo{}, false
	}
	return vc.Data.Info, true
}

// MemStat looks up a VM's current balloon statistics.
func (c *SamplingCache) MemStat(name string) (model.MemStat, bool) {
	vc, ok := c.snapshot.PerVM[name]
	if !ok || vc.Data.MemStat == nil {
		return model.MemStat{}, false
	}
	return *vc.Data.MemStat, true
}

// State looks up a VM's current domain state.
func (c *SamplingCache) State(name string) (model.DomainState, bool) {
	vc, ok := c.snapshot.PerVM[name]
	if !ok {
		return model.DomainStateOther, false
	}
	return vc.Data.State, true
}

// Running reports whether name is currently a known, running VM.
func (c *SamplingCache) Running(name string) bool {
	vc, ok := c.snapshot.PerVM[name]
	return ok && vc.Data.Running()
}

// Snapshot returns the current immutable whole-system view.
func (c *SamplingCache) Snapshot() model.Snapshot {
	return c.snapshot
}

// HostCPUs returns the host's logical CPU count, as last fetched from
// HostInfo. Zero until an Update has fetched HostInfo successfully.
func (c *SamplingCache) HostCPUs() uint {
	return c.hostCPUs
}

// SetMemory validates the requested balloon size before delegating to the
// hypervisor adapter (spec.md §4.3: 128 MiB <= new_actual <= max_memory).
func (c *SamplingCache) SetMemory(ctx context.Context, name string, newActual uint64) error {
	info, ok := c.Info(name)
	if !ok {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("unknown vm %q", name)}
	}
	if newActual < minSetMemoryBytes {
		return &ValidationError{Field: "new_actual", Reason: "below 128 MiB floor"}
	}
	if newActual > info.MaxMemory {
		return &ValidationError{Field: "new_actual", Reason: fmt.Sprintf("exceeds max_memory %d", info.MaxMemory)}
	}
	return c.adapter.SetMemory(ctx, name, newActual)
}
