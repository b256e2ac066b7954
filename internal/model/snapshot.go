package model

// VMCache is the per-VM derived record the SamplingCache produces each tick
// by diffing the previous and current DomainData for a VM.
type VMCache struct {
	Data            DomainData
	CPUUsagePercent float64
	MemDataAgeSec   *int64
}

// Stale reports whether the VM's balloon statistics have not advanced
// recently enough to trust (spec threshold: >= 7 seconds).
func (v VMCache) Stale() bool {
	if v.MemDataAgeSec == nil {
		return false
	}
	return *v.MemDataAgeSec >= 7
}

// Snapshot is the immutable, whole-system view produced by one
// SamplingCache.Update call.
type Snapshot struct {
	PerVM              map[string]VMCache
	Host               HostSample
	HostCPUPercent     float64
	TotalVMRSS         uint64
	TotalVMCPUPercent  float64
}
