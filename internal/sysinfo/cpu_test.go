package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aurora-kvm-top/internal/model"
)

func TestCPUUsagePercentNoPreviousSampleIsZero(t *testing.T) {
	cur := model.CpuSample{TotalClocks: 1000, IdleClocks: 500}
	assert.Equal(t, 0.0, CPUUsagePercent(nil, cur))
}

// Δidle=9724, Δtotal=10141 yields 4.11% non-idle time.
func TestCPUUsagePercentComputesNonIdleFraction(t *testing.T) {
	prev := model.CpuSample{TotalClocks: 100000, IdleClocks: 90000}
	cur := model.CpuSample{TotalClocks: 100000 + 10141, IdleClocks: 90000 + 9724}
	assert.InDelta(t, 4.11, CPUUsagePercent(&prev, cur), 0.001)
}

func TestCPUUsagePercentClampsNonPositiveDeltaTotalToZero(t *testing.T) {
	prev := model.CpuSample{TotalClocks: 5000, IdleClocks: 4000}
	cur := model.CpuSample{TotalClocks: 5000, IdleClocks: 4000}
	assert.Equal(t, 0.0, CPUUsagePercent(&prev, cur))
}

func TestCPUUsagePercentClampsNegativeDeltaIdleToZero(t *testing.T) {
	// A counter reset or clock skew could make idle look like it went
	// backwards relative to total moving forward; floor delta idle at 0
	// rather than reporting over 100%.
	prev := model.CpuSample{TotalClocks: 10000, IdleClocks: 9000}
	cur := model.CpuSample{TotalClocks: 10100, IdleClocks: 8000}
	assert.Equal(t, 100.0, CPUUsagePercent(&prev, cur))
}

func TestCPUUsagePercentFullyIdleIsZero(t *testing.T) {
	prev := model.CpuSample{TotalClocks: 10000, IdleClocks: 9000}
	cur := model.CpuSample{TotalClocks: 10100, IdleClocks: 9100}
	assert.Equal(t, 0.0, CPUUsagePercent(&prev, cur))
}
