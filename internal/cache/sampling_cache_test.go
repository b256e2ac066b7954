package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurora-kvm-top/internal/model"
)

func runningDomain(cpuTimeMs, sampledAtMs int64, mem *model.MemStat) model.DomainData {
	return model.DomainData{
		Info:        model.DomainInfo{Name: "web-1"},
		State:       model.DomainStateRunning,
		SampledAtMs: sampledAtMs,
		CPUTimeMs:   cpuTimeMs,
		MemStat:     mem,
	}
}

func TestDiffFirstSampleHasNoCPUPercentOrZeroAge(t *testing.T) {
	mem := &model.MemStat{Actual: 1 << 30, LastUpdatedSec: 1000}
	next := runningDomain(500, 10000, mem)

	vc := diff(nil, next)

	assert.Equal(t, 0.0, vc.CPUUsagePercent)
	require.NotNil(t, vc.MemDataAgeSec)
	assert.Equal(t, int64(0), *vc.MemDataAgeSec)
}

func TestDiffComputesCPUPercentFromDeltaCPUTimeOverDeltaWallTime(t *testing.T) {
	prevMem := &model.MemStat{Actual: 1 << 30, LastUpdatedSec: 1000}
	curMem := &model.MemStat{Actual: 1 << 30, LastUpdatedSec: 1005}
	prev := runningDomain(1000, 10000, prevMem)
	next := runningDomain(1500, 11000, curMem)

	vc := diff(&prev, next)

	// 500ms of CPU time over 1000ms of wall time is 50%.
	assert.InDelta(t, 50.0, vc.CPUUsagePercent, 0.0001)
	require.NotNil(t, vc.MemDataAgeSec)
	assert.Equal(t, int64(5), *vc.MemDataAgeSec)
}

func TestDiffNonPositiveDeltaMsLeavesCPUPercentZero(t *testing.T) {
	prev := runningDomain(1000, 10000, nil)
	next := runningDomain(1500, 10000, nil) // same sample instant
	vc := diff(&prev, next)
	assert.Equal(t, 0.0, vc.CPUUsagePercent)
}

func TestDiffStoppedDomainHasNilMemDataAge(t *testing.T) {
	next := model.DomainData{
		Info:        model.DomainInfo{Name: "web-1"},
		State:       model.DomainStateShutOff,
		SampledAtMs: 10000,
	}
	vc := diff(nil, next)
	assert.Nil(t, vc.MemDataAgeSec)
}

func TestDiffRunningWithoutMemStatHasNilMemDataAge(t *testing.T) {
	next := model.DomainData{
		Info:        model.DomainInfo{Name: "web-1"},
		State:       model.DomainStateRunning,
		SampledAtMs: 10000,
		MemStat:     nil,
	}
	vc := diff(nil, next)
	assert.Nil(t, vc.MemDataAgeSec)
}

// MemDataAgeSec is the delta between the guest's last-update timestamps,
// not the wall-clock gap between samples: two samples 7s apart that carry
// the same last-update give an age of 0.
func TestDiffUnchangedGuestTimestampGivesZeroAge(t *testing.T) {
	mem := &model.MemStat{Actual: 1 << 30, LastUpdatedSec: 1000}
	first := runningDomain(1000, 10000, mem)
	vc1 := diff(nil, first)
	require.NotNil(t, vc1.MemDataAgeSec)
	assert.Equal(t, int64(0), *vc1.MemDataAgeSec)

	second := runningDomain(1200, 17000, mem) // last-update unchanged, 7s later
	vc2 := diff(&first, second)
	require.NotNil(t, vc2.MemDataAgeSec)
	assert.Equal(t, int64(0), *vc2.MemDataAgeSec)
	assert.GreaterOrEqual(t, *vc2.MemDataAgeSec, int64(0))
}

func TestDiffMemDataAgeReflectsGuestTimestampDelta(t *testing.T) {
	prevMem := &model.MemStat{Actual: 1 << 30, LastUpdatedSec: 1000}
	curMem := &model.MemStat{Actual: 1 << 30, LastUpdatedSec: 1007}
	prev := runningDomain(1000, 10000, prevMem)
	next := runningDomain(1000, 17000, curMem)

	vc := diff(&prev, next)
	require.NotNil(t, vc.MemDataAgeSec)
	assert.Equal(t, int64(7), *vc.MemDataAgeSec)
}

func TestPrevCPUSamplePtrNilForZeroValueSample(t *testing.T) {
	assert.Nil(t, prevCPUSamplePtr(model.Snapshot{}))
}

func TestPrevCPUSamplePtrReturnsCopyOfHostCPU(t *testing.T) {
	snap := model.Snapshot{Host: model.HostSample{CPU: model.CpuSample{TotalClocks: 10, IdleClocks: 5}}}
	ptr := prevCPUSamplePtr(snap)
	require.NotNil(t, ptr)
	assert.Equal(t, model.CpuSample{TotalClocks: 10, IdleClocks: 5}, *ptr)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "new_actual", Reason: "below 128 MiB floor"}
	assert.Equal(t, "validation error: new_actual: below 128 MiB floor", err.Error())
}
