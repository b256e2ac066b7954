package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVMCacheStaleNilAgeIsNotStale(t *testing.T) {
	vc := VMCache{}
	assert.False(t, vc.Stale())
}

func TestVMCacheStaleThresholdIsSevenSeconds(t *testing.T) {
	six := int64(6)
	seven := int64(7)
	assert.False(t, VMCache{MemDataAgeSec: &six}.Stale())
	assert.True(t, VMCache{MemDataAgeSec: &seven}.Stale())
}

func TestDiskStatOverheadPercent(t *testing.T) {
	d := DiskStat{Allocation: 20_000_000_000, Physical: 25_000_000_000}
	assert.Equal(t, 25, d.OverheadPercent())
}

func TestDiskStatOverheadPercentZeroAllocationIsZero(t *testing.T) {
	d := DiskStat{Allocation: 0, Physical: 1000}
	assert.Equal(t, 0, d.OverheadPercent())
}

func TestDiskStatOverheadPercentClampsToRange(t *testing.T) {
	over := DiskStat{Allocation: 1, Physical: 100}
	assert.Equal(t, 999, over.OverheadPercent())

	under := DiskStat{Allocation: 1000, Physical: 0}
	assert.Equal(t, -100, under.OverheadPercent())
}

func TestMemoryStatPercentUsed(t *testing.T) {
	m := MemoryStat{Total: 1000, Available: 250}
	assert.Equal(t, uint64(750), m.Used())
	assert.InDelta(t, 75.0, m.PercentUsed(), 0.0001)
}

func TestMemoryStatZeroTotalPercentUsedIsZero(t *testing.T) {
	m := MemoryStat{}
	assert.Equal(t, 0.0, m.PercentUsed())
}

func TestDomainStateString(t *testing.T) {
	assert.Equal(t, "running", DomainStateRunning.String())
	assert.Equal(t, "paused", DomainStatePaused.String())
	assert.Equal(t, "shut_off", DomainStateShutOff.String())
	assert.Equal(t, "other", DomainStateOther.String())
}
