package balloon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurora-kvm-top/internal/logging"
	"aurora-kvm-top/internal/model"
)

// fakeCache is a minimal CacheView double for exercising Controller.Tick
// without a real SamplingCache, following the teacher's preference for
// small hand-rolled fakes over a mocking framework.
type fakeCache struct {
	names      []string
	infos      map[string]model.DomainInfo
	running    map[string]bool
	memStats   map[string]model.MemStat
	setCalls   []setMemCall
	setMemErr  error
}

type setMemCall struct {
	name      string
	newActual uint64
}

func (f *fakeCache) VMNames() []string { return f.names }

func (f *fakeCache) Info(name string) (model.DomainInfo, bool) {
	info, ok := f.infos[name]
	return info, ok
}

func (f *fakeCache) Running(name string) bool { return f.running[name] }

func (f *fakeCache) MemStat(name string) (model.MemStat, bool) {
	m, ok := f.memStats[name]
	return m, ok
}

func (f *fakeCache) SetMemory(_ context.Context, name string, newActual uint64) error {
	f.setCalls = append(f.setCalls, setMemCall{name: name, newActual: newActual})
	if f.setMemErr != nil {
		return f.setMemErr
	}
	stat := f.memStats[name]
	stat.Actual = newActual
	f.memStats[name] = stat
	return nil
}

func newTestLogger() *logging.CaptureSink {
	return logging.NewCaptureSink()
}

func guestStat(actual uint64, percentUsed float64, lastUpdate int64) model.MemStat {
	// GuestMem() derives percent_used from Available/Usable: pick Usable so
	// (Total-Usable)/Total == percentUsed, with Available as Total.
	const total = uint64(100_000_000)
	usable := uint64(float64(total) * (100 - percentUsed) / 100)
	return model.MemStat{
		Actual:         actual,
		RSS:            actual / 2,
		LastUpdatedSec: lastUpdate,
		Unused:         total - usable,
		Available:      total,
		Usable:         usable,
		DiskCaches:     0,
		GuestStatOK:    true,
	}
}

func newTestController() (*Controller, *logging.CaptureSink) {
	sink := newTestLogger()
	logger := logging.SlogSink(sink)
	return NewController(logger, DefaultParams()), sink
}

// Seed scenario 1 (spec.md §8): inflate on pressure.
func TestTickInflatesOnPressure(t *testing.T) {
	ctl, _ := newTestController()
	const twoGiB = 2 * giB
	const sixteenGiB = 16 * giB

	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: sixteenGiB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(twoGiB, 100, 1000),
		},
	}

	ctl.Tick(context.Background(), time.Now(), cache)

	require.Len(t, cache.setCalls, 1)
	assert.Equal(t, "web-1", cache.setCalls[0].name)
	assert.Equal(t, uint64(2791728742), cache.setCalls[0].newActual)
	assert.Contains(t, ctl.Status("web-1"), "updating actual by 30% to 2.6G")
}

// Seed scenario 2: cap at max.
func TestTickCapsAtMaxMemory(t *testing.T) {
	ctl, _ := newTestController()
	const fifteenGiB = 15 * giB
	const sixteenGiB = 16 * giB

	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: sixteenGiB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(fifteenGiB, 95, 1000),
		},
	}

	ctl.Tick(context.Background(), time.Now(), cache)

	require.Len(t, cache.setCalls, 1)
	assert.Equal(t, uint64(sixteenGiB), cache.setCalls[0].newActual)
	assert.Contains(t, ctl.Status("web-1"), "capped")
}

// Seed scenario 3: back-off suppresses, then releases, a deflate.
func TestBackOffSuppressesThenReleasesDeflate(t *testing.T) {
	ctl, _ := newTestController()
	const fourGiB = 4 * giB
	const sixteenGiB = 16 * giB

	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: sixteenGiB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(fourGiB, 50, 1000),
		},
	}

	t0 := time.Now()
	ctl.Tick(context.Background(), t0, cache)
	require.Len(t, cache.setCalls, 1, "first tick should deflate")
	afterFirst := cache.memStats["web-1"].Actual
	assert.Less(t, afterFirst, uint64(fourGiB))

	// New reading 5s later, still under trigger_decrease: should be
	// suppressed by the still-active back-off.
	stat := cache.memStats["web-1"]
	stat.LastUpdatedSec = 1005
	cache.memStats["web-1"] = stat
	ctl.Tick(context.Background(), t0.Add(5*time.Second), cache)
	require.Len(t, cache.setCalls, 1, "second tick within back-off should not call set_memory")
	assert.Contains(t, ctl.Status("web-1"), "backing off for")

	// 11s after the first deflate, back-off has expired.
	stat = cache.memStats["web-1"]
	stat.LastUpdatedSec = 1011
	cache.memStats["web-1"] = stat
	ctl.Tick(context.Background(), t0.Add(11*time.Second), cache)
	require.Len(t, cache.setCalls, 2, "third tick after back-off should deflate again")
	assert.Equal(t, uint64(float64(afterFirst)*0.90), cache.setCalls[1].newActual)
}

// Invariant (spec.md §8): disabled=true never changes actual.
func TestDisabledNeverChangesActual(t *testing.T) {
	ctl, _ := newTestController()
	ctl.SetEnabled("web-1", false)
	const twoGiB = 2 * giB
	const sixteenGiB = 16 * giB

	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: sixteenGiB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(twoGiB, 100, 1000),
		},
	}

	for i := 0; i < 5; i++ {
		ctl.Tick(context.Background(), time.Now().Add(time.Duration(i)*time.Second), cache)
	}

	assert.Empty(t, cache.setCalls)
	assert.Equal(t, "disabled", ctl.Status("web-1"))
	assert.Equal(t, uint64(twoGiB), cache.memStats["web-1"].Actual)
}

// Invariant: after one inflate decision, actual strictly increases and
// never drops below min_actual.
func TestInflateStrictlyIncreasesActual(t *testing.T) {
	ctl, _ := newTestController()
	const threeGiB = 3 * giB
	const sixteenGiB = 16 * giB

	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: sixteenGiB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(threeGiB, 80, 1000),
		},
	}

	before := cache.memStats["web-1"].Actual
	ctl.Tick(context.Background(), time.Now(), cache)
	after := cache.memStats["web-1"].Actual

	assert.Greater(t, after, before)
	assert.GreaterOrEqual(t, after, DefaultParams().MinActual)
}

func TestVMStoppedAppliesBootBackOff(t *testing.T) {
	ctl, _ := newTestController()
	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: 16 * giB}},
		running: map[string]bool{"web-1": false},
	}
	ctl.Tick(context.Background(), time.Now(), cache)
	assert.Equal(t, "vm stopped", ctl.Status("web-1"))
}

func TestBallooningUnsupportedWhenNoGuestStats(t *testing.T) {
	ctl, _ := newTestController()
	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: 16 * giB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": {Actual: 2 * giB, RSS: 1 * giB, LastUpdatedSec: 1000, GuestStatOK: false},
		},
	}
	ctl.Tick(context.Background(), time.Now(), cache)
	assert.Equal(t, "ballooning unsupported", ctl.Status("web-1"))
}

func TestNoNewDataWhenTimestampUnchanged(t *testing.T) {
	ctl, _ := newTestController()
	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: 16 * giB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(2*giB, 100, 1000),
		},
	}
	// First tick inflates and records last_updated_sec=1000, marking
	// haveLastUpdate — only an applied decision (not "sweet spot") arms the
	// no-new-data check.
	ctl.Tick(context.Background(), time.Now(), cache)
	require.Contains(t, ctl.Status("web-1"), "updating actual by")

	// A second tick sees the same guest timestamp: nothing new to act on.
	ctl.Tick(context.Background(), time.Now().Add(time.Second), cache)
	assert.Equal(t, "no new data", ctl.Status("web-1"))
}

func TestSetMemoryFailureAbortsTickWithoutUpdatingBookkeeping(t *testing.T) {
	ctl, sink := newTestController()
	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: 16 * giB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(2*giB, 100, 1000),
		},
		setMemErr: errors.New("virsh: connection refused"),
	}

	ctl.Tick(context.Background(), time.Now(), cache)

	require.Len(t, cache.setCalls, 1)
	entries := sink.Entries()
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[len(entries)-1].Message, "connection refused")
}

func TestPruneRemovesVanishedVM(t *testing.T) {
	ctl, _ := newTestController()
	cache := &fakeCache{
		names:   []string{"web-1"},
		infos:   map[string]model.DomainInfo{"web-1": {Name: "web-1", MaxMemory: 16 * giB}},
		running: map[string]bool{"web-1": true},
		memStats: map[string]model.MemStat{
			"web-1": guestStat(4*giB, 60, 1000),
		},
	}
	ctl.Tick(context.Background(), time.Now(), cache)
	assert.NotEmpty(t, ctl.Status("web-1"))

	cache.names = nil
	ctl.Tick(context.Background(), time.Now(), cache)
	assert.Equal(t, "", ctl.Status("web-1"))
}
