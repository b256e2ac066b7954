package balloon

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

var zeroTime time.Time

// subController is the per-VM closed-loop state: the remembered
// last_updated_sec value (to detect stale reads), the active back-off
// deadline, and the last human-readable status line.
type subController struct {
	name           string
	params         Params
	backoffUntil   time.Time
	lastUpdateSec  int64
	haveLastUpdate bool
	lastStatus     string
}

func newSubController(name string, params Params) *subController {
	return &subController{name: name, params: params}
}

func (s *subController) backingOff(now time.Time) bool {
	return now.Before(s.backoffUntil)
}

func (s *subController) tick(ctx context.Context, now time.Time, enabled bool, view CacheView, logger *slog.Logger) {
	if !enabled {
		s.backoffUntil = zeroTime
		s.haveLastUpdate = false
		s.lastStatus = "disabled"
		return
	}

	if !view.Running(s.name) {
		s.backoffUntil = now.Add(s.params.BootBackOff)
		s.haveLastUpdate = false
		s.lastStatus = "vm stopped"
		return
	}

	mem, ok := view.MemStat(s.name)
	if !ok {
		s.backoffUntil = now.Add(s.params.BootBackOff)
		s.haveLastUpdate = false
		s.lastStatus = "vm stopped"
		return
	}

	if !mem.GuestStatOK {
		s.lastStatus = "ballooning unsupported"
		return
	}

	if s.haveLastUpdate && mem.LastUpdatedSec == s.lastUpdateSec {
		s.lastStatus = "no new data"
		return
	}

	guest := mem.GuestMem()
	percentUsed := guest.PercentUsed()

	var delta float64
	switch {
	case percentUsed >= s.params.TriggerIncrease:
		delta = s.params.IncreaseBy
	case percentUsed <= s.params.TriggerDecrease:
		if s.backingOff(now) {
			s.lastStatus = fmt.Sprintf("backing off for %ds", int(s.backoffUntil.Sub(now).Seconds()+0.999))
			return
		}
		delta = -s.params.DecreaseBy
	default:
		s.lastStatus = "sweet spot"
		return
	}

	info, ok := view.Info(s.name)
	if !ok {
		s.lastStatus = "vm stopped"
		return
	}

	minActual := s.params.MinActual
	desired := uint64(float64(mem.Actual) * (100 + delta) / 100)
	newActual := clamp(desired, minActual, info.MaxMemory)

	isInflate := delta > 0
	if isInflate {
		s.backoffUntil = now.Add(s.params.BackOff)
	} else {
		candidate := now.Add(s.params.BackOff)
		if !(s.backingOff(now) && s.backoffUntil.After(candidate)) {
			s.backoffUntil = candidate
		}
	}

	if newActual == mem.Actual {
		s.lastStatus = "capped"
		s.lastUpdateSec = mem.LastUpdatedSec
		s.haveLastUpdate = true
		return
	}

	if err := view.SetMemory(ctx, s.name, newActual); err != nil {
		logger.Error("balloon set_memory failed", "vm", s.name, "error", err)
		return
	}

	s.lastUpdateSec = mem.LastUpdatedSec
	s.haveLastUpdate = true

	suffix := ""
	if desired != newActual {
		suffix = " (capped)"
	}
	s.lastStatus = fmt.Sprintf("updating actual by %.0f%% to %s%s", delta, formatBytes(newActual), suffix)
}

func clamp(v, lo, hi uint64) uint64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// formatBytes renders a byte count as a short "N.NG"/"N.NM" style value
// suitable for the ballooning status line (e.g. "2.6G").
func formatBytes(b uint64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case b >= gib:
		return fmt.Sprintf("%.1fG", float64(b)/gib)
	case b >= mib:
		return fmt.Sprintf("%.1fM", float64(b)/mib)
	case b >= kib:
		return fmt.Sprintf("%.1fK", float64(b)/kib)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
