package balloon

import (
	"errors"
	"time"
)

// Params holds one VM's (or the default) auto-ballooning tuning. Every
// field is per-VM overridable (spec.md §4.4).
type Params struct {
	MinActual        uint64        // bytes
	TriggerIncrease  float64       // percent
	IncreaseBy       float64       // percent, relative inflate step
	TriggerDecrease  float64       // percent
	DecreaseBy       float64       // percent, relative deflate step
	BackOff          time.Duration // cool-down after a deflate
	BootBackOff      time.Duration // cool-down applied after boot / while shut off
}

const (
	giB = 1 << 30
)

func DefaultParams() Params {
	return Params{
		MinActual:       2 * giB,
		TriggerIncrease: 65,
		IncreaseBy:      30,
		TriggerDecrease: 55,
		DecreaseBy:      10,
		BackOff:         10 * time.Second,
		BootBackOff:     20 * time.Second,
	}
}

func (p Params) Validate() error {
	if p.TriggerDecrease >= p.TriggerIncrease {
		return errors.New("balloon: trigger_decrease must be below trigger_increase")
	}
	if p.IncreaseBy <= 0 || p.DecreaseBy <= 0 {
		return errors.New("balloon: increase_by and decrease_by must be > 0")
	}
	if p.BackOff <= 0 || p.BootBackOff <= 0 {
		return errors.New("balloon: back_off and boot_back_off must be > 0")
	}
	return nil
}
