package balloon

import (
	"context"
	"log/slog"
	"time"

	"aurora-kvm-top/internal/model"
)

// CacheView is the narrow slice of SamplingCache the ballooning controller
// needs. Accepting an interface here (rather than importing the cache
// package directly) avoids a dependency cycle, since the cache's own
// query surface has nothing to do with ballooning decisions.
type CacheView interface {
	VMNames() []string
	Info(name string) (model.DomainInfo, bool)
	Running(name string) bool
	MemStat(name string) (model.MemStat, bool)
	SetMemory(ctx context.Context, name string, newActual uint64) error
}

// Controller owns one sub-controller per VM (spec.md §4.4: "One
// sub-controller per VM; parent controller keeps a mapping name ->
// sub-controller, pruning entries whose VM disappeared"). It is owned
// exclusively by the single event-loop thread, so it carries no locks.
type Controller struct {
	logger    *slog.Logger
	defaults  Params
	overrides map[string]Params
	subs      map[string]*subController
	enabled   map[string]bool
}

func NewController(logger *slog.Logger, defaults Params) *Controller {
	return &Controller{
		logger:    logger,
		defaults:  defaults,
		overrides: make(map[string]Params),
		subs:      make(map[string]*subController),
		enabled:   make(map[string]bool),
	}
}

// SetOverride installs a per-VM parameter override, replacing the default
// for that VM's sub-controller.
func (c *Controller) SetOverride(name string, p Params) {
	c.overrides[name] = p
	if sub, ok := c.subs[name]; ok {
		sub.params = p
	}
}

// SetEnabled toggles auto-ballooning for one VM. Toggling clears any active
// cool-down immediately, reflecting explicit user intent (spec.md §4.4).
func (c *Controller) SetEnabled(name string, enabled bool) {
	c.enabled[name] = enabled
	if sub, ok := c.subs[name]; ok {
		sub.backoffUntil = zeroTime
	}
}

func (c *Controller) Enabled(name string) bool {
	v, ok := c.enabled[name]
	if !ok {
		return true // default enabled per spec.md §4.4
	}
	return v
}

// Status returns the last recorded status line for a VM, or "" if the
// controller has never ticked it.
func (c *Controller) Status(name string) string {
	sub, ok := c.subs[name]
	if !ok {
		return ""
	}
	return sub.lastStatus
}

// Tick runs one control-loop iteration for every VM the cache currently
// knows about, pruning sub-controllers for VMs that have disappeared.
func (c *Controller) Tick(ctx context.Context, now time.Time, view CacheView) {
	names := make(map[string]struct{}, len(view.VMNames()))
	for _, name := range view.VMNames() {
		names[name] = struct{}{}
		sub, ok := c.subs[name]
		if !ok {
			params := c.defaults
			if o, ok := c.overrides[name]; ok {
				params = o
			}
			sub = newSubController(name, params)
			c.subs[name] = sub
		}
		sub.tick(ctx, now, c.Enabled(name), view, c.logger)
	}
	for name := range c.subs {
		if _, ok := names[name]; !ok {
			delete(c.subs, name)
		}
	}
}
