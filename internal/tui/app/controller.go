// Package app composes the core subsystems (spec.md §4.7): the
// SamplingCache, the BallooningController, the three tiled windows, and
// the producer threads (keyboard, resize, timer) that feed the EventQueue.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aurora-kvm-top/internal/balloon"
	"aurora-kvm-top/internal/cache"
	"aurora-kvm-top/internal/config"
	"aurora-kvm-top/internal/eventqueue"
	"aurora-kvm-top/internal/hypervisor"
	"aurora-kvm-top/internal/logging"
	"aurora-kvm-top/internal/sysinfo"
	"aurora-kvm-top/internal/tui/screen"
	"aurora-kvm-top/internal/tui/term"
)

const (
	systemWindowHeight = 13
	systemWindowMaxW   = 60
	statusBarHeight    = 1
)

// Controller owns every long-lived piece of the running TUI: the event
// queue, the screen/window tree, the sampling cache, the ballooning
// controller, and the producer goroutines that feed events in from the
// outside world. It is constructed once by main() and run to completion.
type Controller struct {
	cfg    config.Config
	logger *slog.Logger
	health *HealthStatus

	queue  *eventqueue.EventQueue
	scr    *screen.Screen
	vmWin  *VMWindow
	sysWin *SystemWindow
	logWin *LogWindow

	adapter    *hypervisor.Adapter
	cache      *cache.SamplingCache
	balloonCtl *balloon.Controller
	cpuFlags   map[string]struct{}
}

// New wires every subsystem together but starts nothing: producer threads
// and the event loop only start inside Run. extraSink, if non-nil, receives
// every log entry alongside the in-TUI LogWindow — main.go uses this to
// mirror logs to AURORA_TUI_LOG_FILE when configured, since nothing else
// can safely write to the controlling terminal while it is in raw mode.
func New(cfg config.Config, extraSink logging.Sink) *Controller {
	queue := eventqueue.New()

	c := &Controller{
		cfg:    cfg,
		health: NewHealthStatus(),
		queue:  queue,
	}

	c.scr = screen.New(queue, c.relayoutTiled)
	c.vmWin = NewVMWindow(queue, c.scr)
	c.sysWin = NewSystemWindow(queue, c.scr)
	c.logWin = NewLogWindow(queue, c.scr)
	c.scr.AddTiled("1", c.vmWin.Window)
	c.scr.AddTiled("2", c.sysWin.Window)
	c.scr.AddTiled("3", c.logWin.Window)

	logger := logging.SlogSinkLeveled(logging.NewFanOut(c.logWin, extraSink), parseLogLevel(cfg.LogLevel))
	c.logger = logger

	c.adapter = hypervisor.New(logger, cfg.HypervisorBin, cfg.LibvirtURI, cfg.ViewerBin)
	c.cache = cache.New(logger, c.adapter)
	c.balloonCtl = balloon.NewController(logger, cfg.Balloon)

	return c
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// relayoutTiled implements spec.md §4.7's tile policy: the VM list takes
// the top portion; below it SystemWindow (left, width = min(screen/2, 60),
// height 13) and LogWindow (right) share a row; the bottom line is left
// free for the status bar.
func (c *Controller) relayoutTiled(width, height int, tiled []*screen.Window) {
	if len(tiled) != 3 {
		return
	}
	vmWindow, sysWindow, logWindow := tiled[0], tiled[1], tiled[2]

	bottomHeight := systemWindowHeight + statusBarHeight
	vmHeight := height - bottomHeight
	if vmHeight < 1 {
		vmHeight = 1
	}
	vmWindow.SetRect(screen.Rect{X: 0, Y: 0, Width: width, Height: vmHeight})

	sysWidth := width / 2
	if sysWidth > systemWindowMaxW {
		sysWidth = systemWindowMaxW
	}
	if sysWidth < 1 {
		sysWidth = 1
	}
	rowY := vmHeight
	sysWindow.SetRect(screen.Rect{X: 0, Y: rowY, Width: sysWidth, Height: systemWindowHeight})
	logWindow.SetRect(screen.Rect{X: sysWidth, Y: rowY, Width: width - sysWidth, Height: systemWindowHeight})
}

// Run opens the terminal, starts every producer thread, and runs the event
// loop until it stops. It restores terminal state on every return path.
func (c *Controller) Run(ctx context.Context) error {
	tty, err := term.Open()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer func() {
		tty.DisableMouseReporting()
		tty.Clear()
		if restoreErr := tty.Restore(); restoreErr != nil {
			c.logger.Warn("terminal restore failed", "error", restoreErr)
		}
	}()
	tty.EnableMouseReporting()
	tty.Clear()

	width, height, err := tty.Size()
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}
	c.scr.Layout(width, height)

	stopResize := tty.WatchResize(c.queue)
	defer stopResize()

	go tty.ReadLoop(c.queue)

	tickCtx, cancelTick := context.WithCancel(ctx)
	defer cancelTick()
	go c.runTimer(tickCtx)

	stopSignals := c.watchShutdownSignals(ctx)
	defer stopSignals()

	err = c.queue.RunLoop(func(ev eventqueue.Event) {
		c.handleEvent(ev, tty)
	})
	if err != nil {
		return fmt.Errorf("event loop: %w", err)
	}
	return nil
}

// runTimer submits one cache-update/balloon-tick/refresh pipeline to the
// event loop every TickInterval, per spec.md §4.7 and the data-flow
// description in spec.md §2.
func (c *Controller) runTimer(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.queue.Submit(func() { c.onTick(ctx) })
		}
	}
}

func (c *Controller) onTick(ctx context.Context) {
	now := time.Now()
	if err := c.cache.Update(ctx); err != nil {
		c.logger.Error("sampling cache update failed", "error", err)
		c.health.MarkSampleFailed(err)
		return
	}
	c.health.MarkSampleOK(now)

	if c.cpuFlags == nil {
		if flags, err := sysinfo.CPUFlags(); err == nil {
			c.cpuFlags = flags
		} else {
			c.logger.Debug("cpu flags unavailable", "error", err)
		}
	}

	c.balloonCtl.Tick(ctx, now, c.cache)
	c.refreshWindows()
}

func (c *Controller) refreshWindows() {
	snap := c.cache.Snapshot()
	c.vmWin.Refresh(snap, c.balloonCtl)
	c.sysWin.SetHostCPUs(c.cache.HostCPUs())
	c.sysWin.Refresh(snap, c.cpuFlags)
}

// handleEvent is the EventQueue's single dispatch point; it only ever runs
// on the loop goroutine (spec.md §4.5).
func (c *Controller) handleEvent(ev eventqueue.Event, tty *term.Terminal) {
	switch e := ev.(type) {
	case eventqueue.KeyEvent:
		c.handleKey(e.Key)
	case eventqueue.MouseEvent:
		c.scr.HandleMouse(e)
	case eventqueue.TTYSizeEvent:
		c.scr.Layout(e.Width, e.Height)
		tty.Clear()
	case eventqueue.EmptyQueueEvent:
		c.repaint(tty)
	case eventqueue.ErrorEvent:
		c.logger.Error("fatal event loop error", "error", e.Cause)
	}
}

// handleKey implements the routing policy from spec.md §4.6-§4.7: an open
// popup always takes priority; otherwise window-switch shortcuts, then the
// VMWindow's per-VM command keys, then each window's own default key map,
// then the global quit key.
func (c *Controller) handleKey(key string) {
	if c.scr.PopupOpen() {
		c.scr.HandleKey(key)
		return
	}

	if c.scr.HasShortcut(key) {
		c.scr.SetActive(key)
		return
	}

	if c.scr.ActiveWindow() == c.vmWin.Window {
		if c.handleVMKey(key) {
			return
		}
	}

	if c.scr.HandleKey(key) {
		return
	}

	if key == "q" || key == "Esc" {
		c.queue.Stop()
	}
}

func (c *Controller) handleVMKey(key string) bool {
	name, ok := c.vmWin.SelectedVM()
	if !ok {
		return false
	}
	switch key {
	case "p":
		c.openPowerPopup(name)
		return true
	case "v":
		if err := c.adapter.LaunchViewer(name); err != nil {
			c.logger.Error("launch viewer failed", "vm", name, "error", err)
		}
		return true
	case "b":
		if c.cache.Running(name) {
			c.balloonCtl.SetEnabled(name, !c.balloonCtl.Enabled(name))
			c.refreshWindows()
		}
		return true
	case "d":
		c.vmWin.ToggleDiskStats(name)
		c.refreshWindows()
		return true
	}
	return false
}

// openPowerPopup opens the s/o/r/R picker described in spec.md §4.7's
// per-VM key map table.
func (c *Controller) openPowerPopup(name string) {
	options := []screen.PickerOption{
		{Key: "s", Label: "start", Callback: func() { c.adapter.Start(name) }},
		{Key: "o", Label: "shutdown", Callback: func() { c.adapter.Shutdown(name) }},
		{Key: "r", Label: "reboot", Callback: func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownWait)
			defer cancel()
			if err := c.adapter.Reboot(ctx, name); err != nil {
				c.logger.Error("reboot failed", "vm", name, "error", err)
			}
		}},
		{Key: "R", Label: "reset", Callback: func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownWait)
			defer cancel()
			if err := c.adapter.Reset(ctx, name); err != nil {
				c.logger.Error("reset failed", "vm", name, "error", err)
			}
		}},
	}
	popup := screen.NewPickerWindow(c.queue, c.scr, "power: "+name, options)
	c.scr.AddPopup(popup.PopupWindow)
}

// repaint renders whatever Screen.Repaint decides needs redrawing, plus a
// freshly computed status bar line (spec.md §4.7: "a one-line status bar
// with the quit hint and the active window's keyboard hint").
func (c *Controller) repaint(tty *term.Terminal) {
	draws := make([]term.Draw, 0, 4)
	for w, lines := range c.scr.Repaint() {
		rect := w.Rect()
		draws = append(draws, term.Draw{X: rect.X, Y: rect.Y, Lines: lines})
	}
	draws = append(draws, c.statusBarDraw())
	if err := tty.RenderPartial(draws); err != nil {
		c.logger.Debug("render failed", "error", err)
	}
}

func (c *Controller) statusBarDraw() term.Draw {
	hint := "q/Esc quit"
	if w := c.scr.ActiveWindow(); w == c.vmWin.Window {
		hint += "  p power  v viewer  b balloon  d disks"
	}
	line := fmt.Sprintf("%s  |  %s", hint, c.health.Summary(time.Now()))
	_, height := c.scr.Size()
	return term.Draw{X: 0, Y: height - 1, Lines: []string{line}}
}

// watchShutdownSignals installs the double-signal force-quit behavior
// grounded on the teacher's internal/agent/agent.go Run(): the first
// SIGINT/SIGTERM requests a graceful EventQueue.Stop(); a second signal, or
// the loop failing to exit within ShutdownWait, force-exits the process.
func (c *Controller) watchShutdownSignals(ctx context.Context) func() {
	sigCh := newSignalChannel()
	go func() {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh.ch:
			if !ok {
				return
			}
			c.logger.Info("shutdown signal received", "signal", sig)
			c.queue.Stop()
			select {
			case <-sigCh.ch:
				c.logger.Warn("second shutdown signal received, forcing exit")
				forceExit()
			case <-time.After(c.cfg.ShutdownWait):
				c.logger.Warn("graceful shutdown timed out, forcing exit")
				forceExit()
			case <-ctx.Done():
			}
		}
	}()
	return sigCh.stop
}
