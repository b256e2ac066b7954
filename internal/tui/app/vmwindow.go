package app

import (
	"fmt"
	"sort"

	"aurora-kvm-top/internal/balloon"
	"aurora-kvm-top/internal/eventqueue"
	"aurora-kvm-top/internal/model"
	"aurora-kvm-top/internal/tui/screen"
)

// VMWindow lists every known VM with its state, CPU%, memory, and
// auto-ballooning status. Its cursor is Limited to the data rows so the
// per-VM key map (spec.md §4.7) only ever applies to an actual VM line.
type VMWindow struct {
	*screen.Window
	diskStatsShutOff map[string]bool
	lineVM           map[int]string
}

func NewVMWindow(queue *eventqueue.EventQueue, scr *screen.Screen) *VMWindow {
	return &VMWindow{
		Window:           screen.NewWindow(queue, scr, "VMs [1]"),
		diskStatsShutOff: make(map[string]bool),
		lineVM:           make(map[int]string),
	}
}

func (v *VMWindow) ToggleDiskStats(name string) {
	v.diskStatsShutOff[name] = !v.diskStatsShutOff[name]
}

// SelectedVM returns the VM name on the current cursor line, if any.
func (v *VMWindow) SelectedVM() (string, bool) {
	name, ok := v.lineVM[v.Cursor.Position()]
	return name, ok
}

func (v *VMWindow) Refresh(snap model.Snapshot, balloonCtl *balloon.Controller) {
	names := make([]string, 0, len(snap.PerVM))
	for name := range snap.PerVM {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{headerRow()}
	v.lineVM = make(map[int]string, len(names))

	for _, name := range names {
		vc := snap.PerVM[name]
		v.lineVM[len(lines)] = name
		lines = append(lines, formatVMRow(name, vc, balloonCtl))

		if !vc.Data.Running() && v.diskStatsShutOff[name] {
			for _, d := range vc.Data.Disks {
				lines = append(lines, formatDiskRow(d))
			}
		}
	}

	// Only VM rows are selectable; the header and any disk rows are not.
	positions := make([]int, 0, len(v.lineVM))
	for pos := range v.lineVM {
		positions = append(positions, pos)
	}
	requested := v.Cursor.Position()
	if requested < 0 {
		requested = 0
	}
	v.Cursor = screen.LimitedCursor(positions, requested)
	v.SetContent(lines)
}

func headerRow() string {
	return fmt.Sprintf("%-20s %-9s %7s %-9s %-9s %s", "NAME", "STATE", "CPU%", "ACTUAL", "RSS", "BALLOON")
}

func formatVMRow(name string, vc model.VMCache, balloonCtl *balloon.Controller) string {
	state := vc.Data.State.String()
	actual, rss := "-", "-"
	if vc.Data.MemStat != nil {
		actual = formatBytes(vc.Data.MemStat.Actual)
		rss = formatBytes(vc.Data.MemStat.RSS)
	}
	status := balloonCtl.Status(name)
	if status == "" {
		status = "-"
	}
	if vc.Stale() {
		status += " (stale)"
	}
	return fmt.Sprintf("%-20s %-9s %6.1f%% %-9s %-9s %s", name, state, vc.CPUUsagePercent, actual, rss, status)
}

func formatDiskRow(d model.DiskStat) string {
	path := d.Path
	if !d.HasPath {
		path = "(no path)"
	}
	return fmt.Sprintf("    %-16s %-9s overhead=%d%%", d.Name, path, d.OverheadPercent())
}
