package term

import (
	"bufio"
	"fmt"
)

const (
	csiHideCursor   = "\x1b[?25l"
	csiShowCursor   = "\x1b[?25h"
	csiClearScreen  = "\x1b[2J"
	csiEnableMouse  = "\x1b[?1000h"
	csiDisableMouse = "\x1b[?1000l"
)

// EnableMouseReporting turns on xterm mouse tracking for the duration of
// the session; DisableMouseReporting must run before Restore.
func (t *Terminal) EnableMouseReporting() {
	_, _ = t.out.WriteString(csiEnableMouse)
}

func (t *Terminal) DisableMouseReporting() {
	_, _ = t.out.WriteString(csiDisableMouse)
}

// Clear erases the whole screen; used on startup, on exit, and on resize
// before a full repaint repositions every window.
func (t *Terminal) Clear() {
	_, _ = t.out.WriteString(csiClearScreen)
}

// Draw is one window's already-rendered, rect-padded block of lines,
// addressed by its top-left corner in 0-based terminal cells.
type Draw struct {
	X, Y  int
	Lines []string
}

// RenderPartial writes only the given draws, each positioned with a cursor
// move rather than clearing the whole screen — this is what makes the
// Screen's repaint coalescing (spec.md §4.6) worth doing: untouched
// windows are never retransmitted.
func (t *Terminal) RenderPartial(draws []Draw) error {
	w := bufio.NewWriter(t.out)
	_, _ = w.WriteString(csiHideCursor)
	for _, d := range draws {
		for i, line := range d.Lines {
			_, _ = fmt.Fprintf(w, "\x1b[%d;%dH", d.Y+i+1, d.X+1)
			_, _ = w.WriteString(line)
		}
	}
	_, _ = w.WriteString(csiShowCursor)
	return w.Flush()
}
