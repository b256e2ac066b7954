package screen

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"aurora-kvm-top/internal/eventqueue"
)

// Window is the base type of every visible tiled or popup component.
// Setters record invalidation but never draw directly; drawing happens
// only inside Repaint, called from Screen.Repaint's coalescing pass
// (spec.md §4.6).
type Window struct {
	queue      *eventqueue.EventQueue
	screen     *Screen // non-owning back-reference; Screen owns Windows, never the reverse
	shortcut   string
	Caption    string
	Lines      []string
	TopLine    int
	Cursor     Cursor
	AutoScroll bool
	Active     bool
	rect       Rect
}

// NewWindow constructs a tiled or popup base window. The screen reference
// is injected here rather than looked up dynamically, avoiding the
// Screen<->Window cyclic reference the source's design carried (spec.md
// §9): windows only ever reach up to invalidate themselves.
func NewWindow(queue *eventqueue.EventQueue, screen *Screen, caption string) *Window {
	return &Window{
		queue:      queue,
		screen:     screen,
		Caption:    caption,
		Cursor:     FreeCursor(0),
		AutoScroll: true,
	}
}

func (w *Window) Rect() Rect { return w.rect }

// SetRect is called by the layout pass (Screen.Layout or the
// AppController's tiled relayout); it does not itself trigger invalidation
// since a resize always precedes a full repaint.
func (w *Window) SetRect(r Rect) { w.rect = r }

func (w *Window) invalidate() {
	if w.screen != nil {
		w.screen.Invalidate(w)
	}
}

// SetContent replaces all lines. If AutoScroll is set, the viewport snaps
// to the bottom (spec.md §4.6).
func (w *Window) SetContent(lines []string) {
	w.queue.AssertOwned()
	w.Lines = lines
	w.Cursor = w.Cursor.WithLength(len(lines))
	if w.AutoScroll {
		w.TopLine = maxInt(0, len(w.Lines)-w.viewportLines())
	}
	w.invalidate()
}

// AddLine appends one or more newline-delimited lines to the content.
func (w *Window) AddLine(line string) {
	w.queue.AssertOwned()
	w.AddLines(strings.Split(line, "\n"))
}

func (w *Window) AddLines(lines []string) {
	w.queue.AssertOwned()
	w.Lines = append(w.Lines, lines...)
	w.Cursor = w.Cursor.WithLength(len(w.Lines))
	if w.AutoScroll {
		w.TopLine = maxInt(0, len(w.Lines)-w.viewportLines())
	}
	w.invalidate()
}

func (w *Window) viewportLines() int {
	inner := w.rect.Inner()
	if inner.Height <= 0 {
		return 1
	}
	return inner.Height
}

// scrollToCursor keeps the current cursor position inside [TopLine,
// TopLine+viewport) after a cursor move.
func (w *Window) scrollToCursor() {
	pos := w.Cursor.Position()
	if pos < 0 {
		return
	}
	vp := w.viewportLines()
	if pos < w.TopLine {
		w.TopLine = pos
	} else if pos >= w.TopLine+vp {
		w.TopLine = pos - vp + 1
	}
}

// HandleKey implements the default key map (spec.md §4.6). It returns true
// if the key was consumed.
func (w *Window) HandleKey(key string) bool {
	w.queue.AssertOwned()
	vp := w.viewportLines()
	switch key {
	case "Up", "k":
		w.Cursor = w.Cursor.Up()
	case "Down", "j":
		w.Cursor = w.Cursor.Down()
	case "PageUp":
		for i := 0; i < vp; i++ {
			w.Cursor = w.Cursor.Up()
		}
	case "PageDown":
		for i := 0; i < vp; i++ {
			w.Cursor = w.Cursor.Down()
		}
	case "Home":
		w.Cursor = w.Cursor.First()
	case "End":
		w.Cursor = w.Cursor.Last()
	case "Ctrl-U":
		for i := 0; i < vp/2; i++ {
			w.Cursor = w.Cursor.Up()
		}
	case "Ctrl-D":
		for i := 0; i < vp/2; i++ {
			w.Cursor = w.Cursor.Down()
		}
	default:
		return false
	}
	w.scrollToCursor()
	w.invalidate()
	return true
}

// HandleMouse implements the default mouse map: scroll wheel moves the
// cursor by 4 lines, clicks move the cursor to the clicked line (for a
// Limited cursor, only when that line is an allowed position).
func (w *Window) HandleMouse(ev eventqueue.MouseEvent) bool {
	w.queue.AssertOwned()
	const scrollStep = 4
	switch ev.Button {
	case 64: // scroll up
		for i := 0; i < scrollStep; i++ {
			w.Cursor = w.Cursor.Up()
		}
	case 65: // scroll down
		for i := 0; i < scrollStep; i++ {
			w.Cursor = w.Cursor.Down()
		}
	default:
		inner := w.rect.Inner()
		if ev.X < inner.X || ev.X >= inner.X+inner.Width || ev.Y < inner.Y || ev.Y >= inner.Y+inner.Height {
			return false
		}
		clicked := w.TopLine + (ev.Y - inner.Y)
		if clicked < 0 || clicked >= len(w.Lines) {
			return false
		}
		switch w.Cursor.Variant() {
		case CursorFree:
			w.Cursor.pos = clicked
		case CursorLimited:
			for _, a := range w.Cursor.allowed {
				if a == clicked {
					w.Cursor.pos = clicked
				}
			}
		}
	}
	w.scrollToCursor()
	w.invalidate()
	return true
}

// Repaint renders the window's visible lines within its current rect,
// measuring width with displayWidth (ansi.Strip, then go-runewidth) so
// embedded ANSI styling never throws off column alignment (spec.md §4.6).
func (w *Window) Repaint() []string {
	out := make([]string, 0, w.rect.Height)
	out = append(out, padTo(RenderCaption(w.Caption, w.Active), w.rect.Width))

	inner := w.rect.Inner()
	vp := inner.Height
	for i := 0; i < vp; i++ {
		idx := w.TopLine + i
		if idx < 0 || idx >= len(w.Lines) {
			out = append(out, padTo("", w.rect.Width))
			continue
		}
		line := w.Lines[idx]
		if idx == w.Cursor.Position() {
			line = lipgloss.NewStyle().Reverse(true).Render(line)
		}
		out = append(out, padTo(line, w.rect.Width))
	}
	return out
}

// displayWidth measures a content line's printable width the way spec.md
// §4.6 requires: ANSI color escapes are stripped first (ansi.Strip) so they
// never count as columns, then the remaining runes are measured with
// go-runewidth so double-width (East-Asian) characters occupy two cells.
func displayWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

func padTo(s string, width int) string {
	w := displayWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
