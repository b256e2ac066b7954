package screen

import (
	"aurora-kvm-top/internal/eventqueue"
)

// RelayoutFunc positions every tiled window against the current screen
// size. Screen itself has no opinion on tile geometry — that policy lives
// in the AppController (spec.md §4.7); Screen only tells it when to run.
type RelayoutFunc func(width, height int, tiled []*Window)

// Screen owns the ordered set of tiled windows (exactly one active) and a
// LIFO stack of popups. Every mutating method asserts event-loop ownership
// (spec.md §4.6).
type Screen struct {
	queue    *eventqueue.EventQueue
	relayout RelayoutFunc

	shortcuts    []string
	tiled        map[string]*Window
	active       string
	popups       []*PopupWindow
	invalidated  map[*Window]bool
	fullRepaint  bool
	width, height int
}

func New(queue *eventqueue.EventQueue, relayout RelayoutFunc) *Screen {
	return &Screen{
		queue:       queue,
		relayout:    relayout,
		tiled:       make(map[string]*Window),
		invalidated: make(map[*Window]bool),
	}
}

// AddTiled registers a tiled window under a shortcut key ('1', '2', ...).
// The first window added becomes active by default.
func (s *Screen) AddTiled(shortcut string, w *Window) {
	s.queue.AssertOwned()
	s.shortcuts = append(s.shortcuts, shortcut)
	s.tiled[shortcut] = w
	if s.active == "" {
		s.active = shortcut
		w.Active = true
	}
}

// SetActive switches the active tiled window by shortcut, returning false
// if the shortcut is unknown.
func (s *Screen) SetActive(shortcut string) bool {
	s.queue.AssertOwned()
	w, ok := s.tiled[shortcut]
	if !ok {
		return false
	}
	if prev, ok := s.tiled[s.active]; ok {
		prev.Active = false
		s.Invalidate(prev)
	}
	s.active = shortcut
	w.Active = true
	s.Invalidate(w)
	return true
}

func (s *Screen) ActiveWindow() *Window {
	return s.tiled[s.active]
}

// Size returns the dimensions passed to the most recent Layout call.
func (s *Screen) Size() (width, height int) {
	return s.width, s.height
}

// PopupOpen reports whether any popup currently occupies the input focus.
// Callers use this to decide whether global tiled-window shortcuts (window
// switch keys, per-VM commands) should fire at all, since a popup always
// takes input priority (spec.md §4.6: "topmost receives input").
func (s *Screen) PopupOpen() bool {
	return len(s.popups) > 0
}

// HasShortcut reports whether a tiled window is registered under shortcut.
func (s *Screen) HasShortcut(shortcut string) bool {
	_, ok := s.tiled[shortcut]
	return ok
}

// Invalidate marks w for repaint on the next Repaint call.
func (s *Screen) Invalidate(w *Window) {
	s.queue.AssertOwned()
	s.invalidated[w] = true
}

// AddPopup pushes a new popup onto the LIFO stack; it becomes the sole
// receiver of keyboard/mouse input until closed.
func (s *Screen) AddPopup(p *PopupWindow) {
	s.queue.AssertOwned()
	p.Resize(s.width, s.height)
	s.popups = append(s.popups, p)
	s.fullRepaint = true
}

// RemoveWindow closes a popup (searched from the top of the stack down);
// removing any popup forces a full repaint since it may have been
// occluding tiled content (spec.md §4.6).
func (s *Screen) RemoveWindow(w *Window) {
	s.queue.AssertOwned()
	for i := len(s.popups) - 1; i >= 0; i-- {
		if s.popups[i].Window == w {
			s.popups = append(s.popups[:i], s.popups[i+1:]...)
			s.fullRepaint = true
			return
		}
	}
}

func (s *Screen) topPopup() *PopupWindow {
	if len(s.popups) == 0 {
		return nil
	}
	return s.popups[len(s.popups)-1]
}

// Layout is triggered on TTY resize: it re-centers every open popup and
// invokes the AppController's tiled relayout policy, then forces a full
// repaint.
func (s *Screen) Layout(width, height int) {
	s.queue.AssertOwned()
	s.width, s.height = width, height

	tiled := make([]*Window, 0, len(s.shortcuts))
	for _, sc := range s.shortcuts {
		tiled = append(tiled, s.tiled[sc])
	}
	if s.relayout != nil {
		s.relayout(width, height, tiled)
	}
	for _, p := range s.popups {
		p.Resize(width, height)
	}
	s.fullRepaint = true
}

// HandleKey routes to the topmost popup if one is open, else the active
// tiled window.
func (s *Screen) HandleKey(key string) bool {
	if p := s.topPopup(); p != nil {
		return p.HandleKey(key)
	}
	if w := s.ActiveWindow(); w != nil {
		return w.HandleKey(key)
	}
	return false
}

// HandleMouse routes the same way HandleKey does.
func (s *Screen) HandleMouse(ev eventqueue.MouseEvent) bool {
	if p := s.topPopup(); p != nil {
		return p.HandleMouse(ev)
	}
	if w := s.ActiveWindow(); w != nil {
		return w.HandleMouse(ev)
	}
	return false
}

// Repaint returns the rendered lines of every window that needs redrawing,
// keyed by window, applying the coalescing policy from spec.md §4.6: a full
// repaint (resize or popup close) redraws stacking order end to end; otherwise only
// invalidated tiled windows repaint, and popups repaint in full whenever
// any tiled window did, accepting the occasional extra draw rather than
// tracking exact overlap.
func (s *Screen) Repaint() map[*Window][]string {
	s.queue.AssertOwned()
	out := make(map[*Window][]string)

	anyTiledRepainted := false
	for _, sc := range s.shortcuts {
		w := s.tiled[sc]
		if s.fullRepaint || s.invalidated[w] {
			out[w] = w.Repaint()
			anyTiledRepainted = true
		}
	}

	for _, p := range s.popups {
		if s.fullRepaint || anyTiledRepainted || s.invalidated[p.Window] {
			out[p.Window] = p.Repaint()
		}
	}

	s.invalidated = make(map[*Window]bool)
	s.fullRepaint = false
	return out
}
