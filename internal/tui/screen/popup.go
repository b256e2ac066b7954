package screen

import (
	"aurora-kvm-top/internal/eventqueue"
)

const popupChromeWidth = 4  // 1 col border + 1 col padding, each side
const popupChromeHeight = 2 // caption line + bottom border

// PopupWindow is a centered, LIFO-stacked overlay. It auto-sizes from its
// content on every SetContent call and closes itself on 'q' or Esc unless
// an embedding subclass (PickerWindow) consumes the key first.
type PopupWindow struct {
	*Window
	maxHeightFrac float64
	screenW       int
	screenH       int
	onKey         func(key string) bool // subclass hook; nil for a plain popup
}

func NewPopupWindow(queue *eventqueue.EventQueue, scr *Screen, caption string) *PopupWindow {
	p := &PopupWindow{
		Window:        NewWindow(queue, scr, caption),
		maxHeightFrac: 0.8,
	}
	p.Window.AutoScroll = false
	return p
}

// Resize records the current screen dimensions so autosize/recentre can
// clamp against them; called by Screen.Layout for every open popup.
func (p *PopupWindow) Resize(screenW, screenH int) {
	p.screenW = screenW
	p.screenH = screenH
	p.autosize()
}

func (p *PopupWindow) SetContent(lines []string) {
	p.Window.SetContent(lines)
	p.autosize()
}

// autosize computes width/height from content and recenters, per spec.md
// §4.6: width = max line width + 4, height = min(len+2, max_height),
// clamped to 80% of the screen.
func (p *PopupWindow) autosize() {
	maxLine := 0
	for _, l := range p.Lines {
		if w := displayWidth(l); w > maxLine {
			maxLine = w
		}
	}
	maxHeight := int(float64(p.screenH) * p.maxHeightFrac)
	if maxHeight < 1 {
		maxHeight = 1
	}
	height := len(p.Lines) + popupChromeHeight
	if height > maxHeight {
		height = maxHeight
	}
	width := maxLine + popupChromeWidth
	maxWidth := int(float64(p.screenW) * p.maxHeightFrac)
	if maxWidth > 0 && width > maxWidth {
		width = maxWidth
	}

	x := (p.screenW - width) / 2
	y := (p.screenH - height) / 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	p.SetRect(Rect{X: x, Y: y, Width: width, Height: height})

	if p.Cursor.Variant() == CursorLimited {
		return // a subclass (PickerWindow) owns its own fixed cursor positions
	}
	if len(p.Lines) > height-popupChromeHeight {
		p.Cursor = FreeCursor(len(p.Lines))
	} else {
		p.Cursor = NoneCursor()
	}
}

// HandleKey lets the subclass hook consume the key first (PickerWindow's
// option selection); otherwise falls back to scrolling, then closes the
// popup on 'q' or Esc.
func (p *PopupWindow) HandleKey(key string) bool {
	if p.onKey != nil && p.onKey(key) {
		return true
	}
	if p.Window.HandleKey(key) {
		return true
	}
	switch key {
	case "q", "Esc":
		p.screen.RemoveWindow(p.Window)
		return true
	}
	return false
}
