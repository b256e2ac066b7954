package screen

import "aurora-kvm-top/internal/eventqueue"

// PickerOption is one selectable line in a PickerWindow: Key is the single
// character that activates it directly; Label is the rendered line text.
type PickerOption struct {
	Key      string
	Label    string
	Callback func()
}

// PickerWindow is a PopupWindow that maps single keys to callbacks. Enter
// on a cursor-highlighted option also invokes it. Cursor-movement keys move
// the cursor; any other key closes the picker without side effects
// (spec.md §4.6) — matching the power menu AppController opens for a VM.
type PickerWindow struct {
	*PopupWindow
	options []PickerOption
}

func NewPickerWindow(queue *eventqueue.EventQueue, scr *Screen, caption string, options []PickerOption) *PickerWindow {
	pk := &PickerWindow{
		PopupWindow: NewPopupWindow(queue, scr, caption),
		options:     options,
	}
	pk.onKey = pk.handleOption

	lines := make([]string, len(options))
	for i, o := range options {
		lines[i] = o.Key + "  " + o.Label
	}
	pk.Cursor = LimitedCursor(indicesOf(options), 0)
	pk.SetContent(lines)
	return pk
}

func indicesOf(options []PickerOption) []int {
	idx := make([]int, len(options))
	for i := range options {
		idx[i] = i
	}
	return idx
}

func (pk *PickerWindow) handleOption(key string) bool {
	for i, o := range pk.options {
		if o.Key == key {
			pk.activate(i)
			return true
		}
	}
	if key == "Enter" {
		pos := pk.Cursor.Position()
		if pos >= 0 && pos < len(pk.options) {
			pk.activate(pos)
			return true
		}
	}
	if pk.Window.HandleKey(key) {
		return true
	}
	pk.screen.RemoveWindow(pk.Window)
	return true
}

func (pk *PickerWindow) activate(i int) {
	cb := pk.options[i].Callback
	pk.screen.RemoveWindow(pk.Window)
	if cb != nil {
		cb()
	}
}
