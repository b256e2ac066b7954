package screen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurora-kvm-top/internal/eventqueue"
)

// withLoop spins up a running event loop for the duration of fn, so Screen
// and Window mutating methods don't trip their AssertOwned checks, then
// stops it. Every call into fn happens on the loop thread via Submit.
func withLoop(t *testing.T, fn func(q *eventqueue.EventQueue)) {
	t.Helper()
	q := eventqueue.New()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.RunLoop(func(eventqueue.Event) {})
	}()

	done := make(chan struct{})
	q.Submit(func() {
		fn(q)
		close(done)
	})
	<-done

	q.Stop()
	wg.Wait()
}

func TestPopupAutosizeWidthFromLongestLine(t *testing.T) {
	withLoop(t, func(q *eventqueue.EventQueue) {
		scr := New(q, nil)
		scr.Layout(80, 24)

		p := NewPopupWindow(q, scr, "Power")
		p.Resize(80, 24)
		p.SetContent([]string{"s start", "a very much longer line than the rest"})

		rect := p.Rect()
		assert.Equal(t, len("a very much longer line than the rest")+popupChromeWidth, rect.Width)
		assert.Equal(t, 2+popupChromeHeight, rect.Height)
	})
}

func TestPopupAutosizeClampsToScreenFraction(t *testing.T) {
	withLoop(t, func(q *eventqueue.EventQueue) {
		scr := New(q, nil)
		scr.Layout(20, 10)

		p := NewPopupWindow(q, scr, "Log")
		lines := make([]string, 0, 30)
		for i := 0; i < 30; i++ {
			lines = append(lines, "line")
		}
		p.Resize(20, 10)
		p.SetContent(lines)

		rect := p.Rect()
		assert.LessOrEqual(t, rect.Height, int(float64(10)*0.8))
		assert.LessOrEqual(t, rect.Width, int(float64(20)*0.8))
	})
}

func TestPopupCentersWithinScreen(t *testing.T) {
	withLoop(t, func(q *eventqueue.EventQueue) {
		scr := New(q, nil)
		scr.Layout(100, 40)

		p := NewPopupWindow(q, scr, "Power")
		p.Resize(100, 40)
		p.SetContent([]string{"one", "two"})

		rect := p.Rect()
		assert.Equal(t, (100-rect.Width)/2, rect.X)
		assert.Equal(t, (40-rect.Height)/2, rect.Y)
	})
}

func TestPopupClosesOnQOrEsc(t *testing.T) {
	withLoop(t, func(q *eventqueue.EventQueue) {
		scr := New(q, nil)
		scr.Layout(80, 24)

		p := NewPopupWindow(q, scr, "Power")
		scr.AddPopup(p)
		require.True(t, scr.PopupOpen())

		consumed := p.HandleKey("q")
		assert.True(t, consumed)
		assert.False(t, scr.PopupOpen())
	})
}

func TestPopupAddedBecomesTopmostForInput(t *testing.T) {
	withLoop(t, func(q *eventqueue.EventQueue) {
		scr := New(q, nil)
		scr.Layout(80, 24)

		first := NewPopupWindow(q, scr, "First")
		second := NewPopupWindow(q, scr, "Second")
		scr.AddPopup(first)
		scr.AddPopup(second)

		// Esc closes only the topmost popup; the first one stays open.
		scr.HandleKey("Esc")
		assert.True(t, scr.PopupOpen())

		scr.HandleKey("Esc")
		assert.False(t, scr.PopupOpen())
	})
}

func TestScreenSetActiveSwitchesTiledWindow(t *testing.T) {
	withLoop(t, func(q *eventqueue.EventQueue) {
		scr := New(q, nil)
		w1 := NewWindow(q, scr, "VM [1]")
		w2 := NewWindow(q, scr, "System [2]")
		scr.AddTiled("1", w1)
		scr.AddTiled("2", w2)

		assert.True(t, w1.Active)
		assert.False(t, w2.Active)

		ok := scr.SetActive("2")
		assert.True(t, ok)
		assert.False(t, w1.Active)
		assert.True(t, w2.Active)

		assert.False(t, scr.SetActive("9"))
	})
}

func TestScreenHasShortcutReflectsRegisteredWindows(t *testing.T) {
	withLoop(t, func(q *eventqueue.EventQueue) {
		scr := New(q, nil)
		w1 := NewWindow(q, scr, "VM [1]")
		scr.AddTiled("1", w1)

		assert.True(t, scr.HasShortcut("1"))
		assert.False(t, scr.HasShortcut("2"))
	})
}
