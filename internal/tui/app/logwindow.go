package app

import (
	"fmt"

	"aurora-kvm-top/internal/eventqueue"
	"aurora-kvm-top/internal/logging"
	"aurora-kvm-top/internal/tui/screen"
)

// LogWindow is the in-TUI logging.Sink the AppController wires alongside
// (not instead of) the process's real log output: every Entry it receives
// is appended as one content line, replacing the process-wide logger the
// teacher relied on (spec.md §9 Design Notes).
type LogWindow struct {
	*screen.Window
	queue *eventqueue.EventQueue
}

func NewLogWindow(queue *eventqueue.EventQueue, scr *screen.Screen) *LogWindow {
	return &LogWindow{
		Window: screen.NewWindow(queue, scr, "Log [3]"),
		queue:  queue,
	}
}

// Log implements logging.Sink. It is called from whatever goroutine
// emitted the log entry, so it defers the actual mutation onto the event
// loop via Submit rather than touching window state directly.
func (l *LogWindow) Log(e logging.Entry) {
	line := fmt.Sprintf("%s %-5s %s", e.At.Format("15:04:05"), e.Level, e.Message)
	l.queue.Submit(func() {
		l.AddLine(line)
	})
}
