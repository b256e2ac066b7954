package term

import (
	"os"
	"os/signal"
	"syscall"

	"aurora-kvm-top/internal/eventqueue"
)

// WatchResize bridges SIGWINCH to the event queue as TTYSizeEvent values.
// spec.md §5 calls for a self-pipe from the signal handler to a reader
// thread; Go's runtime signal delivery already implements exactly that
// pattern internally (signal.Notify hands the handler a buffered channel
// fed from the runtime's own self-pipe), so hand-rolling a second one here
// would only duplicate what os/signal already guarantees is safe to call
// from a signal context. See DESIGN.md.
//
// Returns a cleanup function that stops the signal relay.
func (t *Terminal) WatchResize(queue *eventqueue.EventQueue) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)

	go func() {
		for range sigCh {
			width, height, err := t.Size()
			if err != nil {
				continue
			}
			queue.Post(eventqueue.TTYSizeEvent{Width: width, Height: height})
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}
