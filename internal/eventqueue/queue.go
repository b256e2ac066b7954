package eventqueue

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// item is one queued unit of work: either an Event to forward to the
// handler, or a deferred closure to run inline on the loop thread.
type item struct {
	event   Event
	closure func()
}

// EventQueue is the single-threaded event loop's FIFO mailbox. Producer
// threads (keyboard reader, resize bridge, timer) only ever call Post or
// Submit; every other piece of mutable state in the TUI is owned
// exclusively by whichever goroutine is inside RunLoop (spec.md §4.5).
type EventQueue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	items       []item
	stopped     bool
	running     atomic.Bool
	dispatching atomic.Bool
}

func New() *EventQueue {
	q := &EventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Post enqueues an immutable event from any producer goroutine. A no-op
// once Stop has been called.
func (q *EventQueue) Post(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.items = append(q.items, item{event: ev})
	q.cond.Signal()
}

// Submit enqueues a closure to run on the loop thread, in FIFO order with
// everything already queued.
func (q *EventQueue) Submit(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.items = append(q.items, item{closure: fn})
	q.cond.Signal()
}

// AwaitEmpty blocks the calling goroutine until the loop has drained every
// item enqueued before this call returns, via a fence closure (spec.md
// §4.5) rather than inspecting queue length directly.
func (q *EventQueue) AwaitEmpty() {
	done := make(chan struct{})
	q.Submit(func() { close(done) })
	<-done
}

// Stop marks the queue closed to further Post/Submit calls and appends the
// stop sentinel after whatever is already queued. Stop is best-effort:
// items ahead of the sentinel still run before the loop sees it.
func (q *EventQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	q.items = append(q.items, item{event: stopEvent{}})
	q.cond.Signal()
}

// RunLoop owns the dispatch lock for as long as it runs. Calling it again
// while already running is a programmer error, not a race to resolve
// silently.
func (q *EventQueue) RunLoop(handler func(Event)) error {
	if !q.running.CompareAndSwap(false, true) {
		panic("eventqueue: run_loop re-entered")
	}
	defer q.running.Store(false)

	for {
		q.mu.Lock()
		for len(q.items) == 0 {
			q.mu.Unlock()
			q.dispatching.Store(true)
			handler(EmptyQueueEvent{})
			q.dispatching.Store(false)
			q.mu.Lock()
			if len(q.items) == 0 {
				q.cond.Wait()
			}
		}
		it := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		if it.closure != nil {
			q.dispatching.Store(true)
			it.closure()
			q.dispatching.Store(false)
			continue
		}
		if _, ok := it.event.(stopEvent); ok {
			return nil
		}
		if errEv, ok := it.event.(ErrorEvent); ok {
			q.dispatching.Store(true)
			handler(errEv)
			q.dispatching.Store(false)
			return fmt.Errorf("eventqueue: %w", errEv.Cause)
		}
		q.dispatching.Store(true)
		handler(it.event)
		q.dispatching.Store(false)
	}
}

// AssertOwned panics unless called from within a closure or handler
// currently being dispatched by RunLoop on this queue. Screen and Window
// mutating methods call this to enforce the "only the loop thread mutates
// this state" invariant (spec.md §4.6) without needing real goroutine
// identity, which Go does not expose.
func (q *EventQueue) AssertOwned() {
	if !q.dispatching.Load() {
		panic("eventqueue: called without event-loop ownership")
	}
}
