package eventqueue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsExactlyOnceBeforeAwaitEmptyReturns(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.RunLoop(func(Event) {})
	}()

	var runs atomic.Int32
	for i := 0; i < 10; i++ {
		q.Submit(func() { runs.Add(1) })
	}
	q.AwaitEmpty()
	assert.Equal(t, int32(10), runs.Load())

	q.Stop()
	wg.Wait()
}

func TestPostDeliversInEnqueueOrder(t *testing.T) {
	q := New()
	var mu sync.Mutex
	var order []string

	done := make(chan struct{})
	go func() {
		_ = q.RunLoop(func(ev Event) {
			if k, ok := ev.(KeyEvent); ok {
				mu.Lock()
				order = append(order, k.Key)
				mu.Unlock()
				if k.Key == "c" {
					close(done)
				}
			}
		})
	}()

	q.Post(KeyEvent{Key: "a"})
	q.Post(KeyEvent{Key: "b"})
	q.Post(KeyEvent{Key: "c"})
	<-done
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestStopPreventsFurtherHandlerInvocations(t *testing.T) {
	q := New()
	var handled atomic.Int32
	loopDone := make(chan error, 1)
	go func() {
		// EmptyQueueEvent is dispatched whenever the loop is about to block,
		// so only the events the test posts are counted.
		loopDone <- q.RunLoop(func(ev Event) {
			if _, ok := ev.(EmptyQueueEvent); !ok {
				handled.Add(1)
			}
		})
	}()

	q.AwaitEmpty()
	q.Stop()

	select {
	case err := <-loopDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run loop did not exit after Stop")
	}

	// Posting after Stop is a silent no-op: the loop has already exited.
	q.Post(KeyEvent{Key: "ignored"})
	assert.Equal(t, int32(0), handled.Load())
}

func TestErrorEventTerminatesLoop(t *testing.T) {
	q := New()
	cause := errors.New("producer died")

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.RunLoop(func(Event) {})
	}()

	q.Post(ErrorEvent{Cause: cause})

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
	case <-time.After(time.Second):
		t.Fatal("run loop did not terminate on ErrorEvent")
	}
}

func TestRunLoopRejectsReentry(t *testing.T) {
	q := New()
	go func() {
		_ = q.RunLoop(func(Event) {})
	}()
	q.AwaitEmpty()

	assert.Panics(t, func() {
		_ = q.RunLoop(func(Event) {})
	})

	q.Stop()
}
