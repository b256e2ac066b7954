package logging

import "sync"

// CaptureSink is a test double: it stores every entry it receives behind a
// mutex, since producer goroutines (the hypervisor adapter's async
// commands) may log concurrently with the test reading them back.
type CaptureSink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (c *CaptureSink) Log(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *CaptureSink) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}
