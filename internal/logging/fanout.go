package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// FanOut dispatches every Entry to each of its sinks in order, skipping
// nils so callers can build the list conditionally (e.g. no file sink
// configured). The LogWindow is always one of these; a file sink is added
// only when AURORA_TUI_LOG_FILE is set.
type FanOut struct {
	sinks []Sink
}

func NewFanOut(sinks ...Sink) *FanOut {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return &FanOut{sinks: live}
}

func (f *FanOut) Log(e Entry) {
	for _, s := range f.sinks {
		s.Log(e)
	}
}

// WriterSink appends each entry as one line to an io.Writer, text or JSON
// depending on json. Writes are serialized since log entries can arrive
// from multiple goroutines (async hypervisor commands, the event loop).
type WriterSink struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func NewWriterSink(w io.Writer, asJSON bool) *WriterSink {
	return &WriterSink{w: w, json: asJSON}
}

func (w *WriterSink) Log(e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.json {
		enc := json.NewEncoder(w.w)
		_ = enc.Encode(struct {
			At      string `json:"at"`
			Level   string `json:"level"`
			Message string `json:"message"`
		}{At: e.At.Format("2006-01-02T15:04:05Z07:00"), Level: e.Level.String(), Message: e.Message})
		return
	}
	_, _ = fmt.Fprintf(w.w, "%s %-5s %s\n", e.At.Format("2006-01-02T15:04:05Z07:00"), e.Level, e.Message)
}
