package term

import (
	"time"

	"aurora-kvm-top/internal/eventqueue"
)

const (
	escapeReadTimeout = 25 * time.Millisecond
	maxEscapeLen       = 6
)

// ReadLoop blocks reading raw bytes from the terminal and posts decoded
// KeyEvent/MouseEvent values to queue. It never returns until the read
// itself fails (terminal closed at process exit); per spec.md §9, no
// cooperative cancellation of the reader is attempted — the process exit
// tears it down.
func (t *Terminal) ReadLoop(queue *eventqueue.EventQueue) {
	buf := make([]byte, 1)
	for {
		n, err := t.in.Read(buf)
		if err != nil {
			queue.Post(eventqueue.ErrorEvent{Cause: err})
			return
		}
		if n == 0 {
			continue
		}
		b := buf[0]
		if b != 0x1b {
			queue.Post(decodeSingle(b))
			continue
		}
		queue.Post(decodeEscapeSequence(t.readEscapeSequence()))
	}
}

// readEscapeSequence reads up to maxEscapeLen bytes following an ESC byte,
// using a short read deadline to distinguish a bare Esc keypress (no
// further bytes arrive) from a multi-byte escape sequence (the terminal
// driver delivers the whole sequence essentially at once).
func (t *Terminal) readEscapeSequence() []byte {
	_ = t.in.SetReadDeadline(time.Now().Add(escapeReadTimeout))
	defer func() { _ = t.in.SetReadDeadline(time.Time{}) }()

	var seq []byte
	buf := make([]byte, 1)
	for len(seq) < maxEscapeLen {
		n, err := t.in.Read(buf)
		if err != nil || n == 0 {
			break
		}
		seq = append(seq, buf[0])
		if escapeComplete(seq) {
			break
		}
	}
	return seq
}

func escapeComplete(seq []byte) bool {
	if len(seq) == 0 || seq[0] != '[' {
		return len(seq) >= 1
	}
	if len(seq) == 2 {
		switch seq[1] {
		case 'A', 'B', 'C', 'D', 'H', 'F':
			return true
		}
	}
	if len(seq) >= 3 && seq[len(seq)-1] == '~' {
		return true
	}
	if len(seq) >= 5 && seq[1] == 'M' {
		return true
	}
	return false
}

func decodeSingle(b byte) eventqueue.Event {
	switch b {
	case 0x0d:
		return eventqueue.KeyEvent{Key: "Enter"}
	case 0x15:
		return eventqueue.KeyEvent{Key: "Ctrl-U"}
	case 0x04:
		return eventqueue.KeyEvent{Key: "Ctrl-D"}
	default:
		return eventqueue.KeyEvent{Key: string(rune(b))}
	}
}

// decodeEscapeSequence maps the bytes following ESC to the terminal input
// vocabulary in spec.md §6. Unrecognized sequences degrade to a bare Esc
// rather than being silently dropped.
func decodeEscapeSequence(seq []byte) eventqueue.Event {
	if len(seq) == 0 {
		return eventqueue.KeyEvent{Key: "Esc"}
	}
	if seq[0] != '[' {
		return eventqueue.KeyEvent{Key: "Esc"}
	}

	if len(seq) == 2 {
		switch seq[1] {
		case 'A':
			return eventqueue.KeyEvent{Key: "Up"}
		case 'B':
			return eventqueue.KeyEvent{Key: "Down"}
		case 'C':
			return eventqueue.KeyEvent{Key: "Right"}
		case 'D':
			return eventqueue.KeyEvent{Key: "Left"}
		case 'H':
			return eventqueue.KeyEvent{Key: "Home"}
		case 'F':
			return eventqueue.KeyEvent{Key: "End"}
		}
	}

	if len(seq) >= 3 && seq[len(seq)-1] == '~' {
		switch seq[1] {
		case '5':
			return eventqueue.KeyEvent{Key: "PageUp"}
		case '6':
			return eventqueue.KeyEvent{Key: "PageDown"}
		}
	}

	if len(seq) >= 5 && seq[1] == 'M' {
		button := int(seq[2]) - 32
		x := int(seq[3]) - 32 - 1
		y := int(seq[4]) - 32 - 1
		return eventqueue.MouseEvent{Button: button, X: x, Y: y}
	}

	return eventqueue.KeyEvent{Key: "Esc"}
}
