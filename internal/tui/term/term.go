package term

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal owns the raw-mode state of the controlling TTY. Its lifecycle
// mirrors the console attach flow the pack's cocoon example uses: check
// IsTerminal, MakeRaw, defer Restore.
type Terminal struct {
	in       *os.File
	out      *os.File
	fd       int
	oldState *term.State
}

// Open switches stdin into raw mode. Callers must call Restore before the
// process exits, even on error paths, or the user's shell is left in raw
// mode.
func Open() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("set raw mode: %w", err)
	}
	return &Terminal{in: os.Stdin, out: os.Stdout, fd: fd, oldState: oldState}, nil
}

func (t *Terminal) Restore() error {
	return term.Restore(t.fd, t.oldState)
}

// Size returns the current terminal dimensions in character cells. Falls
// back to a direct TIOCGWINSZ ioctl if the x/term helper fails (e.g. a
// stdout that has been reopened on some exotic pty implementation) — the
// two should never disagree on Linux, but the fallback costs nothing.
func (t *Terminal) Size() (width, height int, err error) {
	width, height, err = term.GetSize(int(t.out.Fd()))
	if err == nil {
		return width, height, nil
	}
	ws, ioctlErr := unix.IoctlGetWinsize(int(t.out.Fd()), unix.TIOCGWINSZ)
	if ioctlErr != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}
