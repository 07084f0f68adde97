package source

import (
	"context"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/queue"
)

// Keyboard is the Source of spec §4.1 "Keyboard source": active only in
// interactive mode, reading raw single-key commands. Per spec §9 Open
// Question 3, a non-TTY stdin silently disables the source rather than
// erroring.
type Keyboard struct {
	stdin      *os.File
	stdinQuit  bool
	isTerminal func(fd uintptr) bool
}

// NewKeyboard creates a Keyboard source reading from stdin. stdinQuit
// enables the EOF→quit mapping (spec §6 "--stdin-quit").
func NewKeyboard(stdin *os.File, stdinQuit bool) *Keyboard {
	return &Keyboard{stdin: stdin, stdinQuit: stdinQuit, isTerminal: func(fd uintptr) bool { return term.IsTerminal(int(fd)) }}
}

// Run puts stdin into raw mode and reads one byte at a time, mapping
// r/p/q/EOF to Events, until ctx is cancelled or stdin closes. If stdin is
// not a terminal, Run returns immediately without error (silent disable).
func (k *Keyboard) Run(ctx context.Context, out queue.Producer) error {
	fd := int(k.stdin.Fd())
	if !k.isTerminal(k.stdin.Fd()) {
		return nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil // treat as silent disable: raw mode unavailable
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	reads := make(chan byte)
	errs := make(chan error, 1)
	go func() {
		for {
			n, err := k.stdin.Read(buf)
			if n > 0 {
				select {
				case reads <- buf[0]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errs <- err
				return
			}
		}
	}()

	for {
		select {
		case b := <-reads:
			if e, ok := keyEvent(b); ok {
				if sendErr := out.Send(ctx, e); sendErr != nil {
					return nil
				}
			}
		case err := <-errs:
			if err == io.EOF && k.stdinQuit {
				e := event.New(event.SourceTag(event.SourceKeyboard), event.KeyboardTag(event.KeyEOF))
				_ = out.Send(ctx, e)
			}
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func keyEvent(b byte) (event.Event, bool) {
	var key event.Keycode
	switch b {
	case 'r':
		key = event.KeyRestart
	case 'p':
		key = event.KeyPause
	case 'q':
		key = event.KeyQuit
	default:
		return event.Event{}, false
	}
	return event.New(event.SourceTag(event.SourceKeyboard), event.KeyboardTag(key)), true
}
