package keys

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

type Action string

const (
	ActionNone     Action = ""
	ActionDownload Action = "download"
	ActionNext     Action = "next"
	ActionStop     Action = "stop"
	ActionQuit     Action = "quit"
)

// Event is one key press together with the action bound to it, if any.
type Event struct {
	Chord  Chord
	Action Action
}

type Bindings map[Chord]Action

// NewBindings parses the three configured chords. Ctrl+C always quits,
// since raw mode swallows SIGINT.
func NewBindings(download, next, stop string) (Bindings, error) {
	b := Bindings{
		{Ctrl: true, Key: 'c'}: ActionQuit,
	}

	for _, item := range []struct {
		chord  string
		action Action
	}{
		{download, ActionDownload},
		{next, ActionNext},
		{stop, ActionStop},
	} {
		c, err := ParseChord(item.chord)
		if err != nil {
			return nil, err
		}
		if prev, ok := b[c]; ok {
			return nil, fmt.Errorf("%w: %s is bound to both %s and %s", ErrBadChord, c, prev, item.action)
		}
		b[c] = item.action
	}

	return b, nil
}

func (b Bindings) Match(c Chord) Action {
	return b[c]
}

// Listener reads key presses from an input and publishes them as events.
type Listener struct {
	in       io.Reader
	bindings Bindings
	events   chan Event

	fd    int
	state *term.State

	closeOnce sync.Once
	done      chan struct{}
}

// Listen puts f into raw mode when it is a terminal and starts reading.
// Close must be called to restore the terminal.
func Listen(f *os.File, b Bindings) (*Listener, error) {
	l := newListener(f, b)

	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		st, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("raw terminal: %w", err)
		}
		l.fd = fd
		l.state = st
	}

	go l.read()
	return l, nil
}

// NewListener reads from an arbitrary reader without touching terminal modes.
func NewListener(r io.Reader, b Bindings) *Listener {
	l := newListener(r, b)
	go l.read()
	return l
}

func newListener(r io.Reader, b Bindings) *Listener {
	return &Listener{
		in:       r,
		bindings: b,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

// Raw reports whether the listener switched a terminal into raw mode.
func (l *Listener) Raw() bool {
	return l.state != nil
}

func (l *Listener) Events() <-chan Event {
	return l.events
}

func (l *Listener) read() {
	defer close(l.events)

	buf := make([]byte, 64)
	for {
		n, err := l.in.Read(buf)
		for _, c := range Decode(buf[:n]) {
			select {
			case l.events <- Event{Chord: c, Action: l.bindings.Match(c)}:
			case <-l.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Close restores the terminal. It is safe to call more than once.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		if l.state != nil {
			err = term.Restore(l.fd, l.state)
		}
	})
	return err
}
