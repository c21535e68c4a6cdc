package guard

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

type Modal interface {
	Show(remaining int)
	Update(remaining int)
	Close()
}

const clearLine = "\r\x1b[2K"

var banner = func() *color.Color {
	c := color.New(color.Faint, color.ReverseVideo)
	c.EnableColor()
	return c
}()

// TerminalModal draws the countdown as a single banner line that is
// redrawn in place. Plain writes one line per update instead, for output
// that is not a terminal.
type TerminalModal struct {
	Out         io.Writer
	Plain       bool
	DismissHint string

	mu   sync.Mutex
	open bool
}

func (m *TerminalModal) Show(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = true
	m.draw(remaining)
}

func (m *TerminalModal) Update(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		m.draw(remaining)
	}
}

func (m *TerminalModal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return
	}
	m.open = false
	if !m.Plain {
		_, _ = io.WriteString(m.Out, clearLine)
	}
}

func (m *TerminalModal) draw(remaining int) {
	text := fmt.Sprintf(" Shorts blocked. Redirecting to home in %ds. ", remaining)
	if m.DismissHint != "" {
		text += m.DismissHint + " "
	}

	if m.Plain {
		_, _ = fmt.Fprintln(m.Out, text)
		return
	}
	_, _ = fmt.Fprint(m.Out, clearLine+banner.Sprint(text))
}
