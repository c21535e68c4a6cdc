package ui

import (
	"bytes"
	"io"

	"golang.org/x/term"
)

// CRLFWriter translates "\n" into "\r\n". A terminal in raw mode no longer
// returns the carriage on a bare line feed.
type CRLFWriter struct {
	W io.Writer
}

func (c CRLFWriter) Write(p []byte) (int, error) {
	if bytes.IndexByte(p, '\n') < 0 {
		return c.W.Write(p)
	}

	out := make([]byte, 0, len(p)+8)
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}

	if _, err := c.W.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Fd lets terminal detection see through the wrapper.
func (c CRLFWriter) Fd() uintptr {
	if f, ok := c.W.(interface{ Fd() uintptr }); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
