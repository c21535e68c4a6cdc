package keys

import (
	"unicode"
	"unicode/utf8"
)

// Decode turns one chunk of raw terminal input into chords. A raw-mode
// terminal delivers a key press, escape prefix included, in a single read,
// so a trailing lone ESC is the escape key itself.
func Decode(buf []byte) []Chord {
	var out []Chord

	for i := 0; i < len(buf); {
		alt := false

		if buf[i] == KeyEsc {
			if i+1 >= len(buf) {
				out = append(out, Chord{Key: KeyEsc})
				break
			}
			if buf[i+1] == '[' || buf[i+1] == 'O' {
				i = skipEscapeSequence(buf, i+2)
				continue
			}
			alt = true
			i++
		}

		c, size := decodeOne(buf[i:])
		c.Alt = alt
		out = append(out, c)
		i += size
	}

	return out
}

func decodeOne(buf []byte) (Chord, int) {
	b := buf[0]

	switch {
	case b == KeyTab, b == KeyEnter, b == KeyEsc:
		return Chord{Key: rune(b)}, 1
	case b == '\n':
		return Chord{Key: KeyEnter}, 1
	case b >= 1 && b <= 26:
		return Chord{Ctrl: true, Key: rune('a' + b - 1)}, 1
	case b < 0x20 || b == 0x7f:
		return Chord{Key: rune(b)}, 1
	}

	r, size := utf8.DecodeRune(buf)
	if unicode.IsUpper(r) {
		return Chord{Shift: true, Key: unicode.ToLower(r)}, size
	}

	return Chord{Key: r}, size
}

// skipEscapeSequence returns the index after a CSI/SS3 sequence such as an
// arrow key, whose final byte lies in 0x40..0x7e.
func skipEscapeSequence(buf []byte, i int) int {
	for ; i < len(buf); i++ {
		if buf[i] >= 0x40 && buf[i] <= 0x7e {
			return i + 1
		}
	}
	return i
}
