// Package keys parses shortcut chords and decodes raw terminal input into
// key presses, so the downloader can be driven from the keyboard.
package keys

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrBadChord = errors.New("invalid shortcut chord")

const (
	KeyTab   = '\t'
	KeyEnter = '\r'
	KeyEsc   = 0x1b
	KeySpace = ' '
)

// Chord is a set of modifiers plus one key. Key is always lower case for
// letters; an upper case letter sets Shift instead.
type Chord struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Key   rune
}

var namedKeys = map[string]rune{
	"tab":    KeyTab,
	"enter":  KeyEnter,
	"return": KeyEnter,
	"esc":    KeyEsc,
	"escape": KeyEsc,
	"space":  KeySpace,
}

// ParseChord parses strings such as "alt+d", "ctrl+x" or "alt+shift+n".
func ParseChord(s string) (Chord, error) {
	var c Chord

	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return c, fmt.Errorf("%w: %q", ErrBadChord, s)
	}

	for _, mod := range parts[:len(parts)-1] {
		switch strings.TrimSpace(mod) {
		case "ctrl", "control":
			c.Ctrl = true
		case "alt", "meta", "option":
			c.Alt = true
		case "shift":
			c.Shift = true
		default:
			return c, fmt.Errorf("%w: unknown modifier %q in %q", ErrBadChord, mod, s)
		}
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	if r, ok := namedKeys[key]; ok {
		c.Key = r
	} else {
		r, size := utf8.DecodeRuneInString(key)
		if size != len(key) || !unicode.IsPrint(r) {
			return c, fmt.Errorf("%w: unknown key %q in %q", ErrBadChord, key, s)
		}
		c.Key = r
	}

	if c.Ctrl {
		// Terminals send ctrl+letter as a single control byte, which loses
		// shift and collides with tab and enter.
		if c.Key < 'a' || c.Key > 'z' {
			return c, fmt.Errorf("%w: ctrl only combines with letters in %q", ErrBadChord, s)
		}
		if c.Shift {
			return c, fmt.Errorf("%w: ctrl+shift is indistinguishable from ctrl in %q", ErrBadChord, s)
		}
		if c.Key == 'i' || c.Key == 'm' {
			return c, fmt.Errorf("%w: %q is indistinguishable from tab/enter", ErrBadChord, s)
		}
	}
	if c.Shift && !unicode.IsLetter(c.Key) {
		return c, fmt.Errorf("%w: shift only combines with letters in %q", ErrBadChord, s)
	}

	return c, nil
}

func MustParseChord(s string) Chord {
	c, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Chord) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString("ctrl+")
	}
	if c.Alt {
		b.WriteString("alt+")
	}
	if c.Shift {
		b.WriteString("shift+")
	}

	switch c.Key {
	case KeyTab:
		b.WriteString("tab")
	case KeyEnter:
		b.WriteString("enter")
	case KeyEsc:
		b.WriteString("esc")
	case KeySpace:
		b.WriteString("space")
	default:
		b.WriteRune(c.Key)
	}

	return b.String()
}
