package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		in   string
		want Chord
	}{
		{"alt+d", Chord{Alt: true, Key: 'd'}},
		{"ALT+Shift+N", Chord{Alt: true, Shift: true, Key: 'n'}},
		{"ctrl+x", Chord{Ctrl: true, Key: 'x'}},
		{"ctrl+alt+s", Chord{Ctrl: true, Alt: true, Key: 's'}},
		{"enter", Chord{Key: KeyEnter}},
		{"meta+space", Chord{Alt: true, Key: KeySpace}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChord(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChordRejects(t *testing.T) {
	for _, in := range []string{"", "alt+", "hyper+d", "ctrl+shift+d", "ctrl+i", "ctrl+1", "shift+1", "alt+dd"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseChord(in)
			assert.ErrorIs(t, err, ErrBadChord)
		})
	}
}

func TestChordStringRoundTrip(t *testing.T) {
	for _, in := range []string{"alt+d", "ctrl+alt+x", "alt+shift+n", "esc", "alt+space"} {
		c := MustParseChord(in)
		back, err := ParseChord(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, back, in)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []Chord
	}{
		{"plain", []byte("d"), []Chord{{Key: 'd'}}},
		{"upper is shift", []byte("D"), []Chord{{Shift: true, Key: 'd'}}},
		{"alt", []byte{KeyEsc, 'd'}, []Chord{{Alt: true, Key: 'd'}}},
		{"alt shift", []byte{KeyEsc, 'N'}, []Chord{{Alt: true, Shift: true, Key: 'n'}}},
		{"ctrl", []byte{0x03}, []Chord{{Ctrl: true, Key: 'c'}}},
		{"ctrl alt", []byte{KeyEsc, 0x13}, []Chord{{Ctrl: true, Alt: true, Key: 's'}}},
		{"lone esc", []byte{KeyEsc}, []Chord{{Key: KeyEsc}}},
		{"enter", []byte{'\r'}, []Chord{{Key: KeyEnter}}},
		{"arrow skipped", []byte{KeyEsc, '[', 'A', 'y'}, []Chord{{Key: 'y'}}},
		{"several", []byte("yn"), []Chord{{Key: 'y'}, {Key: 'n'}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestNewBindings(t *testing.T) {
	b, err := NewBindings("alt+d", "alt+n", "alt+s")
	require.NoError(t, err)

	assert.Equal(t, ActionDownload, b.Match(Chord{Alt: true, Key: 'd'}))
	assert.Equal(t, ActionNext, b.Match(Chord{Alt: true, Key: 'n'}))
	assert.Equal(t, ActionStop, b.Match(Chord{Alt: true, Key: 's'}))
	assert.Equal(t, ActionQuit, b.Match(Chord{Ctrl: true, Key: 'c'}))
	assert.Equal(t, ActionNone, b.Match(Chord{Key: 'd'}))

	_, err = NewBindings("alt+d", "alt+d", "alt+s")
	assert.ErrorIs(t, err, ErrBadChord)

	_, err = NewBindings("alt+d", "alt+n", "ctrl+c")
	assert.ErrorIs(t, err, ErrBadChord)
}

func TestListenerEmitsEvents(t *testing.T) {
	b, err := NewBindings("alt+d", "alt+n", "alt+s")
	require.NoError(t, err)

	l := NewListener(strings.NewReader("\x1bdx\x1bs"), b)
	defer func() { _ = l.Close() }()

	var got []Event
	for ev := range l.Events() {
		got = append(got, ev)
	}

	require.Len(t, got, 3)
	assert.Equal(t, ActionDownload, got[0].Action)
	assert.Equal(t, ActionNone, got[1].Action)
	assert.Equal(t, 'x', got[1].Chord.Key)
	assert.Equal(t, ActionStop, got[2].Action)
	assert.False(t, l.Raw())
}
