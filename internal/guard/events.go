package guard

import (
	"fmt"
	"strings"
)

type EventKind int

const (
	// TitleChanged is the page title changing, which is how in-page
	// navigation shows up. These are debounced.
	TitleChanged EventKind = iota
	// PopState is a back/forward navigation. Checked immediately.
	PopState
)

func (k EventKind) String() string {
	if k == PopState {
		return "pop"
	}
	return "title"
}

type Event struct {
	Kind  EventKind
	URL   string
	Title string
}

// ParseEvent reads one line of the event stream:
//
//	pop <url>
//	<url> [title...]
//
// Blank lines and lines starting with # are skipped (ok is false).
func ParseEvent(line string) (ev Event, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, false, nil
	}

	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	if head == "pop" {
		if rest == "" {
			return Event{}, false, fmt.Errorf("pop event without url: %q", line)
		}
		u, _, _ := strings.Cut(rest, " ")
		return Event{Kind: PopState, URL: u}, true, nil
	}

	return Event{Kind: TitleChanged, URL: head, Title: rest}, true, nil
}
