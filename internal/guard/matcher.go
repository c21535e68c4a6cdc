package guard

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Matcher decides whether a location is blocked.
type Matcher struct {
	Hosts   []string
	Pattern *regexp.Regexp
}

func NewMatcher(hosts []string, pattern string) (*Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}

	m := &Matcher{Pattern: re}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m.Hosts = append(m.Hosts, h)
		}
	}
	return m, nil
}

// Match reports whether raw points at a guarded host and its path matches
// the pattern. With no hosts configured every host is guarded.
func (m *Matcher) Match(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}

	if len(m.Hosts) > 0 && !m.guarded(strings.ToLower(u.Hostname())) {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}
	return m.Pattern.MatchString(p)
}

func (m *Matcher) guarded(host string) bool {
	for _, h := range m.Hosts {
		if h == host {
			return true
		}
	}
	return false
}
