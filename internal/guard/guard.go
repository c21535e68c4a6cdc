package guard

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/brogergvhs/pagekit/internal/config"
	"github.com/brogergvhs/pagekit/internal/ui"
)

const (
	defaultDebounce = 500 * time.Millisecond
	defaultSeconds  = 3
)

type Options struct {
	Matcher   *Matcher
	HomeURL   string
	Seconds   int
	Tick      time.Duration
	Debounce  time.Duration
	Modal     Modal
	Navigator Navigator
	Log       *ui.Logger
}

// OptionsFromConfig builds everything but the modal and navigator.
func OptionsFromConfig(cfg config.GuardConfig) (Options, error) {
	m, err := NewMatcher(cfg.Hosts, cfg.PathPattern)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Matcher:  m,
		HomeURL:  cfg.HomeURL,
		Seconds:  wholeSeconds(cfg.Countdown),
		Tick:     time.Second,
		Debounce: cfg.Debounce,
	}, nil
}

// wholeSeconds rounds up, so a countdown never runs shorter than asked.
func wholeSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// Summary counts what a Run did.
type Summary struct {
	Events     int
	Blocked    int
	Redirected int
	Dismissed  int
}

type Guard struct {
	opts    Options
	dismiss chan struct{}
}

func New(opts Options) *Guard {
	if opts.Seconds <= 0 {
		opts.Seconds = defaultSeconds
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Modal == nil {
		opts.Modal = &TerminalModal{Out: io.Discard, Plain: true}
	}
	if opts.Navigator == nil {
		opts.Navigator = WriterNavigator{Out: io.Discard}
	}
	if opts.Log == nil {
		opts.Log = ui.Nop()
	}

	return &Guard{opts: opts, dismiss: make(chan struct{}, 1)}
}

// Check reports whether url would be blocked.
func (g *Guard) Check(url string) bool {
	return g.opts.Matcher.Match(url)
}

// Dismiss closes the running countdown, if any, and leaves the page as is.
func (g *Guard) Dismiss() {
	select {
	case g.dismiss <- struct{}{}:
	default:
	}
}

// Run consumes events until ctx is done or events is closed and nothing is
// left pending. Title changes are debounced, back/forward is checked right
// away. A trigger while a countdown runs is ignored.
func (g *Guard) Run(ctx context.Context, events <-chan Event) (Summary, error) {
	var sum Summary

	fire := make(chan struct{}, 1)
	deb := NewDebouncer(g.opts.Debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
	defer deb.Stop()

	var (
		last   string
		cd     *Countdown
		cdDone <-chan struct{}
		closed bool
	)

	trigger := func(url string) {
		if !g.Check(url) {
			return
		}
		if cd != nil {
			g.opts.Log.Debugf("Countdown already running, ignoring %s", url)
			return
		}

		// a dismiss sent while nothing was showing must not close this one
		select {
		case <-g.dismiss:
		default:
		}

		sum.Blocked++
		g.opts.Log.Infof("Blocked %s", url)
		g.opts.Modal.Show(g.opts.Seconds)
		cd = StartCountdown(ctx, g.opts.Seconds, g.opts.Tick, g.opts.Modal.Update)
		cdDone = cd.Done()
	}

	for {
		if closed && cd == nil && !deb.Pending() && len(fire) == 0 {
			return sum, nil
		}

		select {
		case <-ctx.Done():
			if cd != nil {
				cd.Cancel()
				cd.Wait()
				g.opts.Modal.Close()
			}
			return sum, nil

		case ev, ok := <-events:
			if !ok {
				closed = true
				events = nil
				continue
			}

			sum.Events++
			last = ev.URL
			g.opts.Log.Debugf("Event %s %s", ev.Kind, ev.URL)

			if ev.Kind == PopState {
				trigger(last)
			} else {
				deb.Trigger()
			}

		case <-fire:
			trigger(last)

		case <-g.dismiss:
			if cd != nil {
				cd.Cancel()
			}

		case <-cdDone:
			outcome := cd.Wait()
			cd, cdDone = nil, nil
			g.opts.Modal.Close()

			switch outcome {
			case Expired:
				if err := g.opts.Navigator.Navigate(ctx, g.opts.HomeURL); err != nil {
					return sum, fmt.Errorf("navigate to %s: %w", g.opts.HomeURL, err)
				}
				sum.Redirected++
				last = g.opts.HomeURL
				g.opts.Log.Infof("Redirected to %s", g.opts.HomeURL)
			case Dismissed:
				sum.Dismissed++
				g.opts.Log.Infof("Dismissed, staying on page")
			}
		}
	}
}
