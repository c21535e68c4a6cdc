package guard

import (
	"context"
	"sync"
	"time"
)

type Outcome int

const (
	Expired Outcome = iota
	Dismissed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Expired:
		return "expired"
	case Dismissed:
		return "dismissed"
	default:
		return "cancelled"
	}
}

// Countdown is a running timer handle. It ends exactly once: on expiry,
// on Cancel or when its context is done.
type Countdown struct {
	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
	outcome    Outcome
}

// StartCountdown counts seconds down, one step per interval, calling tick
// with the remaining count after each step that does not end the count.
func StartCountdown(ctx context.Context, seconds int, interval time.Duration, tick func(remaining int)) *Countdown {
	c := &Countdown{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if interval <= 0 {
		interval = time.Second
	}

	go c.run(ctx, seconds, interval, tick)
	return c
}

func (c *Countdown) run(ctx context.Context, remaining int, interval time.Duration, tick func(int)) {
	defer close(c.done)

	if remaining <= 0 {
		c.outcome = Expired
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			c.outcome = Cancelled
			return
		case <-c.cancel:
			c.outcome = Dismissed
			return
		case <-t.C:
			remaining--
			if remaining <= 0 {
				c.outcome = Expired
				return
			}
			if tick != nil {
				tick(remaining)
			}
		}
	}
}

// Cancel dismisses the countdown. Safe to call more than once and after
// the countdown has ended.
func (c *Countdown) Cancel() {
	c.cancelOnce.Do(func() { close(c.cancel) })
}

func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the countdown ends and reports how.
func (c *Countdown) Wait() Outcome {
	<-c.done
	return c.outcome
}
