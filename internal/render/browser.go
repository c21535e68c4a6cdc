package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

type BrowserOptions struct {
	UserAgent   string
	ScrollStep  int
	ScrollDelay time.Duration
	Timeout     time.Duration
	DebugLogger interface {
		Debugf(string, ...any)
	}
}

// BrowserLoader renders pages in headless Chrome and scrolls through them
// before taking the DOM snapshot.
type BrowserLoader struct {
	opts BrowserOptions
}

func NewBrowserLoader(opts BrowserOptions) *BrowserLoader {
	if opts.ScrollStep < 1 {
		opts.ScrollStep = 800
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &BrowserLoader{opts: opts}
}

func (l *BrowserLoader) Load(ctx context.Context, target string) (*Page, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Headless)
	if l.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(l.opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	bctx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	bctx, cancelTimeout := context.WithTimeout(bctx, l.opts.Timeout)
	defer cancelTimeout()

	if err := chromedp.Run(bctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}

	if err := l.scrollPageToLoadImages(bctx); err != nil {
		return nil, fmt.Errorf("scroll %s: %w", target, err)
	}

	var html, location string
	if err := chromedp.Run(bctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", target, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}

	return newPage(location, doc), nil
}

// scrollPageToLoadImages walks the viewport down in fixed steps, pausing
// at each one, then returns to the top.
func (l *BrowserLoader) scrollPageToLoadImages(ctx context.Context) error {
	var height int
	if err := chromedp.Run(ctx, chromedp.Evaluate(`document.documentElement.scrollHeight`, &height)); err != nil {
		return err
	}

	positions := ScrollPositions(height, l.opts.ScrollStep)
	if l.opts.DebugLogger != nil {
		l.opts.DebugLogger.Debugf("Scrolling %dpx in %d steps", height, len(positions))
	}

	for _, y := range positions {
		if err := scrollTo(ctx, y, l.opts.ScrollDelay); err != nil {
			return err
		}
	}

	return scrollTo(ctx, 0, 0)
}

func scrollTo(ctx context.Context, y int, wait time.Duration) error {
	actions := []chromedp.Action{
		chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, y), nil),
	}
	if wait > 0 {
		actions = append(actions, chromedp.Sleep(wait))
	}
	return chromedp.Run(ctx, actions...)
}

// ScrollPositions lists the offsets visited when stepping through a page of
// the given height. The last step always reaches the bottom.
func ScrollPositions(height, step int) []int {
	if height <= 0 || step <= 0 {
		return nil
	}

	var out []int
	for y := step; y < height; y += step {
		out = append(out, y)
	}
	return append(out, height)
}
