// Package session drives one downloader run: load a page, collect its
// thumbnails, confirm, fetch in batches, write the archive and decide
// whether to move on to the next page.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/brogergvhs/pagekit/internal/archive"
	"github.com/brogergvhs/pagekit/internal/config"
	"github.com/brogergvhs/pagekit/internal/downloader"
	"github.com/brogergvhs/pagekit/internal/keys"
	"github.com/brogergvhs/pagekit/internal/render"
	"github.com/brogergvhs/pagekit/internal/ui"
	"github.com/brogergvhs/pagekit/internal/wiki"
)

var ErrDeclined = errors.New("download declined")

type Deps struct {
	Loader     render.Loader
	Downloader *downloader.Downloader
	Confirmer  Confirmer
	Log        *ui.Logger
	Stats      *ui.Stats

	// Out receives user-facing notices.
	Out io.Writer

	// Progress, when set, creates a progress display for one archive.
	Progress func(name string) downloader.Progress
}

// Report describes one completed page.
type Report struct {
	Page    *render.Page
	Images  int
	Result  downloader.Result
	Archive string
	Next    string
}

// Session owns the run-wide switches. The auto flag starts out as the
// configured auto_download and only Stop clears it.
type Session struct {
	cfg  config.DownloadConfig
	out  string
	deps Deps

	active atomic.Bool

	mu      sync.Mutex
	state   State
	current string
}

func New(cfg *config.Config, deps Deps) *Session {
	if deps.Confirmer == nil {
		deps.Confirmer = PromptConfirmer{}
	}
	if deps.Log == nil {
		deps.Log = ui.Nop()
	}
	if deps.Stats == nil {
		deps.Stats = &ui.Stats{}
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}

	s := &Session{
		cfg:  cfg.Download,
		out:  cfg.Output,
		deps: deps,
	}
	s.active.Store(cfg.Download.AutoDownload)
	return s
}

func (s *Session) Active() bool {
	return s.active.Load()
}

// Stop clears the auto flag. Fetches already in flight keep running; the
// next post-download decision will not navigate.
func (s *Session) Stop() {
	if s.active.Swap(false) {
		s.deps.Log.Infof("Auto-download stopped")
	}
	s.setState(StateStopped)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current is the URL of the page most recently loaded.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()

	if prev != st {
		s.deps.Log.Debugf("State %s -> %s", prev, st)
	}
}

// settle picks the resting state once a page is done.
func (s *Session) settle() {
	switch {
	case s.State() == StateNavigatingNext:
	case s.cfg.AutoDownload && !s.Active():
		s.setState(StateStopped)
	default:
		s.setState(StateIdle)
	}
}

func (s *Session) notice(format string, args ...any) {
	_, _ = fmt.Fprintf(s.deps.Out, format+"\n", args...)
}

// Preview loads a page and collects its images without downloading.
func (s *Session) Preview(ctx context.Context, url string) (*render.Page, []wiki.ImageRef, error) {
	if s.cfg.AutoScroll {
		s.setState(StateScrolling)
	} else {
		s.setState(StateLoading)
	}

	page, err := s.deps.Loader.Load(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.current = page.URL
	s.mu.Unlock()

	refs := wiki.CollectImages(page.Doc, page.URL, s.cfg.ImageClass, s.cfg.FullSize)
	return page, refs, nil
}

// StartDownloadProcess runs the whole pipeline for one page. Setup failures
// are returned; individual image failures only show up in the report.
func (s *Session) StartDownloadProcess(ctx context.Context, url string) (*Report, error) {
	defer s.settle()

	page, refs, err := s.Preview(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w with class %q on %s", wiki.ErrNoImages, s.cfg.ImageClass, page.URL)
	}

	s.deps.Log.Infof("Found %d images on %q", len(refs), page.Title)

	if !s.cfg.AutoDownload {
		s.setState(StateAwaitingConfirmation)
		ok, err := s.deps.Confirmer.Confirm(ctx, fmt.Sprintf("Download %d images from %q", len(refs), page.Title))
		if err != nil {
			return nil, fmt.Errorf("confirmation: %w", err)
		}
		if !ok {
			return nil, ErrDeclined
		}
	}

	name := wiki.SanitizeTitle(page.Title)
	arc := archive.New()

	var ph downloader.Progress
	if s.deps.Progress != nil {
		ph = s.deps.Progress(name)
	}

	s.setState(StateFetchingImages)
	res := s.deps.Downloader.DownloadAndPackage(ctx, refs, arc, s.cfg.MaxConcurrent, page.URL, ph)
	s.deps.Log.Infof("Download complete: %d succeeded, %d failed", res.Success, res.Failed)

	s.deps.Stats.TotalPages.Add(1)
	s.deps.Stats.TotalImages.Add(int64(res.Success))
	s.deps.Stats.TotalFailed.Add(int64(res.Failed))
	s.deps.Stats.TotalBytes.Add(res.Bytes)

	rep := &Report{Page: page, Images: len(refs), Result: res}

	s.setState(StatePackaging)
	if arc.Len() == 0 {
		s.deps.Log.Warnf("No image could be fetched from %s, skipping archive", page.URL)
	} else {
		s.setState(StateTriggeringDownload)
		path, err := arc.Save(s.out, name)
		if err != nil {
			return nil, err
		}
		rep.Archive = path
		s.deps.Stats.TotalArchives.Add(1)
		s.notice("Saved %s (%d images)", path, arc.Len())
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	if s.cfg.AutoDownload {
		rep.Next = s.NavigateToNextPage(page)
	}

	return rep, nil
}

// NavigateToNextPage returns the next page URL when there is one and auto
// mode is still on. Otherwise it tells the user and returns "".
func (s *Session) NavigateToNextPage(page *render.Page) string {
	next, err := wiki.NextPageURL(page.Doc, page.URL, s.cfg.NextSelector)
	if err != nil {
		s.notice("No next page link found.")
		return ""
	}

	if !s.Active() {
		s.notice("Auto-download is stopped, not moving on to %s", next)
		return ""
	}

	s.setState(StateNavigatingNext)
	s.deps.Log.Infof("Navigating to next page: %s", next)
	return next
}

// Run downloads url and keeps following next links until there are none,
// the session is stopped or max_pages is reached.
func (s *Session) Run(ctx context.Context, url string) error {
	for pages := 0; url != ""; {
		rep, err := s.StartDownloadProcess(ctx, url)
		if err != nil {
			return err
		}

		pages++
		if s.cfg.MaxPages > 0 && pages >= s.cfg.MaxPages && rep.Next != "" {
			s.notice("Reached max_pages (%d), stopping before %s", s.cfg.MaxPages, rep.Next)
			s.setState(StateIdle)
			return nil
		}

		url = rep.Next
	}

	return nil
}

// Intercept handles stop and quit as soon as they are pressed, even while
// a download blocks the consumer, and forwards every event.
func (s *Session) Intercept(in <-chan keys.Event, quit context.CancelFunc) <-chan keys.Event {
	out := make(chan keys.Event, 16)

	go func() {
		defer close(out)
		for ev := range in {
			switch ev.Action {
			case keys.ActionStop:
				s.Stop()
			case keys.ActionQuit:
				if quit != nil {
					quit()
				}
			}

			select {
			case out <- ev:
			default:
				s.deps.Log.Debugf("Dropped key %s", ev.Chord)
			}
		}
	}()

	return out
}

// Watch waits for shortcut actions on the page at url.
func (s *Session) Watch(ctx context.Context, url string, sc config.Shortcuts, events <-chan keys.Event) error {
	s.mu.Lock()
	s.current = url
	s.mu.Unlock()

	s.notice("Watching %s", url)
	s.notice("  %s: download images   %s: next page   %s: stop auto-download   ctrl+c: quit",
		sc.Download, sc.Next, sc.Stop)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			switch ev.Action {
			case keys.ActionQuit:
				return nil
			case keys.ActionStop:
				s.notice("Auto-download stopped.")
			case keys.ActionDownload:
				s.watchDownload(ctx)
			case keys.ActionNext:
				s.watchNext(ctx)
			}
		}
	}
}

func (s *Session) watchDownload(ctx context.Context) {
	rep, err := s.StartDownloadProcess(ctx, s.Current())
	if err != nil {
		s.logRunError(err)
		return
	}

	if rep.Next != "" {
		if err := s.Run(ctx, rep.Next); err != nil {
			s.logRunError(err)
		}
	}
}

func (s *Session) watchNext(ctx context.Context) {
	page, err := s.deps.Loader.Load(ctx, s.Current())
	if err != nil {
		s.logRunError(err)
		return
	}

	next, err := wiki.NextPageURL(page.Doc, page.URL, s.cfg.NextSelector)
	if err != nil {
		s.notice("No next page link found.")
		return
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	s.notice("Now at %s", next)

	if s.cfg.AutoDownload && s.Active() {
		if err := s.Run(ctx, next); err != nil {
			s.logRunError(err)
		}
	}
}

func (s *Session) logRunError(err error) {
	switch {
	case errors.Is(err, ErrDeclined):
		s.notice("Cancelled.")
	case errors.Is(err, context.Canceled):
		s.deps.Log.Debugf("Run cancelled")
	default:
		s.deps.Log.Errorf("%v", err)
	}
}
