package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brogergvhs/pagekit/internal/config"
	"github.com/brogergvhs/pagekit/internal/downloader"
	"github.com/brogergvhs/pagekit/internal/keys"
	"github.com/brogergvhs/pagekit/internal/render"
	"github.com/brogergvhs/pagekit/internal/ui"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture serves wiki pages and their images from one test server.
type fixture struct {
	srv        *httptest.Server
	pages      map[string]string
	imageHits  atomic.Int32
	pageLoads  atomic.Int32
	cfg        *config.Config
	out        bytes.Buffer
	confirmer  *countingConfirmer
	downloader *downloader.Downloader
}

type countingConfirmer struct {
	answer bool
	calls  atomic.Int32
}

func (c *countingConfirmer) Confirm(context.Context, string) (bool, error) {
	c.calls.Add(1)
	return c.answer, nil
}

func newFixture(t *testing.T, auto bool) *fixture {
	f := &fixture{pages: map[string]string{}, confirmer: &countingConfirmer{answer: true}}

	mux := http.NewServeMux()
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		f.imageHits.Add(1)
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("img:" + r.URL.Path))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	f.cfg = config.DefaultConfig()
	f.cfg.Output = t.TempDir()
	f.cfg.Download.AutoDownload = auto
	f.cfg.Download.MaxConcurrent = 2

	f.downloader = downloader.New(f.srv.Client(), ui.Nop())
	return f
}

func (f *fixture) addPage(path, title string, images []string, next string) {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><h1>Example Wiki</h1>", title)
	for _, img := range images {
		fmt.Fprintf(&b, `<img class="thumbimage" data-src="/images/x/%s/revision/latest?cb=1">`, img)
	}
	if next != "" {
		fmt.Fprintf(&b, `<table><tr><td data-source="next"><a href="%s">Next</a></td></tr></table>`, next)
	}
	b.WriteString("</body></html>")
	f.pages[path] = b.String()
}

func (f *fixture) Load(_ context.Context, url string) (*render.Page, error) {
	f.pageLoads.Add(1)

	path := strings.TrimPrefix(url, f.srv.URL)
	html, ok := f.pages[path]
	if !ok {
		return nil, fmt.Errorf("load %s: HTTP 404", url)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	return &render.Page{URL: url, Title: strings.TrimSpace(doc.Find("title").First().Text()), Doc: doc}, nil
}

func (f *fixture) session() *Session {
	return New(f.cfg, Deps{
		Loader:     f,
		Downloader: f.downloader,
		Confirmer:  f.confirmer,
		Out:        &f.out,
	})
}

func (f *fixture) url(path string) string {
	return f.srv.URL + path
}

func TestStartDownloadProcessNoImages(t *testing.T) {
	f := newFixture(t, false)
	f.addPage("/wiki/Empty", "Empty", nil, "/wiki/Other")

	s := f.session()
	_, err := s.StartDownloadProcess(context.Background(), f.url("/wiki/Empty"))

	require.Error(t, err)
	assert.ErrorContains(t, err, "no images found")
	assert.Equal(t, int32(0), f.confirmer.calls.Load())
	assert.Equal(t, int32(0), f.imageHits.Load())
	assert.Equal(t, StateIdle, s.State())
}

func TestStartDownloadProcessDeclined(t *testing.T) {
	f := newFixture(t, false)
	f.confirmer.answer = false
	f.addPage("/wiki/Vol", "Vol", []string{"a.png"}, "")

	_, err := f.session().StartDownloadProcess(context.Background(), f.url("/wiki/Vol"))

	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, int32(1), f.confirmer.calls.Load())
	assert.Equal(t, int32(0), f.imageHits.Load())
}

func TestStartDownloadProcessWritesArchive(t *testing.T) {
	f := newFixture(t, false)
	f.addPage("/wiki/Vol_1", "Light Novel: Volume #1!", []string{"a.png", "broken.png", "c.jpg"}, "/wiki/Vol_2")

	s := f.session()
	rep, err := s.StartDownloadProcess(context.Background(), f.url("/wiki/Vol_1"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.cfg.Output, "Light_Novel_Volume_1.zip"), rep.Archive)
	assert.FileExists(t, rep.Archive)
	assert.Equal(t, 2, rep.Result.Success)
	assert.Equal(t, 1, rep.Result.Failed)
	assert.Equal(t, rep.Images, rep.Result.Success+rep.Result.Failed)
	assert.Equal(t, int32(1), f.confirmer.calls.Load())

	// not in auto mode: no navigation, no notice about it
	assert.Empty(t, rep.Next)
	assert.NotContains(t, f.out.String(), "next page")
	assert.Equal(t, StateIdle, s.State())
}

func TestStartDownloadProcessCountsEveryElement(t *testing.T) {
	f := newFixture(t, false)
	f.pages["/wiki/Mixed"] = `<html><head><title>Mixed</title></head><body>
<img class="thumbimage" src="/images/x/a.png/revision/latest">
<img class="thumbimage" src="/images/x/a.png/revision/latest">
<img class="thumbimage" src="">
<img class="thumbimage" src="data:image/gif;base64,R0lGOD">
</body></html>`

	rep, err := f.session().StartDownloadProcess(context.Background(), f.url("/wiki/Mixed"))
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Images)
	assert.Equal(t, 2, rep.Result.Success)
	assert.Equal(t, 2, rep.Result.Failed)
	assert.Equal(t, rep.Images, rep.Result.Success+rep.Result.Failed)
	assert.Equal(t, int32(2), f.imageHits.Load())
	assert.FileExists(t, filepath.Join(f.cfg.Output, "Mixed.zip"))
}

func TestStartDownloadProcessSourcelessElementsStillFound(t *testing.T) {
	f := newFixture(t, false)
	f.pages["/wiki/Blank"] = `<html><head><title>Blank</title></head><body>
<img class="thumbimage" src=""><img class="thumbimage">
</body></html>`

	rep, err := f.session().StartDownloadProcess(context.Background(), f.url("/wiki/Blank"))
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Result.Failed)
	assert.Empty(t, rep.Archive)
	assert.Equal(t, int32(1), f.confirmer.calls.Load())
}

func TestStartDownloadProcessAllFailedSkipsArchive(t *testing.T) {
	f := newFixture(t, true)
	f.addPage("/wiki/Vol", "Vol", []string{"broken1.png", "broken2.png"}, "")

	rep, err := f.session().StartDownloadProcess(context.Background(), f.url("/wiki/Vol"))
	require.NoError(t, err)

	assert.Empty(t, rep.Archive)
	assert.Equal(t, 2, rep.Result.Failed)

	entries, err := os.ReadDir(f.cfg.Output)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunFollowsNextPages(t *testing.T) {
	f := newFixture(t, true)
	f.addPage("/wiki/Vol_1", "Vol 1", []string{"a.png", "b.png", "c.png"}, "/wiki/Vol_2")
	f.addPage("/wiki/Vol_2", "Vol 2", []string{"d.png"}, "/wiki/Vol_3")
	f.addPage("/wiki/Vol_3", "Vol 3", []string{"e.png"}, "")

	s := f.session()
	require.NoError(t, s.Run(context.Background(), f.url("/wiki/Vol_1")))

	for _, name := range []string{"Vol_1.zip", "Vol_2.zip", "Vol_3.zip"} {
		assert.FileExists(t, filepath.Join(f.cfg.Output, name))
	}
	assert.Equal(t, int32(0), f.confirmer.calls.Load())
	assert.Contains(t, f.out.String(), "No next page link found.")
	assert.Equal(t, f.url("/wiki/Vol_3"), s.Current())
	assert.Equal(t, StateIdle, s.State())
}

func TestRunMaxPages(t *testing.T) {
	f := newFixture(t, true)
	f.cfg.Download.MaxPages = 2
	f.addPage("/wiki/Vol_1", "Vol 1", []string{"a.png"}, "/wiki/Vol_2")
	f.addPage("/wiki/Vol_2", "Vol 2", []string{"b.png"}, "/wiki/Vol_3")
	f.addPage("/wiki/Vol_3", "Vol 3", []string{"c.png"}, "")

	require.NoError(t, f.session().Run(context.Background(), f.url("/wiki/Vol_1")))

	assert.Equal(t, int32(2), f.pageLoads.Load())
	assert.NoFileExists(t, filepath.Join(f.cfg.Output, "Vol_3.zip"))
	assert.Contains(t, f.out.String(), "Reached max_pages (2)")
}

func TestStopDuringFetchPreventsNavigation(t *testing.T) {
	f := newFixture(t, true)
	f.addPage("/wiki/Vol_1", "Vol 1", []string{"a.png", "b.png", "c.png", "d.png"}, "/wiki/Vol_2")
	f.addPage("/wiki/Vol_2", "Vol 2", []string{"e.png"}, "")

	s := f.session()
	var once sync.Once
	f.downloader.OnBatch = func(int, int, bool) {
		once.Do(s.Stop)
	}

	require.NoError(t, s.Run(context.Background(), f.url("/wiki/Vol_1")))

	// in-flight work is not interrupted
	assert.Equal(t, int32(4), f.imageHits.Load())
	assert.FileExists(t, filepath.Join(f.cfg.Output, "Vol_1.zip"))
	assert.NoFileExists(t, filepath.Join(f.cfg.Output, "Vol_2.zip"))
	assert.Equal(t, int32(1), f.pageLoads.Load())
	assert.False(t, s.Active())
	assert.Equal(t, StateStopped, s.State())
	assert.Contains(t, f.out.String(), "Auto-download is stopped")
}

func TestRunStopsOnSetupFailure(t *testing.T) {
	f := newFixture(t, true)
	f.addPage("/wiki/Vol_1", "Vol 1", []string{"a.png"}, "/wiki/Missing")

	err := f.session().Run(context.Background(), f.url("/wiki/Vol_1"))
	assert.ErrorContains(t, err, "HTTP 404")
	assert.FileExists(t, filepath.Join(f.cfg.Output, "Vol_1.zip"))
}

func TestInterceptStopsImmediately(t *testing.T) {
	f := newFixture(t, true)
	s := f.session()

	in := make(chan keys.Event, 2)
	quit := make(chan struct{})
	out := s.Intercept(in, func() { close(quit) })

	in <- keys.Event{Action: keys.ActionStop}
	in <- keys.Event{Action: keys.ActionQuit}
	close(in)

	var got []keys.Action
	for ev := range out {
		got = append(got, ev.Action)
	}

	assert.Equal(t, []keys.Action{keys.ActionStop, keys.ActionQuit}, got)
	assert.False(t, s.Active())
	<-quit
}

func TestWatchDownloadAndNext(t *testing.T) {
	f := newFixture(t, false)
	f.addPage("/wiki/Vol_1", "Vol 1", []string{"a.png"}, "/wiki/Vol_2")
	f.addPage("/wiki/Vol_2", "Vol 2", []string{"b.png"}, "")

	s := f.session()
	events := make(chan keys.Event, 8)
	events <- keys.Event{Action: keys.ActionDownload}
	events <- keys.Event{Action: keys.ActionNext}
	events <- keys.Event{Action: keys.ActionDownload}
	events <- keys.Event{Action: keys.ActionNext}
	events <- keys.Event{Action: keys.ActionQuit}

	err := s.Watch(context.Background(), f.url("/wiki/Vol_1"), f.cfg.Download.Shortcuts, events)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.cfg.Output, "Vol_1.zip"))
	assert.FileExists(t, filepath.Join(f.cfg.Output, "Vol_2.zip"))
	assert.Equal(t, int32(2), f.confirmer.calls.Load())
	assert.Equal(t, f.url("/wiki/Vol_2"), s.Current())

	out := f.out.String()
	assert.Contains(t, out, "Now at "+f.url("/wiki/Vol_2"))
	assert.Contains(t, out, "No next page link found.")
}

func TestKeyConfirmer(t *testing.T) {
	events := make(chan keys.Event, 2)
	var out bytes.Buffer
	c := KeyConfirmer{Events: events, Out: &out}

	events <- keys.Event{Chord: keys.Chord{Key: 'y'}}
	ok, err := c.Confirm(context.Background(), "Download 3 images")
	require.NoError(t, err)
	assert.True(t, ok)

	events <- keys.Event{Chord: keys.Chord{Alt: true, Key: 'y'}}
	ok, err = c.Confirm(context.Background(), "Again")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "Download 3 images [y/N] y\nAgain [y/N] n\n", out.String())

	close(events)
	_, err = c.Confirm(context.Background(), "Closed")
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-confirmation", StateAwaitingConfirmation.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(99).String())
}
