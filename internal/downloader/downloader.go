package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/brogergvhs/pagekit/internal/archive"
	"github.com/brogergvhs/pagekit/internal/ui"
	"github.com/brogergvhs/pagekit/internal/wiki"
)

// ErrNoSource marks an image element that had no usable URL.
var ErrNoSource = errors.New("image element has no source")

// Progress receives running totals while images download.
type Progress interface {
	SetTotal(total int)
	Update(done, failed int, bytes int64)
	MarkDone()
}

type nopProgress struct{}

func (nopProgress) SetTotal(int)           {}
func (nopProgress) Update(int, int, int64) {}
func (nopProgress) MarkDone()              {}

// Result is the tally of one page. Success+Failed always equals the number
// of images handed in.
type Result struct {
	Success int
	Failed  int
	Bytes   int64
	Batches int
}

type Downloader struct {
	client  *http.Client
	log     *ui.Logger
	timeout time.Duration

	// OnBatch, when set, is called before a batch starts and after all of
	// its fetches have settled.
	OnBatch func(index, size int, settled bool)
}

func New(c *http.Client, log *ui.Logger) *Downloader {
	return &Downloader{
		client:  c,
		log:     log,
		timeout: 30 * time.Second,
	}
}

type pageState struct {
	mu  sync.Mutex
	res Result
	ph  Progress

	// streamed counts every body byte read, including those of fetches
	// that fail later; it only feeds the progress display.
	streamed int64
}

func (s *pageState) record(n int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.res.Failed++
	} else {
		s.res.Success++
		s.res.Bytes += n
	}
	s.ph.Update(s.res.Success+s.res.Failed, s.res.Failed, s.streamed)
}

func (s *pageState) stream(delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streamed += delta
	s.ph.Update(s.res.Success+s.res.Failed, s.res.Failed, s.streamed)
}

// DownloadAndPackage fetches refs in batches of batchSize. Fetches within a
// batch run concurrently and the next batch starts only once every fetch
// of the current one has settled. Failures are logged and counted, never
// returned.
func (d *Downloader) DownloadAndPackage(
	ctx context.Context,
	refs []wiki.ImageRef,
	arc *archive.Archive,
	batchSize int,
	referer string,
	ph Progress,
) Result {
	if ph == nil {
		ph = nopProgress{}
	}

	st := &pageState{ph: ph}
	ph.SetTotal(len(refs))
	defer ph.MarkDone()

	batches := Batches(refs, batchSize)
	for bi, batch := range batches {
		if err := ctx.Err(); err != nil {
			skipped := 0
			for _, rest := range batches[bi:] {
				for _, ref := range rest {
					st.record(0, err)
					skipped++
					d.log.Debugf("Skipped %s: %v", ref.URL, err)
				}
			}
			d.log.Warnf("Download cancelled, %d images not fetched", skipped)
			break
		}

		if d.OnBatch != nil {
			d.OnBatch(bi, len(batch), false)
		}
		d.log.Debugf("Batch %d/%d: %d images", bi+1, len(batches), len(batch))

		var wg sync.WaitGroup
		for _, ref := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()

				if ref.URL == "" {
					d.log.Errorf("Failed %s: %v", ref.Name, ErrNoSource)
					st.record(0, ErrNoSource)
					return
				}

				var last int64
				data, err := d.fetch(ctx, ref.URL, referer, func(done int64) {
					st.stream(done - last)
					last = done
				})
				if err != nil {
					d.log.Errorf("Failed %s: %v", ref.URL, err)
					st.record(0, err)
					return
				}

				name := arc.Add(ref.Name, data)
				d.log.Debugf("Fetched %s (%d bytes)", name, len(data))
				st.record(int64(len(data)), nil)
			}()
		}
		wg.Wait()

		st.mu.Lock()
		st.res.Batches++
		st.mu.Unlock()

		if d.OnBatch != nil {
			d.OnBatch(bi, len(batch), true)
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.res
}

// Batches splits refs into consecutive groups of at most size elements.
func Batches(refs []wiki.ImageRef, size int) [][]wiki.ImageRef {
	if size < 1 {
		size = 1
	}

	out := make([][]wiki.ImageRef, 0, (len(refs)+size-1)/size)
	for start := 0; start < len(refs); start += size {
		end := min(start+size, len(refs))
		out = append(out, refs[start:end])
	}
	return out
}

func (d *Downloader) fetch(
	ctx context.Context,
	u, referer string,
	progress func(done int64),
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.log.Debugf("Warning: failed to close response body for %s: %v", u, cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}

	if _, err := copyWithProgress(&buf, resp.Body, progress); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
