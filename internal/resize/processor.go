package resize

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brogergvhs/pagekit/internal/ui"

	"github.com/klauspost/compress/zip"
	_ "golang.org/x/image/webp"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Supported reports whether name has an image extension the processor
// decodes.
func Supported(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Progress receives running totals while images are processed.
type Progress interface {
	SetTotal(total int)
	Update(done, failed int, bytes int64)
	MarkDone()
}

type nopProgress struct{}

func (nopProgress) SetTotal(int)           {}
func (nopProgress) Update(int, int, int64) {}
func (nopProgress) MarkDone()              {}

func orNop(ph Progress) Progress {
	if ph == nil {
		return nopProgress{}
	}
	return ph
}

// Summary is the tally of one source. Processed+Failed equals the number
// of supported images found.
type Summary struct {
	Processed int
	Failed    int
	Written   int
	Bytes     int64
}

type Processor struct {
	size int
	log  *ui.Logger
}

func New(size int, log *ui.Logger) *Processor {
	if log == nil {
		log = ui.Nop()
	}
	return &Processor{size: size, log: log}
}

// Image decodes one image and writes its crops to outDir as
// <base><suffix>.png. It returns the written paths.
func (p *Processor) Image(r io.Reader, base, outDir string) ([]string, int64, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", base, err)
	}

	var (
		paths   []string
		written int64
	)
	for _, c := range SquareCrops(img) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, Square(c.Image, p.size)); err != nil {
			return paths, written, fmt.Errorf("encode %s%s: %w", base, c.Suffix, err)
		}

		path := filepath.Join(outDir, base+c.Suffix+".png")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return paths, written, err
		}

		paths = append(paths, path)
		written += int64(buf.Len())
	}

	return paths, written, nil
}

type source struct {
	name string
	open func() (io.ReadCloser, error)
}

// Dir processes every supported image directly inside dir, in name order.
func (p *Processor) Dir(dir, outDir string, ph Progress) (Summary, error) {
	ph = orNop(ph)

	entries, err := os.ReadDir(dir)
	if err != nil {
		ph.MarkDone()
		return Summary{}, err
	}

	var srcs []source
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		srcs = append(srcs, source{
			name: e.Name(),
			open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}

	return p.run(srcs, outDir, ph)
}

// Zip processes the supported images stored in a zip archive, such as the
// ones the download command writes.
func (p *Processor) Zip(path, outDir string, ph Progress) (Summary, error) {
	ph = orNop(ph)

	zr, err := zip.OpenReader(path)
	if err != nil {
		ph.MarkDone()
		return Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	var srcs []source
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !Supported(f.Name) {
			continue
		}
		srcs = append(srcs, source{name: filepath.Base(f.Name), open: f.Open})
	}
	sort.SliceStable(srcs, func(i, j int) bool { return srcs[i].name < srcs[j].name })

	return p.run(srcs, outDir, ph)
}

// run expects a non-nil ph and always marks it done.
func (p *Processor) run(srcs []source, outDir string, ph Progress) (Summary, error) {
	defer ph.MarkDone()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Summary{}, fmt.Errorf("output folder: %w", err)
	}

	var sum Summary
	ph.SetTotal(len(srcs))

	for _, src := range srcs {
		base := strings.TrimSuffix(src.name, filepath.Ext(src.name))

		paths, n, err := p.one(src, base, outDir)
		sum.Written += len(paths)
		sum.Bytes += n
		if err != nil {
			p.log.Errorf("Failed %s: %v", src.name, err)
			sum.Failed++
		} else {
			p.log.Debugf("Cropped %s into %d files", src.name, len(paths))
			sum.Processed++
		}

		ph.Update(sum.Processed+sum.Failed, sum.Failed, sum.Bytes)
	}

	return sum, nil
}

func (p *Processor) one(src source, base, outDir string) ([]string, int64, error) {
	rc, err := src.open()
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rc.Close() }()

	return p.Image(rc, base, outDir)
}
