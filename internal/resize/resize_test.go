package resize

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/brogergvhs/pagekit/internal/archive"
	"github.com/brogergvhs/pagekit/internal/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// portrait is 20x40: red on top, blue below.
func portrait() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 20, 40))
	for y := range 40 {
		for x := range 20 {
			c := red
			if y >= 20 {
				c = blue
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func suffixes(crops []Crop) []string {
	out := make([]string, len(crops))
	for i, c := range crops {
		out[i] = c.Suffix
	}
	return out
}

func TestSquareCropsPortrait(t *testing.T) {
	crops := SquareCrops(portrait())

	require.Equal(t, []string{"_S", "_C", "_E"}, suffixes(crops))
	for _, c := range crops {
		assert.Equal(t, 20, c.Image.Bounds().Dx())
		assert.Equal(t, 20, c.Image.Bounds().Dy())
	}

	assert.Equal(t, image.Rect(0, 0, 20, 20), crops[0].Image.Bounds())
	assert.Equal(t, image.Rect(0, 10, 20, 30), crops[1].Image.Bounds())
	assert.Equal(t, image.Rect(0, 20, 20, 40), crops[2].Image.Bounds())
}

func TestSquareCropsLandscapeAndOffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 35, 15))
	crops := SquareCrops(img)

	require.Equal(t, []string{"_L", "_C", "_R"}, suffixes(crops))
	assert.Equal(t, image.Rect(5, 5, 15, 15), crops[0].Image.Bounds())
	assert.Equal(t, image.Rect(15, 5, 25, 15), crops[1].Image.Bounds())
	assert.Equal(t, image.Rect(25, 5, 35, 15), crops[2].Image.Bounds())
}

func TestSquarePadsOnBlack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := range 2 {
		for x := range 4 {
			img.Set(x, y, color.White)
		}
	}

	sq := Square(img, 4)
	assert.Equal(t, image.Rect(0, 0, 4, 4), sq.Bounds())
	assert.Equal(t, color.RGBA{A: 255}, sq.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, sq.RGBAAt(0, 1))
	assert.Equal(t, color.RGBA{A: 255}, sq.RGBAAt(3, 3))

	assert.Equal(t, image.Rect(0, 0, 16, 16), Square(img, 16).Bounds())
}

func TestDir(t *testing.T) {
	in := filepath.Join(t.TempDir(), "raw")
	out := t.TempDir()
	require.NoError(t, os.MkdirAll(in, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "page.png"), encodePNG(t, portrait()), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.jpg"), []byte("not a jpeg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip"), 0644))

	sum, err := New(8, ui.Nop()).Dir(in, out, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 3, sum.Written)
	assert.Positive(t, sum.Bytes)

	start := decodeFile(t, filepath.Join(out, "page_S.png"))
	assert.Equal(t, image.Rect(0, 0, 8, 8), start.Bounds())
	assert.Equal(t, color.RGBAModel.Convert(red), color.RGBAModel.Convert(start.At(4, 4)))

	end := decodeFile(t, filepath.Join(out, "page_E.png"))
	assert.Equal(t, color.RGBAModel.Convert(blue), color.RGBAModel.Convert(end.At(4, 4)))
	assert.FileExists(t, filepath.Join(out, "page_C.png"))
}

type countingProgress struct {
	total, done, failed int
	finished            bool
}

func (p *countingProgress) SetTotal(n int) { p.total = n }
func (p *countingProgress) Update(done, failed int, _ int64) {
	p.done, p.failed = done, failed
}
func (p *countingProgress) MarkDone() { p.finished = true }

func TestZipFromDownloadArchive(t *testing.T) {
	dir := t.TempDir()

	arc := archive.New()
	arc.Add("cover.png", encodePNG(t, portrait()))
	arc.Add("cover.png", encodePNG(t, image.NewRGBA(image.Rect(0, 0, 30, 10))))
	arc.Add("readme.txt", []byte("x"))
	zipPath, err := arc.Save(dir, "Volume_1")
	require.NoError(t, err)

	out := filepath.Join(dir, "crops")
	ph := &countingProgress{}
	sum, err := New(6, nil).Zip(zipPath, out, ph)
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 2, Written: 6, Bytes: sum.Bytes}, sum)
	assert.Equal(t, &countingProgress{total: 2, done: 2, finished: true}, ph)

	for _, name := range []string{"cover_S.png", "cover_E.png", "cover_2_L.png", "cover_2_R.png"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestZipMissing(t *testing.T) {
	_, err := New(8, nil).Zip(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir(), nil)
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	for name, want := range map[string]bool{
		"a.PNG": true, "b.jpg": true, "c.jpeg": true, "d.webp": true, "e.gif": false, "f": false,
	} {
		assert.Equal(t, want, Supported(name), name)
	}
}
