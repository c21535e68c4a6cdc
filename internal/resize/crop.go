// Package resize turns downloaded images into fixed-size square crops,
// three per source image, written as PNG.
package resize

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Crop is one square cut of a source image, tagged with the suffix its
// file name gets.
type Crop struct {
	Suffix string
	Image  image.Image
}

// SquareCrops cuts three squares along the long side: start, centre and
// end. Portrait images give _S/_C/_E, landscape and square ones _L/_C/_R.
func SquareCrops(img image.Image) []Crop {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if h > w {
		mid := (h - w) / 2
		return []Crop{
			{"_S", sub(img, image.Rect(0, 0, w, w))},
			{"_C", sub(img, image.Rect(0, mid, w, mid+w))},
			{"_E", sub(img, image.Rect(0, h-w, w, h))},
		}
	}

	mid := (w - h) / 2
	return []Crop{
		{"_L", sub(img, image.Rect(0, 0, h, h))},
		{"_C", sub(img, image.Rect(mid, 0, mid+h, h))},
		{"_R", sub(img, image.Rect(w-h, 0, w, h))},
	}
}

// sub takes r relative to the image origin.
func sub(img image.Image, r image.Rectangle) image.Image {
	r = r.Add(img.Bounds().Min)

	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Square centres img on a black square canvas of its longest side, then
// scales that canvas to size x size.
func Square(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	side := max(b.Dx(), b.Dy())

	canvas := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	at := image.Pt((side-b.Dx())/2, (side-b.Dy())/2)
	draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(b.Size())}, img, b.Min, draw.Over)

	if side == size {
		return canvas
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
	return dst
}
