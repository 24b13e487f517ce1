// Package imaging decodes leaf photographs into a fixed-size normalized pixel
// buffer with RGB, HSV and grayscale views.
package imaging

import (
	"errors"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// DefaultSize is the side length of the normalized square grid.
const DefaultSize = 224

// ErrEmptyImage is returned for zero-byte input or images with no pixels.
var ErrEmptyImage = errors.New("empty image")

// Buffer is a normalized Size x Size pixel grid. RGB and HSV hold three bytes
// per pixel in row-major order; HSV follows the OpenCV convention
// (H 0-180, S 0-255, V 0-255). Gray holds BT.601 luma per pixel.
// A Buffer is owned by a single pipeline call.
type Buffer struct {
	Size int
	RGB  []uint8
	HSV  []uint8
	Gray []float64
}

// Pixels returns the pixel count.
func (b *Buffer) Pixels() int { return b.Size * b.Size }

// Valid reports whether all views are populated for the declared size.
func (b *Buffer) Valid() bool {
	if b == nil || b.Size <= 0 {
		return false
	}
	n := b.Pixels()
	return len(b.RGB) == 3*n && len(b.HSV) == 3*n && len(b.Gray) == n
}

// HSVAt returns the HSV triple of pixel (x, y).
func (b *Buffer) HSVAt(x, y int) (h, s, v uint8) {
	i := 3 * (y*b.Size + x)
	return b.HSV[i], b.HSV[i+1], b.HSV[i+2]
}

// Float32 returns the RGB view scaled to [0,1], as model input.
func (b *Buffer) Float32() []float32 {
	out := make([]float32, len(b.RGB))
	for i, c := range b.RGB {
		out[i] = float32(c) / 255
	}
	return out
}

// FromImage resizes img bilinearly onto a size x size canvas and derives the
// HSV and gray views. size <= 0 selects DefaultSize.
func FromImage(img image.Image, size int) (*Buffer, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if size <= 0 {
		size = DefaultSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	n := size * size
	buf := &Buffer{
		Size: size,
		RGB:  make([]uint8, 3*n),
		HSV:  make([]uint8, 3*n),
		Gray: make([]float64, n),
	}
	for p := 0; p < n; p++ {
		r, g, bl := dst.Pix[4*p], dst.Pix[4*p+1], dst.Pix[4*p+2]
		buf.RGB[3*p], buf.RGB[3*p+1], buf.RGB[3*p+2] = r, g, bl

		h, s, v := RGBToHSV(float64(r), float64(g), float64(bl))
		buf.HSV[3*p] = uint8(math.Round(h))
		buf.HSV[3*p+1] = uint8(math.Round(s))
		buf.HSV[3*p+2] = uint8(math.Round(v))

		buf.Gray[p] = Luma(float64(r), float64(g), float64(bl))
	}
	return buf, nil
}
