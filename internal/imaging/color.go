package imaging

import "math"

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	return h / 2, s, v
}

// Luma is the BT.601 grayscale intensity.
func Luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// Band is an inclusive HSV range test.
type Band struct {
	Lo, Hi [3]uint8
}

// Contains reports whether the HSV triple lies inside the band.
func (b Band) Contains(h, s, v uint8) bool {
	return h >= b.Lo[0] && h <= b.Hi[0] &&
		s >= b.Lo[1] && s <= b.Hi[1] &&
		v >= b.Lo[2] && v <= b.Hi[2]
}

// Coverage returns the fraction of all pixels inside band.
func (buf *Buffer) Coverage(band Band) float64 {
	n := buf.Pixels()
	if n == 0 {
		return 0
	}
	count := 0
	for p := 0; p < n; p++ {
		if band.Contains(buf.HSV[3*p], buf.HSV[3*p+1], buf.HSV[3*p+2]) {
			count++
		}
	}
	return float64(count) / float64(n)
}
