package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// Edge thresholds on Sobel gradient magnitude.
const (
	EdgeLowThreshold  = 50
	EdgeHighThreshold = 150
)

// Texture labels.
const (
	TextureNormal   = "Normal Coconut Leaf Texture"
	TextureSmooth   = "Smooth - Possible Disease"
	TextureRough    = "Rough - Check for Damage"
	TextureStandard = "Standard Coconut Texture"
	TextureUnknown  = "Unknown"
)

// TextureSentinel is returned when texture cannot be measured.
var TextureSentinel = model.TextureProfile{Pattern: TextureUnknown}

// ProfileTexture computes edge density and the variance of 8-neighbour local
// binary pattern codes.
func ProfileTexture(buf *imaging.Buffer) (model.TextureProfile, error) {
	if err := checkBuffer(ComponentTexture, buf, 3); err != nil {
		return TextureSentinel, err
	}

	edges := edgeMap(buf)
	count := 0
	for _, e := range edges {
		if e {
			count++
		}
	}
	density := float64(count) / float64(buf.Pixels())
	variance := stat.PopVariance(lbpCodes(buf), nil)

	return model.TextureProfile{
		EdgeDensity:     density,
		TextureVariance: variance,
		Pattern:         ClassifyTexture(density, variance),
	}, nil
}

// ClassifyTexture applies the texture rules in order; first match wins.
func ClassifyTexture(density, variance float64) string {
	switch {
	case density > 0.1 && variance > 100:
		return TextureNormal
	case density < 0.05:
		return TextureSmooth
	case variance > 200:
		return TextureRough
	default:
		return TextureStandard
	}
}

// edgeMap marks strong gradient pixels plus weak ones 8-connected to them.
func edgeMap(buf *imaging.Buffer) []bool {
	n, g := buf.Size, buf.Gray
	mag := make([]float64, n*n)
	for y := 1; y < n-1; y++ {
		for x := 1; x < n-1; x++ {
			i := y*n + x
			gx := (g[i-n+1] + 2*g[i+1] + g[i+n+1]) - (g[i-n-1] + 2*g[i-1] + g[i+n-1])
			gy := (g[i+n-1] + 2*g[i+n] + g[i+n+1]) - (g[i-n-1] + 2*g[i-n] + g[i-n+1])
			mag[i] = math.Hypot(gx, gy)
		}
	}

	edges := make([]bool, n*n)
	var stack []int
	for i, m := range mag {
		if m >= EdgeHighThreshold {
			edges[i] = true
			stack = append(stack, i)
		}
	}

	// Hysteresis: grow strong edges through weak pixels.
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%n, i/n
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= n || ny >= n {
					continue
				}
				j := ny*n + nx
				if !edges[j] && mag[j] >= EdgeLowThreshold {
					edges[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// lbpOffsets walks the 8 neighbours clockwise from the top-left.
var lbpOffsets = [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}}

func lbpCodes(buf *imaging.Buffer) []float64 {
	n, g := buf.Size, buf.Gray
	codes := make([]float64, 0, (n-2)*(n-2))
	for y := 1; y < n-1; y++ {
		for x := 1; x < n-1; x++ {
			center := g[y*n+x]
			code := 0
			for k, off := range lbpOffsets {
				if g[(y+off[1])*n+x+off[0]] >= center {
					code |= 1 << k
				}
			}
			codes = append(codes, float64(code))
		}
	}
	return codes
}
