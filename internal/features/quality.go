package features

import (
	"gonum.org/v1/gonum/stat"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// QualityRule is one quality level's lower bounds. Brightness bounds are
// exclusive on both ends.
type QualityRule struct {
	Level         model.QualityLevel
	MinSharpness  float64
	MinBrightness float64
	MaxBrightness float64
	MinContrast   float64
}

// QualityRules are evaluated most to least strict; the first match wins and
// anything below the last rule is Poor.
var QualityRules = []QualityRule{
	{model.QualityExcellent, 100, 50, 200, 30},
	{model.QualityGood, 50, 30, 220, 20},
	{model.QualityFair, 20, 20, 230, 10},
}

// QualitySentinel is returned when quality cannot be assessed.
var QualitySentinel = model.QualityMetrics{QualityLevel: model.QualityUnknown}

// AssessQuality scores sharpness (Laplacian variance), brightness (gray mean)
// and contrast (gray standard deviation).
func AssessQuality(buf *imaging.Buffer) (model.QualityMetrics, error) {
	if err := checkBuffer(ComponentQuality, buf, 3); err != nil {
		return QualitySentinel, err
	}

	brightness, contrast := stat.PopMeanStdDev(buf.Gray, nil)
	sharpness := stat.PopVariance(laplacian(buf), nil)

	return model.QualityMetrics{
		Sharpness:    sharpness,
		Brightness:   brightness,
		Contrast:     contrast,
		QualityLevel: QualityLevelFor(sharpness, brightness, contrast),
	}, nil
}

// QualityLevelFor applies QualityRules.
func QualityLevelFor(sharpness, brightness, contrast float64) model.QualityLevel {
	for _, r := range QualityRules {
		if sharpness > r.MinSharpness &&
			brightness > r.MinBrightness && brightness < r.MaxBrightness &&
			contrast > r.MinContrast {
			return r.Level
		}
	}
	return model.QualityPoor
}

// laplacian applies the 4-neighbour kernel to interior pixels.
func laplacian(buf *imaging.Buffer) []float64 {
	n, g := buf.Size, buf.Gray
	out := make([]float64, 0, (n-2)*(n-2))
	for y := 1; y < n-1; y++ {
		for x := 1; x < n-1; x++ {
			i := y*n + x
			out = append(out, g[i-1]+g[i+1]+g[i-n]+g[i+n]-4*g[i])
		}
	}
	return out
}
