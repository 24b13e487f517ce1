package features

import (
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// Nutrient band masks (inclusive).
var (
	NutrientYellowBand = imaging.Band{Lo: [3]uint8{15, 50, 50}, Hi: [3]uint8{35, 255, 255}}
	NutrientPurpleBand = imaging.Band{Lo: [3]uint8{130, 50, 50}, Hi: [3]uint8{170, 255, 255}}
)

// AnalyzeNutrients flags independent deficiency indicators. Potassium looks at
// the edge ring outside the central half-size box, where marginal scorch shows.
func AnalyzeNutrients(buf *imaging.Buffer) (model.NutrientFlags, error) {
	if err := checkBuffer(ComponentNutrients, buf, 1); err != nil {
		return model.NutrientFlags{}, err
	}

	yellow := buf.Coverage(NutrientYellowBand)
	purple := buf.Coverage(NutrientPurpleBand)
	edgeYellow := edgeRingCoverage(buf, NutrientYellowBand)

	return model.NutrientFlags{
		Nitrogen:   yellow > 0.3,
		Phosphorus: purple > 0.1,
		Potassium:  edgeYellow > 0.2,
		Magnesium:  yellow > 0.2 && yellow < 0.5,
		Iron:       yellow > 0.4,
	}, nil
}

// edgeRingCoverage is the band's coverage of pixels outside the centred box
// spanning [n/4, n/4+n/2) on both axes.
func edgeRingCoverage(buf *imaging.Buffer, band imaging.Band) float64 {
	n := buf.Size
	lo, hi := n/4, n/4+n/2
	total, hits := 0, 0
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if x >= lo && x < hi && y >= lo && y < hi {
				continue
			}
			total++
			if band.Contains(buf.HSVAt(x, y)) {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
