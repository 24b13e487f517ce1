package features

import (
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// Color band masks (inclusive).
var (
	HealthyGreenBand = imaging.Band{Lo: [3]uint8{35, 40, 40}, Hi: [3]uint8{85, 255, 255}}
	YellowingBand    = imaging.Band{Lo: [3]uint8{15, 40, 40}, Hi: [3]uint8{35, 255, 255}}
	BrowningBand     = imaging.Band{Lo: [3]uint8{0, 40, 20}, Hi: [3]uint8{20, 255, 200}}
	NecrosisBand     = imaging.Band{Lo: [3]uint8{0, 0, 0}, Hi: [3]uint8{180, 255, 50}}
)

// Color health labels.
const (
	ColorHealthy   = "Healthy Coconut Green"
	ColorYellowing = "Coconut Yellowing - Monitor Closely"
	ColorBrowning  = "Coconut Browning - Action Required"
	ColorNecrosis  = "Coconut Necrosis - Immediate Attention"
	ColorMixed     = "Mixed Coconut Colors - Further Analysis Needed"
	ColorUnknown   = "Unknown"
)

// ColorSentinel is returned when the color profile cannot be computed.
var ColorSentinel = model.ColorProfile{ColorHealth: ColorUnknown, Severity: model.ColorSeverityUnknown}

// ProfileColor measures band coverage and labels the leaf by strict
// precedence: healthy, yellowing, browning, necrosis, mixed.
func ProfileColor(buf *imaging.Buffer) (model.ColorProfile, error) {
	if err := checkBuffer(ComponentColor, buf, 1); err != nil {
		return ColorSentinel, err
	}

	p := model.ColorProfile{
		HealthyRatio:   buf.Coverage(HealthyGreenBand),
		YellowingRatio: buf.Coverage(YellowingBand),
		BrowningRatio:  buf.Coverage(BrowningBand),
		NecrosisRatio:  buf.Coverage(NecrosisBand),
	}
	p.ColorHealth, p.Severity = ClassifyColor(p.HealthyRatio, p.YellowingRatio, p.BrowningRatio, p.NecrosisRatio)
	return p, nil
}

// ClassifyColor applies the first matching rule; later rules are not evaluated.
func ClassifyColor(healthy, yellowing, browning, necrosis float64) (string, model.ColorSeverity) {
	switch {
	case healthy > 0.7:
		return ColorHealthy, model.ColorSeverityNone
	case yellowing > 0.3:
		return ColorYellowing, model.ColorSeverityMild
	case browning > 0.2:
		return ColorBrowning, model.ColorSeverityModerate
	case necrosis > 0.1:
		return ColorNecrosis, model.ColorSeveritySevere
	default:
		return ColorMixed, model.ColorSeverityUnknown
	}
}
