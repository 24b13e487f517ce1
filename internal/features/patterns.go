package features

import (
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// PatternRule is a disease-pattern band mask with its severity thresholds.
// Coverage above Low is a detection (Medium); above High it is High.
type PatternRule struct {
	Band imaging.Band
	Low  float64
	High float64
}

// PatternRules holds one rule per named pattern.
type PatternRules struct {
	Yellowing PatternRule
	RootWilt  PatternRule
	BudRot    PatternRule
	LeafSpot  PatternRule
}

// PatternThresholds are the default heuristic tuning constants.
var PatternThresholds = PatternRules{
	Yellowing: PatternRule{imaging.Band{Lo: [3]uint8{20, 30, 100}, Hi: [3]uint8{30, 255, 255}}, 0.15, 0.3},
	RootWilt:  PatternRule{imaging.Band{Lo: [3]uint8{0, 0, 50}, Hi: [3]uint8{180, 100, 150}}, 0.2, 0.4},
	BudRot:    PatternRule{imaging.Band{Lo: [3]uint8{0, 50, 20}, Hi: [3]uint8{20, 255, 100}}, 0.1, 0.2},
	LeafSpot:  PatternRule{imaging.Band{Lo: [3]uint8{0, 0, 0}, Hi: [3]uint8{180, 255, 80}}, 0.05, 0.15},
}

var undetected = model.PatternDetection{Severity: model.PatternUnknown}

// PatternSentinel is returned when pattern detection fails.
var PatternSentinel = model.PatternSet{
	Yellowing: undetected,
	RootWilt:  undetected,
	BudRot:    undetected,
	LeafSpot:  undetected,
}

// DetectPatterns evaluates every pattern with PatternThresholds.
func DetectPatterns(buf *imaging.Buffer) (model.PatternSet, error) {
	return DetectPatternsWith(buf, PatternThresholds)
}

// DetectPatternsWith evaluates each pattern independently; several may be
// detected at once.
func DetectPatternsWith(buf *imaging.Buffer, rules PatternRules) (model.PatternSet, error) {
	if err := checkBuffer(ComponentPatterns, buf, 1); err != nil {
		return PatternSentinel, err
	}
	return model.PatternSet{
		Yellowing: rules.Yellowing.Evaluate(buf.Coverage(rules.Yellowing.Band)),
		RootWilt:  rules.RootWilt.Evaluate(buf.Coverage(rules.RootWilt.Band)),
		BudRot:    rules.BudRot.Evaluate(buf.Coverage(rules.BudRot.Band)),
		LeafSpot:  rules.LeafSpot.Evaluate(buf.Coverage(rules.LeafSpot.Band)),
	}, nil
}

// Evaluate grades a coverage ratio.
func (r PatternRule) Evaluate(coverage float64) model.PatternDetection {
	d := model.PatternDetection{
		Detected:   coverage > r.Low,
		Confidence: coverage,
		Severity:   model.PatternLow,
	}
	switch {
	case coverage > r.High:
		d.Severity = model.PatternHigh
	case coverage > r.Low:
		d.Severity = model.PatternMedium
	}
	return d
}
