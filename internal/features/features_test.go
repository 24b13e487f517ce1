package features

import (
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

const testSize = 32

func uniformBuffer(t *testing.T, c color.RGBA) *imaging.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, testSize, testSize))
	for y := 0; y < testSize; y++ {
		for x := 0; x < testSize; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	buf, err := imaging.FromImage(img, testSize)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	return buf
}

// stripeBuffer draws 2-pixel wide black and white vertical stripes.
func stripeBuffer(t *testing.T) *imaging.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, testSize, testSize))
	for y := 0; y < testSize; y++ {
		for x := 0; x < testSize; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if (x/2)%2 == 1 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	buf, err := imaging.FromImage(img, testSize)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	return buf
}

// hsvBuffer builds a buffer directly from per-pixel HSV values.
func hsvBuffer(size int, fill func(x, y int) (h, s, v uint8)) *imaging.Buffer {
	n := size * size
	buf := &imaging.Buffer{
		Size: size,
		RGB:  make([]uint8, 3*n),
		HSV:  make([]uint8, 3*n),
		Gray: make([]float64, n),
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			p := y*size + x
			buf.HSV[3*p], buf.HSV[3*p+1], buf.HSV[3*p+2] = fill(x, y)
		}
	}
	return buf
}

var (
	brightGreen = color.RGBA{40, 180, 60, 255}
	leafYellow  = color.RGBA{230, 210, 20, 255}
)

// --- Scenarios ---

func TestUniformGreenLeaf(t *testing.T) {
	buf := uniformBuffer(t, brightGreen)

	c, err := ProfileColor(buf)
	if err != nil {
		t.Fatal(err)
	}
	if c.ColorHealth != ColorHealthy || c.Severity != model.ColorSeverityNone {
		t.Errorf("color = %q/%s, want %q/None", c.ColorHealth, c.Severity, ColorHealthy)
	}
	if c.HealthyRatio != 1 {
		t.Errorf("HealthyRatio = %v, want 1", c.HealthyRatio)
	}

	p, err := DetectPatterns(buf)
	if err != nil {
		t.Fatal(err)
	}
	if p.Yellowing.Detected {
		t.Errorf("yellowing detected on a green leaf: %+v", p.Yellowing)
	}
}

func TestUniformYellowLeaf(t *testing.T) {
	buf := uniformBuffer(t, leafYellow)

	c, err := ProfileColor(buf)
	if err != nil {
		t.Fatal(err)
	}
	if c.YellowingRatio <= 0.3 {
		t.Errorf("YellowingRatio = %v, want > 0.3", c.YellowingRatio)
	}
	if c.ColorHealth != ColorYellowing || c.Severity != model.ColorSeverityMild {
		t.Errorf("color = %q/%s", c.ColorHealth, c.Severity)
	}

	p, err := DetectPatterns(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Yellowing.Detected || p.Yellowing.Severity != model.PatternHigh {
		t.Errorf("yellowing = %+v, want detected/High", p.Yellowing)
	}

	n, err := AnalyzeNutrients(buf)
	if err != nil {
		t.Fatal(err)
	}
	want := model.NutrientFlags{Nitrogen: true, Potassium: true, Iron: true}
	if n != want {
		t.Errorf("nutrients = %+v, want %+v", n, want)
	}
}

// --- Color ---

func TestColorPrecedence(t *testing.T) {
	tests := []struct {
		name                   string
		healthy, yellow, brown float64
		necrosis               float64
		label                  string
		sev                    model.ColorSeverity
	}{
		{"healthy wins over yellowing", 0.8, 0.35, 0, 0, ColorHealthy, model.ColorSeverityNone},
		{"yellowing wins over browning", 0.5, 0.31, 0.9, 0.9, ColorYellowing, model.ColorSeverityMild},
		{"browning wins over necrosis", 0, 0.3, 0.21, 0.5, ColorBrowning, model.ColorSeverityModerate},
		{"necrosis", 0.7, 0.1, 0.2, 0.11, ColorNecrosis, model.ColorSeveritySevere},
		{"mixed", 0.7, 0.3, 0.2, 0.1, ColorMixed, model.ColorSeverityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, sev := ClassifyColor(tt.healthy, tt.yellow, tt.brown, tt.necrosis)
			if label != tt.label || sev != tt.sev {
				t.Errorf("ClassifyColor = %q/%s, want %q/%s", label, sev, tt.label, tt.sev)
			}
		})
	}
}

func TestColorOverlappingBands(t *testing.T) {
	// Hue 35 sits in both the healthy and yellowing bands.
	buf := hsvBuffer(10, func(x, y int) (uint8, uint8, uint8) {
		if y < 8 {
			return 35, 200, 200
		}
		return 60, 200, 200
	})
	c, err := ProfileColor(buf)
	if err != nil {
		t.Fatal(err)
	}
	if c.HealthyRatio != 1 || c.YellowingRatio != 0.8 {
		t.Errorf("ratios healthy=%v yellowing=%v", c.HealthyRatio, c.YellowingRatio)
	}
	if c.ColorHealth != ColorHealthy {
		t.Errorf("label = %q, want %q", c.ColorHealth, ColorHealthy)
	}
}

// --- Quality ---

func TestQualityLevelFor(t *testing.T) {
	tests := []struct {
		s, b, c float64
		want    model.QualityLevel
	}{
		{150, 120, 40, model.QualityExcellent},
		{100, 120, 40, model.QualityGood},
		{150, 210, 40, model.QualityGood},
		{60, 120, 25, model.QualityGood},
		{30, 25, 15, model.QualityFair},
		{20, 120, 40, model.QualityPoor},
		{500, 240, 60, model.QualityPoor},
		{500, 120, 10, model.QualityPoor},
	}
	for _, tt := range tests {
		if got := QualityLevelFor(tt.s, tt.b, tt.c); got != tt.want {
			t.Errorf("QualityLevelFor(%v,%v,%v) = %s, want %s", tt.s, tt.b, tt.c, got, tt.want)
		}
	}
}

func TestAssessQuality(t *testing.T) {
	flat, err := AssessQuality(uniformBuffer(t, color.RGBA{128, 128, 128, 255}))
	if err != nil {
		t.Fatal(err)
	}
	if flat.Sharpness > 1e-6 || flat.Contrast > 1e-6 || flat.QualityLevel != model.QualityPoor {
		t.Errorf("flat gray = %+v, want zero sharpness/contrast and Poor", flat)
	}
	if flat.Brightness < 127.9 || flat.Brightness > 128.1 {
		t.Errorf("Brightness = %v, want 128", flat.Brightness)
	}

	stripes, err := AssessQuality(stripeBuffer(t))
	if err != nil {
		t.Fatal(err)
	}
	if stripes.QualityLevel != model.QualityExcellent {
		t.Errorf("stripes = %+v, want Excellent", stripes)
	}
}

// --- Texture ---

func TestProfileTexture(t *testing.T) {
	smooth, err := ProfileTexture(uniformBuffer(t, brightGreen))
	if err != nil {
		t.Fatal(err)
	}
	if smooth.EdgeDensity != 0 || smooth.TextureVariance != 0 || smooth.Pattern != TextureSmooth {
		t.Errorf("uniform texture = %+v", smooth)
	}

	rough, err := ProfileTexture(stripeBuffer(t))
	if err != nil {
		t.Fatal(err)
	}
	if rough.EdgeDensity < 0.5 || rough.EdgeDensity > 1 {
		t.Errorf("EdgeDensity = %v, want in [0.5, 1]", rough.EdgeDensity)
	}
	if rough.Pattern != TextureNormal {
		t.Errorf("Pattern = %q, want %q", rough.Pattern, TextureNormal)
	}
}

func TestClassifyTexture(t *testing.T) {
	tests := []struct {
		d, v float64
		want string
	}{
		{0.2, 150, TextureNormal},
		{0.04, 500, TextureSmooth},
		{0.07, 250, TextureRough},
		{0.2, 90, TextureStandard},
		{0.07, 150, TextureStandard},
	}
	for _, tt := range tests {
		if got := ClassifyTexture(tt.d, tt.v); got != tt.want {
			t.Errorf("ClassifyTexture(%v,%v) = %q, want %q", tt.d, tt.v, got, tt.want)
		}
	}
}

// --- Patterns ---

func TestPatternRuleEvaluate(t *testing.T) {
	rule := PatternThresholds.Yellowing
	tests := []struct {
		coverage float64
		detected bool
		severity model.PatternSeverity
	}{
		{0, false, model.PatternLow},
		{0.15, false, model.PatternLow},
		{0.2, true, model.PatternMedium},
		{0.3, true, model.PatternMedium},
		{0.31, true, model.PatternHigh},
		{1, true, model.PatternHigh},
	}
	for _, tt := range tests {
		d := rule.Evaluate(tt.coverage)
		if d.Detected != tt.detected || d.Severity != tt.severity || d.Confidence != tt.coverage {
			t.Errorf("Evaluate(%v) = %+v, want detected=%v severity=%s", tt.coverage, d, tt.detected, tt.severity)
		}
	}
}

func TestPatternsCoOccur(t *testing.T) {
	// Dark, unsaturated pixels sit in both the root-wilt and leaf-spot bands.
	buf := hsvBuffer(10, func(x, y int) (uint8, uint8, uint8) {
		return 90, 50, 70
	})
	p, err := DetectPatterns(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !p.RootWilt.Detected || !p.LeafSpot.Detected {
		t.Errorf("expected root wilt and leaf spot together: %+v", p)
	}
	if p.BudRot.Detected || p.Yellowing.Detected {
		t.Errorf("unexpected detections: %+v", p)
	}
}

func TestDetectPatternsWithCustomRules(t *testing.T) {
	rules := PatternThresholds
	rules.Yellowing.Low, rules.Yellowing.High = 0.95, 0.99
	p, err := DetectPatternsWith(uniformBuffer(t, leafYellow), rules)
	if err != nil {
		t.Fatal(err)
	}
	if p.Yellowing.Severity != model.PatternHigh {
		t.Errorf("severity = %s, want High", p.Yellowing.Severity)
	}
	if PatternThresholds.Yellowing.Low != 0.15 {
		t.Error("custom rules leaked into defaults")
	}
}

// --- Nutrients ---

func TestAnalyzeNutrientsRegions(t *testing.T) {
	const size = 16
	yellow := func(x, y int) bool { return x >= 4 && x < 12 && y >= 4 && y < 12 }

	centre := hsvBuffer(size, func(x, y int) (uint8, uint8, uint8) {
		if yellow(x, y) {
			return 25, 200, 200
		}
		return 60, 200, 200
	})
	n, err := AnalyzeNutrients(centre)
	if err != nil {
		t.Fatal(err)
	}
	if want := (model.NutrientFlags{Magnesium: true}); n != want {
		t.Errorf("centre yellow = %+v, want %+v", n, want)
	}

	ring := hsvBuffer(size, func(x, y int) (uint8, uint8, uint8) {
		if !yellow(x, y) {
			return 25, 200, 200
		}
		return 60, 200, 200
	})
	n, err = AnalyzeNutrients(ring)
	if err != nil {
		t.Fatal(err)
	}
	if want := (model.NutrientFlags{Nitrogen: true, Potassium: true, Iron: true}); n != want {
		t.Errorf("ring yellow = %+v, want %+v", n, want)
	}

	purple := hsvBuffer(size, func(x, y int) (uint8, uint8, uint8) { return 150, 200, 200 })
	n, _ = AnalyzeNutrients(purple)
	if !n.Phosphorus {
		t.Error("purple leaf should flag phosphorus")
	}
}

// --- Sentinels and determinism ---

func TestSentinelsOnInvalidBuffer(t *testing.T) {
	tiny := hsvBuffer(2, func(x, y int) (uint8, uint8, uint8) { return 0, 0, 0 })
	broken := &imaging.Buffer{Size: 4, RGB: make([]uint8, 3)}

	for _, buf := range []*imaging.Buffer{nil, broken} {
		if q, err := AssessQuality(buf); q != QualitySentinel || err == nil {
			t.Errorf("AssessQuality = %+v, %v", q, err)
		}
		if c, err := ProfileColor(buf); c != ColorSentinel || err == nil {
			t.Errorf("ProfileColor = %+v, %v", c, err)
		}
		if p, err := DetectPatterns(buf); p != PatternSentinel || err == nil {
			t.Errorf("DetectPatterns = %+v, %v", p, err)
		}
		if n, err := AnalyzeNutrients(buf); n.Any() || err == nil {
			t.Errorf("AnalyzeNutrients = %+v, %v", n, err)
		}
	}

	_, err := ProfileTexture(tiny)
	var fe *model.FeatureExtractionError
	if !errors.As(err, &fe) || fe.Component != ComponentTexture {
		t.Fatalf("texture err = %v, want FeatureExtractionError", err)
	}
	if !errors.Is(err, ErrInvalidBuffer) {
		t.Error("texture error should wrap ErrInvalidBuffer")
	}
	if tx, _ := ProfileTexture(tiny); tx != TextureSentinel {
		t.Errorf("texture sentinel = %+v", tx)
	}
	if q, _ := AssessQuality(tiny); q.QualityLevel != model.QualityUnknown {
		t.Errorf("quality on 2x2 = %s, want Unknown", q.QualityLevel)
	}
}

func TestExtractorsDeterministic(t *testing.T) {
	buf := stripeBuffer(t)
	run := func() []any {
		q, _ := AssessQuality(buf)
		c, _ := ProfileColor(buf)
		tx, _ := ProfileTexture(buf)
		p, _ := DetectPatterns(buf)
		n, _ := AnalyzeNutrients(buf)
		return []any{q, c, tx, p, n}
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("extractors not deterministic:\n%v\n%v", a, b)
	}
}
