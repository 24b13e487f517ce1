package diff

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/archive"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

func diagnosis(stage model.Stage, at time.Time) *model.DiagnosisResult {
	return &model.DiagnosisResult{
		ID:            "id-" + string(stage),
		SchemaVersion: model.SchemaVersion,
		ImagePath:     "palm.jpg",
		Timestamp:     at,
		Severity:      stage,
		Classification: model.Classification{
			DiseaseName:       string(stage),
			OverallConfidence: 0.9,
		},
		Quality: model.QualityMetrics{Sharpness: 100, Contrast: 40, QualityLevel: model.QualityGood},
		Color:   model.ColorProfile{HealthyRatio: 0.8},
		Patterns: model.PatternSet{
			Yellowing: model.PatternDetection{Severity: model.PatternLow},
			RootWilt:  model.PatternDetection{Severity: model.PatternLow},
			BudRot:    model.PatternDetection{Severity: model.PatternLow},
			LeafSpot:  model.PatternDetection{Severity: model.PatternLow},
		},
	}
}

func findChange(d *DiffReport, category, metric string) (MetricChange, bool) {
	for _, c := range d.Changes {
		if c.Category == category && c.Metric == metric {
			return c, true
		}
	}
	return MetricChange{}, false
}

func TestCompareWorsening(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	baseline := diagnosis(model.StageHealthy, t0)
	current := diagnosis(model.StageSevere, t0.Add(72*time.Hour))
	current.Color.HealthyRatio = 0.3
	current.Color.YellowingRatio = 0.4
	current.Patterns.Yellowing = model.PatternDetection{Detected: true, Confidence: 0.4, Severity: model.PatternHigh}

	diff := Compare(baseline, current)

	// Healthy scores 100, Severe 25 minus 10 for the high pattern.
	if diff.HealthDelta != -85 {
		t.Errorf("health delta = %d, want -85", diff.HealthDelta)
	}
	if diff.TimeDelta != "72h0m0s" {
		t.Errorf("time delta = %q", diff.TimeDelta)
	}
	if diff.StageChange != "Healthy -> Severe" {
		t.Errorf("stage change = %q", diff.StageChange)
	}

	tests := []struct {
		category, metric string
		direction        string
		significance     string
	}{
		{"classification", "stage_level", "regression", "high"},
		{"color", "healthy_green_ratio", "regression", "high"},
		{"color", "yellowing_ratio", "regression", "high"},
		{"pattern", "yellowing", "regression", "high"},
	}
	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.metric, func(t *testing.T) {
			c, ok := findChange(diff, tt.category, tt.metric)
			if !ok {
				t.Fatal("change missing")
			}
			if c.Direction != tt.direction || c.Significance != tt.significance {
				t.Errorf("got %s/%s, want %s/%s", c.Direction, c.Significance, tt.direction, tt.significance)
			}
		})
	}
	if diff.Regressions != 4 || diff.Improvements != 0 {
		t.Errorf("regressions=%d improvements=%d", diff.Regressions, diff.Improvements)
	}
}

func TestCompareIdentical(t *testing.T) {
	d := diagnosis(model.StageMild, time.Now().UTC())
	diff := Compare(d, d)
	if diff.HealthDelta != 0 {
		t.Errorf("health delta = %d, want 0", diff.HealthDelta)
	}
	if len(diff.Changes) != 0 {
		t.Errorf("changes = %+v, want none", diff.Changes)
	}
}

func TestCompareImprovement(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	baseline := diagnosis(model.StageModerate, t0)
	baseline.Color.BrowningRatio = 0.3
	current := diagnosis(model.StageMild, t0.Add(14*24*time.Hour))
	current.Color.BrowningRatio = 0.05

	diff := Compare(baseline, current)
	if diff.HealthDelta <= 0 {
		t.Errorf("health delta = %d, want positive", diff.HealthDelta)
	}
	c, ok := findChange(diff, "color", "browning_ratio")
	if !ok || c.Direction != "improvement" {
		t.Errorf("browning change = %+v", c)
	}
	if diff.Improvements != 2 {
		t.Errorf("improvements = %d, want 2", diff.Improvements)
	}
}

func TestLoadReportFromArchive(t *testing.T) {
	w, err := archive.NewWriter(t.TempDir(), archive.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	want := diagnosis(model.StageCritical, time.Date(2024, 2, 2, 2, 2, 2, 0, time.UTC))
	path, err := w.Write(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := LoadReport(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Severity != model.StageCritical || !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("loaded %+v", got)
	}
	if _, err := LoadReport(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestFormatDiff(t *testing.T) {
	diff := &DiffReport{
		Baseline:        "2024-01-01T00:00:00Z",
		Current:         "2024-01-04T00:00:00Z",
		BaselineDisease: "Healthy",
		CurrentDisease:  "Bud Rot",
		StageChange:     "Healthy -> Severe",
		TimeDelta:       "72h0m0s",
		HealthDelta:     -75,
		Regressions:     1,
		Improvements:    1,
		Changes: []MetricChange{
			{Category: "pattern", Metric: "bud_rot", OldValue: 0, NewValue: 0.3, DeltaPct: 100, Direction: "regression", Significance: "high"},
			{Category: "quality", Metric: "sharpness", OldValue: 40, NewValue: 120, DeltaPct: 200, Direction: "improvement", Significance: "high"},
		},
	}

	out := FormatDiff(diff)
	for _, want := range []string{"Health Score: -75 ↓", "[HIGH] pattern/bud_rot", "Improvements:", "Bud Rot"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}
