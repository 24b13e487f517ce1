// Package diff compares two archived diagnoses of the same palm and highlights
// what got worse and what improved.
package diff

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/archive"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// DiffReport contains the comparison between two diagnoses.
type DiffReport struct {
	Baseline        string         `json:"baseline"`
	Current         string         `json:"current"`
	TimeDelta       string         `json:"time_delta"`
	BaselineDisease string         `json:"baseline_disease"`
	CurrentDisease  string         `json:"current_disease"`
	StageChange     string         `json:"stage_change"`
	Changes         []MetricChange `json:"changes"`
	Regressions     int            `json:"regressions"`
	Improvements    int            `json:"improvements"`
	HealthDelta     int            `json:"health_delta"` // positive = improved
}

// MetricChange represents a single metric difference between diagnoses.
type MetricChange struct {
	Category     string  `json:"category"`
	Metric       string  `json:"metric"`
	OldValue     float64 `json:"old_value"`
	NewValue     float64 `json:"new_value"`
	Delta        float64 `json:"delta"`
	DeltaPct     float64 `json:"delta_pct"`
	Direction    string  `json:"direction"`    // "regression", "improvement", "unchanged"
	Significance string  `json:"significance"` // "high", "medium", "low"
}

// LoadReport reads an archived diagnosis (JSON or YAML).
func LoadReport(path string) (*model.DiagnosisResult, error) {
	return archive.Load(path)
}

// Compare computes differences between two diagnoses.
func Compare(baseline, current *model.DiagnosisResult) *DiffReport {
	diff := &DiffReport{
		Baseline:        baseline.Timestamp.UTC().Format(time.RFC3339),
		Current:         current.Timestamp.UTC().Format(time.RFC3339),
		BaselineDisease: baseline.Classification.DiseaseName,
		CurrentDisease:  current.Classification.DiseaseName,
		StageChange:     fmt.Sprintf("%s -> %s", baseline.Severity, current.Severity),
		HealthDelta:     model.ComputeHealthScore(current) - model.ComputeHealthScore(baseline),
	}
	if !baseline.Timestamp.IsZero() && !current.Timestamp.IsZero() {
		diff.TimeDelta = current.Timestamp.Sub(baseline.Timestamp).Round(time.Second).String()
	}

	// Stage level and capture confidence
	if baseline.Severity.Level() > 0 && current.Severity.Level() > 0 {
		addChange(diff, "classification", "stage_level",
			float64(baseline.Severity.Level()), float64(current.Severity.Level()), true)
	}
	addChange(diff, "classification", "overall_confidence",
		baseline.Classification.OverallConfidence, current.Classification.OverallConfidence, false)

	// Color bands
	addChange(diff, "color", "healthy_green_ratio", baseline.Color.HealthyRatio, current.Color.HealthyRatio, false)
	addChange(diff, "color", "yellowing_ratio", baseline.Color.YellowingRatio, current.Color.YellowingRatio, true)
	addChange(diff, "color", "browning_ratio", baseline.Color.BrowningRatio, current.Color.BrowningRatio, true)
	addChange(diff, "color", "necrosis_ratio", baseline.Color.NecrosisRatio, current.Color.NecrosisRatio, true)

	// Disease pattern coverage
	comparePatterns(diff, baseline.Patterns, current.Patterns)

	// Capture quality
	addChange(diff, "quality", "sharpness", baseline.Quality.Sharpness, current.Quality.Sharpness, false)
	addChange(diff, "quality", "contrast", baseline.Quality.Contrast, current.Quality.Contrast, false)

	// Tally regressions vs improvements
	for _, c := range diff.Changes {
		switch c.Direction {
		case "regression":
			diff.Regressions++
		case "improvement":
			diff.Improvements++
		}
	}

	return diff
}

func addChange(diff *DiffReport, category, metric string, oldVal, newVal float64, higherIsWorse bool) {
	delta := newVal - oldVal
	deltaPct := 0.0
	if oldVal != 0 {
		deltaPct = (delta / math.Abs(oldVal)) * 100
	} else if delta != 0 {
		// Appearing from nothing counts as a full swing.
		deltaPct = math.Copysign(100, delta)
	}

	// Skip negligible changes
	if math.Abs(deltaPct) < 1.0 && math.Abs(delta) < 0.1 {
		return
	}

	direction := "unchanged"
	if higherIsWorse {
		if deltaPct > 5 {
			direction = "regression"
		} else if deltaPct < -5 {
			direction = "improvement"
		}
	} else {
		if deltaPct < -5 {
			direction = "regression"
		} else if deltaPct > 5 {
			direction = "improvement"
		}
	}

	significance := "low"
	absPct := math.Abs(deltaPct)
	if absPct >= 50 {
		significance = "high"
	} else if absPct >= 20 {
		significance = "medium"
	}

	diff.Changes = append(diff.Changes, MetricChange{
		Category:     category,
		Metric:       metric,
		OldValue:     oldVal,
		NewValue:     newVal,
		Delta:        delta,
		DeltaPct:     deltaPct,
		Direction:    direction,
		Significance: significance,
	})
}

func comparePatterns(diff *DiffReport, old, cur model.PatternSet) {
	pairs := []struct {
		name     string
		old, cur model.PatternDetection
	}{
		{"yellowing", old.Yellowing, cur.Yellowing},
		{"root_wilt", old.RootWilt, cur.RootWilt},
		{"bud_rot", old.BudRot, cur.BudRot},
		{"leaf_spot", old.LeafSpot, cur.LeafSpot},
	}
	for _, p := range pairs {
		addChange(diff, "pattern", p.name, p.old.Confidence, p.cur.Confidence, true)
	}
}

// FormatDiff returns a human-readable diff summary.
func FormatDiff(d *DiffReport) string {
	var sb strings.Builder

	sb.WriteString("=== Diagnosis Diff ===\n")
	sb.WriteString(fmt.Sprintf("Baseline: %s (%s)\n", d.Baseline, d.BaselineDisease))
	sb.WriteString(fmt.Sprintf("Current:  %s (%s)\n", d.Current, d.CurrentDisease))
	if d.TimeDelta != "" {
		sb.WriteString(fmt.Sprintf("Elapsed:  %s\n", d.TimeDelta))
	}
	sb.WriteString(fmt.Sprintf("Stage:    %s\n\n", d.StageChange))

	symbol := "→"
	if d.HealthDelta > 0 {
		symbol = "↑"
	} else if d.HealthDelta < 0 {
		symbol = "↓"
	}
	sb.WriteString(fmt.Sprintf("Health Score: %+d %s\n", d.HealthDelta, symbol))
	sb.WriteString(fmt.Sprintf("Regressions: %d, Improvements: %d\n\n", d.Regressions, d.Improvements))

	// Show regressions first
	if d.Regressions > 0 {
		sb.WriteString("⚠ Regressions:\n")
		writeChanges(&sb, d.Changes, "regression")
		sb.WriteString("\n")
	}

	if d.Improvements > 0 {
		sb.WriteString("✓ Improvements:\n")
		writeChanges(&sb, d.Changes, "improvement")
	}

	return sb.String()
}

func writeChanges(sb *strings.Builder, changes []MetricChange, direction string) {
	for _, c := range changes {
		if c.Direction == direction {
			sb.WriteString(fmt.Sprintf("  [%s] %s/%s: %.2f → %.2f (%+.1f%%)\n",
				strings.ToUpper(c.Significance), c.Category, c.Metric,
				c.OldValue, c.NewValue, c.DeltaPct))
		}
	}
}
