// Package trend compares a fresh diagnosis with the user's recent scan history.
package trend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/store"
)

// DefaultWindow is how many past scans are compared.
const DefaultWindow = 10

// ChangeThreshold is the health-index shift, in percentage points, beyond which
// the trend is no longer Stable.
const ChangeThreshold = 5.0

// History is the slice of the scan repository the comparator needs.
type History interface {
	UserScans(ctx context.Context, userID int64, limit int) ([]store.Scan, error)
}

// Comparator computes TrendSummary values. It never returns an error:
// missing or unreachable history yields direction Unknown.
type Comparator struct {
	history History
	cat     *model.Catalog
	window  int
	logger  *slog.Logger
}

// NewComparator creates a Comparator. Scan statuses are tier labels or, with a
// catalog, disease names. window <= 0 selects DefaultWindow and a nil logger
// selects slog.Default().
func NewComparator(h History, cat *model.Catalog, window int, logger *slog.Logger) *Comparator {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{history: h, cat: cat, window: window, logger: logger}
}

// Compare rates result against the user's last scans.
func (c *Comparator) Compare(ctx context.Context, result *model.DiagnosisResult, userID int64) *model.TrendSummary {
	if result.NoImageEvidence {
		return unknown("No image evidence; retake the photo to compare against history")
	}
	if c.history == nil {
		return unknown("No scan history configured")
	}
	scans, err := c.history.UserScans(ctx, userID, c.window)
	if err != nil {
		c.logger.Warn("trend history unavailable", "user_id", userID, "err", err)
		return unknown("Scan history unavailable; trend could not be computed")
	}

	indexes := make([]float64, 0, len(scans))
	confidences := make([]float64, 0, len(scans))
	oldest := result.Timestamp
	for _, s := range scans {
		stage := c.stage(s.HealthStatus)
		if stage.Level() == 0 {
			c.logger.Debug("skipping scan with unrecognized status", "scan_id", s.ID, "status", s.HealthStatus)
			continue
		}
		indexes = append(indexes, model.HealthIndex(stage))
		confidences = append(confidences, s.Confidence)
		if s.ScannedAt.Before(oldest) {
			oldest = s.ScannedAt
		}
	}
	if len(indexes) == 0 {
		return unknown("No previous scans to compare yet")
	}
	if result.Severity.Level() == 0 {
		return unknown("Current scan has no severity tier to compare")
	}

	change := (model.HealthIndex(result.Severity) - stat.Mean(indexes, nil)) * 100
	summary := &model.TrendSummary{
		ChangePercent:     change,
		ScansCompared:     len(indexes),
		WindowDescription: fmt.Sprintf("Last %d scans over %d days", len(indexes), days(oldest, result.Timestamp)),
	}
	switch {
	case change > ChangeThreshold:
		summary.Direction = model.TrendImproving
		summary.Recommendation = "Condition is improving. Continue the current treatment plan."
	case change < -ChangeThreshold:
		summary.Direction = model.TrendWorsening
		summary.Recommendation = "Condition is deteriorating. Review treatment and consider consulting an expert."
	default:
		summary.Direction = model.TrendStable
		summary.Recommendation = "Condition is stable. Keep monitoring on the current schedule."
		if change == 0 {
			shift := (result.Classification.OverallConfidence - stat.Mean(confidences, nil)) * 100
			summary.Recommendation += fmt.Sprintf(" Capture confidence shifted %+.1f points against recent scans.", shift)
		}
	}
	return summary
}

func (c *Comparator) stage(status string) model.Stage {
	if c.cat == nil {
		stage, _ := model.ParseStage(status)
		return stage
	}
	return model.ResolveStage(c.cat, status)
}

func unknown(reason string) *model.TrendSummary {
	return &model.TrendSummary{
		Direction:         model.TrendUnknown,
		WindowDescription: "No history",
		Recommendation:    reason,
	}
}

func days(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
