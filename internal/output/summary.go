package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// WriteSummary renders a diagnosis as plain text for terminals.
func WriteSummary(w io.Writer, r *model.DiagnosisResult) error {
	var sb strings.Builder
	cls := r.Classification

	sb.WriteString(fmt.Sprintf("Diagnosis %s\n", r.ID))
	sb.WriteString(fmt.Sprintf("  Image:      %s\n", r.ImagePath))
	sb.WriteString(fmt.Sprintf("  Disease:    %s (%.1f%%)\n", cls.DiseaseName, cls.DiseaseConfidence*100))
	sb.WriteString(fmt.Sprintf("  Severity:   %s\n", r.Severity))
	sb.WriteString(fmt.Sprintf("  Confidence: %.1f%% overall, model %s\n", cls.OverallConfidence*100, r.ModelUsed))
	sb.WriteString(fmt.Sprintf("  Health:     %d/100\n", model.ComputeHealthScore(r)))
	if r.NoImageEvidence {
		sb.WriteString("  NOTE: image could not be read; result has no image evidence\n")
	}

	sb.WriteString(fmt.Sprintf("\nQuality %s, color %q, texture %q\n",
		r.Quality.QualityLevel, r.Color.ColorHealth, r.Texture.Pattern))
	for _, d := range detectedPatterns(r.Patterns) {
		sb.WriteString("  " + d + "\n")
	}
	if def := deficiencies(r.Nutrients); len(def) > 0 {
		sb.WriteString("  Deficiencies: " + strings.Join(def, ", ") + "\n")
	}

	writeList(&sb, "Symptoms", r.Symptoms)
	writeList(&sb, "Recommendations", r.Recommendations)
	writeList(&sb, "Immediate actions", r.Treatment.ImmediateActions)
	writeList(&sb, "Short-term treatments", r.Treatment.ShortTermTreatments)
	writeList(&sb, "Monitoring", r.Treatment.MonitoringSchedule)
	if r.Treatment.RequiresProfessionalConsultation {
		sb.WriteString("\nProfessional consultation required.\n")
	}

	p := r.Progression
	sb.WriteString(fmt.Sprintf("\nProgression: %s -> %s in %s, recovery %.0f%%, spread risk %s\n",
		p.CurrentStage, p.NextStage, p.TimeToNextStage, p.RecoveryProbability*100, p.SpreadRisk))

	if r.Trend != nil {
		sb.WriteString(fmt.Sprintf("Trend: %s (%+.1f) %s\n  %s\n",
			r.Trend.Direction, r.Trend.ChangePercent, r.Trend.WindowDescription, r.Trend.Recommendation))
	}
	writeList(&sb, "Errors", r.Errors)

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n" + title + ":\n")
	for _, it := range items {
		sb.WriteString("  - " + it + "\n")
	}
}
