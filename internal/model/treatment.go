package model

import (
	"fmt"
	"strings"
)

// LongTermPrevention is the constant prevention list of every plan.
var LongTermPrevention = []string{
	"Maintain proper plant spacing",
	"Water at soil level, avoid overhead watering",
	"Keep garden area clean and debris-free",
	"Use disease-resistant varieties when possible",
}

// ResolveStage maps a tier label ("Critical Disease", "Mild") or a catalog
// disease name/id to its severity tier. Unknown labels resolve to
// StageUnknown, which plans and forecasts treat as untiered.
func ResolveStage(cat *Catalog, label string) Stage {
	if s, ok := ParseStage(label); ok {
		return s
	}
	if cat != nil {
		if d, ok := cat.Lookup(label); ok {
			return d.Tier
		}
	}
	return StageUnknown
}

// PlanTreatment builds the four-bucket plan for a disease or tier label.
func PlanTreatment(cat *Catalog, label string, nutrients NutrientFlags, quality QualityMetrics) TreatmentPlan {
	plan := TreatmentPlan{
		ImmediateActions:    []string{},
		ShortTermTreatments: []string{},
		LongTermPrevention:  append([]string{}, LongTermPrevention...),
		MonitoringSchedule:  []string{},
	}

	stage := ResolveStage(cat, label)
	switch stage {
	case StageCritical:
		plan.ImmediateActions = append(plan.ImmediateActions, consultationIsolate, consultationPathologist)
		plan.RequiresProfessionalConsultation = true
	case StageSevere:
		plan.ImmediateActions = append(plan.ImmediateActions, fungicideImmediate, removeLeavesImmediate)
	case StageModerate:
		plan.ShortTermTreatments = append(plan.ShortTermTreatments, organicFungicideShortTerm, drainageShortTerm)
	case StageMild:
		plan.ShortTermTreatments = append(plan.ShortTermTreatments, preventiveShortTerm, sunlightShortTerm)
	}

	// Catalog steps for a named disease
	if cat != nil {
		if d, ok := cat.Lookup(label); ok {
			plan.ShortTermTreatments = append(plan.ShortTermTreatments, d.Treatments...)
		}
	}

	// Nutrient deficiencies
	if nutrients.Nitrogen {
		plan.ShortTermTreatments = append(plan.ShortTermTreatments, "Apply nitrogen-rich fertilizer")
	}
	if nutrients.Phosphorus {
		plan.ShortTermTreatments = append(plan.ShortTermTreatments, "Apply phosphorus fertilizer")
	}
	if nutrients.Potassium {
		plan.ShortTermTreatments = append(plan.ShortTermTreatments, "Apply potassium fertilizer")
	}
	if nutrients.Magnesium {
		plan.ShortTermTreatments = append(plan.ShortTermTreatments, "Apply Epsom salt (magnesium sulfate)")
	}
	if nutrients.Iron {
		plan.ShortTermTreatments = append(plan.ShortTermTreatments, "Apply iron chelate fertilizer")
	}

	if quality.QualityLevel == QualityPoor {
		plan.ImmediateActions = append(plan.ImmediateActions, ActionRetakePhotos)
	}

	switch stage {
	case StageCritical, StageSevere:
		plan.MonitoringSchedule = append(plan.MonitoringSchedule, "Check daily for disease progression", "Re-scan in 3-5 days")
	case StageModerate, StageMild:
		plan.MonitoringSchedule = append(plan.MonitoringSchedule, "Check every 2-3 days", "Re-scan in 1 week")
	default:
		plan.MonitoringSchedule = append(plan.MonitoringSchedule, "Regular weekly monitoring")
	}

	return plan
}

// ParseNutrients reads a comma-separated deficiency list. Names and the
// element symbols n, p, k, mg and fe are accepted.
func ParseNutrients(list string) (NutrientFlags, error) {
	var n NutrientFlags
	for _, raw := range strings.Split(list, ",") {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "":
		case "nitrogen", "n":
			n.Nitrogen = true
		case "phosphorus", "p":
			n.Phosphorus = true
		case "potassium", "k":
			n.Potassium = true
		case "magnesium", "mg":
			n.Magnesium = true
		case "iron", "fe":
			n.Iron = true
		default:
			return n, fmt.Errorf("unknown nutrient %q", strings.TrimSpace(raw))
		}
	}
	return n, nil
}
