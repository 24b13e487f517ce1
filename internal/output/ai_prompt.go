package output

import (
	"fmt"
	"strings"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// AIContext is the hand-off handed to an assistant alongside a diagnosis.
type AIContext struct {
	Prompt        string   `json:"prompt"`
	Methodology   string   `json:"methodology"`
	KnownPatterns []string `json:"known_patterns"`
}

// GenerateAIPrompt creates a context-aware prompt asking an assistant to review
// a diagnosis the way a field agronomist would.
func GenerateAIPrompt(r *model.DiagnosisResult) *AIContext {
	ctx := &AIContext{
		Methodology:   "Visual symptom triage: color bands, lesion texture and pattern coverage cross-checked against the classifier",
		KnownPatterns: knownLookAlikes(),
	}

	var sb strings.Builder
	sb.WriteString("You are a coconut palm pathologist. ")
	sb.WriteString("Review the following leaf diagnosis and provide:\n")
	sb.WriteString("1. Whether the visual evidence supports the classified disease\n")
	sb.WriteString("2. Differential diagnoses worth ruling out in the field\n")
	sb.WriteString("3. A prioritized action list for the grower\n\n")

	cls := r.Classification
	sb.WriteString(fmt.Sprintf("Leaf: %s (%.0f%%)\n", cls.LeafName, cls.LeafConfidence*100))
	sb.WriteString(fmt.Sprintf("Classified: %s, confidence %.0f%%, overall %.0f%%, model %s\n",
		cls.DiseaseName, cls.DiseaseConfidence*100, cls.OverallConfidence*100, r.ModelUsed))
	sb.WriteString(fmt.Sprintf("Severity tier: %s, Health Score: %d/100\n",
		r.Severity, model.ComputeHealthScore(r)))

	if r.NoImageEvidence {
		sb.WriteString("\nWARNING: the image could not be decoded. The classification above is ")
		sb.WriteString("not backed by pixels; ask for a new photo before advising treatment.\n")
	}

	sb.WriteString(fmt.Sprintf("\nImage quality: %s (sharpness=%.1f, brightness=%.1f, contrast=%.1f)\n",
		r.Quality.QualityLevel, r.Quality.Sharpness, r.Quality.Brightness, r.Quality.Contrast))
	sb.WriteString(fmt.Sprintf("Color: %s (green=%.1f%%, yellow=%.1f%%, brown=%.1f%%, necrotic=%.1f%%)\n",
		r.Color.ColorHealth, r.Color.HealthyRatio*100, r.Color.YellowingRatio*100,
		r.Color.BrowningRatio*100, r.Color.NecrosisRatio*100))
	sb.WriteString(fmt.Sprintf("Texture: %s (edge density=%.3f, variance=%.1f)\n",
		r.Texture.Pattern, r.Texture.EdgeDensity, r.Texture.TextureVariance))

	detected := detectedPatterns(r.Patterns)
	if len(detected) > 0 {
		sb.WriteString(fmt.Sprintf("\nDetected Patterns (%d):\n", len(detected)))
		for _, d := range detected {
			sb.WriteString("  " + d + "\n")
		}
	}

	if def := deficiencies(r.Nutrients); len(def) > 0 {
		sb.WriteString(fmt.Sprintf("\nPossible deficiencies: %s\n", strings.Join(def, ", ")))
		sb.WriteString("Consider whether nutrient stress explains the color readings before blaming a pathogen.\n")
	}

	if r.Trend != nil && r.Trend.Direction != model.TrendUnknown {
		sb.WriteString(fmt.Sprintf("\nHistory: %s, %+.1f points over %s\n",
			r.Trend.Direction, r.Trend.ChangePercent, r.Trend.WindowDescription))
	}

	if len(r.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\nPipeline errors (%d): %s\n", len(r.Errors), strings.Join(r.Errors, "; ")))
	}

	sb.WriteString("\nKeep advice practical for smallholder growers. ")
	sb.WriteString("Flag anything that needs a plant pathologist on site.\n")

	ctx.Prompt = sb.String()
	return ctx
}

func detectedPatterns(p model.PatternSet) []string {
	var out []string
	add := func(name string, d model.PatternDetection) {
		if d.Detected {
			out = append(out, fmt.Sprintf("[%s] %s: %.1f%% coverage",
				strings.ToUpper(string(d.Severity)), name, d.Confidence*100))
		}
	}
	add("yellowing", p.Yellowing)
	add("root_wilt", p.RootWilt)
	add("bud_rot", p.BudRot)
	add("leaf_spot", p.LeafSpot)
	return out
}

func deficiencies(n model.NutrientFlags) []string {
	var out []string
	if n.Nitrogen {
		out = append(out, "nitrogen")
	}
	if n.Phosphorus {
		out = append(out, "phosphorus")
	}
	if n.Potassium {
		out = append(out, "potassium")
	}
	if n.Magnesium {
		out = append(out, "magnesium")
	}
	if n.Iron {
		out = append(out, "iron")
	}
	return out
}

// knownLookAlikes lists symptom pairs that are commonly confused in the field.
func knownLookAlikes() []string {
	return []string{
		"L1: Lethal yellowing vs potassium deficiency (both yellow older fronds; LY progresses to young fronds and drops nuts)",
		"L2: Root wilt vs magnesium deficiency (flaccid, ribbed leaflets vs orange-yellow bands with green midrib)",
		"L3: Bud rot vs drought scorch (rotting spear leaf smell vs dry brown tips)",
		"L4: Leaf spot vs anthracnose (small round lesions with yellow halo vs sunken dark irregular patches)",
		"L5: Nitrogen deficiency vs natural senescence (uniform pale canopy vs only the oldest fronds)",
		"L6: Iron chlorosis vs waterlogging (interveinal yellowing on young leaves vs general wilting)",
		"L7: Stem bleeding vs mechanical injury (reddish-brown exudate from cracks vs clean wounds)",
	}
}
