package model

// HealthIndex maps a tier to [0,1]: Healthy = 1, Critical = 0.
// Level runs Healthy=1 .. Critical=5, so the index is (5 - level) / 4.
// Lost and unknown tiers clamp to 0.
func HealthIndex(s Stage) float64 {
	level := s.Level()
	if level == 0 {
		return 0
	}
	idx := float64(5-level) / 4
	// Clamp to [0, 1]
	if idx < 0 {
		idx = 0
	}
	if idx > 1 {
		idx = 1
	}
	return idx
}

// ComputeHealthScore rates a diagnosis 0-100. 100 = healthy leaf, clean capture.
// Tier sets the base score; detected patterns and nutrient flags deduct.
func ComputeHealthScore(r *DiagnosisResult) int {
	if r.NoImageEvidence {
		return 0
	}
	score := int(HealthIndex(r.Severity) * 100)

	for _, p := range []PatternDetection{r.Patterns.Yellowing, r.Patterns.RootWilt, r.Patterns.BudRot, r.Patterns.LeafSpot} {
		if !p.Detected {
			continue
		}
		switch p.Severity {
		case PatternHigh:
			score -= 10
		case PatternMedium:
			score -= 5
		}
	}
	if r.Nutrients.Any() {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	return score
}
