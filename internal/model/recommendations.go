package model

const (
	AdvisoryRetakePhoto       = "Retake photo with better lighting and focus"
	AdvisoryMonitorYellowing  = "Monitor for lethal yellowing progression"
	ActionRetakePhotos        = "Retake photos in better lighting for accurate diagnosis"
	consultationIsolate       = "Isolate affected plants immediately"
	consultationPathologist   = "Contact a plant pathologist for diagnosis"
	fungicideImmediate        = "Apply fungicide treatment"
	removeLeavesImmediate     = "Remove severely affected leaves"
	organicFungicideShortTerm = "Apply organic fungicide"
	drainageShortTerm         = "Improve drainage and air circulation"
	preventiveShortTerm       = "Apply preventive fungicide"
	sunlightShortTerm         = "Ensure adequate sunlight"
)

// GenerateRecommendations builds the ordered advisory list: the classified
// disease's advisory block first, then the quality advisory, then pattern
// advisories. Unknown disease ids get the healthy entry's block.
func GenerateRecommendations(cat *Catalog, cls Classification, quality QualityMetrics, patterns PatternSet) []string {
	d, ok := cat.ByID(cls.DiseaseID)
	if !ok {
		d = cat.Healthy()
	}
	recs := append([]string{}, d.Advisories...)

	if quality.QualityLevel == QualityPoor {
		recs = append(recs, AdvisoryRetakePhoto)
	}
	if patterns.Yellowing.Detected {
		recs = append(recs, AdvisoryMonitorYellowing)
	}
	return recs
}
