// Package model defines the value types of a leaf diagnosis and the rule tables
// that turn a classification into symptoms, recommendations, a treatment plan and
// a progression forecast.
// These types are serialized to JSON/YAML for the result archive and every outer surface.
// Schema version: 1.0.0
package model

import "time"

// SchemaVersion is written into every archived diagnosis.
const SchemaVersion = "1.0.0"

// --- Enumerations ---

// ModelKind identifies which classifier backend produced a result.
type ModelKind string

const (
	ModelSimulated ModelKind = "simulated"
	ModelTrained   ModelKind = "trained"
)

// QualityLevel grades how usable a capture is for analysis.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "Excellent"
	QualityGood      QualityLevel = "Good"
	QualityFair      QualityLevel = "Fair"
	QualityPoor      QualityLevel = "Poor"
	QualityUnknown   QualityLevel = "Unknown"
)

// ColorSeverity is the severity implied by the dominant color band.
type ColorSeverity string

const (
	ColorSeverityNone     ColorSeverity = "None"
	ColorSeverityMild     ColorSeverity = "Mild"
	ColorSeverityModerate ColorSeverity = "Moderate"
	ColorSeveritySevere   ColorSeverity = "Severe"
	ColorSeverityUnknown  ColorSeverity = "Unknown"
)

// PatternSeverity grades a single disease-pattern detection.
type PatternSeverity string

const (
	PatternLow     PatternSeverity = "Low"
	PatternMedium  PatternSeverity = "Medium"
	PatternHigh    PatternSeverity = "High"
	PatternUnknown PatternSeverity = "Unknown"
)

// SpreadRisk is the risk of a disease spreading to neighbouring plants.
type SpreadRisk string

const (
	SpreadNone     SpreadRisk = "None"
	SpreadLow      SpreadRisk = "Low"
	SpreadMedium   SpreadRisk = "Medium"
	SpreadHigh     SpreadRisk = "High"
	SpreadVeryHigh SpreadRisk = "VeryHigh"
)

// TrendDirection summarizes how a user's scans evolve over time.
type TrendDirection string

const (
	TrendImproving TrendDirection = "Improving"
	TrendStable    TrendDirection = "Stable"
	TrendWorsening TrendDirection = "Worsening"
	TrendUnknown   TrendDirection = "Unknown"
)

// --- Feature measurements ---

// QualityMetrics describes capture quality of the normalized image.
type QualityMetrics struct {
	Sharpness    float64      `json:"sharpness" yaml:"sharpness"`
	Brightness   float64      `json:"brightness" yaml:"brightness"`
	Contrast     float64      `json:"contrast" yaml:"contrast"`
	QualityLevel QualityLevel `json:"quality_level" yaml:"quality_level"`
}

// ColorProfile holds per-band pixel coverage ratios. Ratios are fractions of the
// total pixel count; bands may overlap or miss pixels so they need not sum to 1.
type ColorProfile struct {
	HealthyRatio   float64       `json:"healthy_green_ratio" yaml:"healthy_green_ratio"`
	YellowingRatio float64       `json:"yellowing_ratio" yaml:"yellowing_ratio"`
	BrowningRatio  float64       `json:"browning_ratio" yaml:"browning_ratio"`
	NecrosisRatio  float64       `json:"necrosis_ratio" yaml:"necrosis_ratio"`
	ColorHealth    string        `json:"color_health" yaml:"color_health"`
	Severity       ColorSeverity `json:"severity" yaml:"severity"`
}

type TextureProfile struct {
	EdgeDensity     float64 `json:"edge_density" yaml:"edge_density"`
	TextureVariance float64 `json:"texture_variance" yaml:"texture_variance"`
	Pattern         string  `json:"texture_pattern" yaml:"texture_pattern"`
}

// PatternDetection is the outcome of one disease-pattern band mask.
// Detected is true iff Confidence exceeds the pattern's lower threshold.
type PatternDetection struct {
	Detected   bool            `json:"detected" yaml:"detected"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Severity   PatternSeverity `json:"severity" yaml:"severity"`
}

// PatternSet groups the four independent pattern detectors. Several may be
// detected at once.
type PatternSet struct {
	Yellowing PatternDetection `json:"yellowing" yaml:"yellowing"`
	RootWilt  PatternDetection `json:"root_wilt" yaml:"root_wilt"`
	BudRot    PatternDetection `json:"bud_rot" yaml:"bud_rot"`
	LeafSpot  PatternDetection `json:"leaf_spot" yaml:"leaf_spot"`
}

// NutrientFlags are independent deficiency indicators.
type NutrientFlags struct {
	Nitrogen   bool `json:"nitrogen" yaml:"nitrogen"`
	Phosphorus bool `json:"phosphorus" yaml:"phosphorus"`
	Potassium  bool `json:"potassium" yaml:"potassium"`
	Magnesium  bool `json:"magnesium" yaml:"magnesium"`
	Iron       bool `json:"iron" yaml:"iron"`
}

// Any reports whether at least one deficiency was flagged.
func (n NutrientFlags) Any() bool {
	return n.Nitrogen || n.Phosphorus || n.Potassium || n.Magnesium || n.Iron
}

// --- Classification ---

// Classification is a classifier backend's answer for one image.
// OverallConfidence rates the capture and is independent of DiseaseConfidence,
// which rates the label.
type Classification struct {
	DiseaseID         string  `json:"disease_id" yaml:"disease_id"`
	DiseaseName       string  `json:"disease_name" yaml:"disease_name"`
	DiseaseConfidence float64 `json:"disease_confidence" yaml:"disease_confidence"`
	LeafType          string  `json:"leaf_type" yaml:"leaf_type"`
	LeafName          string  `json:"leaf_name" yaml:"leaf_name"`
	LeafConfidence    float64 `json:"leaf_confidence" yaml:"leaf_confidence"`
	OverallConfidence float64 `json:"overall_confidence" yaml:"overall_confidence"`
}

// --- Plans and forecasts ---

// TreatmentPlan is a four-bucket action plan.
type TreatmentPlan struct {
	ImmediateActions                 []string `json:"immediate_actions" yaml:"immediate_actions"`
	ShortTermTreatments              []string `json:"short_term_treatments" yaml:"short_term_treatments"`
	LongTermPrevention               []string `json:"long_term_prevention" yaml:"long_term_prevention"`
	MonitoringSchedule               []string `json:"monitoring_schedule" yaml:"monitoring_schedule"`
	RequiresProfessionalConsultation bool     `json:"requires_professional_consultation" yaml:"requires_professional_consultation"`
}

type ProgressionForecast struct {
	CurrentStage        Stage      `json:"current_stage" yaml:"current_stage"`
	NextStage           Stage      `json:"next_stage" yaml:"next_stage"`
	TimeToNextStage     string     `json:"time_to_next_stage" yaml:"time_to_next_stage"`
	RecoveryProbability float64    `json:"recovery_probability" yaml:"recovery_probability"`
	SpreadRisk          SpreadRisk `json:"spread_risk" yaml:"spread_risk"`
}

type TrendSummary struct {
	Direction         TrendDirection `json:"trend" yaml:"trend"`
	ChangePercent     float64        `json:"change_percentage" yaml:"change_percentage"`
	ScansCompared     int            `json:"scans_compared" yaml:"scans_compared"`
	WindowDescription string         `json:"time_period" yaml:"time_period"`
	Recommendation    string         `json:"recommendation" yaml:"recommendation"`
}

// --- DiagnosisResult: top-level output ---

// DiagnosisResult is the sole artifact returned to callers and the sole artifact
// persisted to the archive.
type DiagnosisResult struct {
	ID              string    `json:"id" yaml:"id"`
	SchemaVersion   string    `json:"schema_version" yaml:"schema_version"`
	ImagePath       string    `json:"image_path" yaml:"image_path"`
	Timestamp       time.Time `json:"analysis_timestamp" yaml:"analysis_timestamp"`
	ModelUsed       ModelKind `json:"model_used" yaml:"model_used"`
	NoImageEvidence bool      `json:"no_image_evidence" yaml:"no_image_evidence"`

	Classification Classification `json:"classification" yaml:"classification"`
	Severity       Stage          `json:"severity" yaml:"severity"`
	Symptoms       []string       `json:"symptoms" yaml:"symptoms"`

	Quality   QualityMetrics `json:"image_quality" yaml:"image_quality"`
	Color     ColorProfile   `json:"color_analysis" yaml:"color_analysis"`
	Texture   TextureProfile `json:"texture_analysis" yaml:"texture_analysis"`
	Patterns  PatternSet     `json:"disease_patterns" yaml:"disease_patterns"`
	Nutrients NutrientFlags  `json:"nutrient_analysis" yaml:"nutrient_analysis"`

	Recommendations []string            `json:"recommendations" yaml:"recommendations"`
	Treatment       TreatmentPlan       `json:"treatment_plan" yaml:"treatment_plan"`
	Progression     ProgressionForecast `json:"progression" yaml:"progression"`
	Trend           *TrendSummary       `json:"trend,omitempty" yaml:"trend,omitempty"`

	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// AddError records a recovered failure.
func (r *DiagnosisResult) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}
