package orchestrator

// Feature stage names.
const (
	FeatureQuality   = "quality"
	FeatureColor     = "color"
	FeatureTexture   = "texture"
	FeaturePatterns  = "patterns"
	FeatureNutrients = "nutrients"
)

// ProfileConfig defines analysis parameters for a named profile.
type ProfileConfig struct {
	ImageSize   int      // side of the normalized square buffer
	Features    []string // feature stages to run, or ["all"]
	TrendWindow int      // past scans compared by the trend stage
}

// profiles contains the built-in profile presets.
var profiles = map[string]ProfileConfig{
	"quick": {
		ImageSize: 128,
		Features: []string{
			FeatureQuality,
			FeatureColor,
			FeaturePatterns,
			FeatureNutrients,
		},
		TrendWindow: 5,
	},
	"standard": {
		ImageSize:   224,
		Features:    []string{"all"},
		TrendWindow: 10,
	},
	"detailed": {
		ImageSize:   448,
		Features:    []string{"all"},
		TrendWindow: 30,
	},
}

// GetProfile returns the profile config for the given name.
// Falls back to "standard" if unknown.
func GetProfile(name string) ProfileConfig {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles["standard"]
}

// ProfileNames returns available profile names.
func ProfileNames() []string {
	return []string{"quick", "standard", "detailed"}
}

// Enabled reports whether the profile runs a feature stage.
func (p ProfileConfig) Enabled(feature string) bool {
	for _, f := range p.Features {
		if f == "all" || f == feature {
			return true
		}
	}
	return false
}
