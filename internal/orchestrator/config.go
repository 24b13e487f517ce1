package orchestrator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/archive"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/classifier"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// Config holds engine settings. Zero ImageSize and TrendWindow take the
// profile's values.
type Config struct {
	Profile     string            `yaml:"profile"`
	ImageSize   int               `yaml:"image_size"`
	TrendWindow int               `yaml:"trend_window"`
	Classifier  classifier.Config `yaml:"classifier"`
	CatalogPath string            `yaml:"catalog_path"`

	DatabasePath  string `yaml:"database_path"`
	ArchiveDir    string `yaml:"archive_dir"`
	ArchiveFormat string `yaml:"archive_format"`

	Quiet   bool `yaml:"-"`
	Verbose bool `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Profile:       "standard",
		Classifier:    classifier.Config{Backend: model.ModelSimulated},
		DatabasePath:  "cocoscan.db",
		ArchiveDir:    "analysis_results",
		ArchiveFormat: archive.FormatJSON,
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Profile != "" {
		if _, ok := profiles[c.Profile]; !ok {
			return fmt.Errorf("unknown profile %q (valid: %v)", c.Profile, ProfileNames())
		}
	}
	if c.ImageSize < 0 || c.ImageSize > 4096 {
		return fmt.Errorf("image size %d out of range", c.ImageSize)
	}
	if c.TrendWindow < 0 {
		return fmt.Errorf("trend window must not be negative")
	}
	return nil
}

func (c Config) effectiveProfile() ProfileConfig {
	p := GetProfile(c.Profile)
	if c.ImageSize > 0 {
		p.ImageSize = c.ImageSize
	}
	if c.TrendWindow > 0 {
		p.TrendWindow = c.TrendWindow
	}
	return p
}
