// Package classifier provides the disease classifier backends. The backend is
// chosen once at startup with New; callers only see the Classifier interface.
package classifier

import (
	"context"
	"fmt"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// Leaf identification reported by every backend.
const (
	LeafType       = "Coconut"
	LeafName       = "Coconut (Cocos nucifera)"
	LeafConfidence = 0.95
)

// Classifier labels a normalized leaf buffer with a catalog disease.
type Classifier interface {
	Classify(ctx context.Context, buf *imaging.Buffer) (model.Classification, error)
	Kind() model.ModelKind
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend model.ModelKind `yaml:"backend"`
	// Seed for the simulated backend. Zero seeds from the clock.
	Seed uint64 `yaml:"seed"`
	// Weights overrides the simulated backend's Dirichlet concentration.
	Weights []float64 `yaml:"weights"`
	// ModelPath is the trained backend's linear weights file.
	ModelPath string `yaml:"model_path"`
}

// New builds the configured backend over cat.
func New(cfg Config, cat *model.Catalog) (Classifier, error) {
	switch cfg.Backend {
	case "", model.ModelSimulated:
		opts := []SimulatedOption{}
		if cfg.Seed != 0 {
			opts = append(opts, WithSeed(cfg.Seed))
		}
		if len(cfg.Weights) > 0 {
			opts = append(opts, WithWeights(cfg.Weights))
		}
		return NewSimulated(cat, opts...)
	case model.ModelTrained:
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("trained backend requires a model path")
		}
		lm, err := LoadLinearModel(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		return NewTrained(lm, cat), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

func classification(cat *model.Catalog, class int, diseaseConf, overall float64) (model.Classification, error) {
	d, ok := cat.ByIndex(class)
	if !ok {
		return model.Classification{}, fmt.Errorf("class %d outside catalog of %d", class, cat.Len())
	}
	return model.Classification{
		DiseaseID:         d.ID,
		DiseaseName:       d.Name,
		DiseaseConfidence: diseaseConf,
		LeafType:          LeafType,
		LeafName:          LeafName,
		LeafConfidence:    LeafConfidence,
		OverallConfidence: overall,
	}, nil
}

func argmax(p []float64) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}
