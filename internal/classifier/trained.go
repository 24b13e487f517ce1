package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// InferenceModel is the contract a real model must satisfy. Input is the
// buffer's RGB view scaled to [0,1]; output is one score per catalog class.
type InferenceModel interface {
	Predict(ctx context.Context, input []float32) ([]float64, error)
}

// Trained labels images with an InferenceModel.
type Trained struct {
	model InferenceModel
	cat   *model.Catalog
}

func NewTrained(m InferenceModel, cat *model.Catalog) *Trained {
	return &Trained{model: m, cat: cat}
}

func (t *Trained) Kind() model.ModelKind { return model.ModelTrained }

// Classify normalizes the model's scores into probabilities. Disease
// confidence is the top probability; overall confidence is one minus the
// normalized entropy of the whole distribution.
func (t *Trained) Classify(ctx context.Context, buf *imaging.Buffer) (model.Classification, error) {
	if !buf.Valid() {
		return model.Classification{}, errors.New("trained classifier: invalid buffer")
	}
	scores, err := t.model.Predict(ctx, buf.Float32())
	if err != nil {
		return model.Classification{}, fmt.Errorf("predict: %w", err)
	}
	probs, err := normalize(scores, t.cat.Len())
	if err != nil {
		return model.Classification{}, err
	}

	class := argmax(probs)
	return classification(t.cat, class, probs[class], 1-normalizedEntropy(probs))
}

func normalize(scores []float64, classes int) ([]float64, error) {
	if len(scores) != classes {
		return nil, fmt.Errorf("model returned %d scores for %d classes", len(scores), classes)
	}
	for i, v := range scores {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("model score %d is not a probability: %v", i, v)
		}
	}
	sum := floats.Sum(scores)
	if sum == 0 {
		return nil, errors.New("model returned all-zero scores")
	}
	probs := append([]float64{}, scores...)
	floats.Scale(1/sum, probs)
	return probs, nil
}

// normalizedEntropy is Shannon entropy divided by its maximum, in [0,1].
func normalizedEntropy(p []float64) float64 {
	if len(p) < 2 {
		return 0
	}
	h := stat.Entropy(p) / math.Log(float64(len(p)))
	return math.Min(math.Max(h, 0), 1)
}
