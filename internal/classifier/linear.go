package classifier

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
)

// LinearModel is a softmax classifier over a normalized hue histogram. It is
// the file-loadable InferenceModel used by the trained backend.
type LinearModel struct {
	Bins    int         `yaml:"bins"`
	Weights [][]float64 `yaml:"weights"` // one row of Bins weights per class
	Bias    []float64   `yaml:"bias"`
}

// LoadLinearModel reads a YAML weights file.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var m LinearModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the weight matrix shape.
func (m *LinearModel) Validate() error {
	if m.Bins <= 0 {
		return fmt.Errorf("bins must be positive, got %d", m.Bins)
	}
	if len(m.Weights) == 0 {
		return fmt.Errorf("no class weights")
	}
	for i, row := range m.Weights {
		if len(row) != m.Bins {
			return fmt.Errorf("class %d has %d weights, want %d", i, len(row), m.Bins)
		}
	}
	if len(m.Bias) != 0 && len(m.Bias) != len(m.Weights) {
		return fmt.Errorf("bias has %d entries for %d classes", len(m.Bias), len(m.Weights))
	}
	return nil
}

// Predict returns softmax probabilities, one per class.
func (m *LinearModel) Predict(ctx context.Context, input []float32) ([]float64, error) {
	if len(input) == 0 || len(input)%3 != 0 {
		return nil, fmt.Errorf("input length %d is not RGB triples", len(input))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hist := m.hueHistogram(input)
	logits := make([]float64, len(m.Weights))
	for c, row := range m.Weights {
		z := 0.0
		if len(m.Bias) > 0 {
			z = m.Bias[c]
		}
		for b, w := range row {
			z += w * hist[b]
		}
		logits[c] = z
	}
	return softmax(logits), nil
}

// hueHistogram buckets OpenCV hue (0-180) into Bins fractions.
func (m *LinearModel) hueHistogram(input []float32) []float64 {
	hist := make([]float64, m.Bins)
	pixels := len(input) / 3
	for p := 0; p < pixels; p++ {
		h, _, _ := imaging.RGBToHSV(float64(input[3*p])*255, float64(input[3*p+1])*255, float64(input[3*p+2])*255)
		b := int(h / 180 * float64(m.Bins))
		if b >= m.Bins {
			b = m.Bins - 1
		}
		hist[b]++
	}
	for i := range hist {
		hist[i] /= float64(pixels)
	}
	return hist
}

func softmax(z []float64) []float64 {
	maxZ := math.Inf(-1)
	for _, v := range z {
		maxZ = math.Max(maxZ, v)
	}
	out := make([]float64, len(z))
	sum := 0.0
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
