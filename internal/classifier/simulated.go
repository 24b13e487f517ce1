package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// DefaultWeights bias the draw toward the healthy class, one weight per
// catalog entry in class order.
var DefaultWeights = []float64{4, 1, 1, 0.5, 0.5, 0.8, 0.8, 1.2}

// Overall confidence is drawn uniformly from this range.
const (
	MinOverallConfidence = 0.75
	MaxOverallConfidence = 0.98
)

// Simulated draws a class-probability vector from a Dirichlet distribution and
// labels the image with its argmax. It ignores pixel data and exists so the
// pipeline runs without a trained model.
type Simulated struct {
	cat     *model.Catalog
	weights []float64

	mu   sync.Mutex
	src  rand.Source
	rng  *rand.Rand
	dist *distmv.Dirichlet
}

type SimulatedOption func(*Simulated)

// WithSeed makes draws reproducible.
func WithSeed(seed uint64) SimulatedOption {
	return func(s *Simulated) { s.src = rand.NewSource(seed) }
}

// WithSource injects the random source.
func WithSource(src rand.Source) SimulatedOption {
	return func(s *Simulated) { s.src = src }
}

func WithWeights(w []float64) SimulatedOption {
	return func(s *Simulated) { s.weights = append([]float64{}, w...) }
}

// NewSimulated builds a simulated backend. Weights must match the catalog size.
func NewSimulated(cat *model.Catalog, opts ...SimulatedOption) (*Simulated, error) {
	s := &Simulated{cat: cat, weights: append([]float64{}, DefaultWeights...)}
	for _, o := range opts {
		o(s)
	}
	if len(s.weights) != cat.Len() {
		return nil, fmt.Errorf("simulated classifier: %d weights for %d classes", len(s.weights), cat.Len())
	}
	for i, w := range s.weights {
		if w <= 0 {
			return nil, fmt.Errorf("simulated classifier: weight %d must be positive, got %v", i, w)
		}
	}
	if s.src == nil {
		s.src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	s.rng = rand.New(s.src)
	s.dist = distmv.NewDirichlet(s.weights, s.src)
	return s, nil
}

func (s *Simulated) Kind() model.ModelKind { return model.ModelSimulated }

// Classify never reads buf, so it also serves the degraded no-image path.
func (s *Simulated) Classify(_ context.Context, _ *imaging.Buffer) (model.Classification, error) {
	s.mu.Lock()
	probs := s.dist.Rand(nil)
	overall := MinOverallConfidence + s.rng.Float64()*(MaxOverallConfidence-MinOverallConfidence)
	s.mu.Unlock()

	class := argmax(probs)
	return classification(s.cat, class, probs[class], overall)
}
