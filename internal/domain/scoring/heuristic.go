package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/nexeed/teamforge/internal/domain/features"
	"github.com/nexeed/teamforge/internal/domain/model"
)

// traitScale normalizes trait differences into [0,1].
const traitScale = 10.0

// weightSumTolerance bounds how far a custom weight set may drift from 1.0.
const weightSumTolerance = 1e-6

// Weights are the component weights of the heuristic score.
type Weights struct {
	C     float64 `koanf:"C"`
	A     float64 `koanf:"A"`
	E     float64 `koanf:"E"`
	O     float64 `koanf:"O"`
	N     float64 `koanf:"N"`
	Avail float64 `koanf:"AVAIL"`
}

// DefaultWeights returns the fixed production weights.
func DefaultWeights() Weights {
	return Weights{C: 0.30, A: 0.20, E: 0.15, O: 0.15, N: 0.10, Avail: 0.10}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.C + w.A + w.E + w.O + w.N + w.Avail
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.C, w.A, w.E, w.O, w.N, w.Avail} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: weights must be non-negative", ErrInvalidWeights)
		}
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidWeights, w.Sum())
	}
	return nil
}

// HeuristicOption applies a configuration option to the HeuristicScorer.
type HeuristicOption func(*HeuristicScorer)

// WithWeights replaces the default weights. Invalid sets are ignored.
func WithWeights(w Weights) HeuristicOption {
	return func(s *HeuristicScorer) {
		if w.Validate() == nil {
			s.weights = w
		}
	}
}

// HeuristicScorer is the closed-form compatibility score, bounded to [0,1].
type HeuristicScorer struct {
	weights Weights
}

// NewHeuristicScorer creates a heuristic scorer with configuration options.
func NewHeuristicScorer(opts ...HeuristicOption) *HeuristicScorer {
	s := &HeuristicScorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements Scorer.
func (s *HeuristicScorer) Kind() Kind { return KindHeuristic }

// Weights returns the active weights.
func (s *HeuristicScorer) Weights() Weights { return s.weights }

// Score implements Scorer. It never fails.
func (s *HeuristicScorer) Score(_ context.Context, a, b model.Person) (float64, error) {
	return s.Pair(a, b), nil
}

// Pair is the pure pairwise score.
func (s *HeuristicScorer) Pair(a, b model.Person) float64 {
	return s.pair(a, b, features.ParseAvailability(a.Availability), features.ParseAvailability(b.Availability))
}

func (s *HeuristicScorer) pair(a, b model.Person, slotsA, slotsB features.TokenSet) float64 {
	w := s.weights
	score := w.C*similarity(a.C, b.C) +
		w.A*similarity(a.A, b.A) +
		w.E*similarity(a.E, b.E) +
		w.O*similarity(a.O, b.O) +
		w.N*(1-((a.N+b.N)/2)/traitScale) +
		w.Avail*features.Jaccard(slotsA, slotsB)
	return clamp01(score)
}

// Matrix implements Scorer. Availability is parsed once per person.
func (s *HeuristicScorer) Matrix(ctx context.Context, people []model.Person) (*Matrix, error) {
	slots := make([]features.TokenSet, len(people))
	for i, p := range people {
		slots[i] = features.ParseAvailability(p.Availability)
	}
	m := NewMatrix(len(people))
	for i := range people {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}
		for j := i + 1; j < len(people); j++ {
			m.Set(i, j, s.pair(people[i], people[j], slots[i], slots[j]))
		}
	}
	return m, nil
}

func similarity(x, y float64) float64 {
	return 1 - math.Abs(x-y)/traitScale
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
