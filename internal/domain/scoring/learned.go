package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/nexeed/teamforge/internal/domain/features"
	"github.com/nexeed/teamforge/internal/domain/model"
)

// LearnedScorer delegates to an external predictor. Its scores are raw
// regression values and are not bounded to [0,1].
type LearnedScorer struct {
	predictor Predictor
}

// NewLearnedScorer wraps p. A nil predictor yields a scorer that always
// reports ErrPredictorNotReady.
func NewLearnedScorer(p Predictor) *LearnedScorer {
	return &LearnedScorer{predictor: p}
}

// Kind implements Scorer.
func (s *LearnedScorer) Kind() Kind { return KindLearned }

// Ready reports whether a predictor is attached.
func (s *LearnedScorer) Ready() bool { return s != nil && s.predictor != nil }

// Score implements Scorer with a one-element batch.
func (s *LearnedScorer) Score(ctx context.Context, a, b model.Person) (float64, error) {
	out, err := s.predict(ctx, [][]float64{features.Pair(features.Extract(a), features.Extract(b))})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Matrix implements Scorer with a single predictor call for all pairs.
func (s *LearnedScorer) Matrix(ctx context.Context, people []model.Person) (*Matrix, error) {
	m := NewMatrix(len(people))
	if len(people) < 2 {
		if !s.Ready() {
			return nil, ErrPredictorNotReady
		}
		return m, nil
	}
	vecs := features.ExtractAll(people)
	type pair struct{ i, j int }
	pairs := make([]pair, 0, len(people)*(len(people)-1)/2)
	batch := make([][]float64, 0, cap(pairs))
	for i := range vecs {
		for j := i + 1; j < len(vecs); j++ {
			pairs = append(pairs, pair{i, j})
			batch = append(batch, features.Pair(vecs[i], vecs[j]))
		}
	}
	out, err := s.predict(ctx, batch)
	if err != nil {
		return nil, err
	}
	for k, p := range pairs {
		m.Set(p.i, p.j, out[k])
	}
	return m, nil
}

func (s *LearnedScorer) predict(ctx context.Context, batch [][]float64) ([]float64, error) {
	if !s.Ready() {
		return nil, ErrPredictorNotReady
	}
	out, err := s.predictor.Predict(ctx, batch)
	if err != nil {
		if errors.Is(err, ErrPredictorNotReady) {
			return nil, err
		}
		return nil, fmt.Errorf("predict %d pairs: %w", len(batch), err)
	}
	if len(out) != len(batch) {
		return nil, fmt.Errorf("%w: got %d predictions for %d pairs", ErrPredictorContract, len(out), len(batch))
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: prediction %d is not finite", ErrPredictorContract, i)
		}
	}
	return out, nil
}
