// Package scoring defines the pairwise compatibility contract and its two variants.
package scoring

import (
	"context"

	"github.com/nexeed/teamforge/internal/domain/model"
)

// Kind names a scorer variant.
type Kind string

// Scorer variants.
const (
	KindHeuristic Kind = "heuristic"
	KindLearned   Kind = "learned"
)

// Scorer computes pairwise compatibility. Implementations are immutable once
// constructed and safe to share across concurrent runs.
type Scorer interface {
	// Kind identifies the variant.
	Kind() Kind
	// Score returns the compatibility of a and b. Score(a, b) == Score(b, a).
	Score(ctx context.Context, a, b model.Person) (float64, error)
	// Matrix scores every pair of people.
	Matrix(ctx context.Context, people []model.Person) (*Matrix, error)
}

// Predictor is the external batch regression collaborator behind the learned scorer.
// The output has the same order and length as the input.
type Predictor interface {
	Predict(ctx context.Context, batch [][]float64) ([]float64, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, batch [][]float64) ([]float64, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, batch [][]float64) ([]float64, error) {
	return f(ctx, batch)
}
