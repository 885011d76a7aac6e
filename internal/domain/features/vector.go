package features

import (
	"math"

	"github.com/nexeed/teamforge/internal/domain/model"
)

// Vector layout.
const (
	TraitDims = 5
	RoleDims  = model.RoleCount
	Width     = TraitDims + RoleDims + SlotCount

	// PairWidth is the width of a concatenated pair vector: a, b, |a-b|, a+b.
	PairWidth = 4 * Width
)

// Extract maps a person to its feature vector: traits, role one-hot, availability bitmap.
func Extract(p model.Person) []float64 {
	v := make([]float64, Width)
	traits := p.Traits()
	copy(v, traits[:])
	v[TraitDims+int(p.Role.Normalize())] = 1
	slots := ParseAvailability(p.Availability)
	for i := 0; i < SlotCount; i++ {
		if slots.Has(i) {
			v[TraitDims+RoleDims+i] = 1
		}
	}
	return v
}

// ExtractAll maps every person in order.
func ExtractAll(people []model.Person) [][]float64 {
	out := make([][]float64, len(people))
	for i, p := range people {
		out[i] = Extract(p)
	}
	return out
}

// Pair builds the predictor input for two feature vectors of equal width.
func Pair(a, b []float64) []float64 {
	n := len(a)
	out := make([]float64, 4*n)
	copy(out, a)
	copy(out[n:], b)
	for i := 0; i < n; i++ {
		out[2*n+i] = math.Abs(a[i] - b[i])
		out[3*n+i] = a[i] + b[i]
	}
	return out
}
