package scoring

// Diagonal is the fixed self-compatibility value. It is never aggregated.
const Diagonal = 1.0

// Matrix is a symmetric n×n table of pairwise scores.
type Matrix struct {
	n    int
	data []float64
}

// NewMatrix allocates an n×n matrix with the diagonal set.
func NewMatrix(n int) *Matrix {
	m := &Matrix{n: n, data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = Diagonal
	}
	return m
}

// Size returns n.
func (m *Matrix) Size() int { return m.n }

// At returns the score of pair (i, j).
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

// Set stores v for both (i, j) and (j, i). Diagonal writes are ignored.
func (m *Matrix) Set(i, j int, v float64) {
	if i == j {
		return
	}
	m.data[i*m.n+j] = v
	m.data[j*m.n+i] = v
}

// Symmetric reports whether every (i, j) equals (j, i).
func (m *Matrix) Symmetric() bool {
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if m.At(i, j) != m.At(j, i) {
				return false
			}
		}
	}
	return true
}

// AveragePairwise averages the scores over all internal pairs of members.
// Teams with fewer than two members score 0.
func (m *Matrix) AveragePairwise(members []int) float64 {
	if len(members) < 2 {
		return 0
	}
	sum, pairs := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += m.At(members[i], members[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}
