package matching

import (
	"math"

	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/scoring"
)

// Default balancer parameters.
const (
	defaultMaxIterations  = 50
	defaultSpreadTarget   = 0.05
	defaultMinImprovement = 0.01
)

// BalanceStats describes how a balancer run ended.
type BalanceStats struct {
	// Iterations counts loop passes that computed team scores.
	Iterations int
	// Swaps counts applied member exchanges.
	Swaps int
	// Converged is true when the spread fell below the target.
	Converged bool
	// FinalSpread is max(score) - min(score) after the last pass.
	FinalSpread float64
}

// BalancerOption applies a configuration option to the Balancer.
type BalancerOption func(*Balancer)

// WithMaxIterations caps the number of balancing passes.
func WithMaxIterations(n int) BalancerOption {
	return func(b *Balancer) {
		if n > 0 {
			b.maxIterations = n
		}
	}
}

// WithSpreadTarget sets the spread below which balancing stops.
func WithSpreadTarget(spread float64) BalancerOption {
	return func(b *Balancer) {
		if spread > 0 {
			b.spreadTarget = spread
		}
	}
}

// WithMinImprovement sets the smallest spread reduction worth a swap.
func WithMinImprovement(delta float64) BalancerOption {
	return func(b *Balancer) {
		if delta > 0 {
			b.minImprovement = delta
		}
	}
}

// Balancer narrows the score spread between teams by swapping members with
// identical role preferences. It is a bounded heuristic: the iteration cap
// guarantees termination, not a global optimum.
type Balancer struct {
	req            model.RoleRequirement
	maxIterations  int
	spreadTarget   float64
	minImprovement float64
}

// NewBalancer creates a balancer scoring teams against req.
func NewBalancer(req model.RoleRequirement, opts ...BalancerOption) *Balancer {
	b := &Balancer{
		req:            req,
		maxIterations:  defaultMaxIterations,
		spreadTarget:   defaultSpreadTarget,
		minImprovement: defaultMinImprovement,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Balance swaps members between teams in place. Team sizes and each team's
// role multiset never change.
func (b *Balancer) Balance(people []model.Person, m *scoring.Matrix, teams []model.Team) BalanceStats {
	var stats BalanceStats
	if len(teams) < 2 {
		stats.Converged = true
		return stats
	}

	scores := make([]float64, len(teams))
	swapped := false
	for stats.Iterations < b.maxIterations {
		stats.Iterations++
		swapped = false
		for i, t := range teams {
			scores[i] = Score(people, m, t.Members, b.req)
		}
		hi, lo := extremes(scores)
		stats.FinalSpread = scores[hi] - scores[lo]
		if stats.FinalSpread < b.spreadTarget {
			stats.Converged = true
			break
		}

		x, y, ok := b.bestSwap(people, m, teams[hi].Members, teams[lo].Members, scores[hi], scores[lo])
		if !ok {
			break
		}
		teams[hi].Members[x], teams[lo].Members[y] = teams[lo].Members[y], teams[hi].Members[x]
		stats.Swaps++
		swapped = true
	}
	// The cap was hit right after a swap; the recorded spread predates it.
	if swapped {
		stats.FinalSpread = spread(people, m, teams, b.req)
	}
	return stats
}

// bestSwap finds the same-role exchange between high and low with the greatest
// spread improvement. It reports false when nothing beats minImprovement.
func (b *Balancer) bestSwap(people []model.Person, m *scoring.Matrix, high, low []int, oldHigh, oldLow float64) (int, int, bool) {
	oldDiff := math.Abs(oldHigh - oldLow)
	trialHigh := append([]int(nil), high...)
	trialLow := append([]int(nil), low...)

	bestX, bestY, bestImprovement := -1, -1, 0.0
	for x, h := range high {
		for y, l := range low {
			if people[h].Role.Normalize() != people[l].Role.Normalize() {
				continue
			}
			trialHigh[x], trialLow[y] = l, h
			newDiff := math.Abs(Score(people, m, trialHigh, b.req) - Score(people, m, trialLow, b.req))
			trialHigh[x], trialLow[y] = h, l

			if improvement := oldDiff - newDiff; improvement > bestImprovement {
				bestX, bestY, bestImprovement = x, y, improvement
			}
		}
	}
	if bestX < 0 || bestImprovement <= b.minImprovement {
		return 0, 0, false
	}
	return bestX, bestY, true
}

// extremes returns the first index of the maximum and of the minimum.
func extremes(scores []float64) (hi, lo int) {
	for i, s := range scores {
		if s > scores[hi] {
			hi = i
		}
		if s < scores[lo] {
			lo = i
		}
	}
	return hi, lo
}

func spread(people []model.Person, m *scoring.Matrix, teams []model.Team, req model.RoleRequirement) float64 {
	scores := make([]float64, len(teams))
	for i, t := range teams {
		scores[i] = Score(people, m, t.Members, req)
	}
	hi, lo := extremes(scores)
	return scores[hi] - scores[lo]
}
