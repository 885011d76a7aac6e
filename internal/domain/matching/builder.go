package matching

import (
	"math"
	"sort"

	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/scoring"
)

// Builder is the deterministic greedy team constructor.
type Builder struct {
	size int
	req  model.RoleRequirement
}

// NewBuilder creates a builder for teams of the given target size.
func NewBuilder(size int, req model.RoleRequirement) *Builder {
	return &Builder{size: size, req: req}
}

// Build partitions people into teams of at most the target size. m must be
// the compatibility matrix of people. A population smaller than the target
// size yields a single team with everyone in input order.
func (b *Builder) Build(people []model.Person, m *scoring.Matrix) []model.Team {
	n := len(people)
	if n == 0 {
		return nil
	}
	if n < b.size {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return []model.Team{{Members: all}}
	}

	remaining := PriorityOrder(people)
	teams := make([]model.Team, 0, (n+b.size-1)/b.size)
	for len(remaining) > 0 {
		members := make([]int, 1, b.size)
		members[0] = remaining[0]
		remaining = remaining[1:]

		for len(members) < b.size && len(remaining) > 0 {
			pick := b.bestCandidate(people, m, members, remaining)
			members = append(members, remaining[pick])
			remaining = append(remaining[:pick], remaining[pick+1:]...)
		}
		teams = append(teams, model.Team{Members: members})
	}
	return teams
}

// bestCandidate returns the position in remaining of the candidate with the
// strictly greatest marginal gain; the first one wins ties.
func (b *Builder) bestCandidate(people []model.Person, m *scoring.Matrix, members, remaining []int) int {
	before := CoverageBonus(people, members, b.req)
	trial := make([]int, len(members)+1)
	copy(trial, members)

	best, bestGain := 0, math.Inf(-1)
	for i, cand := range remaining {
		trial[len(members)] = cand
		gain := m.AveragePairwise(trial) + CoverageBonus(people, trial, b.req) - before
		if gain > bestGain {
			best, bestGain = i, gain
		}
	}
	return best
}

// PriorityOrder returns person indices ordered PM first, then by descending
// conscientiousness, ties kept in input order.
func PriorityOrder(people []model.Person) []int {
	order := make([]int, len(people))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := people[order[x]], people[order[y]]
		aPM, bPM := a.Role == model.RolePM, b.Role == model.RolePM
		if aPM != bPM {
			return aPM
		}
		return a.C > b.C
	})
	return order
}
