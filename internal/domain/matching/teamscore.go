// Package matching forms teams in two phases: a greedy builder followed by a
// bounded balancer. Both work on a precomputed compatibility matrix.
package matching

import (
	"math"

	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/scoring"
)

// MaxCoverageBonus is the bonus awarded to a team that meets every requirement.
const MaxCoverageBonus = 0.1

// CoverageBonus rewards a team for meeting required role headcounts. The result is in [0, 0.1].
func CoverageBonus(people []model.Person, members []int, req model.RoleRequirement) float64 {
	var counts [model.RoleCount]int
	for _, idx := range members {
		counts[people[idx].Role.Normalize()]++
	}
	met, need := 0, 0
	for role, required := range req {
		if required <= 0 {
			continue
		}
		need += required
		met += min(counts[role], required)
	}
	return MaxCoverageBonus * float64(met) / float64(max(1, need))
}

// RawScore is the unrounded team score: average pairwise compatibility plus coverage bonus.
func RawScore(people []model.Person, m *scoring.Matrix, members []int, req model.RoleRequirement) float64 {
	return m.AveragePairwise(members) + CoverageBonus(people, members, req)
}

// Score is the team score rounded to three decimals.
func Score(people []model.Person, m *scoring.Matrix, members []int, req model.RoleRequirement) float64 {
	return Round3(RawScore(people, m, members, req))
}

// Round3 rounds x to three decimal places.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
