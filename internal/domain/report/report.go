// Package report renders finished teams into their response form.
package report

import (
	"strconv"

	"github.com/nexeed/teamforge/internal/domain/features"
	"github.com/nexeed/teamforge/internal/domain/matching"
	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/scoring"
)

// Member is a team member with the role they were placed under.
type Member struct {
	StudentID    string `json:"student_id"`
	RoleAssigned string `json:"role_assigned"`
}

// Team is the reported form of a finished team.
type Team struct {
	Score   float64  `json:"score"`
	Members []Member `json:"members"`
	Reasons []string `json:"reasons"`
}

// Option configures a report pass.
type Option func(*reporter)

// WithHeuristicComparison marks the run as learned and adds learned and
// heuristic team scores to the reasons. heuristic must be the heuristic
// matrix of the same population.
func WithHeuristicComparison(heuristic *scoring.Matrix) Option {
	return func(r *reporter) {
		r.heuristic = heuristic
	}
}

type reporter struct {
	heuristic *scoring.Matrix
}

// Build reports every team in order. It reads teams and never modifies them.
func Build(people []model.Person, teams []model.Team, m *scoring.Matrix, req model.RoleRequirement, opts ...Option) []Team {
	r := &reporter{}
	for _, opt := range opts {
		opt(r)
	}

	slots := make([]features.TokenSet, len(people))
	for i, p := range people {
		slots[i] = features.ParseAvailability(p.Availability)
	}

	out := make([]Team, 0, len(teams))
	for _, t := range teams {
		score := matching.Score(people, m, t.Members, req)
		members := make([]Member, 0, t.Len())
		for _, idx := range t.Members {
			members = append(members, Member{
				StudentID:    people[idx].ID,
				RoleAssigned: people[idx].Role.String(),
			})
		}

		reasons := make([]string, 0, 4)
		if r.heuristic != nil {
			reasons = append(reasons,
				"learned score="+format(score),
				"heuristic score="+format(matching.Score(people, r.heuristic, t.Members, req)),
			)
		}
		reasons = append(reasons,
			"mean C="+format(MeanConscientiousness(people, t.Members)),
			"mean availability overlap≈"+format(MeanOverlap(slots, t.Members)),
		)

		out = append(out, Team{Score: score, Members: members, Reasons: reasons})
	}
	return out
}

// MeanConscientiousness is the average C of the members, zero for an empty team.
func MeanConscientiousness(people []model.Person, members []int) float64 {
	if len(members) == 0 {
		return 0
	}
	sum := 0.0
	for _, idx := range members {
		sum += people[idx].C
	}
	return sum / float64(len(members))
}

// MeanOverlap is the average availability Jaccard over member pairs,
// divided by max(1, pair count).
func MeanOverlap(slots []features.TokenSet, members []int) float64 {
	sum := 0.0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += features.Jaccard(slots[members[i]], slots[members[j]])
		}
	}
	n := len(members)
	return sum / float64(max(1, n*(n-1)/2))
}

func format(x float64) string {
	return strconv.FormatFloat(matching.Round3(x), 'f', -1, 64)
}
