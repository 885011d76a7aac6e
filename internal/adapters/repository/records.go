package repository

import (
	"github.com/nexeed/teamforge/internal/domain/model"
)

// DefaultOutcome is the performance and success value recorded for a freshly
// formed team that has no observed outcome yet.
const DefaultOutcome = 1.0

// Row is one (team, member) record of the persisted layout.
type Row struct {
	TeamID           string
	StudentID        string
	Name             string
	Major            string
	RolePref         string
	O, C, E, A, N    float64
	Availability     string
	PerformanceScore float64
	SuccessRate      float64
}

// TeamRecord is a team with its team-level outcome values.
type TeamRecord struct {
	TeamID           string
	Members          []model.Person
	PerformanceScore float64
	SuccessRate      float64
}

// Flatten turns team records into rows, one per member, in team order.
func Flatten(teams []TeamRecord) []Row {
	n := 0
	for _, t := range teams {
		n += len(t.Members)
	}
	rows := make([]Row, 0, n)
	for _, t := range teams {
		for _, p := range t.Members {
			rows = append(rows, Row{
				TeamID:           t.TeamID,
				StudentID:        p.ID,
				Name:             p.Name,
				Major:            p.Major,
				RolePref:         p.Role.String(),
				O:                p.O,
				C:                p.C,
				E:                p.E,
				A:                p.A,
				N:                p.N,
				Availability:     p.Availability,
				PerformanceScore: t.PerformanceScore,
				SuccessRate:      t.SuccessRate,
			})
		}
	}
	return rows
}

// GroupRows rebuilds team records from rows. Teams keep first-seen order and
// members keep row order; team-level values come from each team's first row.
func GroupRows(rows []Row) []TeamRecord {
	index := make(map[string]int)
	var teams []TeamRecord
	for _, r := range rows {
		i, ok := index[r.TeamID]
		if !ok {
			i = len(teams)
			index[r.TeamID] = i
			teams = append(teams, TeamRecord{
				TeamID:           r.TeamID,
				PerformanceScore: r.PerformanceScore,
				SuccessRate:      r.SuccessRate,
			})
		}
		teams[i].Members = append(teams[i].Members, model.Person{
			ID:           r.StudentID,
			Name:         r.Name,
			Major:        r.Major,
			Role:         model.ParseRole(r.RolePref),
			Availability: r.Availability,
			O:            r.O,
			C:            r.C,
			E:            r.E,
			A:            r.A,
			N:            r.N,
		})
	}
	return teams
}
