// Package cohort generates synthetic student populations and reads and
// writes cohort files in the shape of a match request body.
package cohort

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/nexeed/teamforge/internal/domain/model"
)

// Trait generation ranges.
const (
	traitSpread   = 1.5
	traitDecimals = 10
)

// profile is a personality archetype; traits scatter around its center.
type profile struct {
	name   string
	center [5]float64 // O, C, E, A, N
}

var profiles = []profile{
	{name: "steady", center: [5]float64{4.5, 8.0, 4.0, 6.5, 3.0}},
	{name: "creative", center: [5]float64{8.5, 4.5, 6.0, 5.5, 5.0}},
	{name: "social", center: [5]float64{6.0, 5.5, 8.5, 7.5, 4.0}},
	{name: "anxious", center: [5]float64{5.0, 6.0, 3.5, 5.0, 7.5}},
	{name: "balanced", center: [5]float64{5.5, 5.5, 5.5, 5.5, 5.0}},
}

// roleWeights sums to 100 and follows the order of model.Roles().
var roleWeights = [model.RoleCount]int{15, 25, 25, 15, 20}

var availabilities = []string{
	"weekdays 9-18",
	"weekdays 10-19",
	"weekdays 14-22",
	"MonEve;WedEve",
	"TueEve;ThuEve;SatMorn",
	"MonMorn;TueMorn;WedMorn",
	"SatMorn;SunMorn;SunEve",
	"FriEve;SatEve",
	"",
}

var (
	firstNames = []string{"Ada", "Ben", "Chloe", "Dev", "Elif", "Farid", "Grace", "Hiro", "Ines", "Jae", "Kofi", "Lena", "Mateo", "Nia", "Omar", "Priya"}
	majors     = []string{"Computer Science", "Design", "Business", "Electrical Engineering", "Mathematics", "Psychology"}
)

// Generator produces reproducible synthetic students.
type Generator struct {
	rng      *rand.Rand
	idPrefix string
}

// NewGenerator creates a generator. Without WithSeed the seed is 1.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{rng: rand.New(rand.NewSource(1))}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns n students. The same seed yields the same cohort.
func (g *Generator) Generate(n int) []model.Person {
	if n <= 0 {
		return nil
	}
	people := make([]model.Person, n)
	for i := range people {
		p := profiles[g.rng.Intn(len(profiles))]
		var traits [5]float64
		for t := range traits {
			traits[t] = g.trait(p.center[t])
		}
		people[i] = model.Person{
			ID:           g.id(i),
			Name:         fmt.Sprintf("%s %c.", firstNames[g.rng.Intn(len(firstNames))], 'A'+rune(g.rng.Intn(26))),
			Major:        majors[g.rng.Intn(len(majors))],
			Role:         g.role(),
			Availability: availabilities[g.rng.Intn(len(availabilities))],
			O:            traits[0],
			C:            traits[1],
			E:            traits[2],
			A:            traits[3],
			N:            traits[4],
		}
	}
	return people
}

func (g *Generator) id(i int) string {
	if g.idPrefix != "" {
		return fmt.Sprintf("%s%03d", g.idPrefix, i+1)
	}
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *Generator) trait(center float64) float64 {
	v := center + g.rng.NormFloat64()*traitSpread
	v = math.Max(model.TraitMin, math.Min(model.TraitMax, v))
	return math.Round(v*traitDecimals) / traitDecimals
}

func (g *Generator) role() model.Role {
	n := g.rng.Intn(100)
	for r, w := range roleWeights {
		if n < w {
			return model.Role(r)
		}
		n -= w
	}
	return model.RoleAny
}
