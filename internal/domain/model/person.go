package model

import (
	"fmt"
	"math"
	"strings"
)

// Trait bounds on the engine scale.
const (
	TraitMin = 0.0
	TraitMax = 10.0
)

// Team size bounds. DefaultTeamSize applies when a request omits team_size.
const (
	MinTeamSize     = 2
	DefaultTeamSize = 4
)

// Person is one participant of a matching run. Persons are never mutated by the engine.
type Person struct {
	ID    string
	Name  string
	Major string
	Role  Role
	// Availability is either "weekdays H1-H2" or a ';'-separated token list.
	Availability string

	O float64
	C float64
	E float64
	A float64
	N float64
}

// Traits returns the OCEAN scores in feature order.
func (p Person) Traits() [5]float64 {
	return [5]float64{p.O, p.C, p.E, p.A, p.N}
}

// Team is an ordered list of member indices into the run population.
type Team struct {
	Members []int
}

// Len returns the member count.
func (t Team) Len() int { return len(t.Members) }

// Clone returns a deep copy.
func (t Team) Clone() Team {
	return Team{Members: append([]int(nil), t.Members...)}
}

// Request is one matching run.
type Request struct {
	TeamSize int
	Required RoleRequirement
	People   []Person
}

// Validate rejects malformed requests before any matching work starts.
func (r Request) Validate() error {
	if r.TeamSize < MinTeamSize {
		return fmt.Errorf("%w: team_size must be >= %d", ErrInvalidRequest, MinTeamSize)
	}
	for role, count := range r.Required {
		if count < 0 {
			return fmt.Errorf("%w: negative count for role %s", ErrInvalidRequest, Role(role))
		}
	}
	seen := make(map[string]struct{}, len(r.People))
	for i, p := range r.People {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("%w: person %d is missing an id", ErrInvalidRequest, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate person id %q", ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
		for t, v := range p.Traits() {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < TraitMin || v > TraitMax {
				return fmt.Errorf("%w: person %q trait %s=%v out of range [%g,%g]",
					ErrInvalidRequest, id, traitNames[t], v, TraitMin, TraitMax)
			}
		}
	}
	return nil
}

var traitNames = [5]string{"O", "C", "E", "A", "N"}

// RequireTraits returns the OCEAN scores of a decoded person whose trait
// fields may be absent. A missing trait is an invalid request.
func RequireTraits(id string, o, c, e, a, n *float64) ([5]float64, error) {
	var out [5]float64
	for t, v := range [5]*float64{o, c, e, a, n} {
		if v == nil {
			return out, fmt.Errorf("%w: person %q is missing trait %s", ErrInvalidRequest, id, traitNames[t])
		}
		out[t] = *v
	}
	return out, nil
}
