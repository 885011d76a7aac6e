package cohort

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nexeed/teamforge/internal/domain/model"
)

// Student is one student in a cohort file.
type Student struct {
	StudentID    string   `json:"student_id"`
	Name         string   `json:"name,omitempty"`
	Major        string   `json:"major,omitempty"`
	RolePref     string   `json:"role_pref,omitempty"`
	Availability string   `json:"availability,omitempty"`
	O            *float64 `json:"O"`
	C            *float64 `json:"C"`
	E            *float64 `json:"E"`
	A            *float64 `json:"A"`
	N            *float64 `json:"N"`
}

// File is a cohort on disk. It can be posted to /match/run as is.
type File struct {
	TeamSize      *int           `json:"team_size,omitempty"`
	RequiredRoles map[string]int `json:"required_roles,omitempty"`
	Students      []Student      `json:"students"`
}

// NewFile wraps people in a cohort file.
func NewFile(people []model.Person, teamSize int, req model.RoleRequirement) File {
	f := File{TeamSize: &teamSize, RequiredRoles: req.Map(), Students: make([]Student, len(people))}
	for i, p := range people {
		o, c, e, a, n := p.O, p.C, p.E, p.A, p.N
		f.Students[i] = Student{
			StudentID:    p.ID,
			Name:         p.Name,
			Major:        p.Major,
			RolePref:     p.Role.String(),
			Availability: p.Availability,
			O:            &o,
			C:            &c,
			E:            &e,
			A:            &a,
			N:            &n,
		}
	}
	return f
}

// Request converts the file into a matching request. Missing team size and
// roles take the given defaults; missing traits are rejected.
func (f File) Request(defaultTeamSize int) (model.Request, error) {
	req := model.Request{TeamSize: defaultTeamSize, Required: model.DefaultRequirement()}
	if f.TeamSize != nil {
		req.TeamSize = *f.TeamSize
	}
	if f.RequiredRoles != nil {
		parsed, err := model.ParseRequirement(f.RequiredRoles)
		if err != nil {
			return req, err
		}
		req.Required = parsed
	}
	req.People = make([]model.Person, len(f.Students))
	for i, s := range f.Students {
		traits, err := model.RequireTraits(s.StudentID, s.O, s.C, s.E, s.A, s.N)
		if err != nil {
			return req, err
		}
		req.People[i] = model.Person{
			ID:           s.StudentID,
			Name:         s.Name,
			Major:        s.Major,
			Role:         model.ParseRole(s.RolePref),
			Availability: s.Availability,
			O:            traits[0],
			C:            traits[1],
			E:            traits[2],
			A:            traits[3],
			N:            traits[4],
		}
	}
	return req, nil
}

// Write encodes f as indented JSON.
func Write(w io.Writer, f File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode cohort: %w", err)
	}
	return nil
}

// Read decodes a cohort file.
func Read(r io.Reader) (File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return f, fmt.Errorf("decode cohort: %w", err)
	}
	return f, nil
}
