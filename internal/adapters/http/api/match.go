package api

import (
	"encoding/json"
	"net/http"

	service "github.com/nexeed/teamforge/internal/app"
	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/report"
	"github.com/nexeed/teamforge/internal/domain/scoring"
)

// maxBodyBytes bounds a match request body.
const maxBodyBytes = 8 << 20

// matchRequest mirrors the OpenAPI schema for POST /match/run.
// Both "students" and "people" are accepted for the population.
type matchRequest struct {
	TeamSize      *int           `json:"team_size"`
	RequiredRoles map[string]int `json:"required_roles"`
	Students      []studentDTO   `json:"students"`
	People        []studentDTO   `json:"people"`
}

type studentDTO struct {
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

// toModel fills defaults for absent team_size and required_roles and converts
// the body. Trait fields are required.
func (m matchRequest) toModel(defaultTeamSize int) (model.Request, error) {
	req := model.Request{TeamSize: defaultTeamSize, Required: model.DefaultRequirement()}
	if m.TeamSize != nil {
		req.TeamSize = *m.TeamSize
	}
	if m.RequiredRoles != nil {
		parsed, err := model.ParseRequirement(m.RequiredRoles)
		if err != nil {
			return req, err
		}
		req.Required = parsed
	}

	in := m.Students
	if len(in) == 0 {
		in = m.People
	}
	req.People = make([]model.Person, len(in))
	for i, s := range in {
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

type matchResponse struct {
	RunID    string        `json:"run_id"`
	Teams    []report.Team `json:"teams"`
	Replayed bool          `json:"replayed,omitempty"`
}

func newMatchResponse(run *service.Run) matchResponse {
	return matchResponse{RunID: run.ID, Teams: run.Teams, Replayed: run.Replayed}
}

// MatchHandler handles matching requests.
type MatchHandler struct {
	deps            Dependencies
	defaultTeamSize int
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps Dependencies) *MatchHandler {
	return &MatchHandler{deps: deps, defaultTeamSize: model.DefaultTeamSize}
}

// HandleRun handles POST /match/run with the heuristic scorer.
func (h *MatchHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "api.match_run", scoring.KindHeuristic)
}

// HandleRunLearned handles POST /match/run_learned with the learned scorer.
func (h *MatchHandler) HandleRunLearned(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "api.match_run_learned", scoring.KindLearned)
}

func (h *MatchHandler) handle(w http.ResponseWriter, r *http.Request, op string, kind scoring.Kind) {
	var body matchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	req, err := body.toModel(h.defaultTeamSize)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	run, err := h.deps.Match(r.Context(), req, kind)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newMatchResponse(run))
}
