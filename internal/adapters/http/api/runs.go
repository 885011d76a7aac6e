package api

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/nexeed/teamforge/internal/adapters/repository"
)

// RunsHandler serves finished runs.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandleGetRun handles GET /runs/{id}.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	run, err := h.deps.Run(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newMatchResponse(run))
}

// HandleGetRecords handles GET /runs/{id}/records and returns the team
// records as CSV.
func (h *RunsHandler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run_records"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	rows, err := h.deps.Records(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	var buf bytes.Buffer
	if err := repository.WriteCSV(&buf, rows); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
