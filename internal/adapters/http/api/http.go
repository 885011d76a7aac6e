// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexeed/teamforge/internal/adapters/repository"
	service "github.com/nexeed/teamforge/internal/app"
	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/scoring"
	"github.com/nexeed/teamforge/pkg/metrics"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Match forms teams with the given scorer.
	Match(ctx context.Context, req model.Request, kind scoring.Kind) (*service.Run, error)

	// Run and Records read finished runs.
	Run(ctx context.Context, id string) (*service.Run, error)
	Records(ctx context.Context, id string) ([]repository.Row, error)
}

// Server wires HTTP routes for the matching API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	matchHandler  *MatchHandler
	runsHandler   *RunsHandler

	apiKey string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAPIKey requires key in the X-API-Key header of matching and run routes.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) { s.apiKey = key }
}

// WithDefaults sets the values used when a request omits team_size.
func WithDefaults(teamSize int) ServerOption {
	return func(s *Server) {
		if teamSize >= model.MinTeamSize {
			s.matchHandler.defaultTeamSize = teamSize
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		matchHandler:  NewMatchHandler(deps),
		runsHandler:   NewRunsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return APIKeyMiddleware(next, s.apiKey)
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /match/run", MetricsMiddleware(guard(s.matchHandler.HandleRun), "match_run"))
	mux.HandleFunc("POST /match/run_learned", MetricsMiddleware(guard(s.matchHandler.HandleRunLearned), "match_run_learned"))
	mux.HandleFunc("GET /runs/{id}", MetricsMiddleware(guard(s.runsHandler.HandleGetRun), "runs"))
	mux.HandleFunc("GET /runs/{id}/records", MetricsMiddleware(guard(s.runsHandler.HandleGetRecords), "run_records"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err to a status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrRunNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, scoring.ErrPredictorNotReady):
		return http.StatusServiceUnavailable, "predictor_not_ready"
	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
