// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/glicko/internal/app"
	"github.com/okian/glicko/internal/adapters/repository"
	"github.com/okian/glicko/internal/domain/glicko"
	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/internal/domain/period"
	"github.com/okian/glicko/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CompetitorDependencies
	MatchDependencies
	LeaderboardDependencies
	PredictDependencies
	RecalculateDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	competitorsHandler *CompetitorsHandler
	matchesHandler     *MatchesHandler
	leaderboardHandler *LeaderboardHandler
	predictHandler     *PredictHandler
	recalculateHandler *RecalculateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		competitorsHandler: NewCompetitorsHandler(deps),
		matchesHandler:     NewMatchesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
		predictHandler:     NewPredictHandler(deps),
		recalculateHandler: NewRecalculateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/competitors", MetricsMiddleware(s.competitorsHandler.HandlePostCompetitor, "competitors"))
	mux.HandleFunc("/competitors/", MetricsMiddleware(s.competitorsHandler.HandleGetCompetitor, "competitor"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchesHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/recalculate", MetricsMiddleware(s.recalculateHandler.HandleRecalculate, "recalculate"))
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

// writeFailure translates an upstream error into a status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, period.ErrInvalidMatch),
		errors.Is(err, service.ErrInvalidCompetitor):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, glicko.ErrInvalidInput),
		errors.Is(err, glicko.ErrDegenerateInput),
		errors.Is(err, service.ErrUnknownCompetitor):
		writeError(w, http.StatusUnprocessableEntity, "unprocessable", err)
	case errors.Is(err, glicko.ErrNonConvergence):
		writeError(w, http.StatusInternalServerError, "non_convergence", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// competitorResponse is the public shape of a competitor record.
type competitorResponse struct {
	ID              string  `json:"id"`
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
}

func toCompetitorResponse(c model.Competitor) competitorResponse {
	return competitorResponse{
		ID:              c.ID,
		Rating:          c.Rating,
		RatingDeviation: c.RatingDeviation,
		Volatility:      c.Volatility,
	}
}
