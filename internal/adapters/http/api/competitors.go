package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/glicko/internal/domain/model"
)

// CompetitorDependencies defines the interface for competitor operations.
type CompetitorDependencies interface {
	Register(ctx context.Context, id string, rating, ratingDeviation, volatility float64) (model.Competitor, error)
	Rank(ctx context.Context, id string) (Entry, error)
}

// CompetitorsHandler handles competitor requests.
type CompetitorsHandler struct {
	deps CompetitorDependencies
}

// NewCompetitorsHandler creates a new competitors handler.
func NewCompetitorsHandler(deps CompetitorDependencies) *CompetitorsHandler {
	return &CompetitorsHandler{deps: deps}
}

// competitorRequest is the body of POST /competitors. Omitted numbers take
// the configured defaults.
type competitorRequest struct {
	ID              string  `json:"id"`
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
}

// HandlePostCompetitor handles POST /competitors requests.
func (h *CompetitorsHandler) HandlePostCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_competitor"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req competitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing id")))
		return
	}

	c, err := h.deps.Register(r.Context(), req.ID, req.Rating, req.RatingDeviation, req.Volatility)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toCompetitorResponse(c))
}

// HandleGetCompetitor handles GET /competitors/{id} requests.
func (h *CompetitorsHandler) HandleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competitor"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/competitors/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.Rank(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
