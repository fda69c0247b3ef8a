package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/glicko/internal/domain/model"
)

// MatchDependencies defines the interface for match intake.
type MatchDependencies interface {
	// SubmitMatch queues a match; duplicate reports an already accepted ID.
	SubmitMatch(ctx context.Context, m model.Match) (accepted model.Match, duplicate bool, err error)
}

// MatchesHandler handles match requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// matchRequest is the body of POST /matches.
type matchRequest struct {
	MatchID   string   `json:"match_id"`
	HomeID    string   `json:"home_id"`
	AwayID    string   `json:"away_id"`
	HomeScore *float64 `json:"home_score"`
	PlayedAt  string   `json:"played_at"`
}

func (m matchRequest) validate() error {
	switch {
	case strings.TrimSpace(m.HomeID) == "":
		return errors.New("missing home_id")
	case strings.TrimSpace(m.AwayID) == "":
		return errors.New("missing away_id")
	case m.HomeScore == nil:
		return errors.New("missing home_score")
	case !model.ValidScore(*m.HomeScore):
		return fmt.Errorf("home_score must be 0, 0.5 or 1, got %v", *m.HomeScore)
	}
	if m.PlayedAt != "" {
		if _, err := time.Parse(time.RFC3339, m.PlayedAt); err != nil {
			return errors.New("invalid played_at; must be RFC3339")
		}
	}
	return nil
}

func (m matchRequest) toMatch() model.Match {
	out := model.Match{
		ID:        m.MatchID,
		HomeID:    m.HomeID,
		AwayID:    m.AwayID,
		HomeScore: *m.HomeScore,
	}
	if m.PlayedAt != "" {
		out.PlayedAt, _ = time.Parse(time.RFC3339, m.PlayedAt)
	}
	return out
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	MatchID   string `json:"match_id"`
}

// HandlePostMatch handles POST /matches requests.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_match"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	m, duplicate, err := h.deps.SubmitMatch(r.Context(), req.toMatch())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, MatchID: m.ID})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", MatchID: m.ID})
}
