package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// intervalWidth spans about 95% of the rating distribution in deviations.
const intervalWidth = 1.96

// leaderboardRow is one ranked competitor with the interval its rating is
// believed to lie in.
type leaderboardRow struct {
	Rank            int     `json:"rank"`
	CompetitorID    string  `json:"competitor_id"`
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
	RatingLow       float64 `json:"rating_low"`
	RatingHigh      float64 `json:"rating_high"`
}

type leaderboardResponse struct {
	Limit   int              `json:"limit"`
	Entries []leaderboardRow `json:"entries"`
}

func newLeaderboardResponse(limit int, entries []Entry) leaderboardResponse {
	rows := make([]leaderboardRow, len(entries))
	for i, e := range entries {
		spread := intervalWidth * e.RatingDeviation
		rows[i] = leaderboardRow{
			Rank:            e.Rank,
			CompetitorID:    e.CompetitorID,
			Rating:          e.Rating,
			RatingDeviation: e.RatingDeviation,
			Volatility:      e.Volatility,
			RatingLow:       e.Rating - spread,
			RatingHigh:      e.Rating + spread,
		}
	}
	return leaderboardResponse{Limit: limit, Entries: rows}
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	switch {
	case err != nil || limit < 1:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
		return
	case limit > h.maxLimit:
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			WrapKind(op, ErrBadRequest, fmt.Errorf("limit %d is above %d", limit, h.maxLimit)))
		return
	}

	entries, err := h.deps.TopN(r.Context(), limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newLeaderboardResponse(limit, entries))
}
