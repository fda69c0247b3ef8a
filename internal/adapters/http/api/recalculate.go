package api

import (
	"context"
	"net/http"
	"time"

	service "github.com/okian/glicko/internal/app"
)

// RecalculateDependencies defines the interface for closing a rating period.
type RecalculateDependencies interface {
	Authorize(key string) bool
	Recalculate(ctx context.Context) (service.Summary, error)
}

// RecalculateHandler handles recalculation requests.
type RecalculateHandler struct {
	deps RecalculateDependencies
}

// NewRecalculateHandler creates a new recalculate handler.
func NewRecalculateHandler(deps RecalculateDependencies) *RecalculateHandler {
	return &RecalculateHandler{deps: deps}
}

type summaryResponse struct {
	RunID       string    `json:"run_id"`
	Competitors int       `json:"competitors"`
	Matches     int       `json:"matches"`
	Idle        int       `json:"idle"`
	DurationMs  float64   `json:"duration_ms"`
	FinishedAt  time.Time `json:"finished_at"`
}

// HandleRecalculate handles POST /recalculate requests. The key is read
// from the X-API-Key header, falling back to the key query parameter.
func (h *RecalculateHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.recalculate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	key := r.Header.Get("X-API-Key")
	if key == "" {
		key = r.URL.Query().Get("key")
	}
	if !h.deps.Authorize(key) {
		writeFailure(w, NewKind(op, ErrUnauthorized))
		return
	}

	summary, err := h.deps.Recalculate(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		RunID:       summary.RunID,
		Competitors: summary.Competitors,
		Matches:     summary.Matches,
		Idle:        summary.Idle,
		DurationMs:  float64(summary.Duration.Microseconds()) / 1000,
		FinishedAt:  summary.FinishedAt,
	})
}
