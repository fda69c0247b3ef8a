package api

import (
	"context"
	"net/http"
)

// PredictDependencies defines the interface for outcome predictions.
type PredictDependencies interface {
	Predict(ctx context.Context, a, b string) (float64, error)
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

type predictResponse struct {
	A             string  `json:"a"`
	B             string  `json:"b"`
	ExpectedScore float64 `json:"expected_score"`
}

// HandlePredict handles GET /predict?a=ID&b=ID requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.Predict(r.Context(), a, b)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{A: a, B: b, ExpectedScore: p})
}
