package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/glicko/internal/adapters/http/api"
	"github.com/okian/glicko/internal/adapters/repository"
	service "github.com/okian/glicko/internal/app"
	"github.com/okian/glicko/internal/domain/glicko"
	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	competitors map[string]model.Competitor
	seen        map[string]bool
	submitted   []model.Match
	full        bool
	topN        []types.Entry
	recalcErr   error
	recalcCalls int
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		competitors: map[string]model.Competitor{},
		seen:        map[string]bool{},
	}
}

func (m *mockDependencies) Register(_ context.Context, id string, rating, rd, vol float64) (model.Competitor, error) {
	if _, ok := m.competitors[id]; ok {
		return model.Competitor{}, fmt.Errorf("%w: %s", repository.ErrAlreadyExists, id)
	}
	if rd < 0 || vol < 0 {
		return model.Competitor{}, service.ErrInvalidCompetitor
	}
	if rating == 0 {
		rating = 1500
	}
	c := model.NewCompetitor(id, rating, 350, 0.06)
	m.competitors[id] = c
	return c, nil
}

func (m *mockDependencies) Rank(_ context.Context, id string) (types.Entry, error) {
	c, ok := m.competitors[id]
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return types.Entry{Rank: 1, CompetitorID: c.ID, Rating: c.Rating, RatingDeviation: c.RatingDeviation, Volatility: c.Volatility}, nil
}

func (m *mockDependencies) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockDependencies) SubmitMatch(_ context.Context, match model.Match) (model.Match, bool, error) {
	if match.ID == "" {
		match.ID = "generated"
	}
	if m.seen[match.ID] {
		return match, true, nil
	}
	if m.full {
		return model.Match{}, false, service.ErrBackpressure
	}
	m.seen[match.ID] = true
	m.submitted = append(m.submitted, match)
	return match, false, nil
}

func (m *mockDependencies) Predict(_ context.Context, a, b string) (float64, error) {
	ca, ok := m.competitors[a]
	if !ok {
		return 0, repository.ErrNotFound
	}
	cb, ok := m.competitors[b]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return glicko.ExpectedScore(ca, cb), nil
}

func (m *mockDependencies) Authorize(key string) bool { return key == "secret" }

func (m *mockDependencies) Recalculate(_ context.Context) (service.Summary, error) {
	m.recalcCalls++
	if m.recalcErr != nil {
		return service.Summary{}, m.recalcErr
	}
	return service.Summary{RunID: "run-1", Competitors: 3, Matches: 2, Idle: 1, Duration: 1500 * time.Microsecond}, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	stats := &mockStatsProvider{stats: map[string]any{"started": true}}
	api.NewServer(deps, stats, 100).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	out := map[string]any{}
	So(json.NewDecoder(w.Body).Decode(&out), ShouldBeNil)
	return out
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths are not found", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodGet, "/matches", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/recalculate", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestCompetitorsHandler(t *testing.T) {
	Convey("Given the competitor routes", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When registering a new competitor", func() {
			w := do(mux, http.MethodPost, "/competitors", `{"id":"alice","rating":1600}`)

			Convey("Then it is created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				body := decode(w)
				So(body["id"], ShouldEqual, "alice")
				So(body["rating"], ShouldEqual, 1600.0)
			})

			Convey("And registering it again conflicts", func() {
				w := do(mux, http.MethodPost, "/competitors", `{"id":"alice"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "conflict")
			})

			Convey("And it can be read back", func() {
				w := do(mux, http.MethodGet, "/competitors/alice", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["competitor_id"], ShouldEqual, "alice")
				So(body["rank"], ShouldEqual, 1.0)
			})
		})

		Convey("When the request is malformed", func() {
			So(do(mux, http.MethodPost, "/competitors", `{bad`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/competitors", `{"id":"  "}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/competitors", `{"id":"bob","rating_deviation":-1}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading an unknown competitor", func() {
			w := do(mux, http.MethodGet, "/competitors/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the path is not a single id", func() {
			So(do(mux, http.MethodGet, "/competitors/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMatchesHandler(t *testing.T) {
	Convey("Given the match route", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		valid := `{"match_id":"m1","home_id":"a","away_id":"b","home_score":0.5,"played_at":"2024-03-01T12:00:00Z"}`

		Convey("When a valid match is posted", func() {
			w := do(mux, http.MethodPost, "/matches", valid)

			Convey("Then it is accepted and forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["match_id"], ShouldEqual, "m1")
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0].HomeScore, ShouldEqual, model.Draw)
				So(deps.submitted[0].PlayedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})

			Convey("And posting it again is reported as a duplicate", func() {
				w := do(mux, http.MethodPost, "/matches", valid)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When the match has no id", func() {
			w := do(mux, http.MethodPost, "/matches", `{"home_id":"a","away_id":"b","home_score":1}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(decode(w)["match_id"], ShouldEqual, "generated")
		})

		Convey("When required fields are missing or invalid", func() {
			for _, body := range []string{
				`{bad`,
				`{"away_id":"b","home_score":1}`,
				`{"home_id":"a","home_score":1}`,
				`{"home_id":"a","away_id":"b"}`,
				`{"home_id":"a","away_id":"b","home_score":0.3}`,
				`{"home_id":"a","away_id":"b","home_score":1,"played_at":"yesterday"}`,
			} {
				So(do(mux, http.MethodPost, "/matches", body).Code, ShouldEqual, http.StatusBadRequest)
			}
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the queue is full", func() {
			deps.full = true
			w := do(mux, http.MethodPost, "/matches", valid)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard with three entries", t, func() {
		deps := newMockDependencies()
		deps.topN = []types.Entry{
			{Rank: 1, CompetitorID: "c1", Rating: 1800, RatingDeviation: 50, Volatility: 0.06},
			{Rank: 2, CompetitorID: "c2", Rating: 1700, RatingDeviation: 100, Volatility: 0.06},
			{Rank: 3, CompetitorID: "c3", Rating: 1600, RatingDeviation: 350, Volatility: 0.06},
		}
		mux := newMux(deps)

		Convey("When requesting the top two", func() {
			w := do(mux, http.MethodGet, "/leaderboard?limit=2", "")

			Convey("Then two entries are returned in order with their rating interval", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Limit   int `json:"limit"`
					Entries []struct {
						Rank            int     `json:"rank"`
						CompetitorID    string  `json:"competitor_id"`
						Rating          float64 `json:"rating"`
						RatingDeviation float64 `json:"rating_deviation"`
						RatingLow       float64 `json:"rating_low"`
						RatingHigh      float64 `json:"rating_high"`
					} `json:"entries"`
				}
				So(json.NewDecoder(w.Body).Decode(&body), ShouldBeNil)
				So(body.Limit, ShouldEqual, 2)
				So(len(body.Entries), ShouldEqual, 2)
				So(body.Entries[0].CompetitorID, ShouldEqual, "c1")
				So(body.Entries[1].CompetitorID, ShouldEqual, "c2")
				So(body.Entries[1].Rank, ShouldEqual, 2)
				So(body.Entries[0].RatingLow, ShouldAlmostEqual, 1800-1.96*50, 1e-9)
				So(body.Entries[0].RatingHigh, ShouldAlmostEqual, 1800+1.96*50, 1e-9)
				So(body.Entries[1].RatingDeviation, ShouldEqual, 100.0)
			})
		})

		Convey("When the limit is invalid", func() {
			So(do(mux, http.MethodGet, "/leaderboard", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)

			w := do(mux, http.MethodGet, "/leaderboard?limit=101", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})
	})
}

func TestPredictHandler(t *testing.T) {
	Convey("Given two registered competitors", t, func() {
		deps := newMockDependencies()
		deps.competitors["strong"] = model.NewCompetitor("strong", 1800, 50, 0.06)
		deps.competitors["weak"] = model.NewCompetitor("weak", 1400, 50, 0.06)
		mux := newMux(deps)

		Convey("When predicting strong against weak", func() {
			w := do(mux, http.MethodGet, "/predict?a=strong&b=weak", "")

			Convey("Then the strong side is favoured", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["a"], ShouldEqual, "strong")
				So(body["b"], ShouldEqual, "weak")
				So(body["expected_score"], ShouldBeGreaterThan, 0.5)
			})
		})

		Convey("When a side is missing or unknown", func() {
			So(do(mux, http.MethodGet, "/predict?a=strong", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/predict?a=strong&b=ghost", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRecalculateHandler(t *testing.T) {
	Convey("Given the recalculation route", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When the key is wrong or missing", func() {
			So(do(mux, http.MethodPost, "/recalculate", "").Code, ShouldEqual, http.StatusUnauthorized)
			So(do(mux, http.MethodPost, "/recalculate?key=nope", "").Code, ShouldEqual, http.StatusUnauthorized)
			So(deps.recalcCalls, ShouldEqual, 0)
		})

		Convey("When the key is passed as a query parameter", func() {
			w := do(mux, http.MethodPost, "/recalculate?key=secret", "")

			Convey("Then the summary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["run_id"], ShouldEqual, "run-1")
				So(body["competitors"], ShouldEqual, 3.0)
				So(body["matches"], ShouldEqual, 2.0)
				So(body["idle"], ShouldEqual, 1.0)
				So(body["duration_ms"], ShouldEqual, 1.5)
			})
		})

		Convey("When the key is passed as a header", func() {
			req := httptest.NewRequest(http.MethodPost, "/recalculate", nil)
			req.Header.Set("X-API-Key", "secret")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the engine fails", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{glicko.ErrInvalidInput, http.StatusUnprocessableEntity, "unprocessable"},
				{glicko.ErrDegenerateInput, http.StatusUnprocessableEntity, "unprocessable"},
				{glicko.ErrNonConvergence, http.StatusInternalServerError, "non_convergence"},
			}
			for _, tc := range cases {
				deps.recalcErr = fmt.Errorf("competitor %q: %w", "x", tc.err)
				w := do(mux, http.MethodPost, "/recalculate?key=secret", "")
				So(w.Code, ShouldEqual, tc.status)
				So(decode(w)["code"], ShouldEqual, tc.code)
			}
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := fmt.Errorf("%w: x", repository.ErrNotFound)
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(err.Error(), ShouldEqual, "api.op: bad request: competitor not found: x")
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(api.NewKind("api.op", api.ErrUnauthorized), api.ErrUnauthorized), ShouldBeTrue)
			So(api.Wrap("api.op", cause).Error(), ShouldEqual, "api.op: competitor not found: x")
		})
	})
}
