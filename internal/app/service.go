// Package service wires the rating engine, the period ledger and the
// competitor store into the operations exposed by the HTTP API.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	matchqueue "github.com/okian/glicko/internal/adapters/mq/queue"
	workerpool "github.com/okian/glicko/internal/adapters/mq/worker"
	"github.com/okian/glicko/internal/adapters/repository"
	"github.com/okian/glicko/internal/domain/dedupe"
	"github.com/okian/glicko/internal/domain/glicko"
	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/internal/domain/period"
	"github.com/okian/glicko/internal/domain/types"
	"github.com/okian/glicko/pkg/logger"
	"github.com/okian/glicko/pkg/metrics"
)

const stopTimeout = 5 * time.Second

// Summary reports one finished recalculation.
type Summary struct {
	RunID       string        `json:"run_id"`
	Competitors int           `json:"competitors"`
	Matches     int           `json:"matches"`
	Idle        int           `json:"idle"`
	Duration    time.Duration `json:"-"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// Service implements the API dependencies of the rating system.
type Service struct {
	mu sync.RWMutex
	// recalcMu serialises rating periods.
	recalcMu sync.Mutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   matchqueue.Queue
	pool    *workerpool.Pool
	ledger  *period.Ledger
	engine  *glicko.Engine

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	apiKey            string
	engineOpts        []glicko.Option
	defaultRating     float64
	defaultRD         float64
	defaultVolatility float64

	// State
	started    bool
	stopPool   context.CancelFunc
	lastRun    *Summary
	lastRunErr error

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU(),
		queueSize:         10_000,
		dedupeSize:        100_000,
		defaultRating:     1500,
		defaultRD:         350,
		defaultVolatility: 0.06,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine = glicko.New(s.engineOpts...)
	s.ledger = period.NewLedger()
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rating service...")

	if s.store == nil {
		s.store = repository.NewTreapStore(ctx)
		s.logger.Info(ctx, "using treap store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = matchqueue.NewInMemoryQueue(
		matchqueue.WithCapacity(s.queueSize),
	)

	// Workers outlive the start request; Stop cancels them.
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopPool = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.logger)
	s.pool.Start(poolCtx)

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateCompetitors(n)
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Float64("tau", s.engine.Tau()),
	)

	return nil
}

// Stop closes the queue, lets the workers drain it and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping rating service...")

	_ = s.queue.Close()

	waitCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	if err := s.pool.Wait(waitCtx); err != nil {
		s.logger.Warn(ctx, "workers did not drain the queue in time", logger.Error(err))
	}
	cancel()
	s.stopPool()

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// Register adds a competitor. Zero values take the configured defaults.
func (s *Service) Register(ctx context.Context, id string, rating, ratingDeviation, volatility float64) (model.Competitor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Competitor{}, fmt.Errorf("%w: missing id", ErrInvalidCompetitor)
	}
	if rating == 0 {
		rating = s.defaultRating
	}
	if ratingDeviation == 0 {
		ratingDeviation = s.defaultRD
	}
	if volatility == 0 {
		volatility = s.defaultVolatility
	}

	c := model.NewCompetitor(id, rating, ratingDeviation, volatility)
	if err := glicko.CheckState(c); err != nil {
		return model.Competitor{}, fmt.Errorf("%w: %w", ErrInvalidCompetitor, err)
	}

	if err := s.store.Create(ctx, c); err != nil {
		return model.Competitor{}, err
	}
	s.logger.Debug(ctx, "competitor registered", logger.String("competitorID", id))
	return c, nil
}

// Competitor returns the current state of a competitor.
func (s *Service) Competitor(ctx context.Context, id string) (model.Competitor, error) {
	return s.store.Get(ctx, id)
}

// SubmitMatch queues a match for the open rating period. A missing ID is
// generated. duplicate reports a match ID that was already accepted.
func (s *Service) SubmitMatch(ctx context.Context, m model.Match) (accepted model.Match, duplicate bool, err error) { //nolint:gocritic // hugeParam
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	if m.PlayedAt.IsZero() {
		m.PlayedAt = time.Now().UTC()
	}
	if err := period.Validate(m); err != nil {
		return model.Match{}, false, err
	}

	if s.deduper.SeenAndRecord(ctx, m.ID) {
		metrics.RecordMatchDuplicate()
		s.logger.Debug(ctx, "duplicate match", logger.String("matchID", m.ID))
		return m, true, nil
	}

	if !s.queue.Enqueue(ctx, m) {
		// Let the client retry the same ID.
		s.deduper.Unrecord(ctx, m.ID)
		return model.Match{}, false, ErrBackpressure
	}

	metrics.RecordMatchSubmitted()
	return m, false, nil
}

// Record implements worker.Recorder. Matches naming an unknown competitor
// are dropped.
func (s *Service) Record(ctx context.Context, m model.Match) error { //nolint:gocritic // hugeParam
	for _, id := range []string{m.HomeID, m.AwayID} {
		if _, err := s.store.Get(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Free the ID so the match can be resubmitted once both sides exist.
				s.deduper.Unrecord(ctx, m.ID)
				metrics.RecordMatchDropped("unknown_competitor")
				return fmt.Errorf("%w: %s", ErrUnknownCompetitor, id)
			}
			metrics.RecordMatchDropped("store_error")
			return err
		}
	}

	if err := s.ledger.Record(ctx, m); err != nil {
		metrics.RecordMatchDropped("invalid")
		return err
	}
	metrics.UpdatePendingMatches(s.ledger.Len(ctx))
	return nil
}

// Pending returns the number of matches waiting for the next recalculation.
func (s *Service) Pending(ctx context.Context) int {
	return s.ledger.Len(ctx)
}

// Predict returns the expected score of a against b.
func (s *Service) Predict(ctx context.Context, a, b string) (float64, error) {
	ca, err := s.store.Get(ctx, a)
	if err != nil {
		return 0, err
	}
	cb, err := s.store.Get(ctx, b)
	if err != nil {
		return 0, err
	}
	return glicko.ExpectedScore(ca, cb), nil
}

// Authorize reports whether key matches the configured API key. An empty
// configured key authorizes nobody.
func (s *Service) Authorize(key string) bool {
	if s.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

// Recalculate closes the open rating period: every competitor is updated
// against the start-of-period state of its opponents and the results are
// stored together. On any failure nothing is stored and the period's
// matches are kept for the next attempt.
func (s *Service) Recalculate(ctx context.Context) (Summary, error) {
	s.recalcMu.Lock()
	defer s.recalcMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.String("runID", runID))

	matches := s.ledger.Drain(ctx)
	summary, updates, err := s.computePeriod(ctx, matches)
	if err == nil {
		err = s.store.Apply(ctx, updates)
	}

	elapsed := time.Since(start)
	ms := float64(elapsed.Microseconds()) / 1000

	if err != nil {
		s.ledger.Restore(ctx, matches)
		metrics.UpdatePendingMatches(s.ledger.Len(ctx))
		metrics.RecordRecalculation("failed", ms)
		metrics.RecordEngineError(errorKind(err))
		log.Error(ctx, "recalculation failed", logger.Int("matches", len(matches)), logger.Error(err))

		s.mu.Lock()
		s.lastRunErr = err
		s.mu.Unlock()
		return Summary{}, err
	}

	summary.RunID = runID
	summary.Duration = elapsed
	summary.FinishedAt = time.Now().UTC()

	metrics.RecordRecalculation("ok", ms)
	metrics.AddCompetitorsUpdated(len(updates))
	metrics.UpdatePendingMatches(s.ledger.Len(ctx))
	log.Info(ctx, "rating period closed",
		logger.Int("competitors", summary.Competitors),
		logger.Int("matches", summary.Matches),
		logger.Int("idle", summary.Idle),
		logger.Float64("durationMs", ms),
	)

	s.mu.Lock()
	s.lastRun = &summary
	s.lastRunErr = nil
	s.mu.Unlock()
	return summary, nil
}

func (s *Service) computePeriod(ctx context.Context, matches []model.Match) (Summary, []model.Competitor, error) {
	competitors, err := s.store.All(ctx)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("load competitors: %w", err)
	}

	byID := make(map[string]model.Competitor, len(competitors))
	for _, c := range competitors {
		byID[c.ID] = c
	}
	schedules := period.Group(matches)

	summary := Summary{Competitors: len(competitors), Matches: len(matches)}
	updates := make([]model.Competitor, 0, len(competitors))
	for _, c := range competitors {
		var (
			opponents []model.Competitor
			outcomes  [][]float64
		)
		if sched, ok := schedules[c.ID]; ok {
			opponents = make([]model.Competitor, len(sched.OpponentIDs))
			for i, oid := range sched.OpponentIDs {
				opp, ok := byID[oid]
				if !ok {
					return Summary{}, nil, fmt.Errorf("%w: %s played %s", ErrUnknownCompetitor, c.ID, oid)
				}
				opponents[i] = opp
			}
			outcomes = sched.Outcomes
		} else {
			summary.Idle++
		}

		res, err := s.engine.Compute(c, opponents, outcomes)
		if err != nil {
			return Summary{}, nil, err
		}
		if len(opponents) > 0 {
			metrics.RecordVolatilityIterations(res.Iterations)
		}
		updates = append(updates, model.NewCompetitor(c.ID, res.Rating, res.RatingDeviation, res.Volatility))
	}
	return summary, updates, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, glicko.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, glicko.ErrNonConvergence):
		return "non_convergence"
	case errors.Is(err, glicko.ErrDegenerateInput):
		return "degenerate_input"
	case errors.Is(err, ErrUnknownCompetitor):
		return "unknown_competitor"
	default:
		return "store"
	}
}

// TopN returns the top n leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	entries, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = toEntry(e)
	}
	return out, nil
}

// Rank returns the leaderboard entry of a competitor.
func (s *Service) Rank(ctx context.Context, id string) (types.Entry, error) {
	e, err := s.store.Rank(ctx, id)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(e), nil
}

func toEntry(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:            e.Rank,
		CompetitorID:    e.Competitor.ID,
		Rating:          e.Competitor.Rating,
		RatingDeviation: e.Competitor.RatingDeviation,
		Volatility:      e.Competitor.Volatility,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"tau":            s.engine.Tau(),
		"pendingMatches": s.ledger.Len(ctx),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["seenMatches"] = s.deduper.Size()
		if n, err := s.store.Count(ctx); err == nil {
			stats["competitors"] = n
			metrics.UpdateCompetitors(n)
		}
		metrics.UpdateQueueSize(queueLen)
	}
	if s.lastRun != nil {
		stats["lastRecalculation"] = map[string]any{
			"runID":       s.lastRun.RunID,
			"competitors": s.lastRun.Competitors,
			"matches":     s.lastRun.Matches,
			"idle":        s.lastRun.Idle,
			"durationMs":  float64(s.lastRun.Duration.Microseconds()) / 1000,
			"finishedAt":  s.lastRun.FinishedAt,
		}
	}
	if s.lastRunErr != nil {
		stats["lastRecalculationError"] = s.lastRunErr.Error()
	}
	return stats
}
