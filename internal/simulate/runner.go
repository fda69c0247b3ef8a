package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/okian/glicko/pkg/logger"
)

// ErrInvalidConfig is returned by Run for unusable settings.
var ErrInvalidConfig = errors.New("invalid simulation config")

// percentageMultiplier converts ratios to percentages for logging.
const percentageMultiplier = 100

// Run executes a complete simulation: register, submit, recalculate, rank.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.Competitors < 2 || cfg.Matches < 1 || cfg.TopN < 1 {
		return nil, fmt.Errorf("%w: need at least two competitors, one match and a positive top", ErrInvalidConfig)
	}

	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("competitors", cfg.Competitors),
		logger.Int("matches", cfg.Matches),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	// Step 1: check service health
	if _, err := client.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: register competitors
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // simulation, not security
	competitors := generateCompetitors(rng, cfg.Competitors)
	n, err := registerCompetitors(ctx, cfg, client, competitors)
	stats.CompetitorsRegistered = n
	if err != nil {
		return stats, fmt.Errorf("registration failed: %w", err)
	}

	// Step 3: submit matches
	matches := generateMatches(rng, competitors, cfg.Matches)
	submitMatches(ctx, cfg, client, matches, stats)
	log.Info(ctx, "matches submitted",
		logger.Int("accepted", stats.MatchesAccepted),
		logger.Int("duplicate", stats.MatchesDuplicate),
		logger.Int("failed", stats.MatchesFailed))

	// Step 4: wait for the workers
	if err := waitForRecording(ctx, cfg, client, stats.MatchesAccepted); err != nil {
		return stats, err
	}

	// Step 5: close the rating period
	if _, err := client.do(ctx, http.MethodPost, "/recalculate", nil, &stats.Summary, http.StatusOK); err != nil {
		return stats, fmt.Errorf("recalculation failed: %w", err)
	}

	// Step 6: read the leaderboard
	var board Leaderboard
	path := fmt.Sprintf("/leaderboard?limit=%d", cfg.TopN)
	if _, err := client.do(ctx, http.MethodGet, path, nil, &board, http.StatusOK); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	entries := board.Entries
	stats.LeaderboardEntries = len(entries)

	strengths := make(map[string]float64, len(competitors))
	for _, c := range competitors {
		strengths[c.ID] = c.Strength
	}
	stats.Concordance = concordance(entries, strengths)
	stats.Duration = time.Since(stats.StartTime)

	for _, e := range entries {
		log.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("competitorID", e.CompetitorID),
			logger.Float64("rating", e.Rating),
			logger.Float64("ratingDeviation", e.RatingDeviation),
			logger.Float64("strength", strengths[e.CompetitorID]))
	}
	log.Info(ctx, "simulation finished",
		logger.String("runID", stats.Summary.RunID),
		logger.Int("idle", stats.Summary.Idle),
		logger.Float64("recalculationMs", stats.Summary.DurationMs),
		logger.Float64("concordancePct", stats.Concordance*percentageMultiplier),
		logger.String("duration", stats.Duration.String()))

	return stats, nil
}
