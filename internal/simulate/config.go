// Package simulate drives a running rating service with synthetic
// competitors and matches and checks that the resulting leaderboard
// follows their hidden strengths.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Competitors   int           // Number of competitors to register
	Matches       int           // Number of matches to submit
	TopN          int           // Number of leaderboard entries to fetch
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for the workers to record matches
	APIKey        string        // Key for POST /recalculate
	Seed          uint64        // Seed for strengths and outcomes
	Verbose       bool          // Enable verbose logging
}

// Competitor is a simulated player with a hidden strength on the rating scale.
type Competitor struct {
	ID       string
	Strength float64
}

// MatchRequest mirrors the body of POST /matches.
type MatchRequest struct {
	MatchID   string  `json:"match_id"`
	HomeID    string  `json:"home_id"`
	AwayID    string  `json:"away_id"`
	HomeScore float64 `json:"home_score"`
	PlayedAt  string  `json:"played_at"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank            int     `json:"rank"`
	CompetitorID    string  `json:"competitor_id"`
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
}

// Leaderboard is the body of GET /leaderboard.
type Leaderboard struct {
	Limit   int     `json:"limit"`
	Entries []Entry `json:"entries"`
}

// AckResponse represents the response to a match submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	MatchID   string `json:"match_id"`
}

// Summary mirrors the response of POST /recalculate.
type Summary struct {
	RunID       string  `json:"run_id"`
	Competitors int     `json:"competitors"`
	Matches     int     `json:"matches"`
	Idle        int     `json:"idle"`
	DurationMs  float64 `json:"duration_ms"`
}

// Stats holds run statistics.
type Stats struct {
	CompetitorsRegistered int
	MatchesSubmitted      int
	MatchesAccepted       int
	MatchesDuplicate      int
	MatchesFailed         int
	LeaderboardEntries    int
	// Concordance is the share of leaderboard pairs ordered the same way
	// as their hidden strengths.
	Concordance float64
	Summary     Summary
	StartTime   time.Time
	Duration    time.Duration
}
