// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank            int     `json:"rank"`
	CompetitorID    string  `json:"competitor_id"`
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
}
