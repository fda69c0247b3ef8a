// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Outcome scores for a single game, from the point of view of the side they belong to.
const (
	Loss = 0.0
	Draw = 0.5
	Win  = 1.0
)

// Competitor is a competitor's rating state at the start of a rating period.
// It is a plain value: the rating engine reads it and returns new numbers,
// the caller persists them as the next period's state.
type Competitor struct {
	ID              string  // opaque label, not used in computation
	Rating          float64 // conventional scale centred on 1500
	RatingDeviation float64 // one standard deviation of Rating
	Volatility      float64 // expected fluctuation of Rating between periods
}

// NewCompetitor builds a Competitor. Values are not validated here.
func NewCompetitor(id string, rating, ratingDeviation, volatility float64) Competitor {
	return Competitor{
		ID:              id,
		Rating:          rating,
		RatingDeviation: ratingDeviation,
		Volatility:      volatility,
	}
}

func (c Competitor) String() string {
	return fmt.Sprintf("%s: rating=%.2f rd=%.2f volatility=%.6f", c.ID, c.Rating, c.RatingDeviation, c.Volatility)
}

// Match is one game played inside the open rating period.
type Match struct {
	ID        string    // unique id for idempotency
	HomeID    string    // first competitor
	AwayID    string    // second competitor
	HomeScore float64   // Loss, Draw or Win for HomeID
	PlayedAt  time.Time // when the game was played
}

// AwayScore is the score of the away side, the complement of HomeScore.
func (m Match) AwayScore() float64 {
	return Win - m.HomeScore
}

// ValidScore reports whether s is one of Loss, Draw or Win.
func ValidScore(s float64) bool {
	return s == Loss || s == Draw || s == Win
}
