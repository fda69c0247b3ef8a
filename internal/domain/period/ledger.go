// Package period collects the matches of the open rating period and shapes
// them into per-competitor schedules for the rating engine.
package period

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/glicko/internal/domain/model"
)

// Ledger holds the matches recorded since the last recalculation.
type Ledger struct {
	mu      sync.Mutex
	matches []model.Match
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record validates m and appends it to the open period.
func (l *Ledger) Record(_ context.Context, m model.Match) error { //nolint:gocritic // hugeParam: Match is stored by value
	if err := Validate(m); err != nil {
		return err
	}
	l.mu.Lock()
	l.matches = append(l.matches, m)
	l.mu.Unlock()
	return nil
}

// Drain removes and returns every recorded match, closing the period.
func (l *Ledger) Drain(_ context.Context) []model.Match {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.matches
	l.matches = nil
	return out
}

// Restore puts previously drained matches back ahead of anything recorded
// since, so an aborted recalculation loses nothing.
func (l *Ledger) Restore(_ context.Context, ms []model.Match) {
	if len(ms) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	restored := make([]model.Match, 0, len(ms)+len(l.matches))
	restored = append(restored, ms...)
	l.matches = append(restored, l.matches...)
}

// Len returns the number of matches in the open period.
func (l *Ledger) Len(_ context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.matches)
}

// Validate checks the invariants of a single match.
func Validate(m model.Match) error { //nolint:gocritic // hugeParam
	switch {
	case strings.TrimSpace(m.HomeID) == "":
		return fmt.Errorf("%w: missing home competitor", ErrInvalidMatch)
	case strings.TrimSpace(m.AwayID) == "":
		return fmt.Errorf("%w: missing away competitor", ErrInvalidMatch)
	case m.HomeID == m.AwayID:
		return fmt.Errorf("%w: %q cannot play itself", ErrInvalidMatch, m.HomeID)
	case !model.ValidScore(m.HomeScore):
		return fmt.Errorf("%w: home score %v is not 0, 0.5 or 1", ErrInvalidMatch, m.HomeScore)
	}
	return nil
}

// Schedule is one competitor's period in the engine's shape: Outcomes[i]
// lists the scores achieved against OpponentIDs[i].
type Schedule struct {
	OpponentIDs []string
	Outcomes    [][]float64
}

// Games returns the total number of games in the schedule.
func (s *Schedule) Games() int {
	n := 0
	for _, o := range s.Outcomes {
		n += len(o)
	}
	return n
}

func (s *Schedule) add(opponentID string, score float64, index map[string]int) {
	i, ok := index[opponentID]
	if !ok {
		i = len(s.OpponentIDs)
		index[opponentID] = i
		s.OpponentIDs = append(s.OpponentIDs, opponentID)
		s.Outcomes = append(s.Outcomes, nil)
	}
	s.Outcomes[i] = append(s.Outcomes[i], score)
}

// Group builds a schedule for every competitor appearing in matches.
// Opponents are ordered by first meeting, outcomes by recording order.
func Group(matches []model.Match) map[string]*Schedule {
	schedules := make(map[string]*Schedule)
	indexes := make(map[string]map[string]int)

	side := func(id string) (*Schedule, map[string]int) {
		s, ok := schedules[id]
		if !ok {
			s = &Schedule{}
			schedules[id] = s
			indexes[id] = make(map[string]int)
		}
		return s, indexes[id]
	}

	for _, m := range matches {
		home, homeIdx := side(m.HomeID)
		home.add(m.AwayID, m.HomeScore, homeIdx)
		away, awayIdx := side(m.AwayID)
		away.add(m.HomeID, m.AwayScore(), awayIdx)
	}
	return schedules
}
