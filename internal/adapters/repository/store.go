// Package repository stores the current state of every competitor and
// answers ranking queries over it.
package repository

import (
	"context"

	"github.com/okian/glicko/internal/domain/model"
)

// Entry is a competitor together with its leaderboard rank.
type Entry struct {
	Rank       int
	Competitor model.Competitor
}

// Store persists the current rating state of competitors. Only the latest
// state is kept; a recalculation overwrites it.
type Store interface {
	// Create adds a new competitor; ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, c model.Competitor) error
	// Get returns a competitor by ID or ErrNotFound.
	Get(ctx context.Context, id string) (model.Competitor, error)
	// All returns every competitor ordered by ID.
	All(ctx context.Context) ([]model.Competitor, error)
	// Apply overwrites the state of existing competitors. Either every
	// update is applied or none is; ErrNotFound if any ID is unknown.
	Apply(ctx context.Context, updates []model.Competitor) error
	// Rank returns the rank of a competitor: one plus the number of
	// competitors rated strictly higher.
	Rank(ctx context.Context, id string) (Entry, error)
	// TopN returns up to n entries ordered by rating desc, ID asc.
	TopN(ctx context.Context, n int) ([]Entry, error)
	// Count returns the number of competitors.
	Count(ctx context.Context) (int, error)
	// Close releases resources held by the store.
	Close() error
}
