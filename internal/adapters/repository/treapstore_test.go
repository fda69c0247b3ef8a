package repository_test

import (
	"context"
	"testing"

	"github.com/okian/glicko/internal/adapters/repository"
)

func TestTreapStore(t *testing.T) {
	storeBehaviour(t, func() repository.Store {
		return repository.NewTreapStore(context.Background(), repository.WithSeed(7))
	})
}
