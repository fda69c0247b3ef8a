package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/pkg/metrics"
)

//go:embed schema.sql
var schema embed.FS

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore is a Store backed by a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies the embedded schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	ddl, err := schema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Create implements Store.Create.
func (s *PostgresStore) Create(ctx context.Context, c model.Competitor) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO competitors (id, rating, rating_deviation, volatility)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Rating, c.RatingDeviation, c.Volatility)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, c.ID)
		}
		return fmt.Errorf("create competitor: %w", err)
	}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateCompetitors(n)
	}
	return nil
}

// Get implements Store.Get.
func (s *PostgresStore) Get(ctx context.Context, id string) (model.Competitor, error) {
	c := model.Competitor{ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT rating, rating_deviation, volatility
		  FROM competitors WHERE id = $1
	`, id).Scan(&c.Rating, &c.RatingDeviation, &c.Volatility)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Competitor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Competitor{}, fmt.Errorf("get competitor: %w", err)
	}
	return c, nil
}

// All implements Store.All.
func (s *PostgresStore) All(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, rating, rating_deviation, volatility
		  FROM competitors ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Competitor, error) {
		var c model.Competitor
		err := row.Scan(&c.ID, &c.Rating, &c.RatingDeviation, &c.Volatility)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	return out, nil
}

// Apply implements Store.Apply inside a single transaction.
func (s *PostgresStore) Apply(ctx context.Context, updates []model.Competitor) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, u := range updates {
			tag, err := tx.Exec(ctx, `
				UPDATE competitors
				   SET rating = $2,
				       rating_deviation = $3,
				       volatility = $4,
				       updated_at = now()
				 WHERE id = $1
			`, u.ID, u.Rating, u.RatingDeviation, u.Volatility)
			if err != nil {
				return fmt.Errorf("update competitor %s: %w", u.ID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrNotFound, u.ID)
			}
		}
		return nil
	})
}

// Rank implements Store.Rank.
func (s *PostgresStore) Rank(ctx context.Context, id string) (Entry, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	var higher int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM competitors WHERE rating > $1`, c.Rating).Scan(&higher); err != nil {
		return Entry{}, fmt.Errorf("rank competitor: %w", err)
	}
	return Entry{Rank: higher + 1, Competitor: c}, nil
}

// TopN implements Store.TopN.
func (s *PostgresStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT RANK() OVER (ORDER BY rating DESC) AS rank, id, rating, rating_deviation, volatility
		  FROM competitors
		 ORDER BY rating DESC, id ASC
		 LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("top competitors: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.Rank, &e.Competitor.ID, &e.Competitor.Rating, &e.Competitor.RatingDeviation, &e.Competitor.Volatility)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("top competitors: %w", err)
	}
	return out, nil
}

// Count implements Store.Count.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM competitors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count competitors: %w", err)
	}
	return n, nil
}

// Close implements Store.Close.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
