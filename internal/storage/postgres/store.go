package postgres

import (
	"context"
	"fmt"
	"time"

	"memedesk/internal/observability"
	"memedesk/internal/storage"
)

// Store implements storage.Store on a connection pool.
// Update runs fn inside a single pgx transaction.
type Store struct {
	pool *Pool
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.Store      = (*Store)(nil)
	_ storage.Repository = (*repo)(nil)
)

// View runs fn against the pool without a transaction.
func (s *Store) View(ctx context.Context, fn func(storage.Repository) error) error {
	start := time.Now()
	err := fn(&repo{q: s.pool.Pool})
	observability.RecordDBQuery("postgres", "view", time.Since(start).Seconds(), err)
	return err
}

// Update runs fn in a transaction that commits only when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(storage.Repository) error) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "update", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&repo{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// repo implements storage.Repository over a pool or a transaction.
type repo struct {
	q querier
}
