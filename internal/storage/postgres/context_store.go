package postgres

import (
	"context"
	"fmt"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// GetContext returns the singleton context row.
func (r *repo) GetContext(ctx context.Context) (*domain.ActiveContext, error) {
	query := `SELECT id, active_ca, active_chain, updated_ts FROM context WHERE id = 1`

	var c domain.ActiveContext
	if err := r.q.QueryRow(ctx, query).Scan(&c.ID, &c.ActiveCA, &c.ActiveChain, &c.UpdatedTS); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get context: %w", err)
	}
	return &c, nil
}

// SetContext replaces the active coin; a nil key clears it.
func (r *repo) SetContext(ctx context.Context, key *domain.CoinKey) (*domain.ActiveContext, error) {
	var ca, chain *string
	if key != nil {
		ca, chain = &key.CA, &key.Chain
	}

	query := `
		INSERT INTO context (id, active_ca, active_chain, updated_ts)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET active_ca = EXCLUDED.active_ca, active_chain = EXCLUDED.active_chain, updated_ts = EXCLUDED.updated_ts
		RETURNING id, active_ca, active_chain, updated_ts
	`

	var c domain.ActiveContext
	if err := r.q.QueryRow(ctx, query, ca, chain).Scan(&c.ID, &c.ActiveCA, &c.ActiveChain, &c.UpdatedTS); err != nil {
		if isMissingReferenceError(err) {
			return nil, storage.ErrMissingReference
		}
		return nil, fmt.Errorf("set context: %w", err)
	}
	return &c, nil
}
