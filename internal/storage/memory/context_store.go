package memory

import (
	"context"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// GetContext returns the singleton context row.
func (r *repo) GetContext(context.Context) (*domain.ActiveContext, error) {
	out := r.st.context
	return &out, nil
}

// SetContext replaces the active coin; a nil key clears it.
func (r *repo) SetContext(_ context.Context, key *domain.CoinKey) (*domain.ActiveContext, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}

	next := domain.ActiveContext{ID: 1, UpdatedTS: r.now}
	if key != nil {
		if _, ok := r.st.coins[*key]; !ok {
			return nil, storage.ErrMissingReference
		}
		ca, chain := key.CA, key.Chain
		next.ActiveCA, next.ActiveChain = &ca, &chain
	}
	r.st.context = next

	out := next
	return &out, nil
}
