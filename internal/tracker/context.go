package tracker

import (
	"context"
	"fmt"
	"strings"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// ContextSet selects the active coin. A nil or blank ActiveCA clears it.
type ContextSet struct {
	ActiveCA    *string `json:"active_ca"`
	ActiveChain *string `json:"active_chain"`
}

// GetContext returns the active-coin selection.
func (s *Service) GetContext(ctx context.Context) (*domain.ActiveContext, error) {
	var out *domain.ActiveContext
	err := s.store.View(ctx, func(r storage.Repository) error {
		var err error
		out, err = r.GetContext(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}
	return out, nil
}

// SetContext resolves the coin and makes it the active one.
func (s *Service) SetContext(ctx context.Context, in ContextSet) (out *domain.ActiveContext, err error) {
	defer func() { s.observe("context_set", err) }()

	err = s.store.Update(ctx, func(r storage.Repository) error {
		var key *domain.CoinKey
		if in.ActiveCA != nil && strings.TrimSpace(*in.ActiveCA) != "" {
			chain := ""
			if in.ActiveChain != nil {
				chain = *in.ActiveChain
			}
			k, err := ResolveCoin(ctx, r, *in.ActiveCA, chain)
			if err != nil {
				return err
			}
			key = &k
		}
		var err error
		if out, err = r.SetContext(ctx, key); err != nil {
			return fmt.Errorf("set context: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e := domain.Event{Type: domain.EventContextSet}
	if out.ActiveCA != nil && out.ActiveChain != nil {
		e.Coin = &domain.CoinKey{CA: *out.ActiveCA, Chain: *out.ActiveChain}
	}
	s.publish(ctx, e)
	return out, nil
}
