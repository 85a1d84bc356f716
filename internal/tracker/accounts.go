package tracker

import (
	"context"
	"fmt"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// AccountCreate is the input for registering an account.
type AccountCreate struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
}

// UpsertAccount returns the account for (platform, handle), creating it on
// first use. Repeated calls return the same account_id.
func (s *Service) UpsertAccount(ctx context.Context, in AccountCreate) (a *domain.Account, err error) {
	defer func() { s.observe("account_upsert", err) }()

	platform, err := requireText("platform", in.Platform)
	if err != nil {
		return nil, err
	}
	handle, err := requireText("handle", in.Handle)
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		a, err = r.UpsertAccount(ctx, platform, handle)
		if err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		return nil
	})
	return a, err
}

// ListAccounts returns accounts in creation order.
func (s *Service) ListAccounts(ctx context.Context, limit int) ([]*domain.Account, error) {
	limit, err := domain.ClampLimit(limit, defaultAccountLimit, maxAccountLimit)
	if err != nil {
		return nil, err
	}
	var out []*domain.Account
	err = s.store.View(ctx, func(r storage.Repository) error {
		var err error
		out, err = r.ListAccounts(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return nonNil(out), nil
}

// SummarizeAccounts returns win rate, rug rate and average effect per
// account, optionally restricted to tips on one chain.
func (s *Service) SummarizeAccounts(ctx context.Context, chain string) ([]*domain.AccountSummary, error) {
	chain = domain.NormalizeChain(chain)
	var out []*domain.AccountSummary
	err := s.store.View(ctx, func(r storage.Repository) error {
		var err error
		out, err = r.SummarizeAccounts(ctx, chain)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("summarize accounts: %w", err)
	}
	return nonNil(out), nil
}
