package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// UpsertCoin creates the coin or merges u into the stored one.
//
// The chain falls back to "solana" when blank or "unknown". On insert a
// missing name becomes "Unknown". On merge the source type follows
// domain.MergeSource and name, symbol and launch_ts are only replaced by
// non-empty values, so a later call never erases what an earlier one set.
func UpsertCoin(ctx context.Context, coins storage.CoinStore, u domain.CoinUpsert) (*domain.Coin, error) {
	if !u.Source.IsValid() {
		return nil, domain.Invalid("invalid source_type")
	}
	key := domain.CoinKey{CA: domain.NormalizeCA(u.CA), Chain: domain.NormalizeUpsertChain(u.Chain)}
	name := trimmed(u.Name)
	symbol := trimmed(u.Symbol)

	c, err := coins.GetCoin(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c = &domain.Coin{
			CA:         key.CA,
			Chain:      key.Chain,
			Name:       domain.DefaultCoinName,
			Symbol:     symbol,
			LaunchTS:   u.LaunchTS,
			SourceType: u.Source,
		}
		if name != nil {
			c.Name = *name
		}
		if err := coins.InsertCoin(ctx, c); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return nil, domain.Conflict("coin already exists")
			}
			return nil, fmt.Errorf("insert coin: %w", err)
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("get coin: %w", err)
	}

	c.SourceType = domain.MergeSource(c.SourceType, u.Source)
	if name != nil {
		c.Name = *name
	}
	if symbol != nil {
		c.Symbol = symbol
	}
	if u.LaunchTS != nil {
		c.LaunchTS = u.LaunchTS
	}
	if err := coins.UpdateCoin(ctx, c); err != nil {
		return nil, notFound(err, "coin not found")
	}
	return c, nil
}

// trimmed returns nil for nil or blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// UpsertCoin runs the coin upsert merge in its own transaction.
func (s *Service) UpsertCoin(ctx context.Context, u domain.CoinUpsert) (c *domain.Coin, err error) {
	defer func() { s.observe("coin_upsert", err) }()

	if _, err := requireCA(u.CA); err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		c, err = UpsertCoin(ctx, r, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventCoinUpserted, Coin: keyPtr(c.Key())})
	return c, nil
}

// CreateCoin registers a new coin. An existing (ca, chain) is a Conflict.
func (s *Service) CreateCoin(ctx context.Context, in domain.CoinCreate) (c *domain.Coin, err error) {
	defer func() { s.observe("coin_create", err) }()

	ca, err := requireCA(in.CA)
	if err != nil {
		return nil, err
	}
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	source := in.SourceType
	if source == "" {
		source = domain.SourceDex
	}
	if !source.IsValid() {
		return nil, domain.Invalid("invalid source_type")
	}
	chain := domain.NormalizeChain(in.Chain)
	if chain == "" {
		chain = domain.DefaultChain
	}

	c = &domain.Coin{
		CA:         ca,
		Chain:      chain,
		Name:       name,
		Symbol:     trimmed(in.Symbol),
		LaunchTS:   in.LaunchTS,
		SourceType: source,
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		if err := r.InsertCoin(ctx, c); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return domain.Conflict("coin already exists")
			}
			return fmt.Errorf("insert coin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventCoinUpserted, Coin: keyPtr(c.Key())})
	return c, nil
}

// GetCoin returns the coin addressed by (ca, chain).
func (s *Service) GetCoin(ctx context.Context, ca, chain string) (c *domain.Coin, err error) {
	err = s.store.View(ctx, func(r storage.Repository) error {
		key, err := ResolveCoin(ctx, r, ca, chain)
		if err != nil {
			return err
		}
		c, err = r.GetCoin(ctx, key)
		return notFound(err, "coin not found")
	})
	return c, err
}

// CoinQuery filters coin listings. CA and Chain are exact filters.
type CoinQuery struct {
	CA    string `form:"ca"`
	Chain string `form:"chain"`
	Limit int    `form:"limit"`
}

func (q CoinQuery) filter() (storage.CoinFilter, error) {
	limit, err := domain.ClampLimit(q.Limit, defaultCoinLimit, maxCoinLimit)
	if err != nil {
		return storage.CoinFilter{}, err
	}
	return storage.CoinFilter{
		CA:    domain.NormalizeCA(q.CA),
		Chain: domain.NormalizeChain(q.Chain),
		Limit: limit,
	}, nil
}

// ListCoins returns coins, newest first.
func (s *Service) ListCoins(ctx context.Context, q CoinQuery) ([]*domain.Coin, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	var out []*domain.Coin
	err = s.store.View(ctx, func(r storage.Repository) error {
		var err error
		out, err = r.ListCoins(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	return nonNil(out), nil
}

// SummarizeCoins returns per-coin activity, most recently active first.
func (s *Service) SummarizeCoins(ctx context.Context, q CoinQuery) ([]*domain.CoinSummary, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	var out []*domain.CoinSummary
	err = s.store.View(ctx, func(r storage.Repository) error {
		var err error
		out, err = r.SummarizeCoins(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("summarize coins: %w", err)
	}
	return nonNil(out), nil
}

// DeleteCoin resolves and removes a coin with every trade, tip, bubble and
// score attached to it. Returns the deleted key.
func (s *Service) DeleteCoin(ctx context.Context, ca, chain string) (key domain.CoinKey, err error) {
	defer func() { s.observe("coin_delete", err) }()

	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		key, err = ResolveCoin(ctx, r, ca, chain)
		if err != nil {
			return err
		}
		return notFound(r.DeleteCoin(ctx, key), "coin not found")
	})
	if err != nil {
		return domain.CoinKey{}, err
	}
	s.log.Info("coin deleted", zap.String("ca", key.CA), zap.String("chain", key.Chain))
	s.publish(ctx, domain.Event{Type: domain.EventCoinDeleted, Coin: keyPtr(key)})
	return key, nil
}

func keyPtr(k domain.CoinKey) *domain.CoinKey {
	return &k
}
