package memory

import (
	"context"
	"sort"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// InsertCoin adds a coin. Returns ErrDuplicateKey if (ca, chain) exists.
func (r *repo) InsertCoin(_ context.Context, c *domain.Coin) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.st.coins[c.Key()]; exists {
		return storage.ErrDuplicateKey
	}

	c.CreatedTS = r.now
	stored := *c
	r.st.coins[c.Key()] = &stored
	return nil
}

// GetCoin retrieves a coin by its natural key. Returns ErrNotFound if not exists.
func (r *repo) GetCoin(_ context.Context, key domain.CoinKey) (*domain.Coin, error) {
	c, ok := r.st.coins[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *c
	return &out, nil
}

// CoinChains returns at most limit chains registered for ca, sorted.
func (r *repo) CoinChains(_ context.Context, ca string, limit int) ([]string, error) {
	var chains []string
	for key := range r.st.coins {
		if key.CA == ca {
			chains = append(chains, key.Chain)
		}
	}
	sort.Strings(chains)
	if len(chains) > limit {
		chains = chains[:limit]
	}
	return chains, nil
}

// UpdateCoin overwrites the mutable coin fields. Returns ErrNotFound if not exists.
func (r *repo) UpdateCoin(_ context.Context, c *domain.Coin) error {
	if err := r.writable(); err != nil {
		return err
	}
	old, ok := r.st.coins[c.Key()]
	if !ok {
		return storage.ErrNotFound
	}

	next := *old
	next.Name = c.Name
	next.Symbol = c.Symbol
	next.LaunchTS = c.LaunchTS
	next.SourceType = c.SourceType
	r.st.coins[c.Key()] = &next
	return nil
}

// ListCoins returns coins ordered by created_ts DESC.
func (r *repo) ListCoins(_ context.Context, f storage.CoinFilter) ([]*domain.Coin, error) {
	var coins []*domain.Coin
	for _, c := range r.st.coins {
		if !matchCoin(c.Key(), f.CA, f.Chain) {
			continue
		}
		out := *c
		coins = append(coins, &out)
	}

	sort.Slice(coins, func(i, j int) bool {
		a, b := coins[i], coins[j]
		if !a.CreatedTS.Equal(b.CreatedTS) {
			return a.CreatedTS.After(b.CreatedTS)
		}
		return coinKeyLess(a.Key(), b.Key())
	})
	return truncate(coins, f.Limit), nil
}

// SummarizeCoins returns trade and tip activity per coin, most recently active first.
func (r *repo) SummarizeCoins(_ context.Context, f storage.CoinFilter) ([]*domain.CoinSummary, error) {
	sums := make(map[domain.CoinKey]*domain.CoinSummary)
	for key, c := range r.st.coins {
		if matchCoin(key, f.CA, f.Chain) {
			sums[key] = &domain.CoinSummary{Coin: *c}
		}
	}

	for _, t := range r.st.trades {
		s, ok := sums[domain.CoinKey{CA: t.CA, Chain: t.Chain}]
		if !ok {
			continue
		}
		s.TradesTotal++
		last := t.EntryTS
		if t.IsOpen() {
			s.TradesOpen++
		} else {
			last = *t.ExitTS
		}
		s.LastActivityTS = latest(s.LastActivityTS, last)
	}
	for _, t := range r.st.tips {
		s, ok := sums[domain.CoinKey{CA: t.CA, Chain: t.Chain}]
		if !ok {
			continue
		}
		s.TipsTotal++
		s.LastActivityTS = latest(s.LastActivityTS, t.PostTS)
	}

	out := make([]*domain.CoinSummary, 0, len(sums))
	for _, s := range sums {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastActivityTS == nil && b.LastActivityTS != nil:
			return false
		case a.LastActivityTS != nil && b.LastActivityTS == nil:
			return true
		case a.LastActivityTS != nil && !a.LastActivityTS.Equal(*b.LastActivityTS):
			return a.LastActivityTS.After(*b.LastActivityTS)
		case !a.CreatedTS.Equal(b.CreatedTS):
			return a.CreatedTS.After(b.CreatedTS)
		}
		return coinKeyLess(a.Key(), b.Key())
	})
	return truncate(out, f.Limit), nil
}

// DeleteCoin removes a coin with its trades, tips and every child record.
// Returns ErrNotFound if not exists.
func (r *repo) DeleteCoin(ctx context.Context, key domain.CoinKey) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.coins[key]; !ok {
		return storage.ErrNotFound
	}

	for id, t := range r.st.trades {
		if t.CA == key.CA && t.Chain == key.Chain {
			if err := r.DeleteTrade(ctx, id); err != nil {
				return err
			}
		}
	}
	for id, t := range r.st.tips {
		if t.CA == key.CA && t.Chain == key.Chain {
			if err := r.DeleteTip(ctx, id); err != nil {
				return err
			}
		}
	}

	delete(r.st.coinBubbles, key)
	var scores []*domain.Score
	for _, s := range r.st.coinScores {
		if s.CA != key.CA || s.Chain != key.Chain {
			scores = append(scores, s)
		}
	}
	r.st.coinScores = scores

	if c := r.st.context; c.ActiveCA != nil && *c.ActiveCA == key.CA && *c.ActiveChain == key.Chain {
		c.ActiveCA, c.ActiveChain = nil, nil
		r.st.context = c
	}

	delete(r.st.coins, key)
	return nil
}

func matchCoin(key domain.CoinKey, ca, chain string) bool {
	return (ca == "" || key.CA == ca) && (chain == "" || key.Chain == chain)
}

func coinKeyLess(a, b domain.CoinKey) bool {
	if a.CA != b.CA {
		return a.CA < b.CA
	}
	return a.Chain < b.Chain
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
