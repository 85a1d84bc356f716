package memory

import (
	"context"
	"slices"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// ReplaceTradeBubbles replaces the bubbles of a trade.
func (r *repo) ReplaceTradeBubbles(_ context.Context, tradeID string, b *domain.Bubbles) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.trades[tradeID]; !ok {
		return storage.ErrMissingReference
	}
	setBubbles(r.st.tradeBubbles, tradeID, b)
	return nil
}

// TradeBubbles returns bubbles for each trade that has any.
func (r *repo) TradeBubbles(_ context.Context, tradeIDs []string) (map[string]*domain.Bubbles, error) {
	return getBubbles(r.st.tradeBubbles, tradeIDs), nil
}

// ReplaceTipBubbles replaces the bubbles of a tip.
func (r *repo) ReplaceTipBubbles(_ context.Context, tipID int64, b *domain.Bubbles) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.tips[tipID]; !ok {
		return storage.ErrMissingReference
	}
	setBubbles(r.st.tipBubbles, tipID, b)
	return nil
}

// TipBubbles returns bubbles for each tip that has any.
func (r *repo) TipBubbles(_ context.Context, tipIDs []int64) (map[int64]*domain.Bubbles, error) {
	return getBubbles(r.st.tipBubbles, tipIDs), nil
}

// ReplaceCoinBubbles replaces the coin-level bubbles.
func (r *repo) ReplaceCoinBubbles(_ context.Context, key domain.CoinKey, b *domain.Bubbles) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.coins[key]; !ok {
		return storage.ErrMissingReference
	}
	setBubbles(r.st.coinBubbles, key, b)
	return nil
}

// CoinBubbles returns the coin-level bubbles, empty when none are stored.
func (r *repo) CoinBubbles(_ context.Context, key domain.CoinKey) (*domain.Bubbles, error) {
	b := cloneBubbles(r.st.coinBubbles[key])
	if b == nil {
		b = &domain.Bubbles{}
	}
	if b.Clusters == nil {
		b.Clusters = []domain.BubbleRow{}
	}
	if b.Others == nil {
		b.Others = []domain.BubbleRow{}
	}
	return b, nil
}

// setBubbles stores rows sorted by rank, like the ordered database reads.
func setBubbles[K comparable](m map[K]*domain.Bubbles, key K, b *domain.Bubbles) {
	if b.IsEmpty() {
		delete(m, key)
		return
	}
	stored := cloneBubbles(b)
	sortRows(stored.Clusters)
	sortRows(stored.Others)
	m[key] = stored
}

func getBubbles[K comparable](m map[K]*domain.Bubbles, keys []K) map[K]*domain.Bubbles {
	out := make(map[K]*domain.Bubbles, len(keys))
	for _, k := range keys {
		if b, ok := m[k]; ok {
			out[k] = cloneBubbles(b)
		}
	}
	return out
}

func sortRows(rows []domain.BubbleRow) {
	slices.SortFunc(rows, func(a, b domain.BubbleRow) int { return a.Rank - b.Rank })
}
