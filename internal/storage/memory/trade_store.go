package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// InsertTrade adds an open trade. Returns ErrDuplicateKey if trade_id exists
// and ErrMissingReference if the coin does not.
func (r *repo) InsertTrade(_ context.Context, t *domain.Trade) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.st.trades[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, ok := r.st.coins[domain.CoinKey{CA: t.CA, Chain: t.Chain}]; !ok {
		return storage.ErrMissingReference
	}

	r.st.lastTradeID++
	t.ID = r.st.lastTradeID
	t.EntryTS = r.now

	r.st.trades[t.TradeID] = &domain.Trade{
		ID:           t.ID,
		TradeID:      t.TradeID,
		CA:           t.CA,
		Chain:        t.Chain,
		EntryTS:      t.EntryTS,
		EntryMcapUSD: t.EntryMcapUSD,
		SizeUSD:      t.SizeUSD,
	}
	return nil
}

// GetTrade retrieves a trade by trade_id. Returns ErrNotFound if not exists.
func (r *repo) GetTrade(_ context.Context, tradeID string) (*domain.Trade, error) {
	t, ok := r.st.trades[tradeID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.viewTrade(t), nil
}

// CloseTrade sets the exit of an open trade. Returns ErrNotFound when the
// trade does not exist or is already closed.
func (r *repo) CloseTrade(ctx context.Context, c domain.TradeClose) (*domain.Trade, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	old, ok := r.st.trades[c.TradeID]
	if !ok || !old.IsOpen() {
		return nil, storage.ErrNotFound
	}

	next := *old
	exitTS := r.now
	exitMcap := c.ExitMcapUSD
	next.ExitTS = &exitTS
	next.ExitMcapUSD = &exitMcap
	next.ExitReason = c.ExitReason
	r.st.trades[c.TradeID] = &next
	return r.GetTrade(ctx, c.TradeID)
}

// PatchTrade applies the set fields of p. Returns ErrNotFound if not exists.
func (r *repo) PatchTrade(_ context.Context, tradeID string, p domain.TradePatch) error {
	if err := r.writable(); err != nil {
		return err
	}
	old, ok := r.st.trades[tradeID]
	if !ok {
		return storage.ErrNotFound
	}

	next := *old
	if p.EntryMcapUSD.Set && p.EntryMcapUSD.Valid {
		next.EntryMcapUSD = p.EntryMcapUSD.Value
	}
	if p.SizeUSD.Set {
		next.SizeUSD = p.SizeUSD.Ptr()
	}
	if p.ExitMcapUSD.Set {
		next.ExitMcapUSD = p.ExitMcapUSD.Ptr()
	}
	if p.ExitReason.Set {
		next.ExitReason = p.ExitReason.Ptr()
	}
	r.st.trades[tradeID] = &next
	return nil
}

// DeleteTrade removes a trade with its bubbles and scores. Returns ErrNotFound if not exists.
func (r *repo) DeleteTrade(_ context.Context, tradeID string) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.trades[tradeID]; !ok {
		return storage.ErrNotFound
	}

	delete(r.st.tradeBubbles, tradeID)
	delete(r.st.tradeScores, tradeID)
	delete(r.st.trades, tradeID)
	return nil
}

// ListTrades returns trades ordered by (entry_ts, id) DESC.
func (r *repo) ListTrades(_ context.Context, f storage.TradeFilter) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for _, stored := range r.st.trades {
		t := r.viewTrade(stored)
		if !matchTrade(t, f) {
			continue
		}
		switch {
		case f.Scope == domain.ScopeOpen && !t.IsOpen():
			continue
		case f.Scope == domain.ScopeClosed && t.IsOpen():
			continue
		case f.Cursor != nil && !f.Cursor.Before(t.EntryTS, t.ID):
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.EntryTS.Equal(b.EntryTS) {
			return a.EntryTS.After(b.EntryTS)
		}
		return a.ID > b.ID
	})
	return truncate(out, f.Limit), nil
}

// CountTrades returns total, open and closed counts, ignoring scope, cursor and limit.
func (r *repo) CountTrades(_ context.Context, f storage.TradeFilter) (domain.TradeCounts, error) {
	var counts domain.TradeCounts
	for _, stored := range r.st.trades {
		t := r.viewTrade(stored)
		if !matchTrade(t, f) {
			continue
		}
		counts.Total++
		if t.IsOpen() {
			counts.Open++
		} else {
			counts.Closed++
		}
	}
	return counts, nil
}

// viewTrade copies a stored trade and joins its coin.
func (r *repo) viewTrade(stored *domain.Trade) *domain.Trade {
	t := *stored
	if c, ok := r.st.coins[domain.CoinKey{CA: t.CA, Chain: t.Chain}]; ok {
		t.CoinName = c.Name
		t.CoinSymbol = c.Symbol
	}
	t.Derive()
	return &t
}

func matchTrade(t *domain.Trade, f storage.TradeFilter) bool {
	if f.CA != "" && t.CA != f.CA {
		return false
	}
	if f.Chain != "" && t.Chain != f.Chain {
		return false
	}
	if f.Query != "" {
		return containsFold(f.Query, t.CoinName, deref(t.CoinSymbol), t.CA, t.TradeID)
	}
	return true
}

// containsFold reports whether any field contains q, ignoring case.
func containsFold(q string, fields ...string) bool {
	q = strings.ToLower(q)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func latest(cur *time.Time, t time.Time) *time.Time {
	if cur == nil || t.After(*cur) {
		return &t
	}
	return cur
}
