package tracker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/observability"
	"memedesk/internal/storage"
)

func validateTradeOpen(in *domain.TradeOpen) error {
	ca, err := requireCA(in.CA)
	if err != nil {
		return err
	}
	in.CA = ca
	if err := requirePositive("entry_mcap_usd", in.EntryMcapUSD); err != nil {
		return err
	}
	if err := optionalPositive("size_usd", in.SizeUSD); err != nil {
		return err
	}
	if err := in.Bubbles.Validate(); err != nil {
		return err
	}
	return validateScoring(in.Scoring)
}

// openTrade inserts a trade for an already resolved coin together with its
// optional bubbles and first score.
func (s *Service) openTrade(ctx context.Context, r storage.Repository, key domain.CoinKey, in domain.TradeOpen) (*domain.Trade, *domain.Score, error) {
	t := &domain.Trade{
		TradeID:      s.newTradeID(),
		CA:           key.CA,
		Chain:        key.Chain,
		EntryMcapUSD: in.EntryMcapUSD,
		SizeUSD:      in.SizeUSD,
	}
	if err := r.InsertTrade(ctx, t); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			return nil, nil, domain.Conflict("trade id already exists")
		case errors.Is(err, storage.ErrMissingReference):
			return nil, nil, domain.NotFound("coin not found")
		}
		return nil, nil, fmt.Errorf("insert trade: %w", err)
	}

	if !in.Bubbles.IsEmpty() {
		if err := r.ReplaceTradeBubbles(ctx, t.TradeID, in.Bubbles); err != nil {
			return nil, nil, fmt.Errorf("set trade bubbles: %w", err)
		}
	}
	var score *domain.Score
	if in.Scoring != nil {
		var err error
		score, err = r.AppendTradeScore(ctx, t.TradeID, in.Scoring.IntuitionScore)
		if err != nil {
			return nil, nil, fmt.Errorf("append trade score: %w", err)
		}
	}

	stored, err := r.GetTrade(ctx, t.TradeID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload trade: %w", err)
	}
	stored.Bubbles = in.Bubbles
	stored.Scoring = scoreRef(score)
	return stored, score, nil
}

// OpenTrade resolves the coin and opens a trade on it. The coin is never
// created implicitly.
func (s *Service) OpenTrade(ctx context.Context, in domain.TradeOpen) (t *domain.Trade, err error) {
	defer func() { s.observe("trade_open", err) }()

	if err := validateTradeOpen(&in); err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		key, err := ResolveCoin(ctx, r, in.CA, in.Chain)
		if err != nil {
			return err
		}
		t, _, err = s.openTrade(ctx, r, key, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.RecordTradeOpened()
	s.log.Info("trade opened", zap.String("trade_id", t.TradeID), zap.String("ca", t.CA), zap.String("chain", t.Chain))
	s.publish(ctx, domain.Event{Type: domain.EventTradeOpened, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Trade: t})
	return t, nil
}

// CloseTrade closes the open trade tradeID. A trade_id in the body must
// match the addressed one. Closing a closed or unknown trade is NotFound.
func (s *Service) CloseTrade(ctx context.Context, tradeID string, in domain.TradeClose) (t *domain.Trade, err error) {
	defer func() { s.observe("trade_close", err) }()

	if in.TradeID != "" && in.TradeID != tradeID {
		return nil, domain.Invalid("trade id mismatch")
	}
	if err := requirePositive("exit_mcap_usd", in.ExitMcapUSD); err != nil {
		return nil, err
	}
	in.TradeID = tradeID

	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		t, err = r.CloseTrade(ctx, in)
		if err != nil {
			return notFound(err, "open trade not found")
		}
		return attachTradeChildren(ctx, r, []*domain.Trade{t})
	})
	if err != nil {
		return nil, err
	}

	observability.RecordTradeClosed()
	fields := []zap.Field{zap.String("trade_id", t.TradeID)}
	if t.PnLPct != nil {
		fields = append(fields, zap.Float64("pnl_pct", *t.PnLPct))
	}
	s.log.Info("trade closed", fields...)
	s.publish(ctx, domain.Event{Type: domain.EventTradeClosed, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Trade: t})
	return t, nil
}

// PatchTrade applies the fields present in p. An explicit null clears a
// nullable field; entry_mcap_usd cannot be cleared, nor can exit_mcap_usd
// once the trade is closed.
func (s *Service) PatchTrade(ctx context.Context, tradeID string, p domain.TradePatch) (t *domain.Trade, err error) {
	defer func() { s.observe("trade_patch", err) }()

	if p.IsEmpty() {
		return nil, domain.Invalid("no fields to update")
	}
	if err := patchPositive("entry_mcap_usd", p.EntryMcapUSD, false); err != nil {
		return nil, err
	}
	if err := patchPositive("size_usd", p.SizeUSD, true); err != nil {
		return nil, err
	}
	if err := patchPositive("exit_mcap_usd", p.ExitMcapUSD, true); err != nil {
		return nil, err
	}

	err = s.store.Update(ctx, func(r storage.Repository) error {
		if p.ExitMcapUSD.Set && !p.ExitMcapUSD.Valid {
			cur, err := r.GetTrade(ctx, tradeID)
			if err != nil {
				return notFound(err, "trade not found")
			}
			if cur.ExitTS != nil {
				return domain.Invalid("exit_mcap_usd cannot be cleared on a closed trade")
			}
		}
		if err := r.PatchTrade(ctx, tradeID, p); err != nil {
			return notFound(err, "trade not found")
		}
		var err error
		t, err = r.GetTrade(ctx, tradeID)
		if err != nil {
			return notFound(err, "trade not found")
		}
		return attachTradeChildren(ctx, r, []*domain.Trade{t})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventTradeUpdated, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Trade: t})
	return t, nil
}

// DeleteTrade removes a trade with its bubbles and scores. The coin stays.
func (s *Service) DeleteTrade(ctx context.Context, tradeID string) (err error) {
	defer func() { s.observe("trade_delete", err) }()

	var t *domain.Trade
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		t, err = r.GetTrade(ctx, tradeID)
		if err != nil {
			return notFound(err, "trade not found")
		}
		return notFound(r.DeleteTrade(ctx, tradeID), "trade not found")
	})
	if err != nil {
		return err
	}
	s.log.Info("trade deleted", zap.String("trade_id", tradeID))
	s.publish(ctx, domain.Event{Type: domain.EventTradeDeleted, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Trade: t})
	return nil
}

// GetTrade returns one trade with its bubbles and current score.
func (s *Service) GetTrade(ctx context.Context, tradeID string) (t *domain.Trade, err error) {
	err = s.store.View(ctx, func(r storage.Repository) error {
		var err error
		t, err = r.GetTrade(ctx, tradeID)
		if err != nil {
			return notFound(err, "trade not found")
		}
		return attachTradeChildren(ctx, r, []*domain.Trade{t})
	})
	return t, err
}

// TradeQuery filters the plain trade listing.
type TradeQuery struct {
	CA       string `form:"ca"`
	Chain    string `form:"chain"`
	OnlyOpen bool   `form:"only_open"`
	Limit    int    `form:"limit"`
}

// ListTrades returns trades newest first.
func (s *Service) ListTrades(ctx context.Context, q TradeQuery) ([]*domain.Trade, error) {
	limit, err := domain.ClampLimit(q.Limit, defaultTradeLimit, maxTradeLimit)
	if err != nil {
		return nil, err
	}
	f := storage.TradeFilter{
		CA:    domain.NormalizeCA(q.CA),
		Chain: domain.NormalizeChain(q.Chain),
		Scope: domain.ScopeAll,
		Limit: limit,
	}
	if q.OnlyOpen {
		f.Scope = domain.ScopeOpen
	}

	out := []*domain.Trade{}
	err = s.store.View(ctx, func(r storage.Repository) error {
		items, err := r.ListTrades(ctx, f)
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}
		if len(items) > 0 {
			out = items
		}
		return attachTradeChildren(ctx, r, items)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TradePageQuery filters the paginated trade listing.
type TradePageQuery struct {
	CA     string `form:"ca"`
	Chain  string `form:"chain"`
	Scope  string `form:"scope"`
	Query  string `form:"q"`
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// ListTradesPaged returns one page of trades plus counts over the whole
// filtered set, ignoring scope and cursor.
func (s *Service) ListTradesPaged(ctx context.Context, q TradePageQuery) (*domain.TradePage, error) {
	limit, err := domain.ClampLimit(q.Limit, defaultTradePageLimit, maxTradePageLimit)
	if err != nil {
		return nil, err
	}
	scope := domain.TradeScope(q.Scope)
	if scope == "" {
		scope = domain.ScopeAll
	}
	if !scope.IsValid() {
		return nil, domain.Invalid("scope must be one of all, open, closed")
	}
	f := storage.TradeFilter{
		CA:    domain.NormalizeCA(q.CA),
		Chain: domain.NormalizeChain(q.Chain),
		Scope: scope,
		Query: q.Query,
		Limit: limit,
	}
	if q.Cursor != "" {
		if f.Cursor, err = domain.ParseCursor(q.Cursor); err != nil {
			return nil, err
		}
	}

	page := &domain.TradePage{Items: []*domain.Trade{}}
	err = s.store.View(ctx, func(r storage.Repository) error {
		items, err := r.ListTrades(ctx, f)
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}
		if page.TradeCounts, err = r.CountTrades(ctx, f); err != nil {
			return fmt.Errorf("count trades: %w", err)
		}
		if len(items) > 0 {
			page.Items = items
			last := items[len(items)-1]
			page.NextCursor = domain.NextCursor(len(items), limit, domain.Cursor{TS: last.EntryTS, ID: last.ID})
		}
		return attachTradeChildren(ctx, r, items)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// attachTradeChildren loads bubbles and current scores for trades with one
// query per child kind.
func attachTradeChildren(ctx context.Context, r storage.Repository, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	ids := make([]string, len(trades))
	for i, t := range trades {
		ids[i] = t.TradeID
	}
	bubbles, err := r.TradeBubbles(ctx, ids)
	if err != nil {
		return fmt.Errorf("load trade bubbles: %w", err)
	}
	scores, err := r.LatestTradeScores(ctx, ids)
	if err != nil {
		return fmt.Errorf("load trade scores: %w", err)
	}
	for _, t := range trades {
		t.Bubbles = bubbles[t.TradeID]
		t.Scoring = scoreRef(scores[t.TradeID])
	}
	return nil
}
