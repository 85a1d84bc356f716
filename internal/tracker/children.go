package tracker

import (
	"context"
	"fmt"
	"strconv"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// CoinBubbles is a coin-level bubble snapshot with the resolved key.
type CoinBubbles struct {
	domain.CoinKey
	Clusters []domain.BubbleRow `json:"clusters"`
	Others   []domain.BubbleRow `json:"others"`
}

// SetTradeBubbles replaces the bubble snapshot of a trade. Ranks are
// validated before anything is written.
func (s *Service) SetTradeBubbles(ctx context.Context, tradeID string, b *domain.Bubbles) (out *domain.Bubbles, err error) {
	defer func() { s.observe("trade_bubbles_set", err) }()

	if err := b.Validate(); err != nil {
		return nil, err
	}
	var t *domain.Trade
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		if t, err = r.GetTrade(ctx, tradeID); err != nil {
			return notFound(err, "trade not found")
		}
		if err := r.ReplaceTradeBubbles(ctx, tradeID, b); err != nil {
			return fmt.Errorf("set trade bubbles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventBubblesSet, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Owner: tradeID})
	return emptyIfNil(b), nil
}

// GetTradeBubbles returns the bubble snapshot of a trade, empty when none is stored.
func (s *Service) GetTradeBubbles(ctx context.Context, tradeID string) (b *domain.Bubbles, err error) {
	err = s.store.View(ctx, func(r storage.Repository) error {
		if _, err := r.GetTrade(ctx, tradeID); err != nil {
			return notFound(err, "trade not found")
		}
		m, err := r.TradeBubbles(ctx, []string{tradeID})
		if err != nil {
			return fmt.Errorf("load trade bubbles: %w", err)
		}
		b = m[tradeID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return emptyIfNil(b), nil
}

// AddTradeScore appends an intuition score to a trade.
func (s *Service) AddTradeScore(ctx context.Context, tradeID string, score int) (sc *domain.Score, err error) {
	defer func() { s.observe("trade_score_add", err) }()

	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		if _, err := r.GetTrade(ctx, tradeID); err != nil {
			return notFound(err, "trade not found")
		}
		var err error
		if sc, err = r.AppendTradeScore(ctx, tradeID, score); err != nil {
			return fmt.Errorf("append trade score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventScoreAppended, Owner: tradeID, Score: sc})
	return sc, nil
}

// SetTipBubbles replaces the bubble snapshot of a tip.
func (s *Service) SetTipBubbles(ctx context.Context, tipID int64, b *domain.Bubbles) (out *domain.Bubbles, err error) {
	defer func() { s.observe("tip_bubbles_set", err) }()

	if err := b.Validate(); err != nil {
		return nil, err
	}
	var t *domain.Tip
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		if t, err = r.GetTip(ctx, tipID); err != nil {
			return notFound(err, "tip not found")
		}
		if err := r.ReplaceTipBubbles(ctx, tipID, b); err != nil {
			return fmt.Errorf("set tip bubbles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventBubblesSet, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Owner: strconv.FormatInt(tipID, 10)})
	return emptyIfNil(b), nil
}

// GetTipBubbles returns the bubble snapshot of a tip, empty when none is stored.
func (s *Service) GetTipBubbles(ctx context.Context, tipID int64) (b *domain.Bubbles, err error) {
	err = s.store.View(ctx, func(r storage.Repository) error {
		if _, err := r.GetTip(ctx, tipID); err != nil {
			return notFound(err, "tip not found")
		}
		m, err := r.TipBubbles(ctx, []int64{tipID})
		if err != nil {
			return fmt.Errorf("load tip bubbles: %w", err)
		}
		b = m[tipID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return emptyIfNil(b), nil
}

// AddTipScore appends an intuition score to a tip.
func (s *Service) AddTipScore(ctx context.Context, tipID int64, score int) (sc *domain.Score, err error) {
	defer func() { s.observe("tip_score_add", err) }()

	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		if _, err := r.GetTip(ctx, tipID); err != nil {
			return notFound(err, "tip not found")
		}
		var err error
		if sc, err = r.AppendTipScore(ctx, tipID, score); err != nil {
			return fmt.Errorf("append tip score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventScoreAppended, Owner: strconv.FormatInt(tipID, 10), Score: sc})
	return sc, nil
}

// SetCoinBubbles resolves the coin and replaces its bubble snapshot.
func (s *Service) SetCoinBubbles(ctx context.Context, ca, chain string, b *domain.Bubbles) (out *CoinBubbles, err error) {
	defer func() { s.observe("coin_bubbles_set", err) }()

	if _, err := requireCA(ca); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	var key domain.CoinKey
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		if key, err = ResolveCoin(ctx, r, ca, chain); err != nil {
			return err
		}
		if err := r.ReplaceCoinBubbles(ctx, key, b); err != nil {
			return fmt.Errorf("set coin bubbles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventBubblesSet, Coin: keyPtr(key), Owner: key.CA})
	b = emptyIfNil(b)
	return &CoinBubbles{CoinKey: key, Clusters: b.Clusters, Others: b.Others}, nil
}

// GetCoinBubbles resolves the coin and returns its bubble snapshot.
func (s *Service) GetCoinBubbles(ctx context.Context, ca, chain string) (out *CoinBubbles, err error) {
	err = s.store.View(ctx, func(r storage.Repository) error {
		key, err := ResolveCoin(ctx, r, ca, chain)
		if err != nil {
			return err
		}
		b, err := r.CoinBubbles(ctx, key)
		if err != nil {
			return fmt.Errorf("load coin bubbles: %w", err)
		}
		b = emptyIfNil(b)
		out = &CoinBubbles{CoinKey: key, Clusters: b.Clusters, Others: b.Others}
		return nil
	})
	return out, err
}

// AddCoinScore resolves the coin and appends a coin-level score.
func (s *Service) AddCoinScore(ctx context.Context, ca, chain string, score int) (sc *domain.Score, err error) {
	defer func() { s.observe("coin_score_add", err) }()

	if _, err := requireCA(ca); err != nil {
		return nil, err
	}
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		key, err := ResolveCoin(ctx, r, ca, chain)
		if err != nil {
			return err
		}
		if sc, err = r.AppendCoinScore(ctx, key, score); err != nil {
			return fmt.Errorf("append coin score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventScoreAppended, Coin: &domain.CoinKey{CA: sc.CA, Chain: sc.Chain}, Owner: sc.CA, Score: sc})
	return sc, nil
}

// ScoreQuery filters coin-level score listings.
type ScoreQuery struct {
	CA    string `form:"ca"`
	Chain string `form:"chain"`
	Limit int    `form:"limit"`
}

// ListCoinScores returns coin-level scores, newest first.
func (s *Service) ListCoinScores(ctx context.Context, q ScoreQuery) ([]*domain.Score, error) {
	limit, err := domain.ClampLimit(q.Limit, defaultScoreLimit, maxScoreLimit)
	if err != nil {
		return nil, err
	}
	f := storage.ScoreFilter{
		CA:    domain.NormalizeCA(q.CA),
		Chain: domain.NormalizeChain(q.Chain),
		Limit: limit,
	}
	var out []*domain.Score
	err = s.store.View(ctx, func(r storage.Repository) error {
		var err error
		out, err = r.ListCoinScores(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list coin scores: %w", err)
	}
	return nonNil(out), nil
}
