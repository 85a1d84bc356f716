package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/observability"
	"memedesk/internal/storage"
)

// DexAdd registers a coin seen on a DEX and opens a trade on it in one step.
type DexAdd struct {
	CA             string          `json:"ca"`
	Name           *string         `json:"name"`
	Symbol         *string         `json:"symbol"`
	LaunchTS       *time.Time      `json:"launch_ts"`
	Chain          string          `json:"chain"`
	EntryMcapUSD   float64         `json:"entry_mcap_usd"`
	SizeUSD        *float64        `json:"size_usd"`
	Bubbles        *domain.Bubbles `json:"bubbles"`
	IntuitionScore *int            `json:"intuition_score"`
}

// InfluencerAdd registers a coin called by an influencer, the account and
// the tip in one step.
type InfluencerAdd struct {
	CA             string          `json:"ca"`
	Name           *string         `json:"name"`
	Symbol         *string         `json:"symbol"`
	LaunchTS       *time.Time      `json:"launch_ts"`
	Chain          string          `json:"chain"`
	Platform       string          `json:"platform"`
	Handle         string          `json:"handle"`
	PostTS         time.Time       `json:"post_ts"`
	PostMcapUSD    float64         `json:"post_mcap_usd"`
	Bubbles        *domain.Bubbles `json:"bubbles"`
	IntuitionScore *int            `json:"intuition_score"`
}

// WizardTrade identifies the trade opened by DexAdd.
type WizardTrade struct {
	ID      int64     `json:"id"`
	TradeID string    `json:"trade_id"`
	EntryTS time.Time `json:"entry_ts"`
}

// WizardScore identifies the score appended by a wizard step.
type WizardScore struct {
	ID       int64     `json:"id"`
	ScoredTS time.Time `json:"scored_ts"`
}

// DexAddResult is the outcome of DexAdd.
type DexAddResult struct {
	OK    bool         `json:"ok"`
	Coin  *domain.Coin `json:"coin"`
	Trade WizardTrade  `json:"trade"`
	Score *WizardScore `json:"score"`
}

// InfluencerAddResult is the outcome of InfluencerAdd.
type InfluencerAddResult struct {
	OK    bool         `json:"ok"`
	Coin  *domain.Coin `json:"coin"`
	TipID int64        `json:"tip_id"`
	Score *WizardScore `json:"score"`
}

func wizardScore(sc *domain.Score) *WizardScore {
	if sc == nil {
		return nil
	}
	return &WizardScore{ID: sc.ID, ScoredTS: sc.ScoredTS}
}

func scoringOf(score *int) *domain.ScoreRef {
	if score == nil {
		return nil
	}
	return &domain.ScoreRef{IntuitionScore: *score}
}

// DexAdd upserts the coin as a dex coin, opens a trade and stores its
// bubbles and optional score. Nothing is written unless every step succeeds.
func (s *Service) DexAdd(ctx context.Context, in DexAdd) (res *DexAddResult, err error) {
	defer func() { s.observe("wizard_dex_add", err) }()

	open := domain.TradeOpen{
		CA:           in.CA,
		Chain:        in.Chain,
		EntryMcapUSD: in.EntryMcapUSD,
		SizeUSD:      in.SizeUSD,
		Bubbles:      in.Bubbles,
		Scoring:      scoringOf(in.IntuitionScore),
	}
	if err := validateTradeOpen(&open); err != nil {
		return nil, err
	}

	var (
		coin  *domain.Coin
		trade *domain.Trade
		score *domain.Score
	)
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		coin, err = UpsertCoin(ctx, r, domain.CoinUpsert{
			CA:       open.CA,
			Chain:    in.Chain,
			Name:     in.Name,
			Symbol:   in.Symbol,
			LaunchTS: in.LaunchTS,
			Source:   domain.SourceDex,
		})
		if err != nil {
			return err
		}
		trade, score, err = s.openTrade(ctx, r, coin.Key(), open)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.RecordTradeOpened()
	s.log.Info("wizard dex add", zap.String("ca", coin.CA), zap.String("chain", coin.Chain), zap.String("trade_id", trade.TradeID))
	s.publish(ctx, domain.Event{Type: domain.EventCoinUpserted, Coin: keyPtr(coin.Key())})
	s.publish(ctx, domain.Event{Type: domain.EventTradeOpened, Coin: keyPtr(coin.Key()), Trade: trade})

	return &DexAddResult{
		OK:    true,
		Coin:  coin,
		Trade: WizardTrade{ID: trade.ID, TradeID: trade.TradeID, EntryTS: trade.EntryTS},
		Score: wizardScore(score),
	}, nil
}

// InfluencerAdd upserts the coin as an influencer coin, upserts the
// account and records the tip with its bubbles and optional score in one
// transaction.
func (s *Service) InfluencerAdd(ctx context.Context, in InfluencerAdd) (res *InfluencerAddResult, err error) {
	defer func() { s.observe("wizard_influencer_add", err) }()

	platform, err := requireText("platform", in.Platform)
	if err != nil {
		return nil, err
	}
	handle, err := requireText("handle", in.Handle)
	if err != nil {
		return nil, err
	}
	create := domain.TipCreate{
		CA:          in.CA,
		Chain:       in.Chain,
		PostTS:      in.PostTS,
		PostMcapUSD: in.PostMcapUSD,
		Bubbles:     in.Bubbles,
		Scoring:     scoringOf(in.IntuitionScore),
	}
	if err := validateTipBody(&create); err != nil {
		return nil, err
	}

	var (
		coin  *domain.Coin
		tip   *domain.Tip
		score *domain.Score
	)
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		coin, err = UpsertCoin(ctx, r, domain.CoinUpsert{
			CA:       create.CA,
			Chain:    in.Chain,
			Name:     in.Name,
			Symbol:   in.Symbol,
			LaunchTS: in.LaunchTS,
			Source:   domain.SourceInfluencer,
		})
		if err != nil {
			return err
		}
		account, err := r.UpsertAccount(ctx, platform, handle)
		if err != nil {
			return err
		}
		create.AccountID = account.AccountID
		tip, score, err = createTip(ctx, r, coin.Key(), create)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.RecordTipCreated()
	s.log.Info("wizard influencer add", zap.String("ca", coin.CA), zap.String("chain", coin.Chain), zap.Int64("tip_id", tip.TipID))
	s.publish(ctx, domain.Event{Type: domain.EventCoinUpserted, Coin: keyPtr(coin.Key())})
	s.publish(ctx, domain.Event{Type: domain.EventTipCreated, Coin: keyPtr(coin.Key()), Tip: tip})

	return &InfluencerAddResult{
		OK:    true,
		Coin:  coin,
		TipID: tip.TipID,
		Score: wizardScore(score),
	}, nil
}
