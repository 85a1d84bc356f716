package domain

import "time"

// TradeOutcome is the analytics record of a closed trade.
// Corresponds to trade_outcomes table in ClickHouse.
type TradeOutcome struct {
	TradeID      string
	CA           string
	Chain        string
	EntryTS      time.Time
	ExitTS       time.Time
	EntryMcapUSD float64
	ExitMcapUSD  float64
	SizeUSD      *float64
	PnLPct       float64
	PnLUSD       *float64
	ExitReason   string
	RecordedAt   time.Time
}

// TipOutcome is the analytics record of a tip's latest observed effect.
// Corresponds to tip_outcomes table in ClickHouse (ReplacingMergeTree on tip_id).
type TipOutcome struct {
	TipID         int64
	AccountID     int64
	Platform      string
	Handle        string
	CA            string
	Chain         string
	PostTS        time.Time
	PostMcapUSD   float64
	PeakMcapUSD   *float64
	TroughMcapUSD *float64
	EffectPct     *float64
	Rug           bool
	RecordedAt    time.Time
}

// OutcomeStats aggregates outcomes per chain.
type OutcomeStats struct {
	Chain        string   `json:"chain"`
	TradesClosed uint64   `json:"trades_closed"`
	TradesWon    uint64   `json:"trades_won"`
	AvgPnLPct    *float64 `json:"avg_pnl_pct"`
	TipsTracked  uint64   `json:"tips_tracked"`
	TipsRugged   uint64   `json:"tips_rugged"`
	AvgTipEffect *float64 `json:"avg_tip_effect_pct"`
}

// NewTradeOutcome builds an outcome from a closed trade. Returns nil
// for open trades.
func NewTradeOutcome(t *Trade, now time.Time) *TradeOutcome {
	if t == nil || t.ExitTS == nil || t.ExitMcapUSD == nil {
		return nil
	}
	pct, usd := TradePnL(t.EntryMcapUSD, t.ExitMcapUSD, t.SizeUSD)
	o := &TradeOutcome{
		TradeID:      t.TradeID,
		CA:           t.CA,
		Chain:        t.Chain,
		EntryTS:      t.EntryTS,
		ExitTS:       *t.ExitTS,
		EntryMcapUSD: t.EntryMcapUSD,
		ExitMcapUSD:  *t.ExitMcapUSD,
		SizeUSD:      t.SizeUSD,
		PnLUSD:       usd,
		RecordedAt:   now,
	}
	if pct != nil {
		o.PnLPct = *pct
	}
	if t.ExitReason != nil {
		o.ExitReason = *t.ExitReason
	}
	return o
}

// NewTipOutcome builds an outcome from a tip.
func NewTipOutcome(t *Tip, now time.Time) *TipOutcome {
	if t == nil {
		return nil
	}
	_, _, effect := TipEffect(t.PostMcapUSD, t.PeakMcapUSD, t.TroughMcapUSD)
	return &TipOutcome{
		TipID:         t.TipID,
		AccountID:     t.AccountID,
		Platform:      t.Platform,
		Handle:        t.Handle,
		CA:            t.CA,
		Chain:         t.Chain,
		PostTS:        t.PostTS,
		PostMcapUSD:   t.PostMcapUSD,
		PeakMcapUSD:   t.PeakMcapUSD,
		TroughMcapUSD: t.TroughMcapUSD,
		EffectPct:     effect,
		Rug:           t.RugFlag != nil && *t.RugFlag == 1,
		RecordedAt:    now,
	}
}
