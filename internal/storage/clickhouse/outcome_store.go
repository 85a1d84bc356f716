package clickhouse

import (
	"context"
	"fmt"
	"sort"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using ClickHouse.
// Both tables are ReplacingMergeTree, so re-recording an outcome with a
// newer recorded_at supersedes the earlier row after merge; reads use FINAL.
type OutcomeStore struct {
	conn *Conn
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(conn *Conn) *OutcomeStore {
	return &OutcomeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// InsertTradeOutcome records a closed trade.
func (s *OutcomeStore) InsertTradeOutcome(ctx context.Context, o *domain.TradeOutcome) error {
	query := `
		INSERT INTO trade_outcomes (
			trade_id, ca, chain, entry_ts, exit_ts,
			entry_mcap_usd, exit_mcap_usd, size_usd,
			pnl_pct, pnl_usd, exit_reason, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		o.TradeID, o.CA, o.Chain, o.EntryTS, o.ExitTS,
		o.EntryMcapUSD, o.ExitMcapUSD, o.SizeUSD,
		o.PnLPct, o.PnLUSD, o.ExitReason, o.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade outcome: %w", err)
	}
	return nil
}

// InsertTipOutcome records the latest observed state of a tip.
func (s *OutcomeStore) InsertTipOutcome(ctx context.Context, o *domain.TipOutcome) error {
	query := `
		INSERT INTO tip_outcomes (
			tip_id, account_id, platform, handle, ca, chain,
			post_ts, post_mcap_usd, peak_mcap_usd, trough_mcap_usd,
			effect_pct, rug, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var rug uint8
	if o.Rug {
		rug = 1
	}

	err := s.conn.Exec(ctx, query,
		o.TipID, o.AccountID, o.Platform, o.Handle, o.CA, o.Chain,
		o.PostTS, o.PostMcapUSD, o.PeakMcapUSD, o.TroughMcapUSD,
		o.EffectPct, rug, o.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tip outcome: %w", err)
	}
	return nil
}

// Stats aggregates trade and tip outcomes per chain, ordered by chain.
func (s *OutcomeStore) Stats(ctx context.Context) ([]*domain.OutcomeStats, error) {
	byChain := make(map[string]*domain.OutcomeStats)
	get := func(chain string) *domain.OutcomeStats {
		st, ok := byChain[chain]
		if !ok {
			st = &domain.OutcomeStats{Chain: chain}
			byChain[chain] = st
		}
		return st
	}

	tradeRows, err := s.conn.Query(ctx, `
		SELECT chain, count(), countIf(pnl_pct > 0), avg(pnl_pct)
		FROM trade_outcomes FINAL
		GROUP BY chain
	`)
	if err != nil {
		return nil, fmt.Errorf("query trade outcome stats: %w", err)
	}
	defer tradeRows.Close()

	for tradeRows.Next() {
		var (
			chain       string
			closed, won uint64
			avgPnL      float64
		)
		if err := tradeRows.Scan(&chain, &closed, &won, &avgPnL); err != nil {
			return nil, fmt.Errorf("scan trade outcome stats: %w", err)
		}
		st := get(chain)
		st.TradesClosed = closed
		st.TradesWon = won
		st.AvgPnLPct = &avgPnL
	}
	if err := tradeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade outcome stats: %w", err)
	}

	tipRows, err := s.conn.Query(ctx, `
		SELECT chain, count(), countIf(rug = 1), avgOrNull(effect_pct)
		FROM tip_outcomes FINAL
		GROUP BY chain
	`)
	if err != nil {
		return nil, fmt.Errorf("query tip outcome stats: %w", err)
	}
	defer tipRows.Close()

	for tipRows.Next() {
		var (
			chain           string
			tracked, rugged uint64
			avgEffect       *float64
		)
		if err := tipRows.Scan(&chain, &tracked, &rugged, &avgEffect); err != nil {
			return nil, fmt.Errorf("scan tip outcome stats: %w", err)
		}
		st := get(chain)
		st.TipsTracked = tracked
		st.TipsRugged = rugged
		st.AvgTipEffect = avgEffect
	}
	if err := tipRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tip outcome stats: %w", err)
	}

	stats := make([]*domain.OutcomeStats, 0, len(byChain))
	for _, st := range byChain {
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Chain < stats[j].Chain })
	return stats, nil
}
