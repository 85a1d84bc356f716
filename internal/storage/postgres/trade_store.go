package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

const tradeSelect = `
	SELECT
		t.id, t.trade_id, t.ca, t.chain, c.name, c.symbol,
		t.entry_ts, t.entry_mcap_usd, t.size_usd,
		t.exit_ts, t.exit_mcap_usd, t.exit_reason
	FROM trades t
	JOIN coins c ON c.ca = t.ca AND c.chain = t.chain
`

// InsertTrade adds an open trade. Returns ErrDuplicateKey if trade_id exists
// and ErrMissingReference if the coin does not.
func (r *repo) InsertTrade(ctx context.Context, t *domain.Trade) error {
	query := `
		INSERT INTO trades (trade_id, ca, chain, entry_mcap_usd, size_usd)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, entry_ts
	`

	err := r.q.QueryRow(ctx, query,
		t.TradeID, t.CA, t.Chain, t.EntryMcapUSD, t.SizeUSD,
	).Scan(&t.ID, &t.EntryTS)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isMissingReferenceError(err) {
			return storage.ErrMissingReference
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetTrade retrieves a trade by trade_id. Returns ErrNotFound if not exists.
func (r *repo) GetTrade(ctx context.Context, tradeID string) (*domain.Trade, error) {
	t, err := scanTrade(r.q.QueryRow(ctx, tradeSelect+` WHERE t.trade_id = $1`, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

// CloseTrade sets the exit of an open trade. Returns ErrNotFound when the
// trade does not exist or is already closed.
func (r *repo) CloseTrade(ctx context.Context, c domain.TradeClose) (*domain.Trade, error) {
	query := `
		UPDATE trades
		SET exit_ts = now(), exit_mcap_usd = $2, exit_reason = $3
		WHERE trade_id = $1 AND exit_ts IS NULL
	`

	tag, err := r.q.Exec(ctx, query, c.TradeID, c.ExitMcapUSD, c.ExitReason)
	if err != nil {
		return nil, fmt.Errorf("close trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, storage.ErrNotFound
	}
	return r.GetTrade(ctx, c.TradeID)
}

// PatchTrade applies the set fields of p. Returns ErrNotFound if not exists.
func (r *repo) PatchTrade(ctx context.Context, tradeID string, p domain.TradePatch) error {
	var (
		w    filter
		sets []string
	)
	if p.EntryMcapUSD.Set {
		sets = append(sets, "entry_mcap_usd = "+w.arg(p.EntryMcapUSD.Ptr()))
	}
	if p.SizeUSD.Set {
		sets = append(sets, "size_usd = "+w.arg(p.SizeUSD.Ptr()))
	}
	if p.ExitMcapUSD.Set {
		sets = append(sets, "exit_mcap_usd = "+w.arg(p.ExitMcapUSD.Ptr()))
	}
	if p.ExitReason.Set {
		sets = append(sets, "exit_reason = "+w.arg(p.ExitReason.Ptr()))
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE trades SET %s WHERE trade_id = %s`, joinSets(sets), w.arg(tradeID))

	tag, err := r.q.Exec(ctx, query, w.args...)
	if err != nil {
		return fmt.Errorf("patch trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTrade removes a trade with its bubbles and scores. Returns ErrNotFound if not exists.
func (r *repo) DeleteTrade(ctx context.Context, tradeID string) error {
	for _, query := range []string{
		`DELETE FROM trade_bubbles WHERE trade_id = $1`,
		`DELETE FROM trade_bubbles_others WHERE trade_id = $1`,
		`DELETE FROM trade_scoring WHERE trade_id = $1`,
	} {
		if _, err := r.q.Exec(ctx, query, tradeID); err != nil {
			return fmt.Errorf("delete trade children: %w", err)
		}
	}

	tag, err := r.q.Exec(ctx, `DELETE FROM trades WHERE trade_id = $1`, tradeID)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTrades returns trades ordered by (entry_ts, id) DESC.
func (r *repo) ListTrades(ctx context.Context, f storage.TradeFilter) ([]*domain.Trade, error) {
	w := tradeFilter(f)
	switch f.Scope {
	case domain.ScopeOpen:
		w.where("t.exit_ts IS NULL")
	case domain.ScopeClosed:
		w.where("t.exit_ts IS NOT NULL")
	}
	if f.Cursor != nil {
		w.where(fmt.Sprintf("(t.entry_ts, t.id) < (%s, %s)", w.arg(f.Cursor.TS), w.arg(f.Cursor.ID)))
	}

	query := fmt.Sprintf(`%s %s ORDER BY t.entry_ts DESC, t.id DESC LIMIT %s`,
		tradeSelect, w.clause(), w.arg(f.Limit))

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// CountTrades returns total, open and closed counts, ignoring scope, cursor and limit.
func (r *repo) CountTrades(ctx context.Context, f storage.TradeFilter) (domain.TradeCounts, error) {
	w := tradeFilter(f)
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE t.exit_ts IS NULL),
			COUNT(*) FILTER (WHERE t.exit_ts IS NOT NULL)
		FROM trades t
		JOIN coins c ON c.ca = t.ca AND c.chain = t.chain
		%s
	`, w.clause())

	var counts domain.TradeCounts
	if err := r.q.QueryRow(ctx, query, w.args...).Scan(&counts.Total, &counts.Open, &counts.Closed); err != nil {
		return counts, fmt.Errorf("count trades: %w", err)
	}
	return counts, nil
}

// tradeFilter builds the conditions shared by ListTrades and CountTrades.
func tradeFilter(f storage.TradeFilter) *filter {
	w := &filter{}
	if f.CA != "" {
		w.where("t.ca = " + w.arg(f.CA))
	}
	if f.Chain != "" {
		w.where("t.chain = " + w.arg(f.Chain))
	}
	if f.Query != "" {
		p := w.arg(containsPattern(f.Query)) + ` ESCAPE '\'`
		w.where(fmt.Sprintf("(c.name ILIKE %[1]s OR c.symbol ILIKE %[1]s OR t.ca ILIKE %[1]s OR t.trade_id ILIKE %[1]s)", p))
	}
	return w
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	err := row.Scan(
		&t.ID, &t.TradeID, &t.CA, &t.Chain, &t.CoinName, &t.CoinSymbol,
		&t.EntryTS, &t.EntryMcapUSD, &t.SizeUSD,
		&t.ExitTS, &t.ExitMcapUSD, &t.ExitReason,
	)
	if err != nil {
		return nil, err
	}
	t.Derive()
	return &t, nil
}

func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}
