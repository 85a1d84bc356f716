package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

const coinColumns = `c.ca, c.chain, c.name, c.symbol, c.launch_ts, c.source_type, c.created_ts`

// InsertCoin adds a coin. Returns ErrDuplicateKey if (ca, chain) exists.
func (r *repo) InsertCoin(ctx context.Context, c *domain.Coin) error {
	query := `
		INSERT INTO coins (ca, chain, name, symbol, launch_ts, source_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_ts
	`

	err := r.q.QueryRow(ctx, query,
		c.CA, c.Chain, c.Name, c.Symbol, c.LaunchTS, string(c.SourceType),
	).Scan(&c.CreatedTS)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert coin: %w", err)
	}
	return nil
}

// GetCoin retrieves a coin by its natural key. Returns ErrNotFound if not exists.
func (r *repo) GetCoin(ctx context.Context, key domain.CoinKey) (*domain.Coin, error) {
	query := `SELECT ` + coinColumns + ` FROM coins c WHERE c.ca = $1 AND c.chain = $2`

	c, err := scanCoin(r.q.QueryRow(ctx, query, key.CA, key.Chain))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coin: %w", err)
	}
	return c, nil
}

// CoinChains returns at most limit chains registered for ca.
func (r *repo) CoinChains(ctx context.Context, ca string, limit int) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT chain FROM coins WHERE ca = $1 ORDER BY chain LIMIT $2`, ca, limit)
	if err != nil {
		return nil, fmt.Errorf("get coin chains: %w", err)
	}
	defer rows.Close()

	var chains []string
	for rows.Next() {
		var chain string
		if err := rows.Scan(&chain); err != nil {
			return nil, fmt.Errorf("scan coin chain: %w", err)
		}
		chains = append(chains, chain)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coin chains: %w", err)
	}
	return chains, nil
}

// UpdateCoin overwrites the mutable coin fields. Returns ErrNotFound if not exists.
func (r *repo) UpdateCoin(ctx context.Context, c *domain.Coin) error {
	query := `
		UPDATE coins
		SET name = $3, symbol = $4, launch_ts = $5, source_type = $6
		WHERE ca = $1 AND chain = $2
	`

	tag, err := r.q.Exec(ctx, query,
		c.CA, c.Chain, c.Name, c.Symbol, c.LaunchTS, string(c.SourceType),
	)
	if err != nil {
		return fmt.Errorf("update coin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListCoins returns coins ordered by created_ts DESC.
func (r *repo) ListCoins(ctx context.Context, f storage.CoinFilter) ([]*domain.Coin, error) {
	var w filter
	if f.CA != "" {
		w.where("c.ca = " + w.arg(f.CA))
	}
	if f.Chain != "" {
		w.where("c.chain = " + w.arg(f.Chain))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM coins c
		%s
		ORDER BY c.created_ts DESC, c.ca, c.chain
		LIMIT %s
	`, coinColumns, w.clause(), w.arg(f.Limit))

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	defer rows.Close()

	var coins []*domain.Coin
	for rows.Next() {
		c, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coin: %w", err)
		}
		coins = append(coins, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coins: %w", err)
	}
	return coins, nil
}

// SummarizeCoins returns trade and tip activity per coin, most recently active first.
func (r *repo) SummarizeCoins(ctx context.Context, f storage.CoinFilter) ([]*domain.CoinSummary, error) {
	var w filter
	if f.CA != "" {
		w.where("c.ca = " + w.arg(f.CA))
	}
	if f.Chain != "" {
		w.where("c.chain = " + w.arg(f.Chain))
	}

	query := fmt.Sprintf(`
		SELECT %s,
			tr.total, tr.open_total, tp.total,
			GREATEST(tr.last_ts, tp.last_ts) AS last_activity_ts
		FROM coins c
		LEFT JOIN LATERAL (
			SELECT
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE t.exit_ts IS NULL) AS open_total,
				MAX(COALESCE(t.exit_ts, t.entry_ts)) AS last_ts
			FROM trades t
			WHERE t.ca = c.ca AND t.chain = c.chain
		) tr ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS total, MAX(p.post_ts) AS last_ts
			FROM tips p
			WHERE p.ca = c.ca AND p.chain = c.chain
		) tp ON TRUE
		%s
		ORDER BY last_activity_ts DESC NULLS LAST, c.created_ts DESC, c.ca, c.chain
		LIMIT %s
	`, coinColumns, w.clause(), w.arg(f.Limit))

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("summarize coins: %w", err)
	}
	defer rows.Close()

	var out []*domain.CoinSummary
	for rows.Next() {
		var (
			s      domain.CoinSummary
			source string
		)
		err := rows.Scan(
			&s.CA, &s.Chain, &s.Name, &s.Symbol, &s.LaunchTS, &source, &s.CreatedTS,
			&s.TradesTotal, &s.TradesOpen, &s.TipsTotal, &s.LastActivityTS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan coin summary: %w", err)
		}
		s.SourceType = domain.SourceType(source)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coin summaries: %w", err)
	}
	return out, nil
}

// DeleteCoin removes a coin. Trades, tips, bubbles and scores cascade.
// Returns ErrNotFound if not exists.
func (r *repo) DeleteCoin(ctx context.Context, key domain.CoinKey) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM coins WHERE ca = $1 AND chain = $2`, key.CA, key.Chain)
	if err != nil {
		return fmt.Errorf("delete coin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanCoin(row pgx.Row) (*domain.Coin, error) {
	var (
		c      domain.Coin
		source string
	)
	err := row.Scan(&c.CA, &c.Chain, &c.Name, &c.Symbol, &c.LaunchTS, &source, &c.CreatedTS)
	if err != nil {
		return nil, err
	}
	c.SourceType = domain.SourceType(source)
	return &c, nil
}
