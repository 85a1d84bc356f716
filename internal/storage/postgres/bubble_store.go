package postgres

import (
	"context"
	"fmt"
	"strings"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// bubbleTables names the cluster/others tables of one owner kind and the
// columns that identify the owner.
type bubbleTables struct {
	clusters string
	others   string
	owner    []string
}

var (
	tradeBubbleTables = bubbleTables{clusters: "trade_bubbles", others: "trade_bubbles_others", owner: []string{"trade_id"}}
	tipBubbleTables   = bubbleTables{clusters: "tip_bubbles", others: "tip_bubbles_others", owner: []string{"tip_id"}}
	coinBubbleTables  = bubbleTables{clusters: "bubbles_clusters", others: "bubbles_others", owner: []string{"ca", "chain"}}
)

// replace deletes the owner's rows from both tables and inserts b.
// Must run inside a transaction to be atomic.
func (bt bubbleTables) replace(ctx context.Context, q querier, owner []any, b *domain.Bubbles) error {
	var conds []string
	for i, col := range bt.owner {
		conds = append(conds, fmt.Sprintf("%s = $%d", col, i+1))
	}
	where := strings.Join(conds, " AND ")

	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s`, bt.clusters, where), owner...); err != nil {
		return fmt.Errorf("delete %s: %w", bt.clusters, err)
	}
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s`, bt.others, where), owner...); err != nil {
		return fmt.Errorf("delete %s: %w", bt.others, err)
	}
	if b.IsEmpty() {
		return nil
	}

	cols := strings.Join(bt.owner, ", ")
	n := len(bt.owner)
	var ph []string
	for i := 1; i <= n+2; i++ {
		ph = append(ph, fmt.Sprintf("$%d", i))
	}
	values := strings.Join(ph, ", ")

	insertCluster := fmt.Sprintf(`INSERT INTO %s (%s, cluster_rank, pct) VALUES (%s)`, bt.clusters, cols, values)
	for _, row := range b.Clusters {
		if _, err := q.Exec(ctx, insertCluster, append(owner[:n:n], row.Rank, row.Pct)...); err != nil {
			if isMissingReferenceError(err) {
				return storage.ErrMissingReference
			}
			return fmt.Errorf("insert %s: %w", bt.clusters, err)
		}
	}

	insertOther := fmt.Sprintf(`INSERT INTO %s (%s, other_rank, pct) VALUES (%s)`, bt.others, cols, values)
	for _, row := range b.Others {
		if _, err := q.Exec(ctx, insertOther, append(owner[:n:n], row.Rank, row.Pct)...); err != nil {
			if isMissingReferenceError(err) {
				return storage.ErrMissingReference
			}
			return fmt.Errorf("insert %s: %w", bt.others, err)
		}
	}
	return nil
}

// loadBubbles returns the bubbles of every owner in ids that has any, keyed
// by the owner column. Only single-column owners are supported.
func loadBubbles[K comparable](ctx context.Context, q querier, bt bubbleTables, ids []K) (map[K]*domain.Bubbles, error) {
	out := make(map[K]*domain.Bubbles, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	col := bt.owner[0]

	query := fmt.Sprintf(`
		SELECT %[1]s, 'c', cluster_rank, pct FROM %[2]s WHERE %[1]s = ANY($1)
		UNION ALL
		SELECT %[1]s, 'o', other_rank, pct FROM %[3]s WHERE %[1]s = ANY($1)
		ORDER BY 1, 2, 3
	`, col, bt.clusters, bt.others)

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", bt.clusters, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   K
			kind string
			row  domain.BubbleRow
		)
		if err := rows.Scan(&id, &kind, &row.Rank, &row.Pct); err != nil {
			return nil, fmt.Errorf("scan %s: %w", bt.clusters, err)
		}
		b, ok := out[id]
		if !ok {
			b = &domain.Bubbles{}
			out[id] = b
		}
		if kind == "c" {
			b.Clusters = append(b.Clusters, row)
		} else {
			b.Others = append(b.Others, row)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", bt.clusters, err)
	}
	return out, nil
}

// ReplaceTradeBubbles replaces the bubbles of a trade.
func (r *repo) ReplaceTradeBubbles(ctx context.Context, tradeID string, b *domain.Bubbles) error {
	return tradeBubbleTables.replace(ctx, r.q, []any{tradeID}, b)
}

// TradeBubbles returns bubbles for each trade that has any.
func (r *repo) TradeBubbles(ctx context.Context, tradeIDs []string) (map[string]*domain.Bubbles, error) {
	return loadBubbles(ctx, r.q, tradeBubbleTables, tradeIDs)
}

// ReplaceTipBubbles replaces the bubbles of a tip.
func (r *repo) ReplaceTipBubbles(ctx context.Context, tipID int64, b *domain.Bubbles) error {
	return tipBubbleTables.replace(ctx, r.q, []any{tipID}, b)
}

// TipBubbles returns bubbles for each tip that has any.
func (r *repo) TipBubbles(ctx context.Context, tipIDs []int64) (map[int64]*domain.Bubbles, error) {
	return loadBubbles(ctx, r.q, tipBubbleTables, tipIDs)
}

// ReplaceCoinBubbles replaces the coin-level bubbles.
func (r *repo) ReplaceCoinBubbles(ctx context.Context, key domain.CoinKey, b *domain.Bubbles) error {
	return coinBubbleTables.replace(ctx, r.q, []any{key.CA, key.Chain}, b)
}

// CoinBubbles returns the coin-level bubbles, empty when none are stored.
func (r *repo) CoinBubbles(ctx context.Context, key domain.CoinKey) (*domain.Bubbles, error) {
	query := `
		SELECT 'c', cluster_rank, pct FROM bubbles_clusters WHERE ca = $1 AND chain = $2
		UNION ALL
		SELECT 'o', other_rank, pct FROM bubbles_others WHERE ca = $1 AND chain = $2
		ORDER BY 1, 2
	`

	rows, err := r.q.Query(ctx, query, key.CA, key.Chain)
	if err != nil {
		return nil, fmt.Errorf("get coin bubbles: %w", err)
	}
	defer rows.Close()

	b := &domain.Bubbles{Clusters: []domain.BubbleRow{}, Others: []domain.BubbleRow{}}
	for rows.Next() {
		var (
			kind string
			row  domain.BubbleRow
		)
		if err := rows.Scan(&kind, &row.Rank, &row.Pct); err != nil {
			return nil, fmt.Errorf("scan coin bubbles: %w", err)
		}
		if kind == "c" {
			b.Clusters = append(b.Clusters, row)
		} else {
			b.Others = append(b.Others, row)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coin bubbles: %w", err)
	}
	return b, nil
}
