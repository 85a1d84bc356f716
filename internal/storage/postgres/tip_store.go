package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

const tipFrom = `
	FROM tips p
	JOIN accounts a ON a.account_id = p.account_id
	JOIN coins c ON c.ca = p.ca AND c.chain = p.chain
`

const tipSelect = `
	SELECT
		p.tip_id, p.account_id, a.platform, a.handle,
		p.ca, p.chain, c.name, c.symbol,
		p.post_ts, p.post_mcap_usd, p.peak_mcap_usd, p.trough_mcap_usd, p.rug_flag
` + tipFrom

// InsertTip adds a tip. Returns ErrMissingReference if the coin or account does not exist.
func (r *repo) InsertTip(ctx context.Context, t *domain.Tip) error {
	query := `
		INSERT INTO tips (account_id, ca, chain, post_ts, post_mcap_usd, peak_mcap_usd, trough_mcap_usd, rug_flag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING tip_id
	`

	err := r.q.QueryRow(ctx, query,
		t.AccountID, t.CA, t.Chain, t.PostTS, t.PostMcapUSD,
		t.PeakMcapUSD, t.TroughMcapUSD, t.RugFlag,
	).Scan(&t.TipID)
	if err != nil {
		if isMissingReferenceError(err) {
			return storage.ErrMissingReference
		}
		return fmt.Errorf("insert tip: %w", err)
	}
	return nil
}

// GetTip retrieves a tip by id. Returns ErrNotFound if not exists.
func (r *repo) GetTip(ctx context.Context, tipID int64) (*domain.Tip, error) {
	t, err := scanTip(r.q.QueryRow(ctx, tipSelect+` WHERE p.tip_id = $1`, tipID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tip: %w", err)
	}
	return t, nil
}

// PatchTip applies the set fields of p. Returns ErrNotFound if not exists.
func (r *repo) PatchTip(ctx context.Context, tipID int64, p domain.TipPatch) error {
	var (
		w    filter
		sets []string
	)
	if p.PeakMcapUSD.Set {
		sets = append(sets, "peak_mcap_usd = "+w.arg(p.PeakMcapUSD.Ptr()))
	}
	if p.TroughMcapUSD.Set {
		sets = append(sets, "trough_mcap_usd = "+w.arg(p.TroughMcapUSD.Ptr()))
	}
	if p.RugFlag.Set {
		sets = append(sets, "rug_flag = "+w.arg(p.RugFlag.Ptr()))
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE tips SET %s WHERE tip_id = %s`, joinSets(sets), w.arg(tipID))

	tag, err := r.q.Exec(ctx, query, w.args...)
	if err != nil {
		return fmt.Errorf("patch tip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTip removes a tip with its bubbles and scores. Returns ErrNotFound if not exists.
func (r *repo) DeleteTip(ctx context.Context, tipID int64) error {
	for _, query := range []string{
		`DELETE FROM tip_bubbles WHERE tip_id = $1`,
		`DELETE FROM tip_bubbles_others WHERE tip_id = $1`,
		`DELETE FROM tip_scoring WHERE tip_id = $1`,
	} {
		if _, err := r.q.Exec(ctx, query, tipID); err != nil {
			return fmt.Errorf("delete tip children: %w", err)
		}
	}

	tag, err := r.q.Exec(ctx, `DELETE FROM tips WHERE tip_id = $1`, tipID)
	if err != nil {
		return fmt.Errorf("delete tip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTips returns tips ordered by (post_ts, tip_id) DESC.
func (r *repo) ListTips(ctx context.Context, f storage.TipFilter) ([]*domain.Tip, error) {
	w := tipFilter(f)
	if f.Cursor != nil {
		w.where(fmt.Sprintf("(p.post_ts, p.tip_id) < (%s, %s)", w.arg(f.Cursor.TS), w.arg(f.Cursor.ID)))
	}

	query := fmt.Sprintf(`%s %s ORDER BY p.post_ts DESC, p.tip_id DESC LIMIT %s`,
		tipSelect, w.clause(), w.arg(f.Limit))

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}
	defer rows.Close()

	var tips []*domain.Tip
	for rows.Next() {
		t, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tip: %w", err)
		}
		tips = append(tips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tips: %w", err)
	}
	return tips, nil
}

// CountTips returns the number of tips matching the filter, ignoring cursor and limit.
func (r *repo) CountTips(ctx context.Context, f storage.TipFilter) (int64, error) {
	w := tipFilter(f)

	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) `+tipFrom+w.clause(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tips: %w", err)
	}
	return n, nil
}

func tipFilter(f storage.TipFilter) *filter {
	w := &filter{}
	if f.CA != "" {
		w.where("p.ca = " + w.arg(f.CA))
	}
	if f.Chain != "" {
		w.where("p.chain = " + w.arg(f.Chain))
	}
	if f.AccountID != 0 {
		w.where("p.account_id = " + w.arg(f.AccountID))
	}
	if f.Query != "" {
		p := w.arg(containsPattern(f.Query)) + ` ESCAPE '\'`
		w.where(fmt.Sprintf(
			"(c.name ILIKE %[1]s OR c.symbol ILIKE %[1]s OR a.handle ILIKE %[1]s OR a.platform ILIKE %[1]s OR p.ca ILIKE %[1]s OR p.tip_id::text ILIKE %[1]s)", p))
	}
	return w
}

func scanTip(row pgx.Row) (*domain.Tip, error) {
	var (
		t   domain.Tip
		rug *int16
	)
	err := row.Scan(
		&t.TipID, &t.AccountID, &t.Platform, &t.Handle,
		&t.CA, &t.Chain, &t.CoinName, &t.CoinSymbol,
		&t.PostTS, &t.PostMcapUSD, &t.PeakMcapUSD, &t.TroughMcapUSD, &rug,
	)
	if err != nil {
		return nil, err
	}
	if rug != nil {
		v := int(*rug)
		t.RugFlag = &v
	}
	t.Derive()
	return &t, nil
}
