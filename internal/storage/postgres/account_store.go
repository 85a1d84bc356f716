package postgres

import (
	"context"
	"fmt"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// UpsertAccount returns the account for (platform, handle), creating it if needed.
func (r *repo) UpsertAccount(ctx context.Context, platform, handle string) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (platform, handle)
		VALUES ($1, $2)
		ON CONFLICT (platform, handle) DO UPDATE SET updated_ts = now()
		RETURNING account_id, platform, handle, created_ts
	`

	var a domain.Account
	if err := r.q.QueryRow(ctx, query, platform, handle).Scan(&a.AccountID, &a.Platform, &a.Handle, &a.CreatedTS); err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	return &a, nil
}

// GetAccount retrieves an account by id. Returns ErrNotFound if not exists.
func (r *repo) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `SELECT account_id, platform, handle, created_ts FROM accounts WHERE account_id = $1`

	var a domain.Account
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&a.AccountID, &a.Platform, &a.Handle, &a.CreatedTS); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// ListAccounts returns accounts ordered by account_id.
func (r *repo) ListAccounts(ctx context.Context, limit int) ([]*domain.Account, error) {
	query := `SELECT account_id, platform, handle, created_ts FROM accounts ORDER BY account_id LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.AccountID, &a.Platform, &a.Handle, &a.CreatedTS); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// SummarizeAccounts aggregates tips per account over v_tip_gain_loss.
// Accounts without tips are included with zero totals and null rates.
func (r *repo) SummarizeAccounts(ctx context.Context, chain string) ([]*domain.AccountSummary, error) {
	var w filter
	join := "v.account_id = a.account_id"
	if chain != "" {
		join += " AND v.chain = " + w.arg(chain)
	}
	win := w.arg(domain.WinThresholdPct)

	query := fmt.Sprintf(`
		SELECT
			a.account_id, a.platform, a.handle,
			COUNT(v.tip_id) AS tips_total,
			COUNT(v.tip_id) FILTER (WHERE v.effect_pct >= %[2]s) AS tips_win,
			COUNT(v.tip_id) FILTER (WHERE v.effect_pct < %[2]s) AS tips_loss,
			CASE WHEN COUNT(v.tip_id) > 0 THEN
				(COUNT(v.tip_id) FILTER (WHERE v.effect_pct >= %[2]s))::FLOAT8 / COUNT(v.tip_id)
			END AS win_rate_50p,
			CASE WHEN COUNT(v.tip_id) > 0 THEN
				(COUNT(v.tip_id) FILTER (WHERE v.rug_flag = 1))::FLOAT8 / COUNT(v.tip_id)
			END AS rug_rate,
			AVG(v.effect_pct) AS avg_effect_pct
		FROM accounts a
		LEFT JOIN v_tip_gain_loss v ON %[1]s
		GROUP BY a.account_id, a.platform, a.handle
		ORDER BY tips_total DESC, avg_effect_pct DESC NULLS LAST, a.account_id
	`, join, win)

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("summarize accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.AccountSummary
	for rows.Next() {
		var s domain.AccountSummary
		err := rows.Scan(
			&s.AccountID, &s.Platform, &s.Handle,
			&s.TipsTotal, &s.TipsWin, &s.TipsLoss,
			&s.WinRate50p, &s.RugRate, &s.AvgEffectPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan account summary: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account summaries: %w", err)
	}
	return out, nil
}
