package memory

import (
	"context"
	"sort"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// UpsertAccount returns the account for (platform, handle), creating it if needed.
func (r *repo) UpsertAccount(_ context.Context, platform, handle string) (*domain.Account, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}

	key := accountKey{platform: platform, handle: handle}
	if id, ok := r.st.accountIDs[key]; ok {
		out := *r.st.accounts[id]
		return &out, nil
	}

	r.st.lastAccountID++
	a := &domain.Account{
		AccountID: r.st.lastAccountID,
		Platform:  platform,
		Handle:    handle,
		CreatedTS: r.now,
	}
	r.st.accounts[a.AccountID] = a
	r.st.accountIDs[key] = a.AccountID

	out := *a
	return &out, nil
}

// GetAccount retrieves an account by id. Returns ErrNotFound if not exists.
func (r *repo) GetAccount(_ context.Context, accountID int64) (*domain.Account, error) {
	a, ok := r.st.accounts[accountID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *a
	return &out, nil
}

// ListAccounts returns accounts ordered by account_id.
func (r *repo) ListAccounts(_ context.Context, limit int) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0, len(r.st.accounts))
	for _, a := range r.st.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return truncate(out, limit), nil
}

// SummarizeAccounts aggregates tips per account, optionally for one chain.
// Accounts without tips are included with zero totals and null rates.
func (r *repo) SummarizeAccounts(_ context.Context, chain string) ([]*domain.AccountSummary, error) {
	byAccount := make(map[int64][]*domain.Tip)
	for _, t := range r.st.tips {
		if chain == "" || t.Chain == chain {
			byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
		}
	}

	out := make([]*domain.AccountSummary, 0, len(r.st.accounts))
	for id, a := range r.st.accounts {
		out = append(out, domain.SummarizeAccount(a, byAccount[id]))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TipsTotal != b.TipsTotal {
			return a.TipsTotal > b.TipsTotal
		}
		switch {
		case a.AvgEffectPct == nil && b.AvgEffectPct != nil:
			return false
		case a.AvgEffectPct != nil && b.AvgEffectPct == nil:
			return true
		case a.AvgEffectPct != nil && *a.AvgEffectPct != *b.AvgEffectPct:
			return *a.AvgEffectPct > *b.AvgEffectPct
		}
		return a.AccountID < b.AccountID
	})
	return out, nil
}
