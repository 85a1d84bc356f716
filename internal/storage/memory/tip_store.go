package memory

import (
	"context"
	"sort"
	"strconv"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// InsertTip adds a tip. Returns ErrMissingReference if the coin or account does not exist.
func (r *repo) InsertTip(_ context.Context, t *domain.Tip) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.coins[domain.CoinKey{CA: t.CA, Chain: t.Chain}]; !ok {
		return storage.ErrMissingReference
	}
	if _, ok := r.st.accounts[t.AccountID]; !ok {
		return storage.ErrMissingReference
	}

	r.st.lastTipID++
	t.TipID = r.st.lastTipID

	r.st.tips[t.TipID] = &domain.Tip{
		TipID:         t.TipID,
		AccountID:     t.AccountID,
		CA:            t.CA,
		Chain:         t.Chain,
		PostTS:        t.PostTS,
		PostMcapUSD:   t.PostMcapUSD,
		PeakMcapUSD:   t.PeakMcapUSD,
		TroughMcapUSD: t.TroughMcapUSD,
		RugFlag:       t.RugFlag,
	}
	return nil
}

// GetTip retrieves a tip by id. Returns ErrNotFound if not exists.
func (r *repo) GetTip(_ context.Context, tipID int64) (*domain.Tip, error) {
	t, ok := r.st.tips[tipID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.viewTip(t), nil
}

// PatchTip applies the set fields of p. Returns ErrNotFound if not exists.
func (r *repo) PatchTip(_ context.Context, tipID int64, p domain.TipPatch) error {
	if err := r.writable(); err != nil {
		return err
	}
	old, ok := r.st.tips[tipID]
	if !ok {
		return storage.ErrNotFound
	}

	next := *old
	if p.PeakMcapUSD.Set {
		next.PeakMcapUSD = p.PeakMcapUSD.Ptr()
	}
	if p.TroughMcapUSD.Set {
		next.TroughMcapUSD = p.TroughMcapUSD.Ptr()
	}
	if p.RugFlag.Set {
		next.RugFlag = p.RugFlag.Ptr()
	}
	r.st.tips[tipID] = &next
	return nil
}

// DeleteTip removes a tip with its bubbles and scores. Returns ErrNotFound if not exists.
func (r *repo) DeleteTip(_ context.Context, tipID int64) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.tips[tipID]; !ok {
		return storage.ErrNotFound
	}

	delete(r.st.tipBubbles, tipID)
	delete(r.st.tipScores, tipID)
	delete(r.st.tips, tipID)
	return nil
}

// ListTips returns tips ordered by (post_ts, tip_id) DESC.
func (r *repo) ListTips(_ context.Context, f storage.TipFilter) ([]*domain.Tip, error) {
	var out []*domain.Tip
	for _, stored := range r.st.tips {
		t := r.viewTip(stored)
		if !matchTip(t, f) {
			continue
		}
		if f.Cursor != nil && !f.Cursor.Before(t.PostTS, t.TipID) {
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PostTS.Equal(b.PostTS) {
			return a.PostTS.After(b.PostTS)
		}
		return a.TipID > b.TipID
	})
	return truncate(out, f.Limit), nil
}

// CountTips returns the number of tips matching the filter, ignoring cursor and limit.
func (r *repo) CountTips(_ context.Context, f storage.TipFilter) (int64, error) {
	var n int64
	for _, stored := range r.st.tips {
		if matchTip(r.viewTip(stored), f) {
			n++
		}
	}
	return n, nil
}

// viewTip copies a stored tip and joins its account and coin.
func (r *repo) viewTip(stored *domain.Tip) *domain.Tip {
	t := *stored
	if a, ok := r.st.accounts[t.AccountID]; ok {
		t.Platform = a.Platform
		t.Handle = a.Handle
	}
	if c, ok := r.st.coins[domain.CoinKey{CA: t.CA, Chain: t.Chain}]; ok {
		t.CoinName = c.Name
		t.CoinSymbol = c.Symbol
	}
	t.Derive()
	return &t
}

func matchTip(t *domain.Tip, f storage.TipFilter) bool {
	if f.CA != "" && t.CA != f.CA {
		return false
	}
	if f.Chain != "" && t.Chain != f.Chain {
		return false
	}
	if f.AccountID != 0 && t.AccountID != f.AccountID {
		return false
	}
	if f.Query != "" {
		return containsFold(f.Query,
			t.CoinName, deref(t.CoinSymbol), t.Handle, t.Platform, t.CA, strconv.FormatInt(t.TipID, 10))
	}
	return true
}
