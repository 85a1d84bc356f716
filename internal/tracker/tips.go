package tracker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/observability"
	"memedesk/internal/storage"
)

func validateTipCreate(in *domain.TipCreate) error {
	if in.AccountID <= 0 {
		return domain.Invalid("account_id is required")
	}
	return validateTipBody(in)
}

// validateTipBody checks everything but the account.
func validateTipBody(in *domain.TipCreate) error {
	ca, err := requireCA(in.CA)
	if err != nil {
		return err
	}
	in.CA = ca
	if in.PostTS.IsZero() {
		return domain.Invalid("post_ts is required")
	}
	if err := requirePositive("post_mcap_usd", in.PostMcapUSD); err != nil {
		return err
	}
	if err := in.Bubbles.Validate(); err != nil {
		return err
	}
	return validateScoring(in.Scoring)
}

// createTip inserts a tip for a resolved coin and an existing account
// together with its optional bubbles and first score.
func createTip(ctx context.Context, r storage.Repository, key domain.CoinKey, in domain.TipCreate) (*domain.Tip, *domain.Score, error) {
	if _, err := r.GetAccount(ctx, in.AccountID); err != nil {
		return nil, nil, notFound(err, "account not found")
	}

	t := &domain.Tip{
		AccountID:   in.AccountID,
		CA:          key.CA,
		Chain:       key.Chain,
		PostTS:      in.PostTS.UTC(),
		PostMcapUSD: in.PostMcapUSD,
	}
	if err := r.InsertTip(ctx, t); err != nil {
		if errors.Is(err, storage.ErrMissingReference) {
			return nil, nil, domain.NotFound("coin or account not found")
		}
		return nil, nil, fmt.Errorf("insert tip: %w", err)
	}

	if !in.Bubbles.IsEmpty() {
		if err := r.ReplaceTipBubbles(ctx, t.TipID, in.Bubbles); err != nil {
			return nil, nil, fmt.Errorf("set tip bubbles: %w", err)
		}
	}
	var score *domain.Score
	if in.Scoring != nil {
		var err error
		score, err = r.AppendTipScore(ctx, t.TipID, in.Scoring.IntuitionScore)
		if err != nil {
			return nil, nil, fmt.Errorf("append tip score: %w", err)
		}
	}

	stored, err := r.GetTip(ctx, t.TipID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload tip: %w", err)
	}
	stored.Bubbles = in.Bubbles
	stored.Scoring = scoreRef(score)
	return stored, score, nil
}

// CreateTip records a tip. The coin is resolved and the account must
// already exist; neither is created here.
func (s *Service) CreateTip(ctx context.Context, in domain.TipCreate) (t *domain.Tip, err error) {
	defer func() { s.observe("tip_create", err) }()

	if err := validateTipCreate(&in); err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(r storage.Repository) error {
		key, err := ResolveCoin(ctx, r, in.CA, in.Chain)
		if err != nil {
			return err
		}
		t, _, err = createTip(ctx, r, key, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.RecordTipCreated()
	s.log.Info("tip created", zap.Int64("tip_id", t.TipID), zap.Int64("account_id", t.AccountID), zap.String("ca", t.CA))
	s.publish(ctx, domain.Event{Type: domain.EventTipCreated, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Tip: t})
	return t, nil
}

// PatchTip applies the observed peak, trough and rug flag present in p.
func (s *Service) PatchTip(ctx context.Context, tipID int64, p domain.TipPatch) (t *domain.Tip, err error) {
	defer func() { s.observe("tip_patch", err) }()

	if p.IsEmpty() {
		return nil, domain.Invalid("no fields to update")
	}
	if err := patchPositive("peak_mcap_usd", p.PeakMcapUSD, true); err != nil {
		return nil, err
	}
	if err := patchPositive("trough_mcap_usd", p.TroughMcapUSD, true); err != nil {
		return nil, err
	}
	if p.RugFlag.Set && p.RugFlag.Valid && p.RugFlag.Value != 0 && p.RugFlag.Value != 1 {
		return nil, domain.Invalid("rug_flag must be 0 or 1")
	}

	err = s.store.Update(ctx, func(r storage.Repository) error {
		if err := r.PatchTip(ctx, tipID, p); err != nil {
			return notFound(err, "tip not found")
		}
		var err error
		t, err = r.GetTip(ctx, tipID)
		if err != nil {
			return notFound(err, "tip not found")
		}
		return attachTipChildren(ctx, r, []*domain.Tip{t})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.Event{Type: domain.EventTipUpdated, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Tip: t})
	return t, nil
}

// DeleteTip removes a tip with its bubbles and scores.
func (s *Service) DeleteTip(ctx context.Context, tipID int64) (err error) {
	defer func() { s.observe("tip_delete", err) }()

	var t *domain.Tip
	err = s.store.Update(ctx, func(r storage.Repository) error {
		var err error
		t, err = r.GetTip(ctx, tipID)
		if err != nil {
			return notFound(err, "tip not found")
		}
		return notFound(r.DeleteTip(ctx, tipID), "tip not found")
	})
	if err != nil {
		return err
	}
	s.log.Info("tip deleted", zap.Int64("tip_id", tipID))
	s.publish(ctx, domain.Event{Type: domain.EventTipDeleted, Coin: keyPtr(domain.CoinKey{CA: t.CA, Chain: t.Chain}), Tip: t})
	return nil
}

// GetTip returns one tip with its bubbles and current score.
func (s *Service) GetTip(ctx context.Context, tipID int64) (t *domain.Tip, err error) {
	err = s.store.View(ctx, func(r storage.Repository) error {
		var err error
		t, err = r.GetTip(ctx, tipID)
		if err != nil {
			return notFound(err, "tip not found")
		}
		return attachTipChildren(ctx, r, []*domain.Tip{t})
	})
	return t, err
}

// TipQuery filters the plain tip listing.
type TipQuery struct {
	CA        string `form:"ca"`
	Chain     string `form:"chain"`
	AccountID int64  `form:"account_id"`
	Limit     int    `form:"limit"`
}

// ListTips returns tips newest first.
func (s *Service) ListTips(ctx context.Context, q TipQuery) ([]*domain.Tip, error) {
	limit, err := domain.ClampLimit(q.Limit, defaultTipLimit, maxTipLimit)
	if err != nil {
		return nil, err
	}
	f := storage.TipFilter{
		CA:        domain.NormalizeCA(q.CA),
		Chain:     domain.NormalizeChain(q.Chain),
		AccountID: q.AccountID,
		Limit:     limit,
	}

	out := []*domain.Tip{}
	err = s.store.View(ctx, func(r storage.Repository) error {
		items, err := r.ListTips(ctx, f)
		if err != nil {
			return fmt.Errorf("list tips: %w", err)
		}
		if len(items) > 0 {
			out = items
		}
		return attachTipChildren(ctx, r, items)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TipPageQuery filters the paginated tip listing.
type TipPageQuery struct {
	CA        string `form:"ca"`
	Chain     string `form:"chain"`
	AccountID int64  `form:"account_id"`
	Query     string `form:"q"`
	Cursor    string `form:"cursor"`
	Limit     int    `form:"limit"`
}

// ListTipsPaged returns one page of tips plus the size of the filtered set.
func (s *Service) ListTipsPaged(ctx context.Context, q TipPageQuery) (*domain.TipPage, error) {
	limit, err := domain.ClampLimit(q.Limit, defaultTipPageLimit, maxTipPageLimit)
	if err != nil {
		return nil, err
	}
	f := storage.TipFilter{
		CA:        domain.NormalizeCA(q.CA),
		Chain:     domain.NormalizeChain(q.Chain),
		AccountID: q.AccountID,
		Query:     q.Query,
		Limit:     limit,
	}
	if q.Cursor != "" {
		if f.Cursor, err = domain.ParseCursor(q.Cursor); err != nil {
			return nil, err
		}
	}

	page := &domain.TipPage{Items: []*domain.Tip{}}
	err = s.store.View(ctx, func(r storage.Repository) error {
		items, err := r.ListTips(ctx, f)
		if err != nil {
			return fmt.Errorf("list tips: %w", err)
		}
		if page.TotalCount, err = r.CountTips(ctx, f); err != nil {
			return fmt.Errorf("count tips: %w", err)
		}
		if len(items) > 0 {
			page.Items = items
			last := items[len(items)-1]
			page.NextCursor = domain.NextCursor(len(items), limit, domain.Cursor{TS: last.PostTS, ID: last.TipID})
		}
		return attachTipChildren(ctx, r, items)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func attachTipChildren(ctx context.Context, r storage.Repository, tips []*domain.Tip) error {
	if len(tips) == 0 {
		return nil
	}
	ids := make([]int64, len(tips))
	for i, t := range tips {
		ids[i] = t.TipID
	}
	bubbles, err := r.TipBubbles(ctx, ids)
	if err != nil {
		return fmt.Errorf("load tip bubbles: %w", err)
	}
	scores, err := r.LatestTipScores(ctx, ids)
	if err != nil {
		return fmt.Errorf("load tip scores: %w", err)
	}
	for _, t := range tips {
		t.Bubbles = bubbles[t.TipID]
		t.Scoring = scoreRef(scores[t.TipID])
	}
	return nil
}
