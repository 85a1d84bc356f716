package memory

import (
	"context"
	"slices"
	"sort"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// AppendTradeScore appends a score to a trade's history.
// Returns ErrMissingReference if the trade does not exist.
func (r *repo) AppendTradeScore(_ context.Context, tradeID string, score int) (*domain.Score, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	if _, ok := r.st.trades[tradeID]; !ok {
		return nil, storage.ErrMissingReference
	}
	s := r.newScore(score)
	r.st.tradeScores[tradeID] = append(slices.Clip(r.st.tradeScores[tradeID]), s)
	out := *s
	return &out, nil
}

// AppendTipScore appends a score to a tip's history.
// Returns ErrMissingReference if the tip does not exist.
func (r *repo) AppendTipScore(_ context.Context, tipID int64, score int) (*domain.Score, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	if _, ok := r.st.tips[tipID]; !ok {
		return nil, storage.ErrMissingReference
	}
	s := r.newScore(score)
	r.st.tipScores[tipID] = append(slices.Clip(r.st.tipScores[tipID]), s)
	out := *s
	return &out, nil
}

// AppendCoinScore appends a coin-level score.
// Returns ErrMissingReference if the coin does not exist.
func (r *repo) AppendCoinScore(_ context.Context, key domain.CoinKey, score int) (*domain.Score, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	if _, ok := r.st.coins[key]; !ok {
		return nil, storage.ErrMissingReference
	}
	s := r.newScore(score)
	s.CA, s.Chain = key.CA, key.Chain
	r.st.coinScores = append(slices.Clip(r.st.coinScores), s)
	out := *s
	return &out, nil
}

func (r *repo) newScore(score int) *domain.Score {
	r.st.lastScoreID++
	return &domain.Score{ID: r.st.lastScoreID, IntuitionScore: score, ScoredTS: r.now}
}

// LatestTradeScores returns the current score of each trade that has one.
func (r *repo) LatestTradeScores(_ context.Context, tradeIDs []string) (map[string]*domain.Score, error) {
	return latestScores(r.st.tradeScores, tradeIDs), nil
}

// LatestTipScores returns the current score of each tip that has one.
func (r *repo) LatestTipScores(_ context.Context, tipIDs []int64) (map[int64]*domain.Score, error) {
	return latestScores(r.st.tipScores, tipIDs), nil
}

func latestScores[K comparable](m map[K][]*domain.Score, keys []K) map[K]*domain.Score {
	out := make(map[K]*domain.Score, len(keys))
	for _, k := range keys {
		var best *domain.Score
		for _, s := range m[k] {
			if best == nil || newer(s, best) {
				best = s
			}
		}
		if best != nil {
			cp := *best
			out[k] = &cp
		}
	}
	return out
}

// newer orders scores by (scored_ts, id).
func newer(a, b *domain.Score) bool {
	if !a.ScoredTS.Equal(b.ScoredTS) {
		return a.ScoredTS.After(b.ScoredTS)
	}
	return a.ID > b.ID
}

// ListCoinScores returns coin-level scores, newest first.
func (r *repo) ListCoinScores(_ context.Context, f storage.ScoreFilter) ([]*domain.Score, error) {
	var out []*domain.Score
	for _, s := range r.st.coinScores {
		if matchCoin(domain.CoinKey{CA: s.CA, Chain: s.Chain}, f.CA, f.Chain) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return truncate(out, f.Limit), nil
}
