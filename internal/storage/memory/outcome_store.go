package memory

import (
	"context"
	"sort"
	"sync"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// OutcomeStore is an in-memory storage.OutcomeStore. A newer outcome for
// the same trade or tip replaces the older one.
type OutcomeStore struct {
	mu     sync.RWMutex
	trades map[string]domain.TradeOutcome
	tips   map[int64]domain.TipOutcome
}

// NewOutcomeStore creates an empty OutcomeStore.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		trades: map[string]domain.TradeOutcome{},
		tips:   map[int64]domain.TipOutcome{},
	}
}

var _ storage.OutcomeStore = (*OutcomeStore)(nil)

func (s *OutcomeStore) InsertTradeOutcome(_ context.Context, o *domain.TradeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.trades[o.TradeID]; !ok || !o.RecordedAt.Before(cur.RecordedAt) {
		s.trades[o.TradeID] = *o
	}
	return nil
}

func (s *OutcomeStore) InsertTipOutcome(_ context.Context, o *domain.TipOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tips[o.TipID]; !ok || !o.RecordedAt.Before(cur.RecordedAt) {
		s.tips[o.TipID] = *o
	}
	return nil
}

// Stats aggregates outcomes per chain, ordered by chain.
func (s *OutcomeStore) Stats(context.Context) ([]*domain.OutcomeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byChain := map[string]*domain.OutcomeStats{}
	get := func(chain string) *domain.OutcomeStats {
		st, ok := byChain[chain]
		if !ok {
			st = &domain.OutcomeStats{Chain: chain}
			byChain[chain] = st
		}
		return st
	}

	pnlSum := map[string]float64{}
	for _, o := range s.trades {
		st := get(o.Chain)
		st.TradesClosed++
		if o.PnLPct > 0 {
			st.TradesWon++
		}
		pnlSum[o.Chain] += o.PnLPct
	}

	effectSum := map[string]float64{}
	effectN := map[string]int{}
	for _, o := range s.tips {
		st := get(o.Chain)
		st.TipsTracked++
		if o.Rug {
			st.TipsRugged++
		}
		if o.EffectPct != nil {
			effectSum[o.Chain] += *o.EffectPct
			effectN[o.Chain]++
		}
	}

	out := make([]*domain.OutcomeStats, 0, len(byChain))
	for chain, st := range byChain {
		if st.TradesClosed > 0 {
			avg := pnlSum[chain] / float64(st.TradesClosed)
			st.AvgPnLPct = &avg
		}
		if n := effectN[chain]; n > 0 {
			avg := effectSum[chain] / float64(n)
			st.AvgTipEffect = &avg
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out, nil
}
