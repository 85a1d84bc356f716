package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// fixedClock returns a clock that advances by one second on every call.
func fixedClock() func() time.Time {
	t := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func seedCoin(t *testing.T, s *Store, ca, chain string) domain.CoinKey {
	t.Helper()
	c := &domain.Coin{CA: ca, Chain: chain, Name: "Coin " + ca, SourceType: domain.SourceDex}
	err := s.Update(context.Background(), func(r storage.Repository) error {
		return r.InsertCoin(context.Background(), c)
	})
	if err != nil {
		t.Fatalf("InsertCoin failed: %v", err)
	}
	return c.Key()
}

func seedTrade(t *testing.T, s *Store, id string, key domain.CoinKey) *domain.Trade {
	t.Helper()
	tr := &domain.Trade{TradeID: id, CA: key.CA, Chain: key.Chain, EntryMcapUSD: 100}
	err := s.Update(context.Background(), func(r storage.Repository) error {
		return r.InsertTrade(context.Background(), tr)
	})
	if err != nil {
		t.Fatalf("InsertTrade failed: %v", err)
	}
	return tr
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	key := seedCoin(t, s, "keep", "solana")

	boom := errors.New("boom")
	err := s.Update(ctx, func(r storage.Repository) error {
		if err := r.InsertCoin(ctx, &domain.Coin{CA: "drop", Chain: "solana", Name: "x", SourceType: domain.SourceDex}); err != nil {
			return err
		}
		if err := r.DeleteCoin(ctx, key); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(ctx, func(r storage.Repository) error {
		if _, err := r.GetCoin(ctx, key); err != nil {
			t.Errorf("kept coin missing after rollback: %v", err)
		}
		if _, err := r.GetCoin(ctx, domain.CoinKey{CA: "drop", Chain: "solana"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("rolled back coin visible: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.View(ctx, func(r storage.Repository) error {
		return r.InsertCoin(ctx, &domain.Coin{CA: "ro", Chain: "solana", Name: "x", SourceType: domain.SourceDex})
	})
	if !errors.Is(err, storage.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestCoinStore_DuplicateAndChains(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedCoin(t, s, "multi", "solana")
	seedCoin(t, s, "multi", "base")
	seedCoin(t, s, "multi", "bsc")

	err := s.Update(ctx, func(r storage.Repository) error {
		return r.InsertCoin(ctx, &domain.Coin{CA: "multi", Chain: "base", Name: "x", SourceType: domain.SourceDex})
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	_ = s.View(ctx, func(r storage.Repository) error {
		chains, _ := r.CoinChains(ctx, "multi", 2)
		if len(chains) != 2 {
			t.Errorf("CoinChains limit: got %v", chains)
		}
		return nil
	})
}

func TestTradeStore_CloseTwice(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	ctx := context.Background()
	key := seedCoin(t, s, "c", "solana")
	tr := seedTrade(t, s, "trade_00000001", key)

	closeTrade := func() (*domain.Trade, error) {
		var got *domain.Trade
		err := s.Update(ctx, func(r storage.Repository) error {
			var err error
			got, err = r.CloseTrade(ctx, domain.TradeClose{TradeID: tr.TradeID, ExitMcapUSD: 150})
			return err
		})
		return got, err
	}

	got, err := closeTrade()
	if err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if got.ExitTS == nil || !got.ExitTS.After(got.EntryTS) {
		t.Errorf("exit_ts not stamped after entry: %+v", got)
	}
	if got.PnLPct == nil || *got.PnLPct != 50 {
		t.Errorf("PnLPct = %v, want 50", got.PnLPct)
	}
	if got.CoinName != "Coin c" {
		t.Errorf("CoinName = %q", got.CoinName)
	}

	if _, err := closeTrade(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second close: expected ErrNotFound, got %v", err)
	}
}

func TestTradeStore_PaginationCoversAllRows(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	ctx := context.Background()
	key := seedCoin(t, s, "page", "solana")

	// Two trades per unit of work share an entry_ts, exercising the id tiebreak.
	for i := 0; i < 5; i++ {
		err := s.Update(ctx, func(r storage.Repository) error {
			for j := 0; j < 2; j++ {
				tr := &domain.Trade{TradeID: fmt.Sprintf("trade_%08d", i*2+j), CA: key.CA, Chain: key.Chain, EntryMcapUSD: 1}
				if err := r.InsertTrade(ctx, tr); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	seen := make(map[string]bool)
	var cursor *domain.Cursor
	var lastID int64 = 1 << 62
	for page := 0; page < 10; page++ {
		var items []*domain.Trade
		_ = s.View(ctx, func(r storage.Repository) error {
			items, _ = r.ListTrades(ctx, storage.TradeFilter{Cursor: cursor, Limit: 3})
			return nil
		})
		for _, tr := range items {
			if seen[tr.TradeID] {
				t.Errorf("trade %s repeated", tr.TradeID)
			}
			if tr.ID >= lastID {
				t.Errorf("trade %s out of order", tr.TradeID)
			}
			lastID = tr.ID
			seen[tr.TradeID] = true
		}
		if len(items) < 3 {
			break
		}
		last := items[len(items)-1]
		cursor = &domain.Cursor{TS: last.EntryTS, ID: last.ID}
	}
	if len(seen) != 10 {
		t.Errorf("saw %d trades, want 10", len(seen))
	}
}

func TestTradeStore_CountsAndQuery(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	ctx := context.Background()
	a := seedCoin(t, s, "alpha", "solana")
	b := seedCoin(t, s, "beta", "base")
	seedTrade(t, s, "trade_aaaaaaaa", a)
	seedTrade(t, s, "trade_bbbbbbbb", b)
	seedTrade(t, s, "trade_cccccccc", b)

	err := s.Update(ctx, func(r storage.Repository) error {
		_, err := r.CloseTrade(ctx, domain.TradeClose{TradeID: "trade_cccccccc", ExitMcapUSD: 1})
		return err
	})
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_ = s.View(ctx, func(r storage.Repository) error {
		counts, _ := r.CountTrades(ctx, storage.TradeFilter{Query: "BETA"})
		if counts != (domain.TradeCounts{Total: 2, Open: 1, Closed: 1}) {
			t.Errorf("counts = %+v", counts)
		}
		closed, _ := r.ListTrades(ctx, storage.TradeFilter{Scope: domain.ScopeClosed})
		if len(closed) != 1 || closed[0].TradeID != "trade_cccccccc" {
			t.Errorf("closed scope = %v", closed)
		}
		hits, _ := r.ListTrades(ctx, storage.TradeFilter{Query: "aaaa"})
		if len(hits) != 1 {
			t.Errorf("query by trade_id matched %d", len(hits))
		}
		return nil
	})
}

func TestScoreStore_LatestByTimestampThenID(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	ctx := context.Background()
	key := seedCoin(t, s, "sc", "solana")
	tr := seedTrade(t, s, "trade_5c0re000", key)

	for _, v := range []int{2, 8} {
		err := s.Update(ctx, func(r storage.Repository) error {
			_, err := r.AppendTradeScore(ctx, tr.TradeID, v)
			return err
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	// Same unit of work: equal scored_ts, higher id wins.
	err := s.Update(ctx, func(r storage.Repository) error {
		if _, err := r.AppendTradeScore(ctx, tr.TradeID, 4); err != nil {
			return err
		}
		_, err := r.AppendTradeScore(ctx, tr.TradeID, 7)
		return err
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	_ = s.View(ctx, func(r storage.Repository) error {
		latest, _ := r.LatestTradeScores(ctx, []string{tr.TradeID, "trade_missing0"})
		if len(latest) != 1 || latest[tr.TradeID].IntuitionScore != 7 {
			t.Errorf("latest = %+v", latest)
		}
		return nil
	})
}

func TestBubbleStore_ReplaceClears(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	key := seedCoin(t, s, "bb", "solana")
	tr := seedTrade(t, s, "trade_bbbb0000", key)

	set := func(b *domain.Bubbles) {
		err := s.Update(ctx, func(r storage.Repository) error {
			return r.ReplaceTradeBubbles(ctx, tr.TradeID, b)
		})
		if err != nil {
			t.Fatalf("replace failed: %v", err)
		}
	}

	set(&domain.Bubbles{Clusters: []domain.BubbleRow{{Rank: 2, Pct: 1}, {Rank: 1, Pct: 5}}})
	_ = s.View(ctx, func(r storage.Repository) error {
		got, _ := r.TradeBubbles(ctx, []string{tr.TradeID})
		if b := got[tr.TradeID]; b == nil || len(b.Clusters) != 2 || b.Clusters[0].Rank != 1 {
			t.Errorf("bubbles = %+v", b)
		}
		return nil
	})

	set(nil)
	_ = s.View(ctx, func(r storage.Repository) error {
		got, _ := r.TradeBubbles(ctx, []string{tr.TradeID})
		if len(got) != 0 {
			t.Errorf("bubbles not cleared: %+v", got)
		}
		return nil
	})

	err := s.Update(ctx, func(r storage.Repository) error {
		return r.ReplaceTradeBubbles(ctx, "trade_nope0000", &domain.Bubbles{})
	})
	if !errors.Is(err, storage.ErrMissingReference) {
		t.Errorf("expected ErrMissingReference, got %v", err)
	}
}

func TestAccountStore_UpsertAndSummary(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	ctx := context.Background()
	key := seedCoin(t, s, "tc", "solana")

	var first, second, other *domain.Account
	err := s.Update(ctx, func(r storage.Repository) error {
		first, _ = r.UpsertAccount(ctx, "x", "caller")
		second, _ = r.UpsertAccount(ctx, "x", "caller")
		other, _ = r.UpsertAccount(ctx, "tg", "quiet")
		return nil
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if first.AccountID != second.AccountID {
		t.Errorf("upsert returned %d then %d", first.AccountID, second.AccountID)
	}

	peak := 180.0
	err = s.Update(ctx, func(r storage.Repository) error {
		return r.InsertTip(ctx, &domain.Tip{AccountID: first.AccountID, CA: key.CA, Chain: key.Chain, PostTS: time.Now(), PostMcapUSD: 100, PeakMcapUSD: &peak})
	})
	if err != nil {
		t.Fatalf("InsertTip failed: %v", err)
	}

	_ = s.View(ctx, func(r storage.Repository) error {
		sums, _ := r.SummarizeAccounts(ctx, "")
		if len(sums) != 2 {
			t.Fatalf("got %d summaries", len(sums))
		}
		if sums[0].AccountID != first.AccountID || sums[0].TipsWin != 1 {
			t.Errorf("first summary = %+v", sums[0])
		}
		if sums[1].AccountID != other.AccountID || sums[1].WinRate50p != nil {
			t.Errorf("empty account summary = %+v", sums[1])
		}
		return nil
	})
}

func TestCoinStore_DeleteCascades(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	ctx := context.Background()
	key := seedCoin(t, s, "gone", "solana")
	tr := seedTrade(t, s, "trade_90e00000", key)

	err := s.Update(ctx, func(r storage.Repository) error {
		acct, err := r.UpsertAccount(ctx, "x", "h")
		if err != nil {
			return err
		}
		tip := &domain.Tip{AccountID: acct.AccountID, CA: key.CA, Chain: key.Chain, PostMcapUSD: 1}
		if err := r.InsertTip(ctx, tip); err != nil {
			return err
		}
		if _, err := r.AppendTipScore(ctx, tip.TipID, 3); err != nil {
			return err
		}
		if _, err := r.AppendCoinScore(ctx, key, 5); err != nil {
			return err
		}
		_, err = r.SetContext(ctx, &key)
		return err
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	err = s.Update(ctx, func(r storage.Repository) error {
		return r.DeleteCoin(ctx, key)
	})
	if err != nil {
		t.Fatalf("DeleteCoin failed: %v", err)
	}

	_ = s.View(ctx, func(r storage.Repository) error {
		if _, err := r.GetTrade(ctx, tr.TradeID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("trade survived coin delete: %v", err)
		}
		if n, _ := r.CountTips(ctx, storage.TipFilter{}); n != 0 {
			t.Errorf("%d tips survived coin delete", n)
		}
		if scores, _ := r.ListCoinScores(ctx, storage.ScoreFilter{}); len(scores) != 0 {
			t.Errorf("coin scores survived: %v", scores)
		}
		if c, _ := r.GetContext(ctx); c.ActiveCA != nil {
			t.Errorf("context still points at deleted coin")
		}
		return nil
	})
}
