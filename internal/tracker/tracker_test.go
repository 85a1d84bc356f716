package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
	"memedesk/internal/storage/memory"
)

func stepClock() func() time.Time {
	t := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

// sequentialIDs returns trade ids trade_00000001, trade_00000002, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("trade_%08x", n)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Notify(_ context.Context, e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(memory.WithClock(stepClock()))
	rec := &recorder{}
	svc := New(store,
		WithTradeIDGenerator(sequentialIDs()),
		WithNotifier(rec),
		WithClock(stepClock()),
	)
	return &fixture{svc: svc, store: store, events: rec}
}

func (f *fixture) coin(t *testing.T, ca, chain string) *domain.Coin {
	t.Helper()
	c, err := f.svc.CreateCoin(context.Background(), domain.CoinCreate{CA: ca, Name: "Coin " + ca, Chain: chain})
	require.NoError(t, err)
	return c
}

func (f *fixture) account(t *testing.T, platform, handle string) *domain.Account {
	t.Helper()
	a, err := f.svc.UpsertAccount(context.Background(), AccountCreate{Platform: platform, Handle: handle})
	require.NoError(t, err)
	return a
}

func ptr[T any](v T) *T { return &v }

func TestResolveCoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "OneChain", "solana")
	f.coin(t, "twochain", "solana")
	f.coin(t, "twochain", "base")

	t.Run("single chain without chain", func(t *testing.T) {
		key, err := f.svc.ResolveCoin(ctx, "ONECHAIN", "")
		require.NoError(t, err)
		assert.Equal(t, domain.CoinKey{CA: "onechain", Chain: "solana"}, key)
	})

	t.Run("ambiguous without chain", func(t *testing.T) {
		_, err := f.svc.ResolveCoin(ctx, "twochain", "")
		require.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, "multiple chains found", err.Error())
	})

	t.Run("explicit chain", func(t *testing.T) {
		key, err := f.svc.ResolveCoin(ctx, "twochain", " BASE ")
		require.NoError(t, err)
		assert.Equal(t, "base", key.Chain)
	})

	t.Run("unknown ca", func(t *testing.T) {
		_, err := f.svc.ResolveCoin(ctx, "nothing", "")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown chain", func(t *testing.T) {
		_, err := f.svc.ResolveCoin(ctx, "onechain", "base")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, "coin not found", err.Error())
	})
}

func TestUpsertCoin_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := domain.CoinUpsert{CA: "PEPE123", Chain: "unknown", Name: ptr("Pepe"), Source: domain.SourceDex}

	first, err := f.svc.UpsertCoin(ctx, u)
	require.NoError(t, err)
	second, err := f.svc.UpsertCoin(ctx, u)
	require.NoError(t, err)

	assert.Equal(t, domain.CoinKey{CA: "pepe123", Chain: "solana"}, first.Key())
	assert.Equal(t, first.Key(), second.Key())
	assert.Equal(t, domain.SourceDex, second.SourceType)
	assert.Equal(t, "Pepe", second.Name)

	coins, err := f.svc.ListCoins(ctx, CoinQuery{})
	require.NoError(t, err)
	assert.Len(t, coins, 1)
}

func TestUpsertCoin_MergeToBothInAnyOrder(t *testing.T) {
	orders := [][]domain.SourceType{
		{domain.SourceDex, domain.SourceInfluencer},
		{domain.SourceInfluencer, domain.SourceDex},
	}
	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			var c *domain.Coin
			var err error
			for _, src := range order {
				c, err = f.svc.UpsertCoin(ctx, domain.CoinUpsert{CA: "wif999", Source: src})
				require.NoError(t, err)
			}
			assert.Equal(t, domain.SourceBoth, c.SourceType)

			c, err = f.svc.UpsertCoin(ctx, domain.CoinUpsert{CA: "wif999", Source: order[0]})
			require.NoError(t, err)
			assert.Equal(t, domain.SourceBoth, c.SourceType, "both is absorbing")
		})
	}
}

func TestUpsertCoin_NeverErasesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	launch := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.UpsertCoin(ctx, domain.CoinUpsert{
		CA: "bonk42", Name: ptr("Bonk"), Symbol: ptr("BONK"), LaunchTS: &launch, Source: domain.SourceDex,
	})
	require.NoError(t, err)

	c, err := f.svc.UpsertCoin(ctx, domain.CoinUpsert{
		CA: "bonk42", Name: ptr("  "), Symbol: nil, Source: domain.SourceDex,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonk", c.Name)
	require.NotNil(t, c.Symbol)
	assert.Equal(t, "BONK", *c.Symbol)
	require.NotNil(t, c.LaunchTS)
	assert.True(t, launch.Equal(*c.LaunchTS))

	c, err = f.svc.GetCoin(ctx, "BONK42", "")
	require.NoError(t, err)
	assert.Equal(t, "Bonk", c.Name)
}

// racingCoins loses the insert race: the coin is absent on read but
// another writer inserts it first.
type racingCoins struct {
	storage.CoinStore
	inserts int
}

func (r *racingCoins) GetCoin(context.Context, domain.CoinKey) (*domain.Coin, error) {
	return nil, storage.ErrNotFound
}

func (r *racingCoins) InsertCoin(context.Context, *domain.Coin) error {
	r.inserts++
	return storage.ErrDuplicateKey
}

func TestUpsertCoin_InsertRaceIsConflict(t *testing.T) {
	coins := &racingCoins{}
	c, err := UpsertCoin(context.Background(), coins, domain.CoinUpsert{CA: "raced01", Source: domain.SourceDex})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, "coin already exists", err.Error())
	assert.Equal(t, 1, coins.inserts)
}

func TestUpsertCoin_DefaultName(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.UpsertCoin(context.Background(), domain.CoinUpsert{CA: "noname", Source: domain.SourceInfluencer})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCoinName, c.Name)
}

func TestCreateCoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCoin(ctx, domain.CoinCreate{CA: "  ABCdef ", Name: "Abc"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", c.CA)
	assert.Equal(t, domain.DefaultChain, c.Chain)
	assert.Equal(t, domain.SourceDex, c.SourceType)

	_, err = f.svc.CreateCoin(ctx, domain.CoinCreate{CA: "abcdef", Name: "Again"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.CreateCoin(ctx, domain.CoinCreate{CA: "ab", Name: "Short"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.CreateCoin(ctx, domain.CoinCreate{CA: "abcxyz", Name: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.CreateCoin(ctx, domain.CoinCreate{CA: "abcxyz", Name: "x", SourceType: "twitter"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTradeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "moon01", "solana")

	tr, err := f.svc.OpenTrade(ctx, domain.TradeOpen{
		CA:           "MOON01",
		EntryMcapUSD: 100000,
		SizeUSD:      ptr(200.0),
		Bubbles:      &domain.Bubbles{Clusters: []domain.BubbleRow{{Rank: 1, Pct: 12.5}}},
		Scoring:      &domain.ScoreRef{IntuitionScore: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, "trade_00000001", tr.TradeID)
	assert.Equal(t, "Coin moon01", tr.CoinName)
	assert.True(t, tr.IsOpen())
	require.NotNil(t, tr.Scoring)
	assert.Equal(t, 7, tr.Scoring.IntuitionScore)

	_, err = f.svc.CloseTrade(ctx, tr.TradeID, domain.TradeClose{TradeID: "trade_other", ExitMcapUSD: 1})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "trade id mismatch", err.Error())

	closed, err := f.svc.CloseTrade(ctx, tr.TradeID, domain.TradeClose{ExitMcapUSD: 150000, ExitReason: ptr("tp")})
	require.NoError(t, err)
	require.NotNil(t, closed.PnLPct)
	assert.InDelta(t, 50.0, *closed.PnLPct, 1e-9)
	require.NotNil(t, closed.PnLUSD)
	assert.InDelta(t, 100.0, *closed.PnLUSD, 1e-9)
	require.NotNil(t, closed.Bubbles)
	assert.Len(t, closed.Bubbles.Clusters, 1)

	_, err = f.svc.CloseTrade(ctx, tr.TradeID, domain.TradeClose{ExitMcapUSD: 160000})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "open trade not found", err.Error())

	got, err := f.svc.GetTrade(ctx, tr.TradeID)
	require.NoError(t, err)
	assert.InDelta(t, 150000, *got.ExitMcapUSD, 1e-9)

	require.NoError(t, f.svc.DeleteTrade(ctx, tr.TradeID))
	_, err = f.svc.GetTrade(ctx, tr.TradeID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteTrade(ctx, tr.TradeID), domain.ErrNotFound)

	_, err = f.svc.GetCoin(ctx, "moon01", "solana")
	assert.NoError(t, err, "deleting a trade keeps the coin")

	assert.Equal(t, []domain.EventType{
		domain.EventCoinUpserted,
		domain.EventTradeOpened,
		domain.EventTradeClosed,
		domain.EventTradeDeleted,
	}, f.events.types())
}

func TestOpenTrade_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "moon02", "solana")

	tests := []struct {
		name string
		in   domain.TradeOpen
		kind error
	}{
		{"short ca", domain.TradeOpen{CA: "mo", EntryMcapUSD: 1}, domain.ErrValidation},
		{"zero entry", domain.TradeOpen{CA: "moon02"}, domain.ErrValidation},
		{"negative size", domain.TradeOpen{CA: "moon02", EntryMcapUSD: 1, SizeUSD: ptr(-1.0)}, domain.ErrValidation},
		{"score out of range", domain.TradeOpen{CA: "moon02", EntryMcapUSD: 1, Scoring: &domain.ScoreRef{IntuitionScore: 11}}, domain.ErrValidation},
		{"unknown coin", domain.TradeOpen{CA: "nowhere", EntryMcapUSD: 1}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.OpenTrade(ctx, tt.in)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	trades, err := f.svc.ListTrades(ctx, TradeQuery{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestOpenTrade_DuplicateBubbleRankWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "moon03", "solana")

	_, err := f.svc.OpenTrade(ctx, domain.TradeOpen{
		CA:           "moon03",
		EntryMcapUSD: 10,
		Bubbles:      &domain.Bubbles{Clusters: []domain.BubbleRow{{Rank: 1, Pct: 1}, {Rank: 1, Pct: 2}}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "duplicate cluster ranks", err.Error())

	trades, err := f.svc.ListTrades(ctx, TradeQuery{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestOpenTrade_TradeIDCollision(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, WithTradeIDGenerator(func() string { return "trade_deadbeef" }))
	ctx := context.Background()
	_, err := svc.CreateCoin(ctx, domain.CoinCreate{CA: "dup001", Name: "Dup"})
	require.NoError(t, err)

	_, err = svc.OpenTrade(ctx, domain.TradeOpen{CA: "dup001", EntryMcapUSD: 1})
	require.NoError(t, err)
	_, err = svc.OpenTrade(ctx, domain.TradeOpen{CA: "dup001", EntryMcapUSD: 1})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPatchTrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "moon04", "solana")
	tr, err := f.svc.OpenTrade(ctx, domain.TradeOpen{CA: "moon04", EntryMcapUSD: 100, SizeUSD: ptr(50.0)})
	require.NoError(t, err)

	_, err = f.svc.PatchTrade(ctx, tr.TradeID, domain.TradePatch{})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "no fields to update", err.Error())

	_, err = f.svc.PatchTrade(ctx, tr.TradeID, domain.TradePatch{EntryMcapUSD: domain.Null[float64]()})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.PatchTrade(ctx, tr.TradeID, domain.TradePatch{ExitMcapUSD: domain.Some(0.0)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := f.svc.PatchTrade(ctx, tr.TradeID, domain.TradePatch{
		EntryMcapUSD: domain.Some(200.0),
		SizeUSD:      domain.Null[float64](),
	})
	require.NoError(t, err)
	assert.InDelta(t, 200, got.EntryMcapUSD, 1e-9)
	assert.Nil(t, got.SizeUSD)

	_, err = f.svc.PatchTrade(ctx, "trade_missing", domain.TradePatch{EntryMcapUSD: domain.Some(1.0)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatchTrade_ClosedKeepsExitMcap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "moon05", "solana")
	tr, err := f.svc.OpenTrade(ctx, domain.TradeOpen{CA: "moon05", EntryMcapUSD: 100, SizeUSD: ptr(10.0)})
	require.NoError(t, err)

	// Open trade: clearing an unset exit mcap is allowed.
	_, err = f.svc.PatchTrade(ctx, tr.TradeID, domain.TradePatch{ExitMcapUSD: domain.Null[float64]()})
	require.NoError(t, err)

	_, err = f.svc.CloseTrade(ctx, tr.TradeID, domain.TradeClose{ExitMcapUSD: 150})
	require.NoError(t, err)

	_, err = f.svc.PatchTrade(ctx, tr.TradeID, domain.TradePatch{ExitMcapUSD: domain.Null[float64]()})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "exit_mcap_usd cannot be cleared on a closed trade", err.Error())

	got, err := f.svc.GetTrade(ctx, tr.TradeID)
	require.NoError(t, err)
	require.NotNil(t, got.ExitMcapUSD)
	assert.InDelta(t, 150, *got.ExitMcapUSD, 1e-9)
	require.NotNil(t, got.PnLPct)
	assert.InDelta(t, 50, *got.PnLPct, 1e-9)

	moved, err := f.svc.PatchTrade(ctx, tr.TradeID, domain.TradePatch{ExitMcapUSD: domain.Some(200.0)})
	require.NoError(t, err)
	require.NotNil(t, moved.PnLPct)
	assert.InDelta(t, 100, *moved.PnLPct, 1e-9)
}

func TestListTradesPaged_NoRepeatsNoGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "page01", "solana")

	want := make(map[string]bool)
	for i := 0; i < 7; i++ {
		tr, err := f.svc.OpenTrade(ctx, domain.TradeOpen{CA: "page01", EntryMcapUSD: float64(i + 1)})
		require.NoError(t, err)
		want[tr.TradeID] = true
		if i%2 == 0 {
			_, err = f.svc.CloseTrade(ctx, tr.TradeID, domain.TradeClose{ExitMcapUSD: 1})
			require.NoError(t, err)
		}
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := f.svc.ListTradesPaged(ctx, TradePageQuery{Limit: 3, Cursor: cursor})
		require.NoError(t, err)
		assert.EqualValues(t, 7, page.Total)
		assert.EqualValues(t, 3, page.Open)
		assert.EqualValues(t, 4, page.Closed)
		for _, tr := range page.Items {
			assert.False(t, seen[tr.TradeID], "repeated %s", tr.TradeID)
			seen[tr.TradeID] = true
		}
		pages++
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	assert.Equal(t, want, seen)
	assert.Equal(t, 3, pages)

	page, err := f.svc.ListTradesPaged(ctx, TradePageQuery{Scope: "open"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Nil(t, page.NextCursor)

	_, err = f.svc.ListTradesPaged(ctx, TradePageQuery{Scope: "pending"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.ListTradesPaged(ctx, TradePageQuery{Cursor: "garbage"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.ListTradesPaged(ctx, TradePageQuery{Limit: 501})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTradeScores_CurrentIsLatest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "score1", "solana")
	tr, err := f.svc.OpenTrade(ctx, domain.TradeOpen{CA: "score1", EntryMcapUSD: 1, Scoring: &domain.ScoreRef{IntuitionScore: 3}})
	require.NoError(t, err)

	for _, s := range []int{9, 5} {
		_, err := f.svc.AddTradeScore(ctx, tr.TradeID, s)
		require.NoError(t, err)
	}
	_, err = f.svc.AddTradeScore(ctx, tr.TradeID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.AddTradeScore(ctx, "trade_missing", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	trades, err := f.svc.ListTrades(ctx, TradeQuery{CA: "score1"})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.NotNil(t, trades[0].Scoring)
	assert.Equal(t, 5, trades[0].Scoring.IntuitionScore)
}

func TestTradeBubbles_ReplaceIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "bub001", "solana")
	tr, err := f.svc.OpenTrade(ctx, domain.TradeOpen{CA: "bub001", EntryMcapUSD: 1})
	require.NoError(t, err)

	b, err := f.svc.GetTradeBubbles(ctx, tr.TradeID)
	require.NoError(t, err)
	assert.Empty(t, b.Clusters)
	assert.NotNil(t, b.Others)

	orig := &domain.Bubbles{
		Clusters: []domain.BubbleRow{{Rank: 1, Pct: 10}, {Rank: 2, Pct: 5}},
		Others:   []domain.BubbleRow{{Rank: 1, Pct: 1}},
	}
	_, err = f.svc.SetTradeBubbles(ctx, tr.TradeID, orig)
	require.NoError(t, err)

	_, err = f.svc.SetTradeBubbles(ctx, tr.TradeID, &domain.Bubbles{
		Clusters: []domain.BubbleRow{{Rank: 3, Pct: 1}},
		Others:   []domain.BubbleRow{{Rank: 2, Pct: 1}, {Rank: 2, Pct: 3}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "duplicate other ranks", err.Error())

	b, err = f.svc.GetTradeBubbles(ctx, tr.TradeID)
	require.NoError(t, err)
	assert.Equal(t, orig.Clusters, b.Clusters)
	assert.Equal(t, orig.Others, b.Others)

	_, err = f.svc.SetTradeBubbles(ctx, "trade_missing", orig)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTipLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "tip001", "solana")
	acc := f.account(t, "x", "caller")
	post := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := f.svc.CreateTip(ctx, domain.TipCreate{CA: "tip001", AccountID: 999, PostTS: post, PostMcapUSD: 10})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "account not found", err.Error())

	tip, err := f.svc.CreateTip(ctx, domain.TipCreate{
		CA:          "TIP001",
		AccountID:   acc.AccountID,
		PostTS:      post,
		PostMcapUSD: 10000,
		Scoring:     &domain.ScoreRef{IntuitionScore: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, "caller", tip.Handle)
	assert.Nil(t, tip.EffectPct)

	_, err = f.svc.PatchTip(ctx, tip.TipID, domain.TipPatch{RugFlag: domain.Some(2)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.PatchTip(ctx, tip.TipID, domain.TipPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := f.svc.PatchTip(ctx, tip.TipID, domain.TipPatch{
		PeakMcapUSD:   domain.Some(25000.0),
		TroughMcapUSD: domain.Some(5000.0),
		RugFlag:       domain.Some(0),
	})
	require.NoError(t, err)
	require.NotNil(t, got.EffectPct)
	assert.InDelta(t, 150, *got.EffectPct, 1e-9)
	assert.InDelta(t, -50, *got.DropPct, 1e-9)
	require.NotNil(t, got.Scoring)
	assert.Equal(t, 4, got.Scoring.IntuitionScore)

	summaries, err := f.svc.SummarizeAccounts(ctx, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 1, summaries[0].TipsWin)

	require.NoError(t, f.svc.DeleteTip(ctx, tip.TipID))
	_, err = f.svc.GetTip(ctx, tip.TipID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTipsPaged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "tip002", "solana")
	acc := f.account(t, "telegram", "alpha")
	post := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := f.svc.CreateTip(ctx, domain.TipCreate{
			CA: "tip002", AccountID: acc.AccountID, PostTS: post, PostMcapUSD: float64(i + 1),
		})
		require.NoError(t, err)
	}

	first, err := f.svc.ListTipsPaged(ctx, TipPageQuery{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, first.TotalCount)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.NextCursor)
	assert.Greater(t, first.Items[0].TipID, first.Items[1].TipID, "same post_ts falls back to tip_id")

	second, err := f.svc.ListTipsPaged(ctx, TipPageQuery{Limit: 2, Cursor: *first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Less(t, second.Items[0].TipID, first.Items[1].TipID)

	byHandle, err := f.svc.ListTipsPaged(ctx, TipPageQuery{Query: "ALPH"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, byHandle.TotalCount)

	none, err := f.svc.ListTipsPaged(ctx, TipPageQuery{Query: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.Nil(t, none.NextCursor)
}

func TestUpsertAccount_SameID(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "x", "degen")
	b := f.account(t, " x ", "degen")
	assert.Equal(t, a.AccountID, b.AccountID)

	_, err := f.svc.UpsertAccount(context.Background(), AccountCreate{Platform: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	accounts, err := f.svc.ListAccounts(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestCoinChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "kid001", "solana")
	f.coin(t, "kid002", "solana")
	f.coin(t, "kid002", "base")

	out, err := f.svc.SetCoinBubbles(ctx, "KID001", "", &domain.Bubbles{Clusters: []domain.BubbleRow{{Rank: 2, Pct: 3}, {Rank: 1, Pct: 9}}})
	require.NoError(t, err)
	assert.Equal(t, "solana", out.Chain)

	got, err := f.svc.GetCoinBubbles(ctx, "kid001", "")
	require.NoError(t, err)
	require.Len(t, got.Clusters, 2)
	assert.Equal(t, 1, got.Clusters[0].Rank)
	assert.NotNil(t, got.Others)

	_, err = f.svc.SetCoinBubbles(ctx, "kid002", "", &domain.Bubbles{})
	assert.ErrorIs(t, err, domain.ErrConflict)

	sc, err := f.svc.AddCoinScore(ctx, "kid002", "base", 8)
	require.NoError(t, err)
	assert.Equal(t, "base", sc.Chain)

	scores, err := f.svc.ListCoinScores(ctx, ScoreQuery{CA: "kid002"})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 8, scores[0].IntuitionScore)
}

func TestDeleteCoin_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "gone01", "solana")
	acc := f.account(t, "x", "h")
	tr, err := f.svc.OpenTrade(ctx, domain.TradeOpen{CA: "gone01", EntryMcapUSD: 1})
	require.NoError(t, err)
	_, err = f.svc.CreateTip(ctx, domain.TipCreate{CA: "gone01", AccountID: acc.AccountID, PostTS: time.Now(), PostMcapUSD: 1})
	require.NoError(t, err)
	_, err = f.svc.SetContext(ctx, ContextSet{ActiveCA: ptr("gone01")})
	require.NoError(t, err)

	key, err := f.svc.DeleteCoin(ctx, "gone01", "")
	require.NoError(t, err)
	assert.Equal(t, "solana", key.Chain)

	_, err = f.svc.GetTrade(ctx, tr.TradeID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	tips, err := f.svc.ListTips(ctx, TipQuery{})
	require.NoError(t, err)
	assert.Empty(t, tips)
	c, err := f.svc.GetContext(ctx)
	require.NoError(t, err)
	assert.Nil(t, c.ActiveCA)

	_, err = f.svc.DeleteCoin(ctx, "gone01", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "ctx001", "solana")

	c, err := f.svc.SetContext(ctx, ContextSet{ActiveCA: ptr("CTX001")})
	require.NoError(t, err)
	require.NotNil(t, c.ActiveCA)
	assert.Equal(t, "ctx001", *c.ActiveCA)
	assert.Equal(t, "solana", *c.ActiveChain)

	_, err = f.svc.SetContext(ctx, ContextSet{ActiveCA: ptr("missing")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c, err = f.svc.SetContext(ctx, ContextSet{})
	require.NoError(t, err)
	assert.Nil(t, c.ActiveCA)
	assert.Nil(t, c.ActiveChain)
}

func TestDexAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.DexAdd(ctx, DexAdd{
		CA:             "WIZ001",
		Name:           ptr("Wizard"),
		Chain:          "",
		EntryMcapUSD:   5000,
		Bubbles:        &domain.Bubbles{Clusters: []domain.BubbleRow{{Rank: 1, Pct: 4}}},
		IntuitionScore: ptr(6),
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "wiz001", res.Coin.CA)
	assert.Equal(t, "solana", res.Coin.Chain)
	assert.Equal(t, domain.SourceDex, res.Coin.SourceType)
	assert.Equal(t, "trade_00000001", res.Trade.TradeID)
	require.NotNil(t, res.Score)

	b, err := f.svc.GetTradeBubbles(ctx, res.Trade.TradeID)
	require.NoError(t, err)
	assert.Len(t, b.Clusters, 1)

	res, err = f.svc.DexAdd(ctx, DexAdd{CA: "wiz001", EntryMcapUSD: 6000})
	require.NoError(t, err)
	assert.Equal(t, "Wizard", res.Coin.Name)
	assert.Nil(t, res.Score)
}

func TestDexAdd_FailureWritesNothing(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, WithTradeIDGenerator(func() string { return "trade_00000001" }))
	ctx := context.Background()

	_, err := svc.DexAdd(ctx, DexAdd{CA: "wiz002", EntryMcapUSD: 1})
	require.NoError(t, err)

	// The second trade_id collides after the coin has been merged; the
	// merge must roll back with it.
	_, err = svc.DexAdd(ctx, DexAdd{CA: "wiz003", EntryMcapUSD: 1})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.GetCoin(ctx, "wiz003", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInfluencerAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coin(t, "inf001", "solana")
	post := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	res, err := f.svc.InfluencerAdd(ctx, InfluencerAdd{
		CA:          "inf001",
		Platform:    "x",
		Handle:      "whale",
		PostTS:      post,
		PostMcapUSD: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceBoth, res.Coin.SourceType, "dex coin called by influencer")
	assert.Nil(t, res.Score)

	again, err := f.svc.InfluencerAdd(ctx, InfluencerAdd{
		CA: "inf001", Platform: "x", Handle: "whale", PostTS: post, PostMcapUSD: 2000, IntuitionScore: ptr(2),
	})
	require.NoError(t, err)
	assert.NotEqual(t, res.TipID, again.TipID)
	require.NotNil(t, again.Score)

	accounts, err := f.svc.ListAccounts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	_, err = f.svc.InfluencerAdd(ctx, InfluencerAdd{CA: "inf001", Platform: "x", PostTS: post, PostMcapUSD: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type failingStore struct{ storage.Store }

func (failingStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestPing_Unavailable(t *testing.T) {
	svc := New(failingStore{Store: memory.NewStore()})
	err := svc.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
