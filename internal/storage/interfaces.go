package storage

import (
	"context"

	"memedesk/internal/domain"
)

// Store runs units of work against a Repository.
//
// Update executes fn inside a single transaction: every write performed
// through the Repository commits together when fn returns nil and is
// discarded otherwise.
type Store interface {
	View(ctx context.Context, fn func(Repository) error) error
	Update(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
}

// Repository is the full set of record operations available inside a unit of work.
type Repository interface {
	CoinStore
	TradeStore
	TipStore
	AccountStore
	BubbleStore
	ScoreStore
	ContextStore
}

// CoinFilter narrows coin listings.
type CoinFilter struct {
	CA    string
	Chain string
	Limit int
}

// TradeFilter narrows trade listings and counts.
// Scope and Cursor are ignored by CountTrades.
type TradeFilter struct {
	CA     string
	Chain  string
	Scope  domain.TradeScope
	Query  string
	Cursor *domain.Cursor
	Limit  int
}

// TipFilter narrows tip listings and counts.
type TipFilter struct {
	CA        string
	Chain     string
	AccountID int64
	Query     string
	Cursor    *domain.Cursor
	Limit     int
}

// ScoreFilter narrows coin-level score listings.
type ScoreFilter struct {
	CA    string
	Chain string
	Limit int
}

// CoinStore provides access to coins.
type CoinStore interface {
	// InsertCoin adds a coin and sets CreatedTS. Returns ErrDuplicateKey if (ca, chain) exists.
	InsertCoin(ctx context.Context, c *domain.Coin) error

	// GetCoin returns the coin for key. Returns ErrNotFound if not exists.
	GetCoin(ctx context.Context, key domain.CoinKey) (*domain.Coin, error)

	// CoinChains returns at most limit chains registered for ca.
	CoinChains(ctx context.Context, ca string, limit int) ([]string, error)

	// UpdateCoin overwrites name, symbol, launch_ts and source_type. Returns ErrNotFound if not exists.
	UpdateCoin(ctx context.Context, c *domain.Coin) error

	// ListCoins returns coins ordered by created_ts DESC.
	ListCoins(ctx context.Context, f CoinFilter) ([]*domain.Coin, error)

	// SummarizeCoins returns per-coin activity ordered by last activity DESC.
	SummarizeCoins(ctx context.Context, f CoinFilter) ([]*domain.CoinSummary, error)

	// DeleteCoin removes the coin and everything attached to it. Returns ErrNotFound if not exists.
	DeleteCoin(ctx context.Context, key domain.CoinKey) error
}

// TradeStore provides access to trades.
type TradeStore interface {
	// InsertTrade adds an open trade and sets ID and EntryTS.
	// Returns ErrDuplicateKey if trade_id exists, ErrMissingReference if the coin does not.
	InsertTrade(ctx context.Context, t *domain.Trade) error

	// GetTrade returns a trade by its public trade_id. Returns ErrNotFound if not exists.
	GetTrade(ctx context.Context, tradeID string) (*domain.Trade, error)

	// CloseTrade stamps exit_ts on an open trade. Returns ErrNotFound when no open trade matches.
	CloseTrade(ctx context.Context, c domain.TradeClose) (*domain.Trade, error)

	// PatchTrade updates the fields set in p. Returns ErrNotFound if not exists.
	PatchTrade(ctx context.Context, tradeID string, p domain.TradePatch) error

	// DeleteTrade removes the trade with its bubbles and scores. Returns ErrNotFound if not exists.
	DeleteTrade(ctx context.Context, tradeID string) error

	// ListTrades returns trades ordered by (entry_ts, id) DESC.
	ListTrades(ctx context.Context, f TradeFilter) ([]*domain.Trade, error)

	// CountTrades returns total, open and closed counts for the filter.
	CountTrades(ctx context.Context, f TradeFilter) (domain.TradeCounts, error)
}

// TipStore provides access to tips.
type TipStore interface {
	// InsertTip adds a tip and sets TipID. Returns ErrMissingReference if coin or account is missing.
	InsertTip(ctx context.Context, t *domain.Tip) error

	// GetTip returns a tip by id. Returns ErrNotFound if not exists.
	GetTip(ctx context.Context, tipID int64) (*domain.Tip, error)

	// PatchTip updates the fields set in p. Returns ErrNotFound if not exists.
	PatchTip(ctx context.Context, tipID int64, p domain.TipPatch) error

	// DeleteTip removes the tip with its bubbles and scores. Returns ErrNotFound if not exists.
	DeleteTip(ctx context.Context, tipID int64) error

	// ListTips returns tips ordered by (post_ts, tip_id) DESC.
	ListTips(ctx context.Context, f TipFilter) ([]*domain.Tip, error)

	// CountTips returns the number of tips matching the filter, ignoring Cursor and Limit.
	CountTips(ctx context.Context, f TipFilter) (int64, error)
}

// AccountStore provides access to influencer accounts.
type AccountStore interface {
	// UpsertAccount returns the account for (platform, handle), creating it if needed.
	UpsertAccount(ctx context.Context, platform, handle string) (*domain.Account, error)

	// GetAccount returns an account by id. Returns ErrNotFound if not exists.
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)

	// ListAccounts returns accounts ordered by account_id.
	ListAccounts(ctx context.Context, limit int) ([]*domain.Account, error)

	// SummarizeAccounts returns tip statistics per account, optionally for one chain.
	SummarizeAccounts(ctx context.Context, chain string) ([]*domain.AccountSummary, error)
}

// BubbleStore provides access to bubble distributions for every owner kind.
// Replace* deletes the owner's current rows and inserts b; a nil b clears them.
type BubbleStore interface {
	ReplaceTradeBubbles(ctx context.Context, tradeID string, b *domain.Bubbles) error
	TradeBubbles(ctx context.Context, tradeIDs []string) (map[string]*domain.Bubbles, error)

	ReplaceTipBubbles(ctx context.Context, tipID int64, b *domain.Bubbles) error
	TipBubbles(ctx context.Context, tipIDs []int64) (map[int64]*domain.Bubbles, error)

	ReplaceCoinBubbles(ctx context.Context, key domain.CoinKey, b *domain.Bubbles) error
	CoinBubbles(ctx context.Context, key domain.CoinKey) (*domain.Bubbles, error)
}

// ScoreStore provides access to append-only intuition scores.
// Latest* return, per owner, the row with the greatest scored_ts (ties by id).
type ScoreStore interface {
	AppendTradeScore(ctx context.Context, tradeID string, score int) (*domain.Score, error)
	LatestTradeScores(ctx context.Context, tradeIDs []string) (map[string]*domain.Score, error)

	AppendTipScore(ctx context.Context, tipID int64, score int) (*domain.Score, error)
	LatestTipScores(ctx context.Context, tipIDs []int64) (map[int64]*domain.Score, error)

	AppendCoinScore(ctx context.Context, key domain.CoinKey, score int) (*domain.Score, error)
	ListCoinScores(ctx context.Context, f ScoreFilter) ([]*domain.Score, error)
}

// ContextStore provides access to the singleton active-coin context.
type ContextStore interface {
	GetContext(ctx context.Context) (*domain.ActiveContext, error)

	// SetContext replaces the active coin; nil key clears it.
	SetContext(ctx context.Context, key *domain.CoinKey) (*domain.ActiveContext, error)
}

// OutcomeStore receives closed-trade and tip outcomes for analytics.
type OutcomeStore interface {
	InsertTradeOutcome(ctx context.Context, o *domain.TradeOutcome) error
	InsertTipOutcome(ctx context.Context, o *domain.TipOutcome) error

	// Stats aggregates stored outcomes per chain.
	Stats(ctx context.Context) ([]*domain.OutcomeStats, error)
}
