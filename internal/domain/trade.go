package domain

import "time"

// TradeIDPrefix prefixes every generated trade identifier.
const TradeIDPrefix = "trade_"

// Trade is a position on a coin.
// Corresponds to trades table in PostgreSQL.
//
// ID is the database surrogate key. TradeID is the opaque identifier
// exposed to callers and used as the key of trade bubbles and scores.
type Trade struct {
	ID           int64      `json:"id"`
	TradeID      string     `json:"trade_id"`
	CA           string     `json:"ca"`
	Chain        string     `json:"chain"`
	CoinName     string     `json:"coin_name"`
	CoinSymbol   *string    `json:"-"`
	EntryTS      time.Time  `json:"entry_ts"`
	EntryMcapUSD float64    `json:"entry_mcap_usd"`
	SizeUSD      *float64   `json:"size_usd"`
	ExitTS       *time.Time `json:"exit_ts"`
	ExitMcapUSD  *float64   `json:"exit_mcap_usd"`
	ExitReason   *string    `json:"exit_reason"`
	PnLPct       *float64   `json:"pnl_pct"`
	PnLUSD       *float64   `json:"pnl_usd"`
	Bubbles      *Bubbles   `json:"bubbles"`
	Scoring      *ScoreRef  `json:"scoring"`
}

// IsOpen reports whether the trade has not been closed.
func (t *Trade) IsOpen() bool {
	return t.ExitTS == nil
}

// Derive fills the computed PnL fields.
func (t *Trade) Derive() {
	t.PnLPct, t.PnLUSD = TradePnL(t.EntryMcapUSD, t.ExitMcapUSD, t.SizeUSD)
}

// TradeOpen is the input for opening a trade.
type TradeOpen struct {
	CA           string    `json:"ca"`
	Chain        string    `json:"chain"`
	EntryMcapUSD float64   `json:"entry_mcap_usd"`
	SizeUSD      *float64  `json:"size_usd"`
	Bubbles      *Bubbles  `json:"bubbles"`
	Scoring      *ScoreRef `json:"scoring"`
}

// TradeClose is the input for closing a trade.
type TradeClose struct {
	TradeID     string  `json:"trade_id"`
	ExitMcapUSD float64 `json:"exit_mcap_usd"`
	ExitReason  *string `json:"exit_reason"`
}

// TradePatch is a partial update of a trade. Only Set fields are applied.
type TradePatch struct {
	EntryMcapUSD Optional[float64] `json:"entry_mcap_usd"`
	SizeUSD      Optional[float64] `json:"size_usd"`
	ExitMcapUSD  Optional[float64] `json:"exit_mcap_usd"`
	ExitReason   Optional[string]  `json:"exit_reason"`
}

// IsEmpty reports whether no field is set.
func (p TradePatch) IsEmpty() bool {
	return !p.EntryMcapUSD.Set && !p.SizeUSD.Set && !p.ExitMcapUSD.Set && !p.ExitReason.Set
}

// TradeScope filters trades by lifecycle state.
type TradeScope string

const (
	ScopeAll    TradeScope = "all"
	ScopeOpen   TradeScope = "open"
	ScopeClosed TradeScope = "closed"
)

// IsValid checks if the scope is a valid value.
func (s TradeScope) IsValid() bool {
	return s == ScopeAll || s == ScopeOpen || s == ScopeClosed
}

// TradeCounts are totals over a filtered trade set, ignoring scope and cursor.
type TradeCounts struct {
	Total  int64 `json:"total_count"`
	Open   int64 `json:"open_count"`
	Closed int64 `json:"closed_count"`
}

// TradePage is one page of a cursor-paginated trade listing.
type TradePage struct {
	TradeCounts
	Items      []*Trade `json:"items"`
	NextCursor *string  `json:"next_cursor"`
}
