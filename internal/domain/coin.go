package domain

import (
	"strings"
	"time"
)

// DefaultChain is used when a coin is created without a chain.
const DefaultChain = "solana"

// DefaultCoinName is stored when an upsert creates a coin without a name.
const DefaultCoinName = "Unknown"

// Coin is a token identified by (ca, chain).
// Corresponds to coins table in PostgreSQL.
type Coin struct {
	CA         string     `json:"ca"`    // lower-cased contract address
	Chain      string     `json:"chain"` // lower-cased chain name
	Name       string     `json:"name"`
	Symbol     *string    `json:"symbol"`
	LaunchTS   *time.Time `json:"launch_ts"`
	SourceType SourceType `json:"source_type"`
	CreatedTS  time.Time  `json:"created_ts"`
}

// Key returns the natural key of the coin.
func (c *Coin) Key() CoinKey {
	return CoinKey{CA: c.CA, Chain: c.Chain}
}

// CoinKey is the natural key of a coin.
type CoinKey struct {
	CA    string `json:"ca"`
	Chain string `json:"chain"`
}

// CoinSummary is a coin with its trade/tip activity counts.
type CoinSummary struct {
	Coin
	TradesTotal    int64      `json:"trades_total"`
	TradesOpen     int64      `json:"trades_open"`
	TipsTotal      int64      `json:"tips_total"`
	LastActivityTS *time.Time `json:"last_activity_ts"`
}

// CoinUpsert is the input of the coin upsert merger.
type CoinUpsert struct {
	CA       string
	Chain    string
	Name     *string
	Symbol   *string
	LaunchTS *time.Time
	Source   SourceType
}

// CoinCreate is the input for registering a coin directly.
type CoinCreate struct {
	CA         string     `json:"ca"`
	Name       string     `json:"name"`
	Symbol     *string    `json:"symbol"`
	LaunchTS   *time.Time `json:"launch_ts"`
	SourceType SourceType `json:"source_type"`
	Chain      string     `json:"chain"`
}

// MinCALength is the shortest contract address accepted on input.
const MinCALength = 3

// NormalizeCA lower-cases and trims a contract address.
func NormalizeCA(ca string) string {
	return strings.ToLower(strings.TrimSpace(ca))
}

// NormalizeChain lower-cases and trims a chain name. An empty result
// means "no chain supplied".
func NormalizeChain(chain string) string {
	return strings.ToLower(strings.TrimSpace(chain))
}

// NormalizeUpsertChain normalizes a chain for the upsert path, where
// blank and "unknown" fall back to DefaultChain.
func NormalizeUpsertChain(chain string) string {
	c := NormalizeChain(chain)
	if c == "" || c == "unknown" {
		return DefaultChain
	}
	return c
}
