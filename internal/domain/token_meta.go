package domain

import "time"

// TokenMeta is market metadata for a contract address found on a DEX
// aggregator.
type TokenMeta struct {
	Name       *string    `json:"name"`
	Symbol     *string    `json:"symbol"`
	LaunchTS   *time.Time `json:"launch_ts"`
	PairsFound int        `json:"pairs_found"`
	Chain      string     `json:"chain"`
}
