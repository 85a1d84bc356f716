// Package idhash generates public identifiers.
package idhash

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"memedesk/internal/domain"
)

// tradeIDHexLen is the number of hex characters after the prefix.
const tradeIDHexLen = 8

// Generator returns a fresh trade identifier.
type Generator func() string

// NewTradeID returns "trade_" followed by the first 8 hex characters of a random UUID.
func NewTradeID() string {
	return TradeIDFromUUID(uuid.New())
}

// TradeIDFromUUID derives a trade identifier from u.
func TradeIDFromUUID(u uuid.UUID) string {
	return domain.TradeIDPrefix + hex.EncodeToString(u[:])[:tradeIDHexLen]
}

// IsTradeID reports whether s has the shape of a generated trade identifier.
func IsTradeID(s string) bool {
	rest, ok := strings.CutPrefix(s, domain.TradeIDPrefix)
	if !ok || len(rest) != tradeIDHexLen {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

// NewRequestID returns a random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}
