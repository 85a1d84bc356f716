// Package address classifies contract addresses by the chain family they
// can belong to.
package address

import (
	"encoding/hex"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Family is the address format of a chain family.
type Family string

const (
	FamilyUnknown Family = "unknown"
	FamilySolana  Family = "solana"
	FamilyEVM     Family = "evm"
)

// Info describes a parsed address.
type Info struct {
	Family Family
	// OnCurve is set for Solana addresses that are valid ed25519 points.
	// Program-derived addresses are off curve.
	OnCurve bool
}

const (
	solanaKeyLen = 32
	evmAddrLen   = 20
)

// Classify inspects addr as supplied by the user. Solana addresses are
// case-sensitive, so callers must classify before lower-casing.
func Classify(addr string) Info {
	addr = strings.TrimSpace(addr)

	if rest, ok := cutHexPrefix(addr); ok {
		if b, err := hex.DecodeString(rest); err == nil && len(b) == evmAddrLen {
			return Info{Family: FamilyEVM}
		}
		return Info{Family: FamilyUnknown}
	}

	b, err := base58.Decode(addr)
	if err != nil || len(b) != solanaKeyLen {
		return Info{Family: FamilyUnknown}
	}
	return Info{Family: FamilySolana, OnCurve: isOnCurve(b)}
}

func cutHexPrefix(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], true
	}
	return "", false
}

func isOnCurve(point []byte) bool {
	if len(point) != solanaKeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// EVMChains are the EVM-compatible chains an EVM address may live on.
var EVMChains = map[string]bool{
	"ethereum":  true,
	"bsc":       true,
	"base":      true,
	"arbitrum":  true,
	"polygon":   true,
	"avalanche": true,
	"fantom":    true,
	"optimism":  true,
}

// CandidateChains narrows supported to the chains whose address format
// matches addr. Unknown formats keep every chain.
func CandidateChains(addr string, supported []string) []string {
	info := Classify(addr)
	if info.Family == FamilyUnknown {
		return supported
	}
	var out []string
	for _, chain := range supported {
		switch {
		case info.Family == FamilySolana && chain == "solana":
			out = append(out, chain)
		case info.Family == FamilyEVM && EVMChains[chain]:
			out = append(out, chain)
		}
	}
	if len(out) == 0 {
		return supported
	}
	return out
}
