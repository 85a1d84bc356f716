package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"memedesk/internal/address"
	"memedesk/internal/domain"
)

const cacheKeyPrefix = "dexscreener:token_meta:"

type probe struct {
	chain string
	pairs []Pair
	err   error
}

// TokenMeta finds ca on the first supported chain that lists it and
// returns its name, symbol and earliest pair creation time. Only chains
// whose address format matches ca are probed.
func (c *Client) TokenMeta(ctx context.Context, ca string) (*domain.TokenMeta, error) {
	ca = strings.TrimSpace(ca)
	if len(ca) < domain.MinCALength {
		return nil, domain.Invalid("ca must be at least 3 characters")
	}
	key := cacheKeyPrefix + strings.ToLower(ca)

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn("token meta cache read failed", zap.Error(err))
	} else if ok {
		var meta domain.TokenMeta
		if err := json.Unmarshal(raw, &meta); err == nil {
			return &meta, nil
		}
	}

	chains := address.CandidateChains(ca, c.chains)
	probes := make([]probe, len(chains))

	// Probe errors are collected rather than returned so one failing chain
	// does not cancel the others.
	g, gctx := errgroup.WithContext(ctx)
	for i, chain := range chains {
		g.Go(func() error {
			pairs, err := c.TokenPairs(gctx, chain, ca)
			probes[i] = probe{chain: chain, pairs: pairs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, p := range probes {
		switch {
		case p.err == nil:
			meta := buildMeta(p.chain, strings.ToLower(ca), p.pairs)
			if raw, err := json.Marshal(meta); err == nil {
				if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
					c.log.Warn("token meta cache write failed", zap.Error(err))
				}
			}
			return meta, nil
		case !errors.Is(p.err, errNotListed):
			failed++
			c.log.Warn("dexscreener probe failed", zap.String("chain", p.chain), zap.String("ca", ca), zap.Error(p.err))
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if failed > 0 {
		return nil, domain.Upstream("dexscreener_unavailable")
	}
	return nil, domain.NotFound("token not found on any supported chain")
}

// buildMeta prefers the pair whose base token is ca and takes the launch
// time from the oldest pair.
func buildMeta(chain, caLower string, pairs []Pair) *domain.TokenMeta {
	chosen := pairs[0]
	for _, p := range pairs {
		if strings.ToLower(p.BaseToken.Address) == caLower {
			chosen = p
			break
		}
	}

	meta := &domain.TokenMeta{PairsFound: len(pairs), Chain: chain}
	if chosen.BaseToken.Name != "" {
		name := chosen.BaseToken.Name
		meta.Name = &name
	}
	if chosen.BaseToken.Symbol != "" {
		symbol := chosen.BaseToken.Symbol
		meta.Symbol = &symbol
	}

	var oldest int64
	for _, p := range pairs {
		if p.PairCreatedAt > 0 && (oldest == 0 || p.PairCreatedAt < oldest) {
			oldest = p.PairCreatedAt
		}
	}
	if oldest > 0 {
		ts := time.UnixMilli(oldest).UTC()
		meta.LaunchTS = &ts
	}
	return meta
}
