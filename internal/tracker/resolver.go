package tracker

import (
	"context"
	"fmt"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// ResolveCoin turns a (ca, chain) pair from a caller into the natural key
// of a stored coin. With a chain the pair must exist. Without one the ca
// must be registered on exactly one chain; more than one is a Conflict.
func ResolveCoin(ctx context.Context, coins storage.CoinStore, ca, chain string) (domain.CoinKey, error) {
	ca = domain.NormalizeCA(ca)
	chain = domain.NormalizeChain(chain)

	if chain != "" {
		c, err := coins.GetCoin(ctx, domain.CoinKey{CA: ca, Chain: chain})
		if err != nil {
			return domain.CoinKey{}, notFound(err, "coin not found")
		}
		return c.Key(), nil
	}

	chains, err := coins.CoinChains(ctx, ca, 2)
	if err != nil {
		return domain.CoinKey{}, fmt.Errorf("lookup chains: %w", err)
	}
	switch len(chains) {
	case 0:
		return domain.CoinKey{}, domain.NotFound("coin not found")
	case 1:
		return domain.CoinKey{CA: ca, Chain: chains[0]}, nil
	default:
		return domain.CoinKey{}, domain.Conflict("multiple chains found")
	}
}

// ResolveCoin resolves (ca, chain) in its own read-only unit of work.
func (s *Service) ResolveCoin(ctx context.Context, ca, chain string) (domain.CoinKey, error) {
	var key domain.CoinKey
	err := s.store.View(ctx, func(r storage.Repository) error {
		var err error
		key, err = ResolveCoin(ctx, r, ca, chain)
		return err
	})
	return key, err
}
