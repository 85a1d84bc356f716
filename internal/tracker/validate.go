package tracker

import (
	"fmt"
	"strings"

	"memedesk/internal/domain"
)

// Page size bounds per listing.
const (
	defaultTradeLimit     = 100
	maxTradeLimit         = 1000
	defaultTradePageLimit = 100
	maxTradePageLimit     = 500
	defaultTipLimit       = 200
	maxTipLimit           = 1000
	defaultTipPageLimit   = 100
	maxTipPageLimit       = 500
	defaultCoinLimit      = 200
	maxCoinLimit          = 2000
	defaultScoreLimit     = 200
	maxScoreLimit         = 1000
	defaultAccountLimit   = 200
	maxAccountLimit       = 2000
)

// requireCA normalizes ca and checks its minimum length.
func requireCA(ca string) (string, error) {
	ca = domain.NormalizeCA(ca)
	if len(ca) < domain.MinCALength {
		return "", domain.Invalid(fmt.Sprintf("ca must be at least %d characters", domain.MinCALength))
	}
	return ca, nil
}

func requirePositive(field string, v float64) error {
	if v <= 0 {
		return domain.Invalid(field + " must be greater than 0")
	}
	return nil
}

func optionalPositive(field string, v *float64) error {
	if v == nil {
		return nil
	}
	return requirePositive(field, *v)
}

// patchPositive checks a patched number. nullable reports whether an
// explicit null is allowed.
func patchPositive(field string, o domain.Optional[float64], nullable bool) error {
	if !o.Set {
		return nil
	}
	if !o.Valid {
		if nullable {
			return nil
		}
		return domain.Invalid(field + " cannot be null")
	}
	return requirePositive(field, o.Value)
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.Invalid(field + " is required")
	}
	return v, nil
}

func validateScoring(s *domain.ScoreRef) error {
	if s == nil {
		return nil
	}
	return domain.ValidateScore(s.IntuitionScore)
}

func scoreRef(s *domain.Score) *domain.ScoreRef {
	if s == nil {
		return nil
	}
	return &domain.ScoreRef{IntuitionScore: s.IntuitionScore}
}

// emptyIfNil returns b, or an empty snapshot with non-nil lists.
func emptyIfNil(b *domain.Bubbles) *domain.Bubbles {
	if b == nil {
		b = &domain.Bubbles{}
	}
	if b.Clusters == nil {
		b.Clusters = []domain.BubbleRow{}
	}
	if b.Others == nil {
		b.Others = []domain.BubbleRow{}
	}
	return b
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
