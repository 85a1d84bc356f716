package domain

import (
	"fmt"
	"time"
)

// Score bounds.
const (
	MinIntuitionScore = 1
	MaxIntuitionScore = 10
)

// Score is one entry of an append-only intuition score history.
type Score struct {
	ID             int64     `json:"id"`
	CA             string    `json:"ca,omitempty"`
	Chain          string    `json:"chain,omitempty"`
	IntuitionScore int       `json:"intuition_score"`
	ScoredTS       time.Time `json:"scored_ts"`
}

// ScoreRef is the current score attached to a trade or tip.
type ScoreRef struct {
	IntuitionScore int `json:"intuition_score"`
}

// ValidateScore checks the intuition score range.
func ValidateScore(score int) error {
	if score < MinIntuitionScore || score > MaxIntuitionScore {
		return Invalid(fmt.Sprintf("intuition_score must be between %d and %d", MinIntuitionScore, MaxIntuitionScore))
	}
	return nil
}
