package domain

import "fmt"

// BubbleRow is one ranked holder cluster.
type BubbleRow struct {
	Rank int     `json:"rank"`
	Pct  float64 `json:"pct"`
}

// Bubbles is a holder-distribution snapshot. Replacing a snapshot
// replaces both lists as a set.
type Bubbles struct {
	Clusters []BubbleRow `json:"clusters"`
	Others   []BubbleRow `json:"others"`
}

// IsEmpty reports whether both lists are empty.
func (b *Bubbles) IsEmpty() bool {
	return b == nil || (len(b.Clusters) == 0 && len(b.Others) == 0)
}

// Validate checks rank > 0, pct >= 0 and rank uniqueness within each list.
func (b *Bubbles) Validate() error {
	if b == nil {
		return nil
	}
	if err := validateRows("cluster", b.Clusters); err != nil {
		return err
	}
	return validateRows("other", b.Others)
}

func validateRows(kind string, rows []BubbleRow) error {
	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if r.Rank <= 0 {
			return Invalid(fmt.Sprintf("%s rank must be positive", kind))
		}
		if r.Pct < 0 {
			return Invalid(fmt.Sprintf("%s pct must not be negative", kind))
		}
		if _, ok := seen[r.Rank]; ok {
			return Invalid(fmt.Sprintf("duplicate %s ranks", kind))
		}
		seen[r.Rank] = struct{}{}
	}
	return nil
}
