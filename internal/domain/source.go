package domain

// SourceType records which ingestion path(s) have seen a coin.
type SourceType string

const (
	SourceDex        SourceType = "dex"
	SourceInfluencer SourceType = "influencer"
	SourceBoth       SourceType = "both"
)

// String returns the string representation of SourceType.
func (s SourceType) String() string {
	return string(s)
}

// IsValid checks if the source type is a valid value.
func (s SourceType) IsValid() bool {
	return s == SourceDex || s == SourceInfluencer || s == SourceBoth
}

// MergeSource combines the stored source type with a newly declared one.
// Absent -> declared, equal -> unchanged, different -> both.
func MergeSource(old, add SourceType) SourceType {
	if old == "" {
		return add
	}
	if old == add {
		return old
	}
	return SourceBoth
}
