package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an existing
	// natural key (coin (ca, chain), trade_id, account (platform, handle)).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrMissingReference is returned when a write points at a parent row
	// (coin, account, trade, tip) that does not exist.
	ErrMissingReference = errors.New("referenced record does not exist")

	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("write attempted in read-only view")
)
