package domain

import "time"

// ActiveContext is the singleton "active coin" selection of the UI.
type ActiveContext struct {
	ID          int64     `json:"id"`
	ActiveCA    *string   `json:"active_ca"`
	ActiveChain *string   `json:"active_chain"`
	UpdatedTS   time.Time `json:"updated_ts"`
}
