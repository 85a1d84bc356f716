package domain

import "time"

// Tip is a social-media call about a coin by an account.
// Corresponds to tips table in PostgreSQL. Tip bubbles and scores are
// keyed by TipID.
type Tip struct {
	TipID         int64     `json:"tip_id"`
	AccountID     int64     `json:"account_id"`
	Platform      string    `json:"platform"`
	Handle        string    `json:"handle"`
	CA            string    `json:"ca"`
	Chain         string    `json:"chain"`
	CoinName      string    `json:"coin_name"`
	CoinSymbol    *string   `json:"-"`
	PostTS        time.Time `json:"post_ts"`
	PostMcapUSD   float64   `json:"post_mcap_usd"`
	PeakMcapUSD   *float64  `json:"peak_mcap_usd"`
	TroughMcapUSD *float64  `json:"trough_mcap_usd"`
	RugFlag       *int      `json:"rug_flag"`
	GainPct       *float64  `json:"gain_pct"`
	DropPct       *float64  `json:"drop_pct"`
	EffectPct     *float64  `json:"effect_pct"`
	Bubbles       *Bubbles  `json:"bubbles"`
	Scoring       *ScoreRef `json:"scoring"`
}

// Derive fills the computed gain/drop/effect fields.
func (t *Tip) Derive() {
	t.GainPct, t.DropPct, t.EffectPct = TipEffect(t.PostMcapUSD, t.PeakMcapUSD, t.TroughMcapUSD)
}

// TipCreate is the input for creating a tip.
type TipCreate struct {
	CA          string    `json:"ca"`
	Chain       string    `json:"chain"`
	AccountID   int64     `json:"account_id"`
	PostTS      time.Time `json:"post_ts"`
	PostMcapUSD float64   `json:"post_mcap_usd"`
	Bubbles     *Bubbles  `json:"bubbles"`
	Scoring     *ScoreRef `json:"scoring"`
}

// TipPatch is a partial update of a tip. Only Set fields are applied.
type TipPatch struct {
	PeakMcapUSD   Optional[float64] `json:"peak_mcap_usd"`
	TroughMcapUSD Optional[float64] `json:"trough_mcap_usd"`
	RugFlag       Optional[int]     `json:"rug_flag"`
}

// IsEmpty reports whether no field is set.
func (p TipPatch) IsEmpty() bool {
	return !p.PeakMcapUSD.Set && !p.TroughMcapUSD.Set && !p.RugFlag.Set
}

// TipPage is one page of a cursor-paginated tip listing.
type TipPage struct {
	Items      []*Tip  `json:"items"`
	TotalCount int64   `json:"total_count"`
	NextCursor *string `json:"next_cursor"`
}
