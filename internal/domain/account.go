package domain

import "time"

// Account is a social account identified by (platform, handle).
type Account struct {
	AccountID int64     `json:"account_id"`
	Platform  string    `json:"platform"`
	Handle    string    `json:"handle"`
	CreatedTS time.Time `json:"created_ts"`
}

// AccountSummary aggregates an account's tips.
// A tip counts as a win when its effect_pct is at least WinThresholdPct and
// as a loss when it is known and below it. Tips without an effect are neither.
type AccountSummary struct {
	AccountID    int64    `json:"account_id"`
	Platform     string   `json:"platform"`
	Handle       string   `json:"handle"`
	TipsTotal    int64    `json:"tips_total"`
	TipsWin      int64    `json:"tips_win"`
	TipsLoss     int64    `json:"tips_loss"`
	WinRate50p   *float64 `json:"win_rate_50p"`
	RugRate      *float64 `json:"rug_rate"`
	AvgEffectPct *float64 `json:"avg_effect_pct"`
}

// WinThresholdPct is the effect_pct a tip needs to count as a win.
const WinThresholdPct = 50.0

// SummarizeAccount computes the tip statistics of one account.
// Rates are nil when the account has no tips; avg_effect_pct ignores tips
// without a known effect.
func SummarizeAccount(a *Account, tips []*Tip) *AccountSummary {
	s := &AccountSummary{
		AccountID: a.AccountID,
		Platform:  a.Platform,
		Handle:    a.Handle,
		TipsTotal: int64(len(tips)),
	}
	if len(tips) == 0 {
		return s
	}

	var wins, losses, rugs, effects int
	var effectSum float64
	for _, t := range tips {
		_, _, effect := TipEffect(t.PostMcapUSD, t.PeakMcapUSD, t.TroughMcapUSD)
		if effect != nil {
			effects++
			effectSum += *effect
			if *effect >= WinThresholdPct {
				wins++
			} else {
				losses++
			}
		}
		if t.RugFlag != nil && *t.RugFlag == 1 {
			rugs++
		}
	}

	s.TipsWin = int64(wins)
	s.TipsLoss = int64(losses)
	total := float64(len(tips))
	winRate := float64(wins) / total
	rugRate := float64(rugs) / total
	s.WinRate50p = &winRate
	s.RugRate = &rugRate
	if effects > 0 {
		avg := effectSum / float64(effects)
		s.AvgEffectPct = &avg
	}
	return s
}
