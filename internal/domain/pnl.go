package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// pctChange returns (to-from)/from*100, nil when either side is unknown
// or from is not positive.
func pctChange(from float64, to *float64) *float64 {
	if to == nil || from <= 0 {
		return nil
	}
	f := decimal.NewFromFloat(from)
	t := decimal.NewFromFloat(*to)
	v := t.Sub(f).Div(f).Mul(hundred).Round(8).InexactFloat64()
	return &v
}

// TradePnL computes pnl_pct and pnl_usd for a trade.
// pnl_pct = (exit-entry)/entry*100, pnl_usd = size*(exit/entry-1).
func TradePnL(entry float64, exit, size *float64) (pct, usd *float64) {
	pct = pctChange(entry, exit)
	if pct == nil || size == nil {
		return pct, nil
	}
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(*exit)
	v := decimal.NewFromFloat(*size).Mul(x.Div(e).Sub(decimal.NewFromInt(1))).Round(8).InexactFloat64()
	return pct, &v
}

// TipEffect computes gain_pct (peak vs post), drop_pct (trough vs post)
// and effect_pct, which is the gain when a peak is known and the drop
// otherwise.
func TipEffect(post float64, peak, trough *float64) (gain, drop, effect *float64) {
	gain = pctChange(post, peak)
	drop = pctChange(post, trough)
	if gain != nil {
		return gain, drop, gain
	}
	return gain, drop, drop
}
