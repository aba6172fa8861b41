package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"price-target-alerts/internal/storage"
)

// DetectIncrease computes the percentage price change over the last hour
// from a sample history. cur is the sample with the greatest timestamp at
// or before now; past is the sample with the greatest timestamp at or
// before now minus one hour. When either is missing, or the past price is
// not positive, there is no signal and ok is false.
//
// The caller applies its threshold; this function only reports the change.
func DetectIncrease(history []storage.PriceSample, now time.Time) (pct decimal.Decimal, ok bool) {
	cutoff := now.Add(-time.Hour)

	var cur, past *storage.PriceSample
	for i := range history {
		s := &history[i]
		if !s.SampledAt.After(now) {
			if cur == nil || s.SampledAt.After(cur.SampledAt) {
				cur = s
			}
		}
		if !s.SampledAt.After(cutoff) {
			if past == nil || s.SampledAt.After(past.SampledAt) {
				past = s
			}
		}
	}

	if cur == nil || past == nil {
		return decimal.Decimal{}, false
	}
	if past.Price.Sign() <= 0 {
		return decimal.Decimal{}, false
	}

	pct = cur.Price.Sub(past.Price).Div(past.Price).Mul(decimal.NewFromInt(100))
	return pct, true
}
