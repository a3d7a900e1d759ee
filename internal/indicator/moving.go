package indicator

import "signal-systemv1/internal/model"

// ribbonPeriods are the EMA lengths used by the ribbon alignment scalar.
var ribbonPeriods = [5]int{5, 9, 12, 21, 50}

// hull computes the Hull Moving Average:
// WMA(2*WMA(n/2) - WMA(n), sqrt(n)).
func hull(values []float64, period int) (float64, bool) {
	half := period / 2
	sqrtP := isqrt(period)
	fast := wmaSeries(values, half)
	slow := wmaSeries(values, period)
	if fast == nil || slow == nil {
		return 0, false
	}
	// Align: the fast series starts earlier; trim its head.
	offset := len(fast) - len(slow)
	diff := make([]float64, len(slow))
	for i := range slow {
		diff[i] = 2*fast[i+offset] - slow[i]
	}
	final := wmaSeries(diff, sqrtP)
	if final == nil {
		return 0, false
	}
	return final[len(final)-1], true
}

// emaRibbon scores the stacking order of the ribbon EMAs in [-1, 1]:
// +1 when every faster EMA sits above the next slower one, -1 mirrored.
func emaRibbon(values []float64) (float64, bool) {
	var emas [5]float64
	for i, p := range ribbonPeriods {
		v, ok := emaAt(values, p)
		if !ok {
			return 0, false
		}
		emas[i] = v
	}
	score := 0.0
	for i := 0; i < len(emas)-1; i++ {
		switch {
		case emas[i] > emas[i+1]:
			score++
		case emas[i] < emas[i+1]:
			score--
		}
	}
	return score / float64(len(emas)-1), true
}

// vwap computes the volume-weighted average price over the whole window,
// using the per-candle tick count as the volume proxy (the feed carries
// no traded volume).
func vwap(candles []model.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	var pv, vol float64
	for i := range candles {
		c := &candles[i]
		v := float64(c.Ticks)
		if v < 1 {
			v = 1
		}
		pv += (c.High + c.Low + c.Close) / 3 * v
		vol += v
	}
	return pv / vol, true
}

func isqrt(n int) int {
	r := 1
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
