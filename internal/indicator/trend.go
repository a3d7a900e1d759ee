package indicator

import "signal-systemv1/internal/model"

// superTrend computes SuperTrend(period, mult) iteratively over the window.
// Direction flips when the close crosses the carried band.
func superTrend(candles []model.Candle, period int, mult float64) (model.SuperTrendValue, bool) {
	if len(candles) < period+1 {
		return model.SuperTrendValue{}, false
	}
	tr := trueRanges(candles)
	atrs := wilderSeries(tr, period)
	if atrs == nil {
		return model.SuperTrendValue{}, false
	}

	// atrs[i] corresponds to candle i+period.
	first := period
	upper := make([]float64, len(candles))
	lower := make([]float64, len(candles))
	st := 0.0
	dir := model.TrendUp

	for i := first; i < len(candles); i++ {
		hl2 := (candles[i].High + candles[i].Low) / 2
		a := atrs[i-first]
		basicUpper := hl2 + mult*a
		basicLower := hl2 - mult*a

		if i == first {
			upper[i] = basicUpper
			lower[i] = basicLower
		} else {
			// Bands only tighten while price stays inside them.
			if basicUpper < upper[i-1] || candles[i-1].Close > upper[i-1] {
				upper[i] = basicUpper
			} else {
				upper[i] = upper[i-1]
			}
			if basicLower > lower[i-1] || candles[i-1].Close < lower[i-1] {
				lower[i] = basicLower
			} else {
				lower[i] = lower[i-1]
			}
		}

		if dir == model.TrendUp {
			st = lower[i]
			if candles[i].Close < st {
				dir = model.TrendDown
				st = upper[i]
			}
		} else {
			st = upper[i]
			if candles[i].Close > st {
				dir = model.TrendUp
				st = lower[i]
			}
		}
	}

	return model.SuperTrendValue{Value: st, Direction: dir}, true
}

// psar computes the Parabolic SAR with the given acceleration step and cap.
func psar(candles []model.Candle, step, max float64) (float64, bool) {
	if len(candles) < 2 {
		return 0, false
	}

	uptrend := candles[1].Close >= candles[0].Close
	sar := candles[0].Low
	ep := candles[0].High
	if !uptrend {
		sar = candles[0].High
		ep = candles[0].Low
	}
	af := step

	for i := 1; i < len(candles); i++ {
		c := &candles[i]
		sar = sar + af*(ep-sar)

		if uptrend {
			// SAR may not enter the prior two candles' range.
			if i >= 1 && sar > candles[i-1].Low {
				sar = candles[i-1].Low
			}
			if i >= 2 && sar > candles[i-2].Low {
				sar = candles[i-2].Low
			}
			if c.Low < sar {
				uptrend = false
				sar = ep
				ep = c.Low
				af = step
				continue
			}
			if c.High > ep {
				ep = c.High
				af += step
				if af > max {
					af = max
				}
			}
		} else {
			if i >= 1 && sar < candles[i-1].High {
				sar = candles[i-1].High
			}
			if i >= 2 && sar < candles[i-2].High {
				sar = candles[i-2].High
			}
			if c.High > sar {
				uptrend = true
				sar = ep
				ep = c.High
				af = step
				continue
			}
			if c.Low < ep {
				ep = c.Low
				af += step
				if af > max {
					af = max
				}
			}
		}
	}
	return sar, true
}
