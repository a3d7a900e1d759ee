package indicator

import (
	"math"

	"signal-systemv1/internal/model"
)

// Series helpers shared by all indicators. All functions treat the input
// as oldest → newest and return ok=false when the window is too short.

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func highs(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].High
	}
	return out
}

func lows(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Low
	}
	return out
}

// typical returns (high + low + close) / 3 per candle.
func typical(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = (candles[i].High + candles[i].Low + candles[i].Close) / 3
	}
	return out
}

// smaAt returns the simple average of the last period values.
func smaAt(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// emaSeries returns the EMA series seeded with the SMA of the first
// period values (one output per input from index period-1 onward).
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	mult := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	cur := seed / float64(period)
	out = append(out, cur)

	for _, v := range values[period:] {
		cur = v*mult + cur*(1-mult)
		out = append(out, cur)
	}
	return out
}

// emaAt returns the latest EMA value.
func emaAt(values []float64, period int) (float64, bool) {
	s := emaSeries(values, period)
	if s == nil {
		return 0, false
	}
	return s[len(s)-1], true
}

// wmaSeries returns the linearly weighted moving average series
// (one output per input from index period-1 onward).
func wmaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	denom := float64(period*(period+1)) / 2
	out := make([]float64, 0, len(values)-period+1)
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += values[i-period+1+j] * float64(j+1)
		}
		out = append(out, sum/denom)
	}
	return out
}

// stddev returns the population standard deviation of the last period values.
func stddev(values []float64, period int) (float64, bool) {
	mean, ok := smaAt(values, period)
	if !ok {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period)), true
}

// trueRanges returns the TR series. Output i corresponds to candle i+1
// (the first candle has no previous close).
func trueRanges(candles []model.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		h, l, pc := candles[i].High, candles[i].Low, candles[i-1].Close
		tr := h - l
		if d := math.Abs(h - pc); d > tr {
			tr = d
		}
		if d := math.Abs(l - pc); d > tr {
			tr = d
		}
		out[i-1] = tr
	}
	return out
}

// wilderSeries smooths values with Wilder's method, seeded with the SMA
// of the first period values.
func wilderSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	cur := seed / float64(period)
	out = append(out, cur)
	p := float64(period)
	for _, v := range values[period:] {
		cur = (cur*(p-1) + v) / p
		out = append(out, cur)
	}
	return out
}

// highest and lowest scan the last period values.
func highest(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	max := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

func lowest(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	min := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v < min {
			min = v
		}
	}
	return min, true
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
