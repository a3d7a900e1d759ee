package indicator

import "signal-systemv1/internal/model"

// zscore computes the mean-reversion Z-score of the last close against
// the trailing period closes. A zero-variance window scores 0.
func zscore(values []float64, period int) (float64, bool) {
	mean, ok := smaAt(values, period)
	if !ok {
		return 0, false
	}
	sd, _ := stddev(values, period)
	if sd == 0 {
		return 0, true
	}
	return (values[len(values)-1] - mean) / sd, true
}

// regressionSlope computes the least-squares slope over the last period
// closes (price units per bar).
func regressionSlope(values []float64, period int) (float64, bool) {
	if len(values) < period {
		return 0, false
	}
	window := values[len(values)-period:]
	n := float64(period)

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}

// rangePercentile ranks the last candle's high-low range within the
// trailing period ranges, as a fraction in [0, 1].
func rangePercentile(candles []model.Candle, period int) (float64, bool) {
	if len(candles) < period {
		return 0, false
	}
	window := candles[len(candles)-period:]
	cur := window[len(window)-1].Range()
	below := 0
	for i := range window {
		if window[i].Range() <= cur {
			below++
		}
	}
	return float64(below) / float64(period), true
}
