package indicator

import (
	"math"

	"signal-systemv1/internal/model"
)

// macd computes MACD(12,26,9) over closes.
func macd(values []float64) (model.MACDValue, bool) {
	fast := emaSeries(values, 12)
	slow := emaSeries(values, 26)
	if fast == nil || slow == nil {
		return model.MACDValue{}, false
	}
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}
	signal := emaSeries(line, 9)
	if signal == nil {
		return model.MACDValue{}, false
	}
	m := line[len(line)-1]
	s := signal[len(signal)-1]
	return model.MACDValue{MACD: m, Signal: s, Histogram: m - s}, true
}

// rsi computes RSI with Wilder smoothing. Needs period+1 closes.
func rsi(values []float64, period int) (float64, bool) {
	if len(values) < period+1 {
		return 0, false
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// stochastic computes %K(kPeriod) smoothed over kSmooth, and %D as the
// SMA(dPeriod) of the smoothed %K.
func stochastic(candles []model.Candle, kPeriod, kSmooth, dPeriod int) (model.StochasticValue, bool) {
	need := kPeriod + kSmooth + dPeriod - 2
	if len(candles) < need {
		return model.StochasticValue{}, false
	}
	h := highs(candles)
	l := lows(candles)
	c := closes(candles)

	rawLen := len(candles) - kPeriod + 1
	raw := make([]float64, rawLen)
	for i := 0; i < rawLen; i++ {
		end := i + kPeriod
		hh, _ := highest(h[:end], kPeriod)
		ll, _ := lowest(l[:end], kPeriod)
		if hh == ll {
			raw[i] = 50
		} else {
			raw[i] = 100 * (c[end-1] - ll) / (hh - ll)
		}
	}

	smoothLen := len(raw) - kSmooth + 1
	smooth := make([]float64, smoothLen)
	for i := 0; i < smoothLen; i++ {
		v, _ := smaAt(raw[:i+kSmooth], kSmooth)
		smooth[i] = v
	}

	k := smooth[len(smooth)-1]
	d, ok := smaAt(smooth, dPeriod)
	if !ok {
		return model.StochasticValue{}, false
	}
	return model.StochasticValue{K: k, D: d}, true
}

// roc computes the rate of change in percent over period bars.
func roc(values []float64, period int) (float64, bool) {
	if len(values) < period+1 {
		return 0, false
	}
	prev := values[len(values)-1-period]
	if prev == 0 {
		return 0, false
	}
	return (values[len(values)-1]/prev - 1) * 100, true
}

// momentum computes the absolute close change over period bars.
func momentum(values []float64, period int) (float64, bool) {
	if len(values) < period+1 {
		return 0, false
	}
	return values[len(values)-1] - values[len(values)-1-period], true
}

// cci computes the Commodity Channel Index over typical prices.
func cci(candles []model.Candle, period int) (float64, bool) {
	tp := typical(candles)
	mean, ok := smaAt(tp, period)
	if !ok {
		return 0, false
	}
	dev := 0.0
	for _, v := range tp[len(tp)-period:] {
		dev += math.Abs(v - mean)
	}
	dev /= float64(period)
	if dev == 0 {
		return 0, true
	}
	return (tp[len(tp)-1] - mean) / (0.015 * dev), true
}

// williamsR computes Williams %R in [-100, 0].
func williamsR(candles []model.Candle, period int) (float64, bool) {
	if len(candles) < period {
		return 0, false
	}
	hh, _ := highest(highs(candles), period)
	ll, _ := lowest(lows(candles), period)
	if hh == ll {
		return -50, true
	}
	return -100 * (hh - candles[len(candles)-1].Close) / (hh - ll), true
}

// ultimate computes the Ultimate Oscillator over the three given spans.
func ultimate(candles []model.Candle, p1, p2, p3 int) (float64, bool) {
	if len(candles) < p3+1 {
		return 0, false
	}
	n := len(candles) - 1
	bp := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < len(candles); i++ {
		low := math.Min(candles[i].Low, candles[i-1].Close)
		high := math.Max(candles[i].High, candles[i-1].Close)
		bp[i-1] = candles[i].Close - low
		tr[i-1] = high - low
	}
	avg := func(period int) (float64, bool) {
		var sb, st float64
		for i := n - period; i < n; i++ {
			sb += bp[i]
			st += tr[i]
		}
		if st == 0 {
			return 0, false
		}
		return sb / st, true
	}
	a1, ok1 := avg(p1)
	a2, ok2 := avg(p2)
	a3, ok3 := avg(p3)
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	return 100 * (4*a1 + 2*a2 + a3) / 7, true
}

// fisher computes the Fisher Transform over period bars of the median price.
func fisher(candles []model.Candle, period int) (float64, bool) {
	if len(candles) < period {
		return 0, false
	}
	med := make([]float64, len(candles))
	for i := range candles {
		med[i] = (candles[i].High + candles[i].Low) / 2
	}

	value := 0.0
	fish := 0.0
	for i := period - 1; i < len(med); i++ {
		hh, _ := highest(med[:i+1], period)
		ll, _ := lowest(med[:i+1], period)
		x := 0.0
		if hh != ll {
			x = (med[i] - ll) / (hh - ll)
		} else {
			x = 0.5
		}
		value = 0.66*(x-0.5) + 0.67*value
		if value > 0.999 {
			value = 0.999
		}
		if value < -0.999 {
			value = -0.999
		}
		fish = 0.5*math.Log((1+value)/(1-value)) + 0.5*fish
	}
	return fish, true
}

// obv computes On-Balance Volume using tick counts as the volume proxy.
func obv(candles []model.Candle) (float64, bool) {
	if len(candles) < 2 {
		return 0, false
	}
	total := 0.0
	for i := 1; i < len(candles); i++ {
		v := float64(candles[i].Ticks)
		if v < 1 {
			v = 1
		}
		switch {
		case candles[i].Close > candles[i-1].Close:
			total += v
		case candles[i].Close < candles[i-1].Close:
			total -= v
		}
	}
	return total, true
}

// chaikin computes the Chaikin Oscillator: EMA(3) - EMA(10) of the
// accumulation/distribution line (tick counts as volume proxy).
func chaikin(candles []model.Candle) (float64, bool) {
	if len(candles) < 10 {
		return 0, false
	}
	adl := make([]float64, len(candles))
	acc := 0.0
	for i := range candles {
		c := &candles[i]
		rng := c.High - c.Low
		clv := 0.0
		if rng > 0 {
			clv = ((c.Close - c.Low) - (c.High - c.Close)) / rng
		}
		v := float64(c.Ticks)
		if v < 1 {
			v = 1
		}
		acc += clv * v
		adl[i] = acc
	}
	fast, ok1 := emaAt(adl, 3)
	slow, ok2 := emaAt(adl, 10)
	if !ok1 || !ok2 {
		return 0, false
	}
	return fast - slow, true
}
