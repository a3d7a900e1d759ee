package indicator

import "signal-systemv1/internal/model"

// bollinger computes Bollinger Bands: SMA(period) ± mult standard deviations.
func bollinger(values []float64, period int, mult float64) (model.BandsValue, bool) {
	mid, ok := smaAt(values, period)
	if !ok {
		return model.BandsValue{}, false
	}
	sd, _ := stddev(values, period)
	return model.BandsValue{
		Upper:  mid + mult*sd,
		Middle: mid,
		Lower:  mid - mult*sd,
	}, true
}

// keltner computes Keltner Channels: EMA(period) ± mult * ATR(period).
func keltner(candles []model.Candle, period int, mult float64) (model.BandsValue, bool) {
	mid, ok := emaAt(closes(candles), period)
	if !ok {
		return model.BandsValue{}, false
	}
	a, ok := atr(candles, period)
	if !ok {
		return model.BandsValue{}, false
	}
	return model.BandsValue{
		Upper:  mid + mult*a,
		Middle: mid,
		Lower:  mid - mult*a,
	}, true
}

// donchian computes the Donchian Channel highs/lows over period bars.
func donchian(candles []model.Candle, period int) (model.ChannelValue, bool) {
	hh, ok1 := highest(highs(candles), period)
	ll, ok2 := lowest(lows(candles), period)
	if !ok1 || !ok2 {
		return model.ChannelValue{}, false
	}
	return model.ChannelValue{Upper: hh, Lower: ll}, true
}
