// Package indicator computes the fixed technical indicator record over a
// candle window. Compute is a pure function: closed candles plus an
// optional forming candle in, IndicatorValues out. Every field is
// emitted only when the window carries enough history for it; short
// windows leave fields nil rather than producing NaN or zero fillers.
package indicator

import "signal-systemv1/internal/model"

// Compute evaluates all indicators over closed (oldest → newest)
// optionally extended with the forming candle's current OHLC.
func Compute(closed []model.Candle, forming *model.Candle) model.IndicatorValues {
	candles := closed
	if forming != nil {
		candles = make([]model.Candle, 0, len(closed)+1)
		candles = append(candles, closed...)
		candles = append(candles, *forming)
	}

	var out model.IndicatorValues
	if len(candles) == 0 {
		return out
	}
	c := closes(candles)

	if v, ok := emaAt(c, 5); ok {
		out.EMA5 = ptr(v)
	}
	if v, ok := emaAt(c, 9); ok {
		out.EMA9 = ptr(v)
	}
	if v, ok := emaAt(c, 12); ok {
		out.EMA12 = ptr(v)
	}
	if v, ok := emaAt(c, 21); ok {
		out.EMA21 = ptr(v)
	}
	if v, ok := emaAt(c, 50); ok {
		out.EMA50 = ptr(v)
	}

	if v, ok := smaAt(c, 20); ok {
		out.SMA20 = ptr(v)
	}
	if v, ok := smaAt(c, 50); ok {
		out.SMA50 = ptr(v)
	}
	if v, ok := smaAt(c, 200); ok {
		out.SMA200 = ptr(v)
	}

	if v, ok := macd(c); ok {
		out.MACD = &v
	}
	if v, ok := rsi(c, 14); ok {
		out.RSI14 = ptr(v)
	}
	if v, ok := stochastic(candles, 14, 3, 3); ok {
		out.Stochastic = &v
	}
	if v, ok := atr(candles, 14); ok {
		out.ATR14 = ptr(v)
	}
	if v, ok := adx(candles, 14); ok {
		out.ADX = ptr(v)
	}
	if v, ok := cci(candles, 20); ok {
		out.CCI = ptr(v)
	}
	if v, ok := williamsR(candles, 14); ok {
		out.WilliamsR = ptr(v)
	}

	if v, ok := bollinger(c, 20, 2); ok {
		out.Bollinger = &v
	}
	if v, ok := keltner(candles, 20, 2); ok {
		out.Keltner = &v
	}
	if v, ok := hull(c, 9); ok {
		out.HullMA = ptr(v)
	}
	if v, ok := superTrend(candles, 10, 3); ok {
		out.SuperTrend = &v
	}

	if v, ok := roc(c, 12); ok {
		out.ROC = ptr(v)
	}
	if v, ok := momentum(c, 10); ok {
		out.Momentum = ptr(v)
	}
	if v, ok := vwap(candles); ok {
		out.VWAP = ptr(v)
	}
	if v, ok := obv(candles); ok {
		out.OBV = ptr(v)
	}
	if v, ok := chaikin(candles); ok {
		out.Chaikin = ptr(v)
	}
	if v, ok := fisher(candles, 10); ok {
		out.Fisher = ptr(v)
	}

	if v, ok := donchian(candles, 20); ok {
		out.Donchian = &v
	}
	if v, ok := psar(candles, 0.02, 0.2); ok {
		out.PSAR = ptr(v)
	}
	if v, ok := ultimate(candles, 7, 14, 28); ok {
		out.Ultimate = ptr(v)
	}

	if v, ok := zscore(c, 20); ok {
		out.ZScore = ptr(v)
	}
	if v, ok := regressionSlope(c, 14); ok {
		out.RegressionSlope = ptr(v)
	}
	if v, ok := atrBands(candles); ok {
		out.ATRBands = &v
	}
	if v, ok := rangePercentile(candles, 20); ok {
		out.RangePercentile = ptr(v)
	}
	if v, ok := emaRibbon(c); ok {
		out.EMARibbon = ptr(v)
	}

	return out
}
