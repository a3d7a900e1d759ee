package indicator

import (
	"math"

	"signal-systemv1/internal/model"
)

// atr computes the Average True Range with Wilder smoothing.
// Needs period+1 candles (the TR series uses the previous close).
func atr(candles []model.Candle, period int) (float64, bool) {
	tr := trueRanges(candles)
	s := wilderSeries(tr, period)
	if s == nil {
		return 0, false
	}
	return s[len(s)-1], true
}

// adx computes the Average Directional Index with Wilder smoothing of
// +DM/-DM/TR and then of the DX series. Needs 2*period+1 candles.
func adx(candles []model.Candle, period int) (float64, bool) {
	if len(candles) < 2*period+1 {
		return 0, false
	}
	n := len(candles) - 1
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := trueRanges(candles)

	for i := 1; i < len(candles); i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	sTR := wilderSeries(tr, period)
	sPlus := wilderSeries(plusDM, period)
	sMinus := wilderSeries(minusDM, period)
	if sTR == nil {
		return 0, false
	}

	dx := make([]float64, len(sTR))
	for i := range sTR {
		if sTR[i] == 0 {
			dx[i] = 0
			continue
		}
		pdi := 100 * sPlus[i] / sTR[i]
		mdi := 100 * sMinus[i] / sTR[i]
		sum := pdi + mdi
		if sum == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(pdi-mdi) / sum
	}

	s := wilderSeries(dx, period)
	if s == nil {
		return 0, false
	}
	return s[len(s)-1], true
}

// atrBands returns SMA(20) ± 2*ATR(14).
func atrBands(candles []model.Candle) (model.BandsValue, bool) {
	mid, ok := smaAt(closes(candles), 20)
	if !ok {
		return model.BandsValue{}, false
	}
	a, ok := atr(candles, 14)
	if !ok {
		return model.BandsValue{}, false
	}
	return model.BandsValue{Upper: mid + 2*a, Middle: mid, Lower: mid - 2*a}, true
}
