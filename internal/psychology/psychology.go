// Package psychology reads candle anatomy: body/wick proportions of the
// most recent candle, multi-bar candlestick patterns over the local
// context, directional bias, an order-block probability heuristic, and
// fair-value-gap detection. Analyze is pure and never suspends.
package psychology

import (
	"math"

	"signal-systemv1/internal/model"
)

const (
	// dojiBodyRatio marks a candle as a doji below this body fraction.
	dojiBodyRatio = 0.1

	// contextBars is how many trailing candles feed multi-bar checks.
	contextBars = 5
)

// Analyze computes the psychology record for a window. The forming
// candle, when present, is the analyzed candle; otherwise the last
// closed one is.
func Analyze(closed []model.Candle, forming *model.Candle) model.PsychologyAnalysis {
	candles := closed
	if forming != nil {
		candles = make([]model.Candle, 0, len(closed)+1)
		candles = append(candles, closed...)
		candles = append(candles, *forming)
	}

	var out model.PsychologyAnalysis
	out.Bias = model.BiasNeutral
	if len(candles) == 0 {
		return out
	}

	last := candles[len(candles)-1]
	out.BodyRatio, out.UpperWickRatio, out.LowerWickRatio = ratios(&last)
	out.IsDoji = out.BodyRatio < dojiBodyRatio
	out.Bias = bias(&last)
	out.Patterns = detectPatterns(candles)
	out.OrderBlockProb = orderBlockProbability(candles)
	out.FVGDetected = fvgDetected(candles)
	return out
}

// ratios returns body, upper wick, and lower wick as fractions of the
// candle's full range. All zero when the range is zero.
func ratios(c *model.Candle) (body, upper, lower float64) {
	rng := c.Range()
	if rng <= 0 {
		return 0, 0, 0
	}
	body = c.Body() / rng
	upper = (c.High - math.Max(c.Open, c.Close)) / rng
	lower = (math.Min(c.Open, c.Close) - c.Low) / rng
	return body, upper, lower
}

// bias is bullish when the candle closes in the upper third of its range
// with a bullish body, bearish in the mirrored case, neutral otherwise.
func bias(c *model.Candle) model.Bias {
	rng := c.Range()
	if rng <= 0 {
		return model.BiasNeutral
	}
	pos := (c.Close - c.Low) / rng
	switch {
	case pos > 2.0/3 && c.Close > c.Open:
		return model.BiasBullish
	case pos < 1.0/3 && c.Close < c.Open:
		return model.BiasBearish
	default:
		return model.BiasNeutral
	}
}

// orderBlockProbability is a heuristic in [0,1] combining the largest
// recent impulse, the last candle's wick asymmetry, and how deep price
// has retraced from the impulse close. The formula is frozen so results
// stay reproducible across runs.
func orderBlockProbability(candles []model.Candle) float64 {
	n := len(candles)
	if n < 2 {
		return 0
	}
	start := n - contextBars
	if start < 0 {
		start = 0
	}
	window := candles[start:]

	var avgRange, maxBody float64
	impulseIdx := 0
	for i := range window {
		avgRange += window[i].Range()
		if b := window[i].Body(); b > maxBody {
			maxBody = b
			impulseIdx = i
		}
	}
	avgRange /= float64(len(window))
	if avgRange <= 0 || maxBody <= 0 {
		return 0
	}

	impulse := clamp01(maxBody / (2 * avgRange))

	last := window[len(window)-1]
	_, up, down := ratios(&last)
	wickAsym := math.Abs(up - down)

	retrace := clamp01(math.Abs(last.Close-window[impulseIdx].Close) / maxBody)

	return clamp01(0.5*impulse + 0.3*wickAsym + 0.2*retrace)
}

// fvgDetected scans the trailing context for a three-bar gap: bullish
// when bar i's high never overlaps bar i+2's low, bearish mirrored.
func fvgDetected(candles []model.Candle) bool {
	n := len(candles)
	if n < 3 {
		return false
	}
	start := n - contextBars
	if start < 0 {
		start = 0
	}
	for i := start; i+2 < n; i++ {
		if candles[i].High < candles[i+2].Low {
			return true // bullish FVG
		}
		if candles[i].Low > candles[i+2].High {
			return true // bearish FVG
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
