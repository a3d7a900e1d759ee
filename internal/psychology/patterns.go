package psychology

import (
	"math"

	"signal-systemv1/internal/model"
)

// detectPatterns runs the single- and two-bar candlestick checks over
// the analyzed candle and its predecessor.
func detectPatterns(candles []model.Candle) []model.CandlestickPattern {
	var out []model.CandlestickPattern
	last := &candles[len(candles)-1]

	if p := detectDoji(last); p != nil {
		out = append(out, *p)
	}
	if p := detectHammer(last); p != nil {
		out = append(out, *p)
	}
	if p := detectShootingStar(last); p != nil {
		out = append(out, *p)
	}
	if len(candles) >= 2 {
		if p := detectEngulfing(&candles[len(candles)-2], last); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// detectDoji fires when the body is under 10% of the range.
func detectDoji(c *model.Candle) *model.CandlestickPattern {
	body, _, _ := ratios(c)
	if c.Range() <= 0 || body >= dojiBodyRatio {
		return nil
	}
	return &model.CandlestickPattern{
		Name:        "doji",
		Type:        model.PatternNeutral,
		Strength:    clampStrength(1 - body/dojiBodyRatio),
		Description: "indecision: open and close nearly equal",
	}
}

// detectHammer fires on a small body near the top with a lower wick at
// least twice the body and a short upper wick.
func detectHammer(c *model.Candle) *model.CandlestickPattern {
	rng := c.Range()
	if rng <= 0 {
		return nil
	}
	body := c.Body()
	upper := c.High - math.Max(c.Open, c.Close)
	lower := math.Min(c.Open, c.Close) - c.Low

	if body <= 0 || lower < 2*body || upper > body || body/rng > 0.35 {
		return nil
	}
	return &model.CandlestickPattern{
		Name:        "hammer",
		Type:        model.PatternBullish,
		Strength:    clampStrength(lower / rng),
		Description: "long lower wick rejection after selling pressure",
	}
}

// detectShootingStar is the mirrored hammer: small body near the bottom,
// long upper wick.
func detectShootingStar(c *model.Candle) *model.CandlestickPattern {
	rng := c.Range()
	if rng <= 0 {
		return nil
	}
	body := c.Body()
	upper := c.High - math.Max(c.Open, c.Close)
	lower := math.Min(c.Open, c.Close) - c.Low

	if body <= 0 || upper < 2*body || lower > body || body/rng > 0.35 {
		return nil
	}
	return &model.CandlestickPattern{
		Name:        "shooting_star",
		Type:        model.PatternBearish,
		Strength:    clampStrength(upper / rng),
		Description: "long upper wick rejection after buying pressure",
	}
}

// detectEngulfing fires when the current body fully engulfs the previous
// opposite-color body.
func detectEngulfing(prev, cur *model.Candle) *model.CandlestickPattern {
	prevBody := prev.Body()
	curBody := cur.Body()
	if prevBody <= 0 || curBody <= prevBody {
		return nil
	}

	curTop := math.Max(cur.Open, cur.Close)
	curBot := math.Min(cur.Open, cur.Close)
	prevTop := math.Max(prev.Open, prev.Close)
	prevBot := math.Min(prev.Open, prev.Close)
	if curBot > prevBot || curTop < prevTop {
		return nil
	}

	strength := clampStrength(prevBody / curBody * 2)
	if cur.Bullish() && prev.Close < prev.Open {
		return &model.CandlestickPattern{
			Name:        "bullish_engulfing",
			Type:        model.PatternBullish,
			Strength:    strength,
			Description: "bullish body engulfs prior bearish body",
		}
	}
	if !cur.Bullish() && prev.Close > prev.Open {
		return &model.CandlestickPattern{
			Name:        "bearish_engulfing",
			Type:        model.PatternBearish,
			Strength:    strength,
			Description: "bearish body engulfs prior bullish body",
		}
	}
	return nil
}

// clampStrength keeps pattern strength in (0, 1].
func clampStrength(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v <= 0 {
		return 0.1
	}
	return v
}
