package signal

import (
	"fmt"

	"signal-systemv1/internal/model"
)

// collectVotes runs every vote producer over one computed snapshot and
// returns the raw (pre-weight-table) votes. A producer whose inputs are
// missing for this window emits nothing. The estimated close anchors all
// price-vs-line comparisons.
func collectVotes(ind model.IndicatorValues, psy model.PsychologyAnalysis, close float64) []model.Vote {
	var votes []model.Vote
	add := func(v *model.Vote) {
		if v != nil {
			votes = append(votes, *v)
		}
	}

	add(emaCross("ema_cross_5_21", ind.EMA5, ind.EMA21, close))
	add(emaCross("ema_cross_9_21", ind.EMA9, ind.EMA21, close))
	add(emaCross("ema_cross_12_50", ind.EMA12, ind.EMA50, close))

	add(smaTrend("sma_trend_20", ind.SMA20, close))
	add(smaTrend("sma_trend_50", ind.SMA50, close))
	add(smaTrend("sma_trend_200", ind.SMA200, close))

	votes = append(votes, macdVotes(ind.MACD)...)
	add(rsiVote(ind.RSI14))
	votes = append(votes, stochasticVotes(ind.Stochastic)...)
	votes = append(votes, bollingerVotes(ind.Bollinger, close)...)
	add(superTrendVote(ind.SuperTrend))
	add(psarVote(ind.PSAR, close))
	add(adxVote(ind.ADX))
	add(cciVote(ind.CCI))
	add(williamsVote(ind.WilliamsR))
	add(hullVote(ind.HullMA, close))
	add(meanReversionVote(ind.ZScore))

	votes = append(votes, psychologyVotes(psy)...)
	return votes
}

// emaCross votes with the fast/slow relation, confirmed by price sitting
// on the same side of the fast line. Unconfirmed crosses are neutral.
func emaCross(name string, fast, slow *float64, close float64) *model.Vote {
	if fast == nil || slow == nil {
		return nil
	}
	switch {
	case *fast > *slow && close > *fast:
		return &model.Vote{Indicator: name, Direction: model.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("fast %.5f above slow %.5f, price confirms", *fast, *slow)}
	case *fast < *slow && close < *fast:
		return &model.Vote{Indicator: name, Direction: model.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("fast %.5f below slow %.5f, price confirms", *fast, *slow)}
	default:
		return &model.Vote{Indicator: name, Direction: model.VoteNeutral, Weight: 0.3,
			Reason: "cross unconfirmed by price"}
	}
}

// smaTrend votes on price distance from the SMA with a 0.1% dead zone.
func smaTrend(name string, sma *float64, close float64) *model.Vote {
	if sma == nil || *sma == 0 {
		return nil
	}
	dist := (close - *sma) / *sma
	switch {
	case dist > 0.001:
		return &model.Vote{Indicator: name, Direction: model.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("price %.3f%% above sma", dist*100)}
	case dist < -0.001:
		return &model.Vote{Indicator: name, Direction: model.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("price %.3f%% below sma", dist*100)}
	default:
		return &model.Vote{Indicator: name, Direction: model.VoteNeutral, Weight: 0.5,
			Reason: "price inside dead zone"}
	}
}

// macdVotes emits the line-vs-signal vote plus a histogram-sign vote with
// a small dead zone so a flat histogram stays neutral.
func macdVotes(m *model.MACDValue) []model.Vote {
	if m == nil {
		return nil
	}
	out := make([]model.Vote, 0, 2)

	if m.MACD > m.Signal {
		out = append(out, model.Vote{Indicator: "macd_signal", Direction: model.VoteUp, Weight: 1,
			Reason: "macd above signal line"})
	} else if m.MACD < m.Signal {
		out = append(out, model.Vote{Indicator: "macd_signal", Direction: model.VoteDown, Weight: 1,
			Reason: "macd below signal line"})
	}

	const histDeadZone = 1e-5
	switch {
	case m.Histogram > histDeadZone:
		out = append(out, model.Vote{Indicator: "macd_histogram", Direction: model.VoteUp, Weight: 1,
			Reason: "histogram positive"})
	case m.Histogram < -histDeadZone:
		out = append(out, model.Vote{Indicator: "macd_histogram", Direction: model.VoteDown, Weight: 1,
			Reason: "histogram negative"})
	default:
		out = append(out, model.Vote{Indicator: "macd_histogram", Direction: model.VoteNeutral, Weight: 0.3,
			Reason: "histogram flat"})
	}
	return out
}

// rsiVote emits a strong reversal vote at the 30/70 extremes, otherwise a
// half-weight trend vote around the 50 midline.
func rsiVote(rsi *float64) *model.Vote {
	if rsi == nil {
		return nil
	}
	switch {
	case *rsi < 30:
		return &model.Vote{Indicator: "rsi_oversold", Direction: model.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("rsi %.1f oversold", *rsi)}
	case *rsi > 70:
		return &model.Vote{Indicator: "rsi_overbought", Direction: model.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("rsi %.1f overbought", *rsi)}
	case *rsi > 50:
		return &model.Vote{Indicator: "rsi_trend", Direction: model.VoteUp, Weight: 0.5,
			Reason: fmt.Sprintf("rsi %.1f above midline", *rsi)}
	case *rsi < 50:
		return &model.Vote{Indicator: "rsi_trend", Direction: model.VoteDown, Weight: 0.5,
			Reason: fmt.Sprintf("rsi %.1f below midline", *rsi)}
	default:
		return nil
	}
}

func stochasticVotes(s *model.StochasticValue) []model.Vote {
	if s == nil {
		return nil
	}
	out := make([]model.Vote, 0, 2)

	if s.K > s.D {
		out = append(out, model.Vote{Indicator: "stochastic_cross", Direction: model.VoteUp, Weight: 1,
			Reason: "%K above %D"})
	} else if s.K < s.D {
		out = append(out, model.Vote{Indicator: "stochastic_cross", Direction: model.VoteDown, Weight: 1,
			Reason: "%K below %D"})
	}

	switch {
	case s.K < 20:
		out = append(out, model.Vote{Indicator: "stochastic_extreme", Direction: model.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("%%K %.1f oversold", s.K)})
	case s.K > 80:
		out = append(out, model.Vote{Indicator: "stochastic_extreme", Direction: model.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("%%K %.1f overbought", s.K)})
	}
	return out
}

// bollingerVotes emits a neutral squeeze marker when bandwidth drops
// under 2% of the middle line, and a directional breakout vote when the
// close escapes the bands.
func bollingerVotes(b *model.BandsValue, close float64) []model.Vote {
	if b == nil || b.Middle == 0 {
		return nil
	}
	var out []model.Vote

	if (b.Upper-b.Lower)/b.Middle < 0.02 {
		out = append(out, model.Vote{Indicator: "bollinger_squeeze", Direction: model.VoteNeutral, Weight: 0.5,
			Reason: "bandwidth under 2%, expansion pending"})
	}

	switch {
	case close > b.Upper:
		out = append(out, model.Vote{Indicator: "bollinger_breakout", Direction: model.VoteUp, Weight: 1,
			Reason: "close above upper band"})
	case close < b.Lower:
		out = append(out, model.Vote{Indicator: "bollinger_breakout", Direction: model.VoteDown, Weight: 1,
			Reason: "close below lower band"})
	}
	return out
}

func superTrendVote(st *model.SuperTrendValue) *model.Vote {
	if st == nil {
		return nil
	}
	dir := model.VoteDown
	reason := "supertrend flipped bearish"
	if st.Direction == model.TrendUp {
		dir = model.VoteUp
		reason = "supertrend holding bullish"
	}
	return &model.Vote{Indicator: "supertrend_signal", Direction: dir, Weight: 1, Reason: reason}
}

func psarVote(psar *float64, close float64) *model.Vote {
	if psar == nil {
		return nil
	}
	if close > *psar {
		return &model.Vote{Indicator: "psar_signal", Direction: model.VoteUp, Weight: 1,
			Reason: "price above parabolic sar"}
	}
	return &model.Vote{Indicator: "psar_signal", Direction: model.VoteDown, Weight: 1,
		Reason: "price below parabolic sar"}
}

// adxVote marks a weak-trend regime. ADX carries no direction of its own,
// so above the threshold it stays silent.
func adxVote(adx *float64) *model.Vote {
	if adx == nil || *adx >= 25 {
		return nil
	}
	return &model.Vote{Indicator: "adx_strength", Direction: model.VoteNeutral, Weight: 1,
		Reason: fmt.Sprintf("adx %.1f, trend too weak", *adx)}
}

func cciVote(cci *float64) *model.Vote {
	if cci == nil {
		return nil
	}
	switch {
	case *cci > 100:
		return &model.Vote{Indicator: "cci_signal", Direction: model.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("cci %.0f, strong upward momentum", *cci)}
	case *cci < -100:
		return &model.Vote{Indicator: "cci_signal", Direction: model.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("cci %.0f, strong downward momentum", *cci)}
	default:
		return nil
	}
}

func williamsVote(wr *float64) *model.Vote {
	if wr == nil {
		return nil
	}
	switch {
	case *wr < -80:
		return &model.Vote{Indicator: "williams_r", Direction: model.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("williams %%R %.1f oversold", *wr)}
	case *wr > -20:
		return &model.Vote{Indicator: "williams_r", Direction: model.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("williams %%R %.1f overbought", *wr)}
	default:
		return nil
	}
}

func hullVote(hull *float64, close float64) *model.Vote {
	if hull == nil {
		return nil
	}
	if close > *hull {
		return &model.Vote{Indicator: "hull_ma", Direction: model.VoteUp, Weight: 1,
			Reason: "price above hull ma"}
	}
	return &model.Vote{Indicator: "hull_ma", Direction: model.VoteDown, Weight: 1,
		Reason: "price below hull ma"}
}

// meanReversionVote bets against a stretched z-score: two deviations
// above the rolling mean votes DOWN, two below votes UP.
func meanReversionVote(z *float64) *model.Vote {
	if z == nil {
		return nil
	}
	switch {
	case *z > 2:
		return &model.Vote{Indicator: "mean_reversion", Direction: model.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("z-score %.2f stretched above mean", *z)}
	case *z < -2:
		return &model.Vote{Indicator: "mean_reversion", Direction: model.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("z-score %.2f stretched below mean", *z)}
	default:
		return nil
	}
}

// psychologyVotes turns detected patterns and structure reads into votes.
// Pattern strength becomes the raw vote weight. Structure votes (order
// block, FVG) lean with the candle bias.
func psychologyVotes(psy model.PsychologyAnalysis) []model.Vote {
	var out []model.Vote

	for _, p := range psy.Patterns {
		name, ok := patternProducer[p.Name]
		if !ok {
			continue
		}
		out = append(out, model.Vote{
			Indicator: name,
			Direction: patternDirection(p.Type),
			Weight:    p.Strength,
			Reason:    p.Description,
		})
	}

	if psy.OrderBlockProb > 0.6 {
		out = append(out, model.Vote{
			Indicator: "order_block",
			Direction: biasDirection(psy.Bias),
			Weight:    psy.OrderBlockProb,
			Reason:    fmt.Sprintf("order block probability %.2f", psy.OrderBlockProb),
		})
	}

	if psy.FVGDetected {
		out = append(out, model.Vote{
			Indicator: "fvg_signal",
			Direction: biasDirection(psy.Bias),
			Weight:    1,
			Reason:    "fair value gap in recent structure",
		})
	}

	// A dominant wick rejects the price extreme it points at.
	switch {
	case psy.UpperWickRatio > 0.6:
		out = append(out, model.Vote{Indicator: "wick_rejection", Direction: model.VoteDown,
			Weight: psy.UpperWickRatio, Reason: "upper wick rejection"})
	case psy.LowerWickRatio > 0.6:
		out = append(out, model.Vote{Indicator: "wick_rejection", Direction: model.VoteUp,
			Weight: psy.LowerWickRatio, Reason: "lower wick rejection"})
	}
	return out
}

func patternDirection(t model.PatternType) model.VoteDirection {
	switch t {
	case model.PatternBullish:
		return model.VoteUp
	case model.PatternBearish:
		return model.VoteDown
	default:
		return model.VoteNeutral
	}
}

func biasDirection(b model.Bias) model.VoteDirection {
	switch b {
	case model.BiasBullish:
		return model.VoteUp
	case model.BiasBearish:
		return model.VoteDown
	default:
		return model.VoteNeutral
	}
}
