package signal

// DefaultWeights is the built-in weight table for vote producers.
// A producer present here is enabled by default; its emitted vote weight
// is multiplied by the table entry unless the session overrides it.
// Values are frozen; tuning happens through SessionOptions, not here.
var DefaultWeights = map[string]float64{
	"ema_cross_5_21":  1.2,
	"ema_cross_9_21":  1.1,
	"ema_cross_12_50": 1.3,

	"sma_trend_20":  0.8,
	"sma_trend_50":  0.9,
	"sma_trend_200": 1.0,

	"macd_signal":    1.4,
	"macd_histogram": 1.2,

	"rsi_oversold":   1.3,
	"rsi_overbought": 1.3,
	"rsi_trend":      0.8,

	"stochastic_cross":   1.1,
	"stochastic_extreme": 1.2,

	"bollinger_squeeze":  0.9,
	"bollinger_breakout": 1.4,

	"supertrend_signal": 1.5,
	"psar_signal":       1.2,
	"adx_strength":      0.7,

	"cci_signal":     1.0,
	"williams_r":     0.9,
	"hull_ma":        1.0,
	"mean_reversion": 1.1,

	"engulfing_pattern": 1.5,
	"hammer_pattern":    1.3,
	"shooting_star":     1.3,
	"doji_pattern":      0.8,

	"order_block":    1.4,
	"fvg_signal":     1.2,
	"wick_rejection": 1.1,
}

// patternProducer maps detected candlestick pattern names onto their
// vote producer names in the weight table.
var patternProducer = map[string]string{
	"bullish_engulfing": "engulfing_pattern",
	"bearish_engulfing": "engulfing_pattern",
	"hammer":            "hammer_pattern",
	"shooting_star":     "shooting_star",
	"doji":              "doji_pattern",
}
