package model

// PatternType classifies a candlestick pattern.
type PatternType string

const (
	PatternBullish PatternType = "bullish"
	PatternBearish PatternType = "bearish"
	PatternNeutral PatternType = "neutral"
)

// CandlestickPattern is a single detected pattern on the analyzed candle(s).
// Strength is in (0, 1].
type CandlestickPattern struct {
	Name        string      `json:"name"`
	Type        PatternType `json:"type"`
	Strength    float64     `json:"strength"`
	Description string      `json:"description"`
}

// Bias is the short-term directional lean of the last candle.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// PsychologyAnalysis is the output of the psychology engine for one window.
// Ratios are fractions of the candle's full range, 0 when the range is 0.
type PsychologyAnalysis struct {
	BodyRatio      float64              `json:"body_ratio"`
	UpperWickRatio float64              `json:"upper_wick_ratio"`
	LowerWickRatio float64              `json:"lower_wick_ratio"`
	IsDoji         bool                 `json:"is_doji"`
	Patterns       []CandlestickPattern `json:"patterns"`
	Bias           Bias                 `json:"bias"`
	OrderBlockProb float64              `json:"order_block_probability"` // [0,1]
	FVGDetected    bool                 `json:"fvg_detected"`
}
