package model

// MACDValue holds the MACD line, its signal line, and the histogram.
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// StochasticValue holds the %K and %D lines of the stochastic oscillator.
type StochasticValue struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// BandsValue holds a three-line band (Bollinger, Keltner, ATR bands).
type BandsValue struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// ChannelValue holds a two-line channel (Donchian).
type ChannelValue struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// TrendUp / TrendDown are the SuperTrend directions.
const (
	TrendUp   = "up"
	TrendDown = "down"
)

// SuperTrendValue holds the SuperTrend line and its direction.
type SuperTrendValue struct {
	Value     float64 `json:"value"`
	Direction string  `json:"direction"` // "up" or "down"
}

// IndicatorValues is the fixed record of indicator outputs for one candle
// window. Every field is optional: nil means the window was too short for
// that indicator. No NaN and no zero placeholders are ever emitted.
type IndicatorValues struct {
	EMA5  *float64 `json:"ema5,omitempty"`
	EMA9  *float64 `json:"ema9,omitempty"`
	EMA12 *float64 `json:"ema12,omitempty"`
	EMA21 *float64 `json:"ema21,omitempty"`
	EMA50 *float64 `json:"ema50,omitempty"`

	SMA20  *float64 `json:"sma20,omitempty"`
	SMA50  *float64 `json:"sma50,omitempty"`
	SMA200 *float64 `json:"sma200,omitempty"`

	MACD       *MACDValue       `json:"macd,omitempty"`
	RSI14      *float64         `json:"rsi14,omitempty"`
	Stochastic *StochasticValue `json:"stochastic,omitempty"`
	ATR14      *float64         `json:"atr14,omitempty"`
	ADX        *float64         `json:"adx,omitempty"`
	CCI        *float64         `json:"cci,omitempty"`
	WilliamsR  *float64         `json:"williams_r,omitempty"`

	Bollinger  *BandsValue      `json:"bollinger,omitempty"`
	Keltner    *BandsValue      `json:"keltner,omitempty"`
	HullMA     *float64         `json:"hull_ma,omitempty"`
	SuperTrend *SuperTrendValue `json:"supertrend,omitempty"`

	ROC      *float64 `json:"roc,omitempty"`
	Momentum *float64 `json:"momentum,omitempty"`
	VWAP     *float64 `json:"vwap,omitempty"`
	OBV      *float64 `json:"obv,omitempty"`
	Chaikin  *float64 `json:"chaikin,omitempty"`
	Fisher   *float64 `json:"fisher,omitempty"`

	Donchian *ChannelValue `json:"donchian,omitempty"`
	PSAR     *float64      `json:"psar,omitempty"`
	Ultimate *float64      `json:"ultimate,omitempty"`

	ZScore          *float64    `json:"zscore,omitempty"`
	RegressionSlope *float64    `json:"regression_slope,omitempty"`
	ATRBands        *BandsValue `json:"atr_bands,omitempty"`
	RangePercentile *float64    `json:"range_percentile,omitempty"`
	EMARibbon       *float64    `json:"ema_ribbon,omitempty"`
}
