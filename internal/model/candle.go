package model

import (
	"encoding/json"
	"math"
)

// Candle represents an OHLC candle for a single symbol and timeframe.
// Start is the bucket start time in Unix seconds, always TF-aligned
// (Start % TF == 0). Forming marks the in-progress candle of the
// current bucket.
type Candle struct {
	Symbol  string  `json:"symbol"`
	TF      int     `json:"tf"` // timeframe in seconds
	Start   int64   `json:"start"`
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	Ticks   int     `json:"ticks"` // number of ticks aggregated
	Forming bool    `json:"forming"`
}

// Key returns a unique key for this candle's window: "symbol:TF".
func (c *Candle) Key() string {
	return c.Symbol + ":" + itoa(c.TF)
}

// CloseTime returns the bucket end time (Start + TF) in Unix seconds.
func (c *Candle) CloseTime() int64 {
	return c.Start + int64(c.TF)
}

// Range returns high - low.
func (c *Candle) Range() float64 {
	return c.High - c.Low
}

// Body returns the absolute body size |close - open|.
func (c *Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// Bullish reports whether the candle closed above its open.
func (c *Candle) Bullish() bool {
	return c.Close > c.Open
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// itoa is a minimal int-to-string without importing strconv in hot path.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
