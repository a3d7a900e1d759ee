package feed

import "signal-systemv1/internal/model"

// Wire protocol: JSON frames in both directions. Requests that expect a
// reply carry req_id; the server echoes it on the matching response.
const (
	frameAuth        = "auth"
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameHistory     = "history"
	frameTick        = "tick"
	frameError       = "error"
)

// request is a client-to-server frame.
type request struct {
	Type      string `json:"type"`
	ReqID     int64  `json:"req_id,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	TOTP      string `json:"totp,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Timeframe int    `json:"timeframe,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// message is a server-to-client frame.
type message struct {
	Type    string       `json:"type"`
	ReqID   int64        `json:"req_id,omitempty"`
	Symbol  string       `json:"symbol,omitempty"`
	Price   float64      `json:"price,omitempty"`
	Epoch   int64        `json:"epoch,omitempty"`
	Candles []wireCandle `json:"candles,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// wireCandle is the provider's history candle shape.
type wireCandle struct {
	Start int64   `json:"start"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// toCandles converts history frames to domain candles. History candles
// are closed by definition and carry no tick counts.
func toCandles(symbol string, timeframe int, wire []wireCandle) []model.Candle {
	out := make([]model.Candle, 0, len(wire))
	for _, w := range wire {
		out = append(out, model.Candle{
			Symbol: symbol,
			TF:     timeframe,
			Start:  w.Start,
			Open:   w.Open,
			High:   w.High,
			Low:    w.Low,
			Close:  w.Close,
		})
	}
	return out
}
