package model

// Tick represents a single market data tick from the provider WebSocket.
// Epoch is the provider's quote timestamp in Unix seconds.
type Tick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"` // quote price
	Epoch  int64   `json:"epoch"` // UTC Unix seconds
}
