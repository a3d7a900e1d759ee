package model

import (
	"encoding/json"
	"time"
)

// SessionStatus is the lifecycle state of a signal session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
)

// SessionOptions carries per-session overrides for signal generation.
// Zero values mean "use defaults".
type SessionOptions struct {
	// EnabledIndicators whitelists vote producers by name. Empty means the
	// default enabled set (everything in the weight table).
	EnabledIndicators []string `json:"enabled_indicators,omitempty"`

	// CustomWeights multiplies a producer's vote weight instead of the
	// default weight table entry.
	CustomWeights map[string]float64 `json:"custom_weights,omitempty"`

	// VolatilityThreshold overrides the ATR/close ratio threshold.
	// 0 means the configured default.
	VolatilityThreshold float64 `json:"volatility_threshold,omitempty"`
}

// Session is one subscriber's signal stream for a (symbol, timeframe).
// Mutated only by the session manager.
type Session struct {
	ID           string          `json:"id"`
	ChatID       string          `json:"chat_id"`
	Symbol       string          `json:"symbol"`
	Timeframe    int             `json:"timeframe"` // seconds
	Status       SessionStatus   `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	LastSignalAt time.Time       `json:"last_signal_at,omitempty"` // zero if none yet
	Options      *SessionOptions `json:"options,omitempty"`
}

// JSON returns the JSON-encoded session record.
func (s *Session) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
