package model

import (
	"encoding/json"
	"time"
)

// VoteDirection is the direction of a single indicator vote.
type VoteDirection string

const (
	VoteUp      VoteDirection = "UP"
	VoteDown    VoteDirection = "DOWN"
	VoteNeutral VoteDirection = "NEUTRAL"
)

// Vote is a weighted directional opinion emitted by one vote producer.
type Vote struct {
	Indicator string        `json:"indicator"`
	Direction VoteDirection `json:"direction"`
	Weight    float64       `json:"weight"` // >= 0, post-multiplier
	Reason    string        `json:"reason,omitempty"`
}

// Decision is the final signal outcome.
type Decision string

const (
	DecisionCall    Decision = "CALL"
	DecisionPut     Decision = "PUT"
	DecisionNoTrade Decision = "NO_TRADE"
)

// SignalResult is the full output of one signal generation run.
//
// Invariants: PUp + PDown == 1 (within 1e-9);
// Confidence == round(max(PUp, PDown) * 100);
// VolatilityOverride == true implies Direction == NO_TRADE and Confidence == 0.
type SignalResult struct {
	SessionID       string             `json:"session_id"`
	Symbol          string             `json:"symbol"`
	Timeframe       int                `json:"timeframe"` // seconds
	Timestamp       time.Time          `json:"timestamp"` // emission time (UTC)
	CandleCloseTime int64              `json:"candle_close_time"` // Unix seconds
	Direction       Decision           `json:"direction"`
	Confidence      int                `json:"confidence"` // [0,100]
	PUp             float64            `json:"p_up"`
	PDown           float64            `json:"p_down"`
	Votes           []Vote             `json:"votes"`
	Indicators      IndicatorValues    `json:"indicators"`
	Psychology      PsychologyAnalysis `json:"psychology"`

	VolatilityOverride bool   `json:"volatility_override"`
	VolatilityReason   string `json:"volatility_reason,omitempty"`

	ClosedCandles int     `json:"closed_candles"`
	Forming       *Candle `json:"forming,omitempty"`
}

// JSON returns the JSON-encoded signal result.
func (s *SignalResult) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
