// Package signal turns one candle-window snapshot into a trade decision.
// It is a pure function of its inputs: the engine holds configuration
// only, never market state, so the same snapshot always produces the
// same SignalResult.
package signal

import (
	"math"
	"time"

	"signal-systemv1/internal/model"
	"signal-systemv1/internal/predict"
)

// Config bounds the decision gates.
type Config struct {
	MinConfidence int // below this the decision is NO_TRADE
	MinCandles    int // closed candles required before voting
}

// DefaultConfig mirrors the SIGNAL_CONFIG defaults.
func DefaultConfig() Config {
	return Config{MinConfidence: 60, MinCandles: 50}
}

// Engine generates signals from window snapshots.
type Engine struct {
	cfg    Config
	volCfg predict.Config
}

// New builds an engine. Zero fields in cfg fall back to defaults.
func New(cfg Config, volCfg predict.Config) *Engine {
	def := DefaultConfig()
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.MinCandles <= 0 {
		cfg.MinCandles = def.MinCandles
	}
	return &Engine{cfg: cfg, volCfg: volCfg}
}

// Request is one generation run over a window snapshot.
type Request struct {
	SessionID       string
	Symbol          string
	Timeframe       int // seconds
	Closed          []model.Candle
	Forming         *model.Candle
	RecentTicks     []float64
	CandleCloseTime int64 // Unix seconds of the forming candle's close
	Options         *model.SessionOptions
	Now             time.Time // emission timestamp; zero means time.Now
}

// Generate runs the full pipeline: data gate, volatility override,
// vote collection, weighting, and the confidence gate.
func (e *Engine) Generate(req Request) model.SignalResult {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	res := model.SignalResult{
		SessionID:       req.SessionID,
		Symbol:          req.Symbol,
		Timeframe:       req.Timeframe,
		Timestamp:       now.UTC(),
		CandleCloseTime: req.CandleCloseTime,
		Votes:           []model.Vote{},
		ClosedCandles:   len(req.Closed),
		Forming:         req.Forming,
		PUp:             0.5,
		PDown:           0.5,
	}

	if len(req.Closed) < e.cfg.MinCandles {
		res.Direction = model.DecisionNoTrade
		return res
	}

	volCfg := e.volCfg
	if req.Options != nil && req.Options.VolatilityThreshold > 0 {
		volCfg.ATRThreshold = req.Options.VolatilityThreshold
	}

	pr := predict.Assess(req.Closed, req.Forming, req.RecentTicks, volCfg)
	res.Indicators = pr.Indicators
	res.Psychology = pr.Psychology

	if pr.Volatility.IsVolatile {
		res.Direction = model.DecisionNoTrade
		res.VolatilityOverride = true
		res.VolatilityReason = pr.Volatility.Reason
		return res
	}

	raw := collectVotes(pr.Indicators, pr.Psychology, pr.EstimatedClose)
	res.Votes = applyWeights(raw, req.Options)

	var up, down float64
	for _, v := range res.Votes {
		switch v.Direction {
		case model.VoteUp:
			up += v.Weight
		case model.VoteDown:
			down += v.Weight
		}
	}

	if up == 0 && down == 0 {
		// Every vote was neutral or filtered out. An even split keeps
		// the confidence at 50 and the gate produces NO_TRADE.
		res.Confidence = 50
		res.Direction = model.DecisionNoTrade
		return res
	}

	res.PUp = up / (up + down + 1e-9)
	res.PDown = 1 - res.PUp
	res.Confidence = int(math.Round(math.Max(res.PUp, res.PDown) * 100))

	switch {
	case res.Confidence < e.cfg.MinConfidence:
		res.Direction = model.DecisionNoTrade
	case res.PUp > 0.5:
		res.Direction = model.DecisionCall
	default:
		res.Direction = model.DecisionPut
	}
	return res
}

// applyWeights filters votes by the session's enabled set and multiplies
// each raw weight by the table entry, or the session's override for that
// producer. Unknown producer names are dropped.
func applyWeights(raw []model.Vote, opts *model.SessionOptions) []model.Vote {
	var enabled map[string]bool
	if opts != nil && len(opts.EnabledIndicators) > 0 {
		enabled = make(map[string]bool, len(opts.EnabledIndicators))
		for _, name := range opts.EnabledIndicators {
			enabled[name] = true
		}
	}

	out := make([]model.Vote, 0, len(raw))
	for _, v := range raw {
		w, ok := DefaultWeights[v.Indicator]
		if !ok {
			continue
		}
		if enabled != nil && !enabled[v.Indicator] {
			continue
		}
		if opts != nil {
			if custom, ok := opts.CustomWeights[v.Indicator]; ok {
				w = custom
			}
		}
		v.Weight *= w
		out = append(out, v)
	}
	return out
}
