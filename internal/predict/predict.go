// Package predict assembles the inputs for signal generation: it routes
// the closed + forming candle series through the indicator and
// psychology engines, estimates the close of the forming candle, and
// assesses short-horizon volatility for the abstention override.
package predict

import (
	"fmt"

	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/psychology"
)

// Config holds the volatility rule thresholds.
type Config struct {
	ATRThreshold            float64 // ATR14 / estimated close
	TickVolatilityThreshold float64 // (max-min)/mid over the tick window
	TickVolatilityWindow    int
}

// DefaultConfig mirrors the VOLATILITY_CONFIG defaults.
func DefaultConfig() Config {
	return Config{
		ATRThreshold:            0.005,
		TickVolatilityThreshold: 0.003,
		TickVolatilityWindow:    10,
	}
}

// Volatility is the abstention verdict. Reason names the rule that fired.
type Volatility struct {
	IsVolatile bool   `json:"is_volatile"`
	Reason     string `json:"reason,omitempty"`
}

// Result is the full prediction bundle handed to the signal engine.
type Result struct {
	EstimatedClose float64
	Indicators     model.IndicatorValues
	Psychology     model.PsychologyAnalysis
	Volatility     Volatility
}

// Assess runs the pure computation pipeline over one window snapshot.
// recentTicks are the forming candle's latest tick prices (may be nil).
func Assess(closed []model.Candle, forming *model.Candle, recentTicks []float64, cfg Config) Result {
	var res Result

	switch {
	case forming != nil:
		res.EstimatedClose = forming.Close
	case len(closed) > 0:
		res.EstimatedClose = closed[len(closed)-1].Close
	}

	res.Indicators = indicator.Compute(closed, forming)
	res.Psychology = psychology.Analyze(closed, forming)
	res.Volatility = assessVolatility(res.Indicators.ATR14, res.EstimatedClose, recentTicks, cfg)
	return res
}

// assessVolatility applies the two abstention rules: candle-scale ATR
// ratio and tick-scale range of the forming candle.
func assessVolatility(atr14 *float64, estClose float64, recentTicks []float64, cfg Config) Volatility {
	if atr14 != nil && estClose > 0 {
		ratio := *atr14 / estClose
		if ratio > cfg.ATRThreshold {
			return Volatility{
				IsVolatile: true,
				Reason:     fmt.Sprintf("atr ratio %.5f exceeds %.5f", ratio, cfg.ATRThreshold),
			}
		}
	}

	if n := cfg.TickVolatilityWindow; n > 0 && len(recentTicks) >= n {
		window := recentTicks[len(recentTicks)-n:]
		min, max := window[0], window[0]
		for _, p := range window {
			if p < min {
				min = p
			}
			if p > max {
				max = p
			}
		}
		mid := (max + min) / 2
		if mid > 0 {
			ratio := (max - min) / mid
			if ratio > cfg.TickVolatilityThreshold {
				return Volatility{
					IsVolatile: true,
					Reason:     fmt.Sprintf("tick range %.5f exceeds %.5f", ratio, cfg.TickVolatilityThreshold),
				}
			}
		}
	}

	return Volatility{}
}
