package predict

import (
	"strings"
	"testing"

	"signal-systemv1/internal/model"
)

// calmCandles builds a window with tiny ranges relative to price level.
func calmCandles(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		p := 1000.0 + 0.1*float64(i%5)
		out[i] = model.Candle{
			Symbol: "R_50", TF: 60, Start: int64(i * 60),
			Open: p, High: p + 0.2, Low: p - 0.2, Close: p + 0.1, Ticks: 8,
		}
	}
	return out
}

// wildCandles builds a window whose ATR is ~1% of price.
func wildCandles(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		p := 1000.0
		out[i] = model.Candle{
			Symbol: "R_50", TF: 60, Start: int64(i * 60),
			Open: p, High: p + 5, Low: p - 5, Close: p + 2, Ticks: 8,
		}
	}
	return out
}

func TestAssess_EstimatedClose(t *testing.T) {
	closed := calmCandles(60)
	forming := &model.Candle{Symbol: "R_50", TF: 60, Start: 3600, Open: 1000, High: 1001, Low: 999, Close: 1000.7, Ticks: 2, Forming: true}

	res := Assess(closed, forming, nil, DefaultConfig())
	if res.EstimatedClose != 1000.7 {
		t.Errorf("estimated close = %v, want forming close 1000.7", res.EstimatedClose)
	}

	res = Assess(closed, nil, nil, DefaultConfig())
	want := closed[len(closed)-1].Close
	if res.EstimatedClose != want {
		t.Errorf("estimated close = %v, want last closed %v", res.EstimatedClose, want)
	}
}

func TestAssess_CalmWindowNotVolatile(t *testing.T) {
	res := Assess(calmCandles(100), nil, nil, DefaultConfig())
	if res.Volatility.IsVolatile {
		t.Errorf("calm window flagged volatile: %s", res.Volatility.Reason)
	}
	if res.Indicators.ATR14 == nil {
		t.Fatal("ATR14 missing")
	}
}

func TestAssess_ATRRuleFires(t *testing.T) {
	res := Assess(wildCandles(100), nil, nil, DefaultConfig())
	if !res.Volatility.IsVolatile {
		t.Fatal("wild window not flagged volatile")
	}
	if !strings.Contains(res.Volatility.Reason, "atr") {
		t.Errorf("reason %q should name the atr rule", res.Volatility.Reason)
	}
	// Indicators still populated under the override.
	if res.Indicators.ATR14 == nil {
		t.Error("indicators must be carried through a volatility override")
	}
}

func TestAssess_TickRuleFires(t *testing.T) {
	closed := calmCandles(100)
	forming := &model.Candle{Symbol: "R_50", TF: 60, Start: 6000, Open: 1000, High: 1006, Low: 995, Close: 1002, Ticks: 12, Forming: true}

	// 10 ticks spanning ~1% of price level.
	ticks := []float64{1000, 1004, 997, 1005, 996, 1003, 998, 1006, 995, 1002}
	res := Assess(closed, forming, ticks, DefaultConfig())
	if !res.Volatility.IsVolatile {
		t.Fatal("tick-scale volatility not flagged")
	}
	if !strings.Contains(res.Volatility.Reason, "tick") {
		t.Errorf("reason %q should name the tick rule", res.Volatility.Reason)
	}
}

func TestAssess_ShortTickTrailIgnored(t *testing.T) {
	closed := calmCandles(100)
	// Fewer ticks than the window: rule must not fire.
	ticks := []float64{1000, 1010}
	res := Assess(closed, nil, ticks, DefaultConfig())
	if res.Volatility.IsVolatile {
		t.Errorf("short tick trail should not trigger the rule: %s", res.Volatility.Reason)
	}
}
