// Package catalog is the static registry of tradable assets and
// supported candle timeframes. Sessions are validated against it before
// any feed subscription happens.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownSymbol        = errors.New("catalog: unknown symbol")
	ErrUnsupportedTimeframe = errors.New("catalog: unsupported timeframe")
)

// Asset is one tradable instrument on the feed.
type Asset struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
}

// assets is the fixed instrument table. Synthetic indices tick around
// the clock; forex pairs follow market hours on the provider side.
var assets = []Asset{
	{Symbol: "R_10", DisplayName: "Volatility 10 Index", Category: "synthetic"},
	{Symbol: "R_25", DisplayName: "Volatility 25 Index", Category: "synthetic"},
	{Symbol: "R_50", DisplayName: "Volatility 50 Index", Category: "synthetic"},
	{Symbol: "R_75", DisplayName: "Volatility 75 Index", Category: "synthetic"},
	{Symbol: "R_100", DisplayName: "Volatility 100 Index", Category: "synthetic"},
	{Symbol: "frxEURUSD", DisplayName: "EUR/USD", Category: "forex"},
	{Symbol: "frxGBPUSD", DisplayName: "GBP/USD", Category: "forex"},
	{Symbol: "frxUSDJPY", DisplayName: "USD/JPY", Category: "forex"},
}

var assetIndex = func() map[string]Asset {
	m := make(map[string]Asset, len(assets))
	for _, a := range assets {
		m[a.Symbol] = a
	}
	return m
}()

// timeframes are the supported candle durations in seconds.
var timeframes = map[int]bool{
	60:   true,
	120:  true,
	300:  true,
	900:  true,
	1800: true,
	3600: true,
}

// Lookup returns the asset for a symbol.
func Lookup(symbol string) (Asset, error) {
	a, ok := assetIndex[symbol]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return a, nil
}

// ValidateTimeframe checks a candle duration in seconds.
func ValidateTimeframe(tf int) error {
	if !timeframes[tf] {
		return fmt.Errorf("%w: %ds", ErrUnsupportedTimeframe, tf)
	}
	return nil
}

// Assets returns the instrument table, sorted by symbol.
func Assets() []Asset {
	out := make([]Asset, len(assets))
	copy(out, assets)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Timeframes returns the supported durations in ascending order.
func Timeframes() []int {
	out := make([]int, 0, len(timeframes))
	for tf := range timeframes {
		out = append(out, tf)
	}
	sort.Ints(out)
	return out
}
