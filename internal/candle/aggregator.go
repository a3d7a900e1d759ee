// Package candle aggregates live ticks into per-(symbol, timeframe)
// candle windows: a bounded buffer of closed candles plus at most one
// forming candle for the current bucket. Buckets are aligned to the
// timeframe (bucket = epoch - epoch % tf). When a tick arrives in a
// later bucket the forming candle is finalized and pushed into the
// closed buffer; skipped buckets are left as gaps, never fabricated.
package candle

import (
	"sync"

	"signal-systemv1/internal/model"
)

// tickTrail is how many recent forming-candle tick prices each window
// retains for tick-scale volatility checks.
const tickTrail = 32

// window holds the closed-candle buffer and forming candle for one
// (symbol, timeframe) pair. All mutations go through its mutex.
type window struct {
	mu       sync.Mutex
	symbol   string
	tf       int
	capacity int
	closed   []model.Candle // oldest → newest
	forming  *model.Candle

	// Recent tick prices of the forming candle, oldest → newest.
	ticks []float64
}

// Aggregator owns all candle windows. ProcessTick is serialised per
// window; snapshot getters return copies and may be called concurrently.
type Aggregator struct {
	mu      sync.RWMutex
	windows map[string]*window

	// Metrics hooks (optional, set externally)
	OnDroppedTick  func() // out-of-order or malformed tick dropped
	OnClosedCandle func(c model.Candle)
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		windows: make(map[string]*window, 16),
	}
}

func key(symbol string, tf int) string {
	c := model.Candle{Symbol: symbol, TF: tf}
	return c.Key()
}

// Initialize seeds the closed-candle buffer for a window from fetched
// history (oldest → newest) and clears any forming candle. capacity <= 0
// keeps the existing capacity or falls back to 500.
func (a *Aggregator) Initialize(symbol string, tf int, history []model.Candle, capacity int) {
	a.mu.Lock()
	w, ok := a.windows[key(symbol, tf)]
	if !ok {
		w = &window{symbol: symbol, tf: tf, capacity: 500}
		a.windows[key(symbol, tf)] = w
	}
	a.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	if capacity > 0 {
		w.capacity = capacity
	}
	w.closed = w.closed[:0]
	w.forming = nil
	w.ticks = w.ticks[:0]

	start := 0
	if len(history) > w.capacity {
		start = len(history) - w.capacity
	}
	for _, c := range history[start:] {
		c.Forming = false
		w.closed = append(w.closed, c)
	}
}

// ProcessTick incorporates one tick into the window for (tick.Symbol, tf).
// Malformed ticks (non-positive price or epoch) and out-of-order ticks
// (bucket behind the forming bucket) are dropped and counted.
func (a *Aggregator) ProcessTick(tick model.Tick, tf int) {
	if tick.Price <= 0 || tick.Epoch <= 0 || tf <= 0 {
		if a.OnDroppedTick != nil {
			a.OnDroppedTick()
		}
		return
	}

	a.mu.Lock()
	w, ok := a.windows[key(tick.Symbol, tf)]
	if !ok {
		w = &window{symbol: tick.Symbol, tf: tf, capacity: 500}
		a.windows[key(tick.Symbol, tf)] = w
	}
	a.mu.Unlock()

	var finalized *model.Candle

	w.mu.Lock()
	bucket := tick.Epoch - tick.Epoch%int64(tf)

	switch {
	case w.forming == nil:
		w.startForming(bucket, tick.Price)

	case bucket == w.forming.Start:
		f := w.forming
		if tick.Price > f.High {
			f.High = tick.Price
		}
		if tick.Price < f.Low {
			f.Low = tick.Price
		}
		f.Close = tick.Price
		f.Ticks++
		w.pushTick(tick.Price)

	case bucket > w.forming.Start:
		// Bucket rollover: finalize, then start fresh. Skipped buckets
		// stay empty; no synthetic candles.
		done := *w.forming
		done.Forming = false
		w.closed = append(w.closed, done)
		if len(w.closed) > w.capacity {
			w.closed = w.closed[1:]
		}
		finalized = &done
		w.startForming(bucket, tick.Price)

	default:
		// bucket < forming.Start: out-of-order tick
		w.mu.Unlock()
		if a.OnDroppedTick != nil {
			a.OnDroppedTick()
		}
		return
	}
	w.mu.Unlock()

	if finalized != nil && a.OnClosedCandle != nil {
		a.OnClosedCandle(*finalized)
	}
}

// startForming begins a new forming candle. Caller holds w.mu.
func (w *window) startForming(bucket int64, price float64) {
	w.forming = &model.Candle{
		Symbol:  w.symbol,
		TF:      w.tf,
		Start:   bucket,
		Open:    price,
		High:    price,
		Low:     price,
		Close:   price,
		Ticks:   1,
		Forming: true,
	}
	w.ticks = w.ticks[:0]
	w.pushTick(price)
}

// pushTick records a forming-candle tick price. Caller holds w.mu.
func (w *window) pushTick(price float64) {
	if len(w.ticks) >= tickTrail {
		copy(w.ticks, w.ticks[1:])
		w.ticks = w.ticks[:tickTrail-1]
	}
	w.ticks = append(w.ticks, price)
}

// ClosedCandles returns a snapshot copy of the closed candles for a
// window, oldest → newest. Nil if the window does not exist.
func (a *Aggregator) ClosedCandles(symbol string, tf int) []model.Candle {
	w := a.lookup(symbol, tf)
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Candle, len(w.closed))
	copy(out, w.closed)
	return out
}

// FormingCandle returns a snapshot copy of the forming candle, or nil.
func (a *Aggregator) FormingCandle(symbol string, tf int) *model.Candle {
	w := a.lookup(symbol, tf)
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.forming == nil {
		return nil
	}
	snap := *w.forming
	return &snap
}

// RecentTickPrices returns up to n most recent tick prices of the
// forming candle, oldest → newest.
func (a *Aggregator) RecentTickPrices(symbol string, tf, n int) []float64 {
	w := a.lookup(symbol, tf)
	if w == nil || n <= 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	start := 0
	if len(w.ticks) > n {
		start = len(w.ticks) - n
	}
	out := make([]float64, len(w.ticks)-start)
	copy(out, w.ticks[start:])
	return out
}

// Cleanup removes a window entirely.
func (a *Aggregator) Cleanup(symbol string, tf int) {
	a.mu.Lock()
	delete(a.windows, key(symbol, tf))
	a.mu.Unlock()
}

func (a *Aggregator) lookup(symbol string, tf int) *window {
	a.mu.RLock()
	w := a.windows[key(symbol, tf)]
	a.mu.RUnlock()
	return w
}
