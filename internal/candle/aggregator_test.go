package candle

import (
	"testing"

	"signal-systemv1/internal/model"
)

func tick(symbol string, price float64, epoch int64) model.Tick {
	return model.Tick{Symbol: symbol, Price: price, Epoch: epoch}
}

func TestAggregator_Bucketing(t *testing.T) {
	agg := New()

	// S1: ticks at t=0,30,60,90 with tf=60
	agg.ProcessTick(tick("R_50", 100, 0), 60)
	agg.ProcessTick(tick("R_50", 101, 30), 60)
	agg.ProcessTick(tick("R_50", 99, 60), 60)
	agg.ProcessTick(tick("R_50", 102, 90), 60)

	closed := agg.ClosedCandles("R_50", 60)
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(closed))
	}
	c := closed[0]
	if c.Start != 0 || c.Open != 100 || c.High != 101 || c.Low != 100 || c.Close != 101 {
		t.Errorf("closed candle mismatch: %+v", c)
	}
	if c.Forming {
		t.Error("closed candle still marked forming")
	}

	f := agg.FormingCandle("R_50", 60)
	if f == nil {
		t.Fatal("expected forming candle")
	}
	if f.Start != 60 || f.Open != 99 || f.High != 102 || f.Low != 99 || f.Close != 102 {
		t.Errorf("forming candle mismatch: %+v", f)
	}
	if f.Ticks != 2 {
		t.Errorf("expected ticks=2, got %d", f.Ticks)
	}
	if !f.Forming {
		t.Error("forming candle not marked forming")
	}
}

func TestAggregator_OHLCConsistency(t *testing.T) {
	agg := New()
	prices := []float64{100, 105, 95, 103, 99, 107, 94, 101}
	for i, p := range prices {
		agg.ProcessTick(tick("R_50", p, int64(i*20)), 60)
	}

	check := func(c model.Candle) {
		if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
			t.Errorf("OHLC invariant violated: %+v", c)
		}
		if c.Start%60 != 0 {
			t.Errorf("start %d not TF-aligned", c.Start)
		}
		if c.Ticks < 1 {
			t.Errorf("ticks < 1: %+v", c)
		}
	}
	for _, c := range agg.ClosedCandles("R_50", 60) {
		check(c)
	}
	if f := agg.FormingCandle("R_50", 60); f != nil {
		check(*f)
	}
}

func TestAggregator_TieBreakAtBoundary(t *testing.T) {
	agg := New()
	agg.ProcessTick(tick("R_50", 100, 10), 60)
	// Exactly at bucket + tf: starts the next bucket.
	agg.ProcessTick(tick("R_50", 101, 60), 60)

	closed := agg.ClosedCandles("R_50", 60)
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(closed))
	}
	f := agg.FormingCandle("R_50", 60)
	if f == nil || f.Start != 60 {
		t.Fatalf("expected forming candle at 60, got %+v", f)
	}
}

func TestAggregator_OutOfOrderTickDropped(t *testing.T) {
	agg := New()
	dropped := 0
	agg.OnDroppedTick = func() { dropped++ }

	agg.ProcessTick(tick("R_50", 100, 120), 60)
	agg.ProcessTick(tick("R_50", 90, 50), 60) // behind forming bucket

	if dropped != 1 {
		t.Errorf("expected 1 dropped tick, got %d", dropped)
	}
	f := agg.FormingCandle("R_50", 60)
	if f == nil || f.Low != 100 {
		t.Errorf("out-of-order tick mutated forming candle: %+v", f)
	}
}

func TestAggregator_MalformedTickDropped(t *testing.T) {
	agg := New()
	dropped := 0
	agg.OnDroppedTick = func() { dropped++ }

	agg.ProcessTick(tick("R_50", 0, 10), 60)
	agg.ProcessTick(tick("R_50", -5, 10), 60)
	agg.ProcessTick(tick("R_50", 100, 0), 60)

	if dropped != 3 {
		t.Errorf("expected 3 dropped ticks, got %d", dropped)
	}
	if agg.FormingCandle("R_50", 60) != nil {
		t.Error("malformed ticks created a forming candle")
	}
}

func TestAggregator_GapSkipsBuckets(t *testing.T) {
	agg := New()
	agg.ProcessTick(tick("R_50", 100, 0), 60)
	// Jump three buckets ahead: no synthetic candles in between.
	agg.ProcessTick(tick("R_50", 105, 200), 60)

	closed := agg.ClosedCandles("R_50", 60)
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(closed))
	}
	if closed[0].Start != 0 {
		t.Errorf("expected closed start=0, got %d", closed[0].Start)
	}
	f := agg.FormingCandle("R_50", 60)
	if f == nil || f.Start != 180 {
		t.Fatalf("expected forming at 180, got %+v", f)
	}
}

func TestAggregator_CapacityEviction(t *testing.T) {
	agg := New()
	agg.Initialize("R_50", 60, nil, 3)

	for i := 0; i < 6; i++ {
		agg.ProcessTick(tick("R_50", 100+float64(i), int64(i*60)), 60)
	}

	closed := agg.ClosedCandles("R_50", 60)
	if len(closed) != 3 {
		t.Fatalf("expected 3 closed candles after eviction, got %d", len(closed))
	}
	// Oldest were evicted; starts must be strictly increasing by 60.
	for i := 1; i < len(closed); i++ {
		if closed[i].Start != closed[i-1].Start+60 {
			t.Errorf("non-contiguous starts: %d then %d", closed[i-1].Start, closed[i].Start)
		}
	}
	if closed[0].Start != 120 {
		t.Errorf("expected oldest start=120, got %d", closed[0].Start)
	}
}

func TestAggregator_InitializeSeedsHistory(t *testing.T) {
	agg := New()
	hist := []model.Candle{
		{Symbol: "R_50", TF: 60, Start: 0, Open: 1, High: 2, Low: 1, Close: 2, Ticks: 4},
		{Symbol: "R_50", TF: 60, Start: 60, Open: 2, High: 3, Low: 2, Close: 3, Ticks: 4},
	}
	agg.Initialize("R_50", 60, hist, 500)

	closed := agg.ClosedCandles("R_50", 60)
	if len(closed) != 2 {
		t.Fatalf("expected 2 seeded candles, got %d", len(closed))
	}
	if agg.FormingCandle("R_50", 60) != nil {
		t.Error("initialize must clear the forming candle")
	}

	// Mutating the snapshot must not touch the window.
	closed[0].Close = 999
	again := agg.ClosedCandles("R_50", 60)
	if again[0].Close != 2 {
		t.Error("snapshot mutation leaked into the window")
	}
}

func TestAggregator_RecentTickPrices(t *testing.T) {
	agg := New()
	for i, p := range []float64{100, 101, 102, 103} {
		agg.ProcessTick(tick("R_50", p, int64(10+i)), 60)
	}
	got := agg.RecentTickPrices("R_50", 60, 3)
	if len(got) != 3 || got[0] != 101 || got[2] != 103 {
		t.Errorf("unexpected recent ticks: %v", got)
	}

	// New bucket resets the trail.
	agg.ProcessTick(tick("R_50", 110, 70), 60)
	got = agg.RecentTickPrices("R_50", 60, 10)
	if len(got) != 1 || got[0] != 110 {
		t.Errorf("trail not reset on rollover: %v", got)
	}
}

func TestAggregator_Cleanup(t *testing.T) {
	agg := New()
	agg.ProcessTick(tick("R_50", 100, 10), 60)
	agg.Cleanup("R_50", 60)
	if agg.ClosedCandles("R_50", 60) != nil {
		t.Error("expected nil closed candles after cleanup")
	}
	if agg.FormingCandle("R_50", 60) != nil {
		t.Error("expected nil forming candle after cleanup")
	}
}
