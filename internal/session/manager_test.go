package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signal-systemv1/internal/bus"
	"signal-systemv1/internal/candle"
	"signal-systemv1/internal/catalog"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/predict"
	"signal-systemv1/internal/signal"
)

type mockFeed struct {
	mu           sync.Mutex
	history      []model.Candle
	historyErr   error
	historyCalls int
	subs         map[string]func(model.Tick)
}

func newMockFeed(history []model.Candle) *mockFeed {
	return &mockFeed{history: history, subs: make(map[string]func(model.Tick))}
}

func (f *mockFeed) History(_ context.Context, _ string, _, _ int) ([]model.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	out := make([]model.Candle, len(f.history))
	copy(out, f.history)
	return out, nil
}

func (f *mockFeed) SubscribeTicks(symbol, subscriberID string, handler func(model.Tick)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[symbol+"|"+subscriberID] = handler
	return nil
}

func (f *mockFeed) UnsubscribeTicks(symbol, subscriberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, symbol+"|"+subscriberID)
	return nil
}

func (f *mockFeed) tick(symbol, subscriberID string, t model.Tick) {
	f.mu.Lock()
	h := f.subs[symbol+"|"+subscriberID]
	f.mu.Unlock()
	if h != nil {
		h(t)
	}
}

// seedHistory builds n closed candles on tf-aligned buckets ending just
// before lastBucket.
func seedHistory(n int, tf int, lastBucket int64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		start := lastBucket - int64((n-i)*tf)
		p := 1000 + 0.5*float64(i)
		out[i] = model.Candle{
			Symbol: "R_50", TF: tf, Start: start,
			Open: p, High: p + 0.4, Low: p - 0.4, Close: p + 0.2, Ticks: 5,
		}
	}
	return out
}

func newManager(t *testing.T, feed Feed, cfg Config) (*Manager, *candle.Aggregator, *bus.Bus) {
	t.Helper()
	agg := candle.New()
	eng := signal.New(signal.DefaultConfig(), predict.DefaultConfig())
	events := bus.New(16)
	m := NewManager(cfg, feed, agg, eng, events)
	return m, agg, events
}

func TestStartSession_Validation(t *testing.T) {
	m, _, _ := newManager(t, newMockFeed(nil), Config{})

	if _, err := m.StartSession(context.Background(), "s1", "c1", "NOPE", 60, nil); !errors.Is(err, catalog.ErrUnknownSymbol) {
		t.Errorf("unknown symbol error = %v", err)
	}
	if _, err := m.StartSession(context.Background(), "s1", "c1", "R_50", 45, nil); !errors.Is(err, catalog.ErrUnsupportedTimeframe) {
		t.Errorf("bad timeframe error = %v", err)
	}
}

func TestStartSession_MarketClosed(t *testing.T) {
	m, _, _ := newManager(t, newMockFeed(seedHistory(60, 60, 600000)), Config{})
	m.now = func() time.Time { return time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC) } // Saturday

	if _, err := m.StartSession(context.Background(), "s1", "c1", "frxEURUSD", 60, nil); !errors.Is(err, ErrMarketClosed) {
		t.Errorf("weekend forex error = %v, want ErrMarketClosed", err)
	}
	// Synthetics are unaffected.
	if _, err := m.StartSession(context.Background(), "s2", "c2", "R_50", 60, nil); err != nil {
		t.Errorf("synthetic on weekend: %v", err)
	}
	m.StopAll()
}

func TestStartSession_Conflicts(t *testing.T) {
	feed := newMockFeed(seedHistory(60, 60, 600000))
	m, _, _ := newManager(t, feed, Config{})
	defer m.StopAll()

	if _, err := m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.StartSession(context.Background(), "s1", "c2", "R_50", 60, nil); !errors.Is(err, ErrSessionConflict) {
		t.Errorf("duplicate id error = %v", err)
	}
	if _, err := m.StartSession(context.Background(), "s2", "c1", "R_25", 60, nil); !errors.Is(err, ErrSessionConflict) {
		t.Errorf("duplicate chat error = %v", err)
	}
}

func TestStartSession_FeedFailureRollsBack(t *testing.T) {
	feed := newMockFeed(nil)
	feed.historyErr = errors.New("feed down")
	m, _, _ := newManager(t, feed, Config{})

	if _, err := m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil); err == nil {
		t.Fatal("expected history failure")
	}
	// The slot must be free again.
	feed.historyErr = nil
	feed.history = seedHistory(60, 60, 600000)
	if _, err := m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
	m.StopAll()
}

func TestStopSession_SharedWindowSurvives(t *testing.T) {
	feed := newMockFeed(seedHistory(60, 60, 600000))
	m, agg, _ := newManager(t, feed, Config{})

	if _, err := m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartSession(context.Background(), "s2", "c2", "R_50", 60, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := m.StopSession("s1"); err != nil {
		t.Fatal(err)
	}
	if got := len(agg.ClosedCandles("R_50", 60)); got == 0 {
		t.Error("shared window evicted while a session still uses it")
	}

	if _, err := m.StopSession("s2"); err != nil {
		t.Fatal(err)
	}
	if got := len(agg.ClosedCandles("R_50", 60)); got != 0 {
		t.Errorf("window not cleaned up after last session: %d candles", got)
	}
	if _, err := m.StopSession("s2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double stop error = %v", err)
	}
}

func TestGetSessionByChatID(t *testing.T) {
	feed := newMockFeed(seedHistory(60, 60, 600000))
	m, _, _ := newManager(t, feed, Config{})
	defer m.StopAll()

	if _, ok := m.GetSessionByChatID("c1"); ok {
		t.Error("no session expected before start")
	}
	m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil)
	sess, ok := m.GetSessionByChatID("c1")
	if !ok || sess.ID != "s1" || sess.Status != model.SessionActive {
		t.Errorf("session = %+v ok=%v", sess, ok)
	}
	if m.ActiveSessionsCount() != 1 {
		t.Errorf("active = %d, want 1", m.ActiveSessionsCount())
	}
}

func TestDebugSignal(t *testing.T) {
	feed := newMockFeed(seedHistory(100, 60, 600000))
	m, _, _ := newManager(t, feed, Config{})
	defer m.StopAll()

	m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil)
	res, err := m.DebugSignal("s1")
	if err != nil {
		t.Fatalf("debug signal: %v", err)
	}
	if res.SessionID != "s1" || res.Symbol != "R_50" {
		t.Errorf("result identity = %s/%s", res.SessionID, res.Symbol)
	}
	if res.ClosedCandles != 100 {
		t.Errorf("closed candles = %d, want 100", res.ClosedCandles)
	}
	if res.Direction == "" {
		t.Error("direction must always be set")
	}
}

func TestDebugSignalFor_SharesLiveWindow(t *testing.T) {
	feed := newMockFeed(seedHistory(100, 60, 600000))
	m, _, _ := newManager(t, feed, Config{})
	defer m.StopAll()

	m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil)
	calls := feed.historyCalls

	res, err := m.DebugSignalFor(context.Background(), "R_50", 60)
	if err != nil {
		t.Fatalf("debug signal: %v", err)
	}
	if res.Symbol != "R_50" || res.Timeframe != 60 {
		t.Errorf("result identity = %s/%d", res.Symbol, res.Timeframe)
	}
	if res.SessionID != "" {
		t.Errorf("session id = %q, want none", res.SessionID)
	}
	if res.ClosedCandles != 100 {
		t.Errorf("closed candles = %d, want 100", res.ClosedCandles)
	}
	if feed.historyCalls != calls {
		t.Errorf("history calls = %d, want %d (live window must be reused)", feed.historyCalls, calls)
	}
}

func TestDebugSignalFor_FetchesHistoryWithoutSession(t *testing.T) {
	feed := newMockFeed(seedHistory(100, 60, 600000))
	m, agg, _ := newManager(t, feed, Config{})

	res, err := m.DebugSignalFor(context.Background(), "R_50", 60)
	if err != nil {
		t.Fatalf("debug signal: %v", err)
	}
	if feed.historyCalls != 1 {
		t.Errorf("history calls = %d, want 1", feed.historyCalls)
	}
	if res.ClosedCandles != 100 {
		t.Errorf("closed candles = %d, want 100", res.ClosedCandles)
	}
	if res.Direction == "" {
		t.Error("direction must always be set")
	}
	// Ad hoc fetch must not leave a window behind.
	if got := len(agg.ClosedCandles("R_50", 60)); got != 0 {
		t.Errorf("window retained after debug: %d candles", got)
	}
}

func TestDebugSignalFor_Validation(t *testing.T) {
	feed := newMockFeed(nil)
	m, _, _ := newManager(t, feed, Config{})

	if _, err := m.DebugSignalFor(context.Background(), "NOPE", 60); !errors.Is(err, catalog.ErrUnknownSymbol) {
		t.Errorf("unknown symbol error = %v", err)
	}
	if _, err := m.DebugSignalFor(context.Background(), "R_50", 45); !errors.Is(err, catalog.ErrUnsupportedTimeframe) {
		t.Errorf("bad timeframe error = %v", err)
	}

	feed.historyErr = errors.New("feed down")
	if _, err := m.DebugSignalFor(context.Background(), "R_50", 60); err == nil {
		t.Error("history failure must surface")
	}
}

func TestHandleReconnect_ReseedsWindows(t *testing.T) {
	feed := newMockFeed(seedHistory(60, 60, 600000))
	m, agg, _ := newManager(t, feed, Config{})
	defer m.StopAll()

	m.StartSession(context.Background(), "s1", "c1", "R_50", 60, nil)
	agg.Cleanup("R_50", 60) // simulate a gap

	m.HandleReconnect(context.Background())
	if feed.historyCalls != 2 {
		t.Errorf("history calls = %d, want 2", feed.historyCalls)
	}
	if got := len(agg.ClosedCandles("R_50", 60)); got != 60 {
		t.Errorf("re-seeded window = %d candles, want 60", got)
	}
}

func TestPlan(t *testing.T) {
	const tf = 60
	now := time.Unix(600030, 0) // 30s into the bucket
	forming := &model.Candle{Symbol: "R_50", TF: tf, Start: 600000, Forming: true}
	poll := time.Second
	pre := 4 * time.Second

	// No forming candle: poll.
	if emit, wait := plan(nil, 0, now, pre, poll); emit || wait != poll {
		t.Errorf("nil forming: emit=%v wait=%v", emit, wait)
	}

	// Before the fire point: sleep exactly until closeTime - preClose.
	emit, wait := plan(forming, 0, now, pre, poll)
	if emit || wait != 26*time.Second {
		t.Errorf("pre-fire: emit=%v wait=%v, want 26s", emit, wait)
	}

	// At/after the fire point: emit, including a late arm.
	if emit, _ := plan(forming, 0, time.Unix(600056, 0), pre, poll); !emit {
		t.Error("fire point not emitted")
	}
	if emit, _ := plan(forming, 0, time.Unix(600059, 0), pre, poll); !emit {
		t.Error("late arm not emitted")
	}

	// Already signalled for this candle: never emit again, wait out the close.
	emit, wait = plan(forming, 600000, time.Unix(600058, 0), pre, poll)
	if emit || wait != 2*time.Second {
		t.Errorf("dedupe: emit=%v wait=%v, want 2s", emit, wait)
	}
	// Past close with no rollover yet: poll for the next candle.
	if emit, wait := plan(forming, 600000, time.Unix(600061, 0), pre, poll); emit || wait != poll {
		t.Errorf("post-close dedupe: emit=%v wait=%v", emit, wait)
	}
}

func TestScheduler_EmitsOncePerCandle(t *testing.T) {
	tf := 60
	nowEpoch := time.Now().Unix()
	bucket := nowEpoch - nowEpoch%int64(tf)

	feed := newMockFeed(seedHistory(100, tf, bucket))
	// A huge PreClose puts the fire point in the past as soon as a
	// forming candle exists, so the emit happens immediately.
	m, _, events := newManager(t, feed, Config{PreClose: 2 * time.Minute, PollInterval: 10 * time.Millisecond})
	defer m.StopAll()

	signals := events.SubscribeSignals()
	if _, err := m.StartSession(context.Background(), "s1", "c1", "R_50", tf, nil); err != nil {
		t.Fatal(err)
	}
	feed.tick("R_50", "s1", model.Tick{Symbol: "R_50", Price: 1051, Epoch: nowEpoch})

	select {
	case sig := <-signals:
		if sig.SessionID != "s1" || sig.CandleCloseTime != bucket+int64(tf) {
			t.Errorf("signal = %s close=%d, want s1 close=%d", sig.SessionID, sig.CandleCloseTime, bucket+int64(tf))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no signal emitted")
	}

	// Same candle must not fire twice.
	select {
	case sig := <-signals:
		t.Errorf("duplicate signal for candle %d", sig.CandleCloseTime)
	case <-time.After(150 * time.Millisecond):
	}
}
