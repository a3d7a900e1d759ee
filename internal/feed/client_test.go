package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"signal-systemv1/internal/model"
)

const testSecret = "JBSWY3DPEHPK3PXP"

// fakeProvider is a minimal in-process quote server: it checks the auth
// frame, answers history requests, and pushes one tick per subscribe.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var auth request
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth.Type != frameAuth || auth.APIKey != "test-key" || !totp.Validate(auth.TOTP, testSecret) {
			conn.WriteJSON(message{Type: frameError, Error: "auth rejected"})
			return
		}

		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			switch req.Type {
			case frameHistory:
				candles := make([]wireCandle, req.Count)
				for i := range candles {
					candles[i] = wireCandle{
						Start: int64((i + 1) * req.Timeframe),
						Open:  100, High: 101, Low: 99, Close: 100.5,
					}
				}
				conn.WriteJSON(message{Type: frameHistory, ReqID: req.ReqID, Candles: candles})
			case frameSubscribe:
				if req.Symbol == "BAD" {
					conn.WriteJSON(message{Type: frameError, Symbol: req.Symbol, Error: "unknown symbol"})
					continue
				}
				conn.WriteJSON(message{Type: frameTick, Symbol: req.Symbol, Price: 1234.5, Epoch: time.Now().Unix()})
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startClient(t *testing.T, srv *httptest.Server) (*Client, chan struct{}) {
	t.Helper()
	c := New(Config{URL: wsURL(srv), APIKey: "test-key", TOTPSecret: testSecret})
	connected := make(chan struct{}, 4)
	c.OnConnected = func() { connected <- struct{}{} }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("client never connected")
	}
	return c, connected
}

func TestClient_TickSubscription(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()
	c, _ := startClient(t, srv)

	ticks := make(chan model.Tick, 4)
	if err := c.SubscribeTicks("R_50", "s1", func(tk model.Tick) { ticks <- tk }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case tk := <-ticks:
		if tk.Symbol != "R_50" || tk.Price != 1234.5 {
			t.Errorf("tick = %+v", tk)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no tick delivered")
	}
}

func TestClient_History(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()
	c, _ := startClient(t, srv)

	candles, err := c.History(context.Background(), "R_50", 60, 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(candles) != 5 {
		t.Fatalf("candles = %d, want 5", len(candles))
	}
	for _, cd := range candles {
		if cd.Symbol != "R_50" || cd.TF != 60 || cd.Forming {
			t.Errorf("bad candle: %+v", cd)
		}
	}
	if candles[1].Start != 120 {
		t.Errorf("second start = %d, want 120", candles[1].Start)
	}
}

// The session layer re-seeds candle windows from inside OnConnected, so
// a History round-trip issued there must complete.
func TestClient_HistoryFromOnConnected(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()

	c := New(Config{URL: wsURL(srv), APIKey: "test-key", TOTPSecret: testSecret})
	got := make(chan error, 1)
	c.OnConnected = func() {
		_, err := c.History(context.Background(), "R_50", 60, 5)
		got <- err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("history from OnConnected: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("history from OnConnected never completed")
	}
}

func TestClient_SymbolErrorSurfaced(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()

	c := New(Config{URL: wsURL(srv), APIKey: "test-key", TOTPSecret: testSecret})
	type symErr struct{ symbol, msg string }
	errs := make(chan symErr, 1)
	c.OnSymbolError = func(symbol, msg string) { errs <- symErr{symbol, msg} }
	connected := make(chan struct{}, 1)
	c.OnConnected = func() { connected <- struct{}{} }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("client never connected")
	}
	if err := c.SubscribeTicks("BAD", "s1", func(model.Tick) {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case e := <-errs:
		if e.symbol != "BAD" || e.msg != "unknown symbol" {
			t.Errorf("symbol error = %+v", e)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("rejected subscribe never surfaced")
	}
}

func TestClient_HistoryWhileDisconnected(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:0", APIKey: "k"})
	if _, err := c.History(context.Background(), "R_50", 60, 5); !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("err = %v, want ErrFeedUnavailable", err)
	}
}

func TestSubTable_Refcounting(t *testing.T) {
	tbl := newSubTable()
	noop := func(model.Tick) {}

	if first := tbl.add("R_50", "a", noop); !first {
		t.Error("first subscriber must trigger a wire subscribe")
	}
	if first := tbl.add("R_50", "b", noop); first {
		t.Error("second subscriber must not re-subscribe on the wire")
	}
	if last := tbl.remove("R_50", "a"); last {
		t.Error("one subscriber remains, no wire unsubscribe yet")
	}
	if last := tbl.remove("R_50", "b"); !last {
		t.Error("last subscriber must trigger the wire unsubscribe")
	}
	if last := tbl.remove("R_50", "zzz"); last {
		t.Error("removing from an empty symbol must be a no-op")
	}
}

func TestSubTable_DispatchFanOut(t *testing.T) {
	tbl := newSubTable()
	var a, b, other int
	tbl.add("R_50", "a", func(model.Tick) { a++ })
	tbl.add("R_50", "b", func(model.Tick) { b++ })
	tbl.add("R_25", "c", func(model.Tick) { other++ })

	tbl.dispatch(model.Tick{Symbol: "R_50", Price: 1, Epoch: 1})
	if a != 1 || b != 1 || other != 0 {
		t.Errorf("dispatch counts a=%d b=%d other=%d", a, b, other)
	}
}

func TestBackoffBounds(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoff(attempt)
		if d < backoffBase {
			t.Errorf("attempt %d: %v below base", attempt, d)
		}
		// Cap plus full jitter margin.
		if d > backoffCap+backoffCap/4 {
			t.Errorf("attempt %d: %v above cap", attempt, d)
		}
		if attempt <= 5 && d+d/2 < prev {
			t.Errorf("attempt %d: %v not growing from %v", attempt, d, prev)
		}
		prev = d
	}
}
