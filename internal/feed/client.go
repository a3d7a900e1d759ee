// Package feed is the market-data client: one websocket connection to
// the quote provider, authenticated with an API key plus TOTP, carrying
// tick streams and history requests for any number of sessions.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"signal-systemv1/internal/model"
	"signal-systemv1/internal/ringbuf"
)

// ErrFeedUnavailable is returned by operations that need a live
// connection while the client is disconnected or reconnecting.
var ErrFeedUnavailable = errors.New("feed: connection unavailable")

const (
	heartbeatInterval = 15 * time.Second
	writeTimeout      = 5 * time.Second
	historyTimeout    = 10 * time.Second

	backoffBase = time.Second
	backoffCap  = 30 * time.Second

	// tickRingCapacity decouples the websocket read loop from tick
	// handlers. A burst of 4096 undispatched ticks means the handlers
	// are stalled and dropping is the right call.
	tickRingCapacity = 4096
)

// Config holds the connection parameters.
type Config struct {
	URL        string
	APIKey     string
	TOTPSecret string // empty disables the TOTP field on auth
}

// Client is the feed connection manager. Create with New, start with
// Run, then use History / SubscribeTicks / UnsubscribeTicks from any
// goroutine.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	subs   *subTable
	reqSeq atomic.Int64

	// ring buffers ticks between the read loop (producer) and the pump
	// goroutine (consumer) so slow handlers never stall the socket.
	ring *ringbuf.Ring
	wake chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	pending   map[int64]chan message

	// OnConnected fires after every successful (re)connect, once the
	// subscriptions have been replayed. The session layer uses it to
	// re-seed candle windows.
	OnConnected func()

	// OnReconnect fires on every reconnect attempt outcome=false and
	// success=true. Used for metrics.
	OnReconnect func(success bool)

	// OnTick fires for every tick handed to subscribers. Used for metrics.
	OnTick func(model.Tick)

	// OnTickDropped fires when the tick ring is full and a tick is lost.
	OnTickDropped func()

	// OnSymbolError fires for provider error frames that carry a symbol
	// but no request correlation, e.g. a rejected subscribe. The
	// subscriber decides what to do with the symbol.
	OnSymbolError func(symbol, message string)
}

// New creates a client. Run must be called before any other method
// produces data.
func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		subs:    newSubTable(),
		ring:    ringbuf.New(tickRingCapacity),
		wake:    make(chan struct{}, 1),
		pending: make(map[int64]chan message),
	}
}

// Run connects and keeps the connection alive until ctx is cancelled,
// reconnecting with capped exponential backoff and jitter.
func (c *Client) Run(ctx context.Context) error {
	go c.pump(ctx)

	attempt := 0
	for {
		if err := c.connect(ctx); err != nil {
			attempt++
			if c.OnReconnect != nil {
				c.OnReconnect(false)
			}
			delay := backoff(attempt)
			log.Printf("[feed] connect failed (attempt %d): %v, retrying in %v", attempt, err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		if attempt > 0 && c.OnReconnect != nil {
			c.OnReconnect(true)
		}
		attempt = 0

		err := c.serve(ctx)
		c.teardown()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[feed] connection lost: %v, reconnecting", err)
		attempt = 1
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

// backoff returns the delay before reconnect attempt n, 1s doubling to a
// 30s cap, with up to 25% jitter so herds of clients spread out.
func backoff(attempt int) time.Duration {
	d := backoffBase
	for i := 1; i < attempt && d < backoffCap; i++ {
		d *= 2
	}
	if d > backoffCap {
		d = backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4))
	return d + jitter
}

// connect dials, authenticates, and replays subscriptions.
func (c *Client) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	auth := request{Type: frameAuth, APIKey: c.cfg.APIKey}
	if c.cfg.TOTPSecret != "" {
		code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
		if err != nil {
			conn.Close()
			return fmt.Errorf("totp: %w", err)
		}
		auth.TOTP = code
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return fmt.Errorf("auth: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	// Replay every active symbol before announcing the connection so no
	// consumer observes a connected-but-unsubscribed state.
	for _, sym := range c.subs.symbols() {
		if err := c.write(request{Type: frameSubscribe, Symbol: sym}); err != nil {
			c.teardown()
			return fmt.Errorf("resubscribe %s: %w", sym, err)
		}
	}

	log.Printf("[feed] connected to %s (%d symbols)", c.cfg.URL, len(c.subs.symbols()))
	return nil
}

// serve pumps the read loop and heartbeat until the connection dies.
func (c *Client) serve(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- c.readLoop() }()
	go func() { errCh <- c.heartbeat(ctx) }()

	// Announce only after the read loop is consuming replies, and off
	// this goroutine, so OnConnected handlers can round-trip History
	// without stalling the connection.
	if c.OnConnected != nil {
		go c.OnConnected()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (c *Client) readLoop() error {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return ErrFeedUnavailable
		}

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Type {
		case frameTick:
			if msg.Price <= 0 || msg.Epoch <= 0 {
				continue
			}
			if !c.ring.Push(model.Tick{Symbol: msg.Symbol, Price: msg.Price, Epoch: msg.Epoch}) {
				if c.OnTickDropped != nil {
					c.OnTickDropped()
				}
				continue
			}
			select {
			case c.wake <- struct{}{}:
			default:
			}
		case frameHistory:
			c.resolve(msg)
		case frameError:
			if msg.ReqID != 0 {
				c.resolve(msg)
				continue
			}
			log.Printf("[feed] provider error for %q: %s", msg.Symbol, msg.Error)
			if c.OnSymbolError != nil && msg.Symbol != "" {
				c.OnSymbolError(msg.Symbol, msg.Error)
			}
		default:
			// Unknown frame types are tolerated for forward compatibility.
		}
	}
}

// pump drains the tick ring and fans ticks out to subscribers. Runs for
// the client's whole lifetime, across reconnects.
func (c *Client) pump(ctx context.Context) {
	for {
		for {
			t, ok := c.ring.Pop()
			if !ok {
				break
			}
			c.subs.dispatch(t)
			if c.OnTick != nil {
				c.OnTick(t)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}
	}
}

func (c *Client) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				return ErrFeedUnavailable
			}
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				return err
			}
		}
	}
}

// teardown closes the connection and fails every pending request.
func (c *Client) teardown() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// write sends one frame under the write deadline.
func (c *Client) write(req request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrFeedUnavailable
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(req)
}

// resolve routes a correlated response to its waiting caller.
func (c *Client) resolve(msg message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ReqID]
	if ok {
		delete(c.pending, msg.ReqID)
	}
	c.mu.Unlock()
	if ok {
		ch <- msg
		close(ch)
	}
}

// History fetches the latest count closed candles for a symbol and
// timeframe, oldest first.
func (c *Client) History(ctx context.Context, symbol string, timeframe, count int) ([]model.Candle, error) {
	id := c.reqSeq.Add(1)
	ch := make(chan message, 1)

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrFeedUnavailable
	}
	c.pending[id] = ch
	c.mu.Unlock()

	err := c.write(request{Type: frameHistory, ReqID: id, Symbol: symbol, Timeframe: timeframe, Count: count})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	case <-time.After(historyTimeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("history %s/%ds: %w", symbol, timeframe, ErrFeedUnavailable)
	case msg, ok := <-ch:
		if !ok {
			return nil, ErrFeedUnavailable
		}
		if msg.Type == frameError || msg.Error != "" {
			return nil, fmt.Errorf("history %s/%ds: %s", symbol, timeframe, msg.Error)
		}
		return toCandles(symbol, timeframe, msg.Candles), nil
	}
}

// SubscribeTicks registers a per-subscriber tick handler. The wire
// subscribe goes out only for the symbol's first subscriber; when the
// feed is down the subscription is queued and replayed on reconnect.
func (c *Client) SubscribeTicks(symbol, subscriberID string, handler func(model.Tick)) error {
	first := c.subs.add(symbol, subscriberID, handler)
	if !first {
		return nil
	}
	if err := c.write(request{Type: frameSubscribe, Symbol: symbol}); err != nil {
		if errors.Is(err, ErrFeedUnavailable) {
			// Queued: connect replays the table.
			return nil
		}
		return err
	}
	return nil
}

// UnsubscribeTicks drops a handler, unsubscribing on the wire when the
// symbol's last subscriber leaves.
func (c *Client) UnsubscribeTicks(symbol, subscriberID string) error {
	last := c.subs.remove(symbol, subscriberID)
	if !last {
		return nil
	}
	if err := c.write(request{Type: frameUnsubscribe, Symbol: symbol}); err != nil && !errors.Is(err, ErrFeedUnavailable) {
		return err
	}
	return nil
}
