// Package session owns the signal session lifecycle: one session binds a
// subscriber (chat) to a (symbol, timeframe) stream, seeds the candle
// window from feed history, and runs a pre-close scheduler that emits one
// signal per candle shortly before it closes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"signal-systemv1/internal/bus"
	"signal-systemv1/internal/candle"
	"signal-systemv1/internal/catalog"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/signal"
)

var (
	ErrSessionConflict = errors.New("session: conflicting active session")
	ErrSessionNotFound = errors.New("session: not found")
	ErrMarketClosed    = errors.New("session: market closed for symbol")
)

// tickTrail is how many forming-candle tick prices are handed to the
// signal engine for the tick-scale volatility rule.
const tickTrail = 32

// Feed is the market-data dependency: history seeding plus live tick
// subscription keyed by (symbol, subscriberID).
type Feed interface {
	History(ctx context.Context, symbol string, timeframe, count int) ([]model.Candle, error)
	SubscribeTicks(symbol, subscriberID string, handler func(model.Tick)) error
	UnsubscribeTicks(symbol, subscriberID string) error
}

// Config bounds the manager's windows and the scheduler timing.
type Config struct {
	HistoryCandles int           // candles fetched to seed a new window
	WindowCapacity int           // closed candles retained per window
	PreClose       time.Duration // signal lead time before candle close
	PollInterval   time.Duration // scheduler poll while no forming candle
}

// DefaultConfig mirrors the SIGNAL_CONFIG defaults.
func DefaultConfig() Config {
	return Config{
		HistoryCandles: 300,
		WindowCapacity: 500,
		PreClose:       4 * time.Second,
		PollInterval:   time.Second,
	}
}

type state struct {
	sess   model.Session
	cancel context.CancelFunc

	// lastEmitted is the start of the last candle a signal was emitted
	// for. Touched only by this session's scheduler goroutine.
	lastEmitted int64
}

// Manager owns all active sessions and their scheduler goroutines.
type Manager struct {
	cfg    Config
	feed   Feed
	agg    *candle.Aggregator
	engine *signal.Engine
	events *bus.Bus

	mu         sync.RWMutex
	sessions   map[string]*state
	byChat     map[string]string // chatID -> sessionID
	windowRefs map[string]int    // symbol|tf -> active session count

	// OnSignal is an optional hook called for every emitted signal,
	// after bus publication. Used for metrics.
	OnSignal func(model.SignalResult)

	// OnCompute is an optional hook called with the engine latency of
	// every signal generation run.
	OnCompute func(time.Duration)

	// now is swappable for tests.
	now func() time.Time
}

// NewManager wires the manager. All dependencies are required except the
// bus, which may be nil when no in-process consumers exist.
func NewManager(cfg Config, feed Feed, agg *candle.Aggregator, engine *signal.Engine, events *bus.Bus) *Manager {
	def := DefaultConfig()
	if cfg.HistoryCandles <= 0 {
		cfg.HistoryCandles = def.HistoryCandles
	}
	if cfg.WindowCapacity <= 0 {
		cfg.WindowCapacity = def.WindowCapacity
	}
	if cfg.PreClose <= 0 {
		cfg.PreClose = def.PreClose
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &Manager{
		cfg:        cfg,
		feed:       feed,
		agg:        agg,
		engine:     engine,
		events:     events,
		sessions:   make(map[string]*state),
		byChat:     make(map[string]string),
		windowRefs: make(map[string]int),
		now:        time.Now,
	}
}

func windowKey(symbol string, tf int) string {
	return fmt.Sprintf("%s|%d", symbol, tf)
}

// StartSession validates the request, seeds the candle window from feed
// history, subscribes to live ticks, and arms the pre-close scheduler.
// One active session per session ID and per chat.
func (m *Manager) StartSession(ctx context.Context, id, chatID, symbol string, timeframe int, opts *model.SessionOptions) (model.Session, error) {
	asset, err := catalog.Lookup(symbol)
	if err != nil {
		return model.Session{}, err
	}
	if err := catalog.ValidateTimeframe(timeframe); err != nil {
		return model.Session{}, err
	}
	if !catalog.IsTradable(asset, m.now()) {
		return model.Session{}, fmt.Errorf("%w: %s", ErrMarketClosed, symbol)
	}

	m.mu.Lock()
	if _, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return model.Session{}, fmt.Errorf("%w: id %s", ErrSessionConflict, id)
	}
	if prev, ok := m.byChat[chatID]; ok {
		m.mu.Unlock()
		return model.Session{}, fmt.Errorf("%w: chat %s already runs session %s", ErrSessionConflict, chatID, prev)
	}
	// Reserve the slots before the feed round-trips so a concurrent
	// duplicate start fails fast.
	m.sessions[id] = nil
	m.byChat[chatID] = id
	m.mu.Unlock()

	fail := func(err error) (model.Session, error) {
		m.mu.Lock()
		delete(m.sessions, id)
		delete(m.byChat, chatID)
		m.mu.Unlock()
		return model.Session{}, err
	}

	history, err := m.feed.History(ctx, symbol, timeframe, m.cfg.HistoryCandles)
	if err != nil {
		return fail(fmt.Errorf("seed history for %s/%ds: %w", symbol, timeframe, err))
	}
	m.agg.Initialize(symbol, timeframe, history, m.cfg.WindowCapacity)

	if err := m.feed.SubscribeTicks(symbol, id, func(t model.Tick) {
		m.agg.ProcessTick(t, timeframe)
	}); err != nil {
		return fail(fmt.Errorf("subscribe %s: %w", symbol, err))
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	st := &state{
		sess: model.Session{
			ID:        id,
			ChatID:    chatID,
			Symbol:    symbol,
			Timeframe: timeframe,
			Status:    model.SessionActive,
			StartedAt: m.now().UTC(),
			Options:   opts,
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.sessions[id] = st
	m.windowRefs[windowKey(symbol, timeframe)]++
	m.mu.Unlock()

	go m.runScheduler(sessCtx, st)

	log.Printf("[session] started %s: %s/%ds for chat %s (%d history candles)",
		id, symbol, timeframe, chatID, len(history))
	if m.events != nil {
		m.events.PublishSession(bus.SessionEvent{Type: bus.SessionStarted, Session: st.sess})
	}
	return st.sess, nil
}

// StopSession cancels the scheduler, drops the tick subscription, and
// evicts the candle window when no other session shares it.
func (m *Manager) StopSession(id string) (model.Session, error) {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok || st == nil {
		m.mu.Unlock()
		return model.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	delete(m.byChat, st.sess.ChatID)

	key := windowKey(st.sess.Symbol, st.sess.Timeframe)
	m.windowRefs[key]--
	lastRef := m.windowRefs[key] <= 0
	if lastRef {
		delete(m.windowRefs, key)
	}
	st.sess.Status = model.SessionStopped
	stopped := st.sess
	m.mu.Unlock()

	st.cancel()
	if err := m.feed.UnsubscribeTicks(stopped.Symbol, id); err != nil {
		log.Printf("[session] unsubscribe %s/%s: %v", stopped.Symbol, id, err)
	}
	if lastRef {
		m.agg.Cleanup(stopped.Symbol, stopped.Timeframe)
	}

	log.Printf("[session] stopped %s: %s/%ds", id, stopped.Symbol, stopped.Timeframe)
	if m.events != nil {
		m.events.PublishSession(bus.SessionEvent{Type: bus.SessionStopped, Session: stopped})
	}
	return stopped, nil
}

// GetSession returns an active session by ID.
func (m *Manager) GetSession(id string) (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[id]
	if !ok || st == nil {
		return model.Session{}, false
	}
	return st.sess, true
}

// GetSessionByChatID returns the chat's active session, if any.
func (m *Manager) GetSessionByChatID(chatID string) (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byChat[chatID]
	if !ok {
		return model.Session{}, false
	}
	st := m.sessions[id]
	if st == nil {
		return model.Session{}, false
	}
	return st.sess, true
}

// ActiveSessionsCount returns the number of running sessions.
func (m *Manager) ActiveSessionsCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, st := range m.sessions {
		if st != nil {
			n++
		}
	}
	return n
}

// SessionCandles returns the most recent n closed candles of the
// session's window, oldest first.
func (m *Manager) SessionCandles(id string, n int) ([]model.Candle, error) {
	m.mu.RLock()
	st, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || st == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	closed := m.agg.ClosedCandles(st.sess.Symbol, st.sess.Timeframe)
	if n > 0 && len(closed) > n {
		closed = closed[len(closed)-n:]
	}
	return closed, nil
}

// DebugSignal generates a signal from the session's current window
// immediately, bypassing the scheduler and its per-candle dedupe. The
// result is returned but not published.
func (m *Manager) DebugSignal(id string) (model.SignalResult, error) {
	m.mu.RLock()
	st, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || st == nil {
		return model.SignalResult{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return m.generate(st), nil
}

// DebugSignalFor computes a signal for any valid (symbol, timeframe)
// without a session. An existing window (shared with active sessions) is
// snapshotted in place; otherwise history is fetched ad hoc and discarded
// afterwards, leaving no window behind.
func (m *Manager) DebugSignalFor(ctx context.Context, symbol string, timeframe int) (model.SignalResult, error) {
	if _, err := catalog.Lookup(symbol); err != nil {
		return model.SignalResult{}, err
	}
	if err := catalog.ValidateTimeframe(timeframe); err != nil {
		return model.SignalResult{}, err
	}

	closed := m.agg.ClosedCandles(symbol, timeframe)
	forming := m.agg.FormingCandle(symbol, timeframe)
	ticks := m.agg.RecentTickPrices(symbol, timeframe, tickTrail)
	if len(closed) == 0 {
		history, err := m.feed.History(ctx, symbol, timeframe, m.cfg.HistoryCandles)
		if err != nil {
			return model.SignalResult{}, fmt.Errorf("debug history for %s/%ds: %w", symbol, timeframe, err)
		}
		closed = history
	}

	var closeTime int64
	if forming != nil {
		closeTime = forming.CloseTime()
	} else if len(closed) > 0 {
		closeTime = closed[len(closed)-1].CloseTime()
	}

	return m.engine.Generate(signal.Request{
		Symbol:          symbol,
		Timeframe:       timeframe,
		Closed:          closed,
		Forming:         forming,
		RecentTicks:     ticks,
		CandleCloseTime: closeTime,
		Now:             m.now(),
	}), nil
}

// HandleReconnect re-seeds every active window from fresh feed history.
// Called after the feed client re-establishes its connection; the feed
// restores tick subscriptions itself, the manager only repairs the gap
// in the candle windows.
func (m *Manager) HandleReconnect(ctx context.Context) {
	m.mu.RLock()
	type win struct {
		symbol string
		tf     int
	}
	seen := make(map[win]bool)
	var wins []win
	for _, st := range m.sessions {
		if st == nil {
			continue
		}
		w := win{st.sess.Symbol, st.sess.Timeframe}
		if !seen[w] {
			seen[w] = true
			wins = append(wins, w)
		}
	}
	m.mu.RUnlock()

	for _, w := range wins {
		history, err := m.feed.History(ctx, w.symbol, w.tf, m.cfg.HistoryCandles)
		if err != nil {
			log.Printf("[session] reconnect re-seed %s/%ds failed: %v", w.symbol, w.tf, err)
			continue
		}
		m.agg.Initialize(w.symbol, w.tf, history, m.cfg.WindowCapacity)
		log.Printf("[session] reconnect re-seeded %s/%ds with %d candles", w.symbol, w.tf, len(history))
	}
}

// StopAll stops every active session. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id, st := range m.sessions {
		if st != nil {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.StopSession(id)
	}
}

// generate snapshots the session's window and runs the signal engine.
func (m *Manager) generate(st *state) model.SignalResult {
	symbol, tf := st.sess.Symbol, st.sess.Timeframe
	closed := m.agg.ClosedCandles(symbol, tf)
	forming := m.agg.FormingCandle(symbol, tf)
	ticks := m.agg.RecentTickPrices(symbol, tf, tickTrail)

	var closeTime int64
	if forming != nil {
		closeTime = forming.CloseTime()
	} else if len(closed) > 0 {
		closeTime = closed[len(closed)-1].CloseTime()
	}

	start := time.Now()
	res := m.engine.Generate(signal.Request{
		SessionID:       st.sess.ID,
		Symbol:          symbol,
		Timeframe:       tf,
		Closed:          closed,
		Forming:         forming,
		RecentTicks:     ticks,
		CandleCloseTime: closeTime,
		Options:         st.sess.Options,
		Now:             m.now(),
	})
	if m.OnCompute != nil {
		m.OnCompute(time.Since(start))
	}
	return res
}
