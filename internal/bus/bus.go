// Package bus broadcasts engine events to in-process consumers (stores,
// notifiers, the API layer). Publishing never blocks: a full subscriber
// channel drops the event for that subscriber only.
package bus

import (
	"log"
	"sync"

	"signal-systemv1/internal/model"
)

// Session event types.
const (
	SessionStarted = "started"
	SessionStopped = "stopped"
)

// SessionEvent announces a session lifecycle change.
type SessionEvent struct {
	Type    string        `json:"type"`
	Session model.Session `json:"session"`
}

// Bus fans out signal and session events to N subscriber channels.
type Bus struct {
	mu          sync.RWMutex
	signalSubs  []chan model.SignalResult
	sessionSubs []chan SessionEvent
	bufSize     int
	closed      bool

	// OnDrop is called with "signal" or "session" when a slow subscriber
	// loses an event.
	OnDrop func(kind string)
}

// New creates a Bus with the given buffer size per subscriber channel.
func New(bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Bus{bufSize: bufSize}
}

// SubscribeSignals returns a new channel receiving every published signal.
func (b *Bus) SubscribeSignals() <-chan model.SignalResult {
	ch := make(chan model.SignalResult, b.bufSize)
	b.mu.Lock()
	b.signalSubs = append(b.signalSubs, ch)
	b.mu.Unlock()
	return ch
}

// SubscribeSessions returns a new channel receiving session lifecycle events.
func (b *Bus) SubscribeSessions() <-chan SessionEvent {
	ch := make(chan SessionEvent, b.bufSize)
	b.mu.Lock()
	b.sessionSubs = append(b.sessionSubs, ch)
	b.mu.Unlock()
	return ch
}

// PublishSignal broadcasts a signal to all subscribers without blocking.
func (b *Bus) PublishSignal(sig model.SignalResult) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for i, ch := range b.signalSubs {
		select {
		case ch <- sig:
		default:
			if b.OnDrop != nil {
				b.OnDrop("signal")
			} else {
				log.Printf("[bus] signal subscriber %d full, dropping %s %s", i, sig.Symbol, sig.Direction)
			}
		}
	}
}

// PublishSession broadcasts a session lifecycle event without blocking.
func (b *Bus) PublishSession(ev SessionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for i, ch := range b.sessionSubs {
		select {
		case ch <- ev:
		default:
			if b.OnDrop != nil {
				b.OnDrop("session")
			} else {
				log.Printf("[bus] session subscriber %d full, dropping %s %s", i, ev.Session.ID, ev.Type)
			}
		}
	}
}

// Close closes every subscriber channel. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.signalSubs {
		close(ch)
	}
	for _, ch := range b.sessionSubs {
		close(ch)
	}
}
