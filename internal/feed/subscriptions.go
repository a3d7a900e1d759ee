package feed

import (
	"sync"

	"signal-systemv1/internal/model"
)

// subTable refcounts tick subscriptions per symbol. Several sessions may
// watch the same symbol; the wire-level subscribe goes out once, when
// the first subscriber arrives, and the unsubscribe when the last leaves.
type subTable struct {
	mu   sync.RWMutex
	subs map[string]map[string]func(model.Tick) // symbol -> subscriberID -> handler
}

func newSubTable() *subTable {
	return &subTable{subs: make(map[string]map[string]func(model.Tick))}
}

// add registers a handler and reports whether the symbol needs a
// wire-level subscribe.
func (t *subTable) add(symbol, subscriberID string, handler func(model.Tick)) (first bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[symbol]
	if !ok {
		m = make(map[string]func(model.Tick))
		t.subs[symbol] = m
	}
	m[subscriberID] = handler
	return !ok
}

// remove drops a handler and reports whether the symbol needs a
// wire-level unsubscribe.
func (t *subTable) remove(symbol, subscriberID string) (last bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[symbol]
	if !ok {
		return false
	}
	delete(m, subscriberID)
	if len(m) == 0 {
		delete(t.subs, symbol)
		return true
	}
	return false
}

// dispatch fans a tick out to every handler watching its symbol.
func (t *subTable) dispatch(tick model.Tick) {
	t.mu.RLock()
	handlers := make([]func(model.Tick), 0, len(t.subs[tick.Symbol]))
	for _, h := range t.subs[tick.Symbol] {
		handlers = append(handlers, h)
	}
	t.mu.RUnlock()
	for _, h := range handlers {
		h(tick)
	}
}

// symbols returns every symbol with at least one subscriber.
func (t *subTable) symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.subs))
	for s := range t.subs {
		out = append(out, s)
	}
	return out
}
