package bus

import (
	"testing"

	"signal-systemv1/internal/model"
)

func TestPublishSignalFanOut(t *testing.T) {
	b := New(4)
	a := b.SubscribeSignals()
	c := b.SubscribeSignals()

	b.PublishSignal(model.SignalResult{SessionID: "s1", Direction: model.DecisionCall})

	for _, ch := range []<-chan model.SignalResult{a, c} {
		select {
		case got := <-ch:
			if got.SessionID != "s1" {
				t.Errorf("session id = %q", got.SessionID)
			}
		default:
			t.Fatal("subscriber did not receive the signal")
		}
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	b := New(1)
	slow := b.SubscribeSignals()

	dropped := 0
	b.OnDrop = func(kind string) {
		if kind == "signal" {
			dropped++
		}
	}

	b.PublishSignal(model.SignalResult{SessionID: "a"})
	b.PublishSignal(model.SignalResult{SessionID: "b"}) // buffer full, dropped

	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if got := <-slow; got.SessionID != "a" {
		t.Errorf("first event = %q, want a", got.SessionID)
	}
}

func TestSessionEventsAndClose(t *testing.T) {
	b := New(4)
	ch := b.SubscribeSessions()

	b.PublishSession(SessionEvent{Type: SessionStarted, Session: model.Session{ID: "s1"}})
	b.Close()
	b.PublishSession(SessionEvent{Type: SessionStopped, Session: model.Session{ID: "s1"}}) // no-op

	got, ok := <-ch
	if !ok || got.Type != SessionStarted {
		t.Fatalf("first event = %+v ok=%v", got, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
}
