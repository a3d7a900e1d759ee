package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the signal pipeline from concrete sinks
// (Redis, SQLite, notification backends). Emissions are best-effort:
// the core never blocks on a sink and never fails because one is absent.

// SignalWriter persists emitted signal results.
type SignalWriter interface {
	// WriteSignal records one emitted signal. Implementations may batch.
	WriteSignal(ctx context.Context, sig SignalResult) error

	// Close releases underlying resources.
	Close() error
}

// SessionWriter persists session lifecycle records.
type SessionWriter interface {
	// WriteSession records a session create/stop transition.
	WriteSession(ctx context.Context, sess Session) error

	// Close releases underlying resources.
	Close() error
}

// SignalPublisher publishes emitted signals to a live fan-out channel
// (e.g. Redis PubSub) for external consumers.
type SignalPublisher interface {
	// PublishSignal publishes one signal. Failures are logged, not fatal.
	PublishSignal(ctx context.Context, sig SignalResult) error

	// Close releases underlying resources.
	Close() error
}
