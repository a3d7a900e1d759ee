// Package notification delivers emitted signals and engine alerts to
// external channels (Telegram, webhooks).
package notification

import (
	"context"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. ChatID targets a specific
// recipient where the backend supports it; empty means the backend's
// default destination. The signal fields are set when the alert
// originates from a signal emission so structured backends can forward
// the decision without parsing the message text.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	ChatID  string     `json:"chat_id,omitempty"`

	Symbol     string `json:"symbol,omitempty"`
	Timeframe  int    `json:"timeframe,omitempty"` // seconds
	Direction  string `json:"direction,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}
