package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// WebhookNotifier POSTs signal alerts to an HTTP endpoint as JSON. The
// payload carries the decision fields directly so consumers can act on
// direction and confidence without parsing the human-readable message.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given endpoint.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// webhookPayload is the wire shape of one delivered alert.
type webhookPayload struct {
	Level      string `json:"level"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Symbol     string `json:"symbol,omitempty"`
	Timeframe  int    `json:"timeframe,omitempty"` // seconds
	Direction  string `json:"direction,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	Ts         string `json:"ts"`
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Level:      string(alert.Level),
		Title:      alert.Title,
		Message:    alert.Message,
		Symbol:     alert.Symbol,
		Timeframe:  alert.Timeframe,
		Direction:  alert.Direction,
		Confidence: alert.Confidence,
		Ts:         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[webhook] sent alert to %s: %s", w.url, alert.Title)
	return nil
}
