package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"signal-systemv1/internal/model"
)

// Dispatcher drains the signal stream and fans alerts out to every
// configured backend. Low-confidence NO_TRADE results are dropped as
// noise; volatility overrides are delivered as warnings so subscribers
// know why the engine went quiet.
type Dispatcher struct {
	notifiers []Notifier

	// ResolveChat maps a session ID to its subscriber chat. Nil leaves
	// alerts on each backend's default destination.
	ResolveChat func(sessionID string) (string, bool)

	// SendTimeout bounds each backend delivery. A signal is worthless
	// once its candle has closed, so this stays inside the pre-close
	// lead. Zero means 10s.
	SendTimeout time.Duration
}

// NewDispatcher creates a dispatcher over the given backends.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Run consumes signals until the channel closes or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, signals <-chan model.SignalResult) {
	timeout := d.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			alert, deliver := FormatSignal(sig)
			if !deliver {
				continue
			}
			if d.ResolveChat != nil {
				if chat, ok := d.ResolveChat(sig.SessionID); ok {
					alert.ChatID = chat
				}
			}
			for _, n := range d.notifiers {
				sendCtx, cancel := context.WithTimeout(ctx, timeout)
				if err := n.Send(sendCtx, alert); err != nil {
					log.Printf("[notify] delivery failed: %v", err)
				}
				cancel()
			}
		}
	}
}

// FormatSignal renders one signal as an alert. The second return is
// false when the signal is not worth delivering.
func FormatSignal(sig model.SignalResult) (Alert, bool) {
	tf := formatTimeframe(sig.Timeframe)

	if sig.VolatilityOverride {
		return Alert{
			Level: AlertWarning,
			Title: fmt.Sprintf("%s %s: standing aside", sig.Symbol, tf),
			Message: fmt.Sprintf("Market too volatile to trade (%s). Candle closes at %s.",
				sig.VolatilityReason, closeClock(sig.CandleCloseTime)),
			Symbol:    sig.Symbol,
			Timeframe: sig.Timeframe,
			Direction: string(sig.Direction),
		}, true
	}

	if sig.Direction == model.DecisionNoTrade {
		return Alert{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Confidence %d%% (up %.0f%% / down %.0f%%)\n", sig.Confidence, sig.PUp*100, sig.PDown*100)
	fmt.Fprintf(&b, "Candle closes at %s\n", closeClock(sig.CandleCloseTime))
	if sig.Psychology.Bias != "" && sig.Psychology.Bias != model.BiasNeutral {
		fmt.Fprintf(&b, "Candle bias: %s\n", sig.Psychology.Bias)
	}
	if top := topVotes(sig.Votes, sig.Direction, 3); len(top) > 0 {
		fmt.Fprintf(&b, "Drivers: %s", strings.Join(top, ", "))
	}

	return Alert{
		Level:      AlertInfo,
		Title:      fmt.Sprintf("%s %s %s", sig.Symbol, tf, sig.Direction),
		Message:    b.String(),
		Symbol:     sig.Symbol,
		Timeframe:  sig.Timeframe,
		Direction:  string(sig.Direction),
		Confidence: sig.Confidence,
	}, true
}

// topVotes lists the n heaviest votes agreeing with the decision.
func topVotes(votes []model.Vote, dir model.Decision, n int) []string {
	want := model.VoteUp
	if dir == model.DecisionPut {
		want = model.VoteDown
	}
	agreeing := make([]model.Vote, 0, len(votes))
	for _, v := range votes {
		if v.Direction == want {
			agreeing = append(agreeing, v)
		}
	}
	for i := 0; i < len(agreeing) && i < n; i++ {
		max := i
		for j := i + 1; j < len(agreeing); j++ {
			if agreeing[j].Weight > agreeing[max].Weight {
				max = j
			}
		}
		agreeing[i], agreeing[max] = agreeing[max], agreeing[i]
	}
	if len(agreeing) > n {
		agreeing = agreeing[:n]
	}
	out := make([]string, len(agreeing))
	for i, v := range agreeing {
		out[i] = v.Indicator
	}
	return out
}

func formatTimeframe(seconds int) string {
	if seconds < 3600 {
		return fmt.Sprintf("%dm", seconds/60)
	}
	return fmt.Sprintf("%dh", seconds/3600)
}

func closeClock(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("15:04:05")
}
