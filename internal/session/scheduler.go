package session

import (
	"context"
	"log"
	"time"

	"signal-systemv1/internal/model"
)

// plan decides the scheduler's next move for one forming-candle snapshot:
// emit now, or sleep for the returned duration and look again.
//
// Rules: no forming candle yet means poll; a candle already signalled
// means wait out its close; otherwise fire at closeTime - preClose,
// immediately if that moment has already passed (late arm).
func plan(forming *model.Candle, lastEmitted int64, now time.Time, preClose, poll time.Duration) (emit bool, wait time.Duration) {
	if forming == nil {
		return false, poll
	}

	closeAt := time.Unix(forming.CloseTime(), 0)
	if forming.Start == lastEmitted {
		if d := closeAt.Sub(now); d > 0 {
			return false, d
		}
		return false, poll
	}

	fireAt := closeAt.Add(-preClose)
	if d := fireAt.Sub(now); d > 0 {
		return false, d
	}
	return true, 0
}

// runScheduler is the per-session emit loop. One signal per candle,
// preClose before the candle closes, until the session context ends.
func (m *Manager) runScheduler(ctx context.Context, st *state) {
	for {
		forming := m.agg.FormingCandle(st.sess.Symbol, st.sess.Timeframe)
		emit, wait := plan(forming, st.lastEmitted, m.now(), m.cfg.PreClose, m.cfg.PollInterval)

		if emit {
			m.emit(st, forming)
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// emit generates and publishes one signal for the forming candle, then
// marks the candle as signalled so the loop never double-fires on it.
func (m *Manager) emit(st *state, forming *model.Candle) {
	res := m.generate(st)
	st.lastEmitted = forming.Start

	m.mu.Lock()
	st.sess.LastSignalAt = res.Timestamp
	m.mu.Unlock()

	log.Printf("[session] %s signal %s conf=%d %s/%ds candle=%d",
		st.sess.ID, res.Direction, res.Confidence, res.Symbol, res.Timeframe, res.CandleCloseTime)

	if m.events != nil {
		m.events.PublishSignal(res)
	}
	if m.OnSignal != nil {
		m.OnSignal(res)
	}
}
