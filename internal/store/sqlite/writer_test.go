package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"signal-systemv1/internal/model"
)

func tempWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signals.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, path
}

func sampleSignal(sessionID string, closeTS int64, dir model.Decision) model.SignalResult {
	return model.SignalResult{
		SessionID:       sessionID,
		Symbol:          "R_50",
		Timeframe:       60,
		Timestamp:       time.Unix(closeTS-4, 0).UTC(),
		CandleCloseTime: closeTS,
		Direction:       dir,
		Confidence:      72,
		PUp:             0.72,
		PDown:           0.28,
	}
}

func TestWriteAndReadBack(t *testing.T) {
	w, path := tempWriter(t)
	ctx := context.Background()

	for i, dir := range []model.Decision{model.DecisionCall, model.DecisionCall, model.DecisionPut} {
		sig := sampleSignal("s1", int64(600060+i*60), dir)
		if err := w.WriteSignal(ctx, sig); err != nil {
			t.Fatalf("write signal %d: %v", i, err)
		}
	}
	// Other sessions must not leak into s1's log.
	if err := w.WriteSignal(ctx, sampleSignal("s2", 600060, model.DecisionNoTrade)); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	sigs, err := r.RecentSignals("s1", 10)
	if err != nil {
		t.Fatalf("recent signals: %v", err)
	}
	if len(sigs) != 3 {
		t.Fatalf("signals = %d, want 3", len(sigs))
	}
	// Newest first.
	if sigs[0].CandleCloseTime != 600180 || sigs[0].Direction != model.DecisionPut {
		t.Errorf("newest = close %d dir %s", sigs[0].CandleCloseTime, sigs[0].Direction)
	}

	counts, err := r.DirectionCounts("s1")
	if err != nil {
		t.Fatalf("direction counts: %v", err)
	}
	if counts["CALL"] != 2 || counts["PUT"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestWriteSignal_UpsertsPerCandle(t *testing.T) {
	w, path := tempWriter(t)
	ctx := context.Background()

	first := sampleSignal("s1", 600060, model.DecisionCall)
	second := sampleSignal("s1", 600060, model.DecisionPut)
	if err := w.WriteSignal(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSignal(ctx, second); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	sigs, err := r.RecentSignals("s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 1 {
		t.Fatalf("after upsert: %d signals, want 1", len(sigs))
	}
	if sigs[0].Direction != model.DecisionPut {
		t.Errorf("after upsert: dir %v, want PUT", sigs[0].Direction)
	}
}

func TestRunBatchesAndFlushesOnClose(t *testing.T) {
	w, path := tempWriter(t)

	commits := 0
	w.OnCommit = func(time.Duration) { commits++ }

	sigCh := make(chan model.SignalResult, 8)
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		w.Run(ctx, sigCh)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		sigCh <- sampleSignal("s1", int64(600060+i*60), model.DecisionCall)
	}
	close(sigCh)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not drain and exit")
	}
	cancel()

	if commits == 0 {
		t.Error("no batch commits observed")
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	sigs, err := r.RecentSignals("s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 5 {
		t.Errorf("persisted = %d, want 5", len(sigs))
	}
}

func TestWriteSession(t *testing.T) {
	w, _ := tempWriter(t)
	ctx := context.Background()

	sess := model.Session{
		ID: "s1", ChatID: "c1", Symbol: "R_50", Timeframe: 60,
		Status: model.SessionActive, StartedAt: time.Unix(600000, 0).UTC(),
	}
	if err := w.WriteSession(ctx, sess); err != nil {
		t.Fatalf("write active: %v", err)
	}

	sess.Status = model.SessionStopped
	sess.LastSignalAt = time.Unix(600056, 0).UTC()
	if err := w.WriteSession(ctx, sess); err != nil {
		t.Fatalf("write stopped: %v", err)
	}

	var status string
	var lastSignal int64
	err := w.DB().QueryRow(`SELECT status, last_signal_at FROM sessions WHERE id = ?`, "s1").
		Scan(&status, &lastSignal)
	if err != nil {
		t.Fatalf("query session: %v", err)
	}
	if status != "stopped" || lastSignal != 600056 {
		t.Errorf("session row = %s/%d", status, lastSignal)
	}
}
