// Package sqlite persists the signal and session log. One writer owns
// the database; signal inserts are batched in transactions the way a
// hot path wants, session transitions are written through directly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"signal-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 50
	defaultFlushDelay = 500 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

var (
	_ model.SignalWriter  = (*Writer)(nil)
	_ model.SessionWriter = (*Writer)(nil)
)

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db *sql.DB

	// OnCommit is called with the latency of each batch commit.
	OnCommit func(d time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database in WAL mode and ensures the schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer discipline
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			session_id          TEXT    NOT NULL,
			symbol              TEXT    NOT NULL,
			timeframe           INTEGER NOT NULL,
			candle_close_ts     INTEGER NOT NULL,
			emitted_at          INTEGER NOT NULL,
			direction           TEXT    NOT NULL,
			confidence          INTEGER NOT NULL,
			p_up                REAL    NOT NULL,
			volatility_override INTEGER NOT NULL,
			payload             TEXT    NOT NULL,
			PRIMARY KEY (session_id, candle_close_ts)
		);

		CREATE INDEX IF NOT EXISTS idx_signals_symbol_tf
			ON signals (symbol, timeframe, candle_close_ts);

		CREATE TABLE IF NOT EXISTS sessions (
			id             TEXT PRIMARY KEY,
			chat_id        TEXT    NOT NULL,
			symbol         TEXT    NOT NULL,
			timeframe      INTEGER NOT NULL,
			status         TEXT    NOT NULL,
			started_at     INTEGER NOT NULL,
			last_signal_at INTEGER
		);
	`)
	return err
}

// Run reads signals from sigCh and inserts them in batched transactions.
// Flushes every batchSize signals OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or sigCh is closed.
func (w *Writer) Run(ctx context.Context, sigCh <-chan model.SignalResult) {
	batch := make([]model.SignalResult, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else if w.OnCommit != nil {
			w.OnCommit(time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case sig, ok := <-sigCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, sig)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of signals in a single transaction.
func (w *Writer) insertBatch(sigs []model.SignalResult) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO signals
			(session_id, symbol, timeframe, candle_close_ts, emitted_at,
			 direction, confidence, p_up, volatility_override, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range sigs {
		s := &sigs[i]
		override := 0
		if s.VolatilityOverride {
			override = 1
		}
		_, err := stmt.Exec(s.SessionID, s.Symbol, s.Timeframe, s.CandleCloseTime,
			s.Timestamp.Unix(), string(s.Direction), s.Confidence, s.PUp, override, string(s.JSON()))
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// WriteSignal records one signal immediately, outside the batch path.
func (w *Writer) WriteSignal(ctx context.Context, sig model.SignalResult) error {
	return w.insertBatch([]model.SignalResult{sig})
}

// WriteSession upserts a session lifecycle record.
func (w *Writer) WriteSession(ctx context.Context, sess model.Session) error {
	var lastSignal interface{}
	if !sess.LastSignalAt.IsZero() {
		lastSignal = sess.LastSignalAt.Unix()
	}
	_, err := w.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(id, chat_id, symbol, timeframe, status, started_at, last_signal_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.ChatID, sess.Symbol, sess.Timeframe, string(sess.Status),
		sess.StartedAt.Unix(), lastSignal)
	if err != nil {
		return fmt.Errorf("sqlite session upsert: %w", err)
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
