package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"signal-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the signal log for review and
// the session API.
type Reader struct {
	db *sql.DB
}

// NewReader opens the database read-only.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open readonly: %w", err)
	}
	return &Reader{db: db}, nil
}

// RecentSignals returns the latest limit signals of a session, newest
// first, decoded from the stored payload.
func (r *Reader) RecentSignals(sessionID string, limit int) ([]model.SignalResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT payload FROM signals
		WHERE session_id = ?
		ORDER BY candle_close_ts DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SignalResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sig model.SignalResult
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			continue // tolerate a corrupt row rather than fail the query
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// DirectionCounts aggregates a session's emitted decisions.
func (r *Reader) DirectionCounts(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT direction, COUNT(*) FROM signals
		WHERE session_id = ?
		GROUP BY direction
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var dir string
		var n int
		if err := rows.Scan(&dir, &n); err != nil {
			return nil, err
		}
		out[dir] = n
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}
