// Package api exposes the session lifecycle and signal log over HTTP.
// It is the control surface for operators and bot frontends; signal
// delivery itself happens through the notification sinks and redis.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signal-systemv1/internal/catalog"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/session"
)

// SessionManager is the slice of the session manager the API needs.
type SessionManager interface {
	StartSession(ctx context.Context, id, chatID, symbol string, timeframe int, opts *model.SessionOptions) (model.Session, error)
	StopSession(id string) (model.Session, error)
	GetSessionByChatID(chatID string) (model.Session, bool)
	ActiveSessionsCount() int
	SessionCandles(id string, n int) ([]model.Candle, error)
	DebugSignal(id string) (model.SignalResult, error)
	DebugSignalFor(ctx context.Context, symbol string, timeframe int) (model.SignalResult, error)
}

// SignalReader serves the persisted signal log. May be nil when the
// store is disabled; the log endpoints then answer 503.
type SignalReader interface {
	RecentSignals(sessionID string, limit int) ([]model.SignalResult, error)
	DirectionCounts(sessionID string) (map[string]int, error)
}

// Handler routes the session API.
type Handler struct {
	mgr          SessionManager
	reader       SignalReader
	chartCandles int // default n for the candles endpoint
}

// NewRouter builds the HTTP mux over the session manager and the
// optional signal log reader. chartCandles is the default window size
// for GET /sessions/{id}/candles; 0 means 100.
func NewRouter(mgr SessionManager, reader SignalReader, chartCandles int) *http.ServeMux {
	if chartCandles <= 0 {
		chartCandles = 100
	}
	h := &Handler{mgr: mgr, reader: reader, chartCandles: chartCandles}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", h.health)
	mux.HandleFunc("/api/v1/assets", h.assets)
	mux.HandleFunc("/api/v1/timeframes", h.timeframes)
	mux.HandleFunc("/api/v1/debug", h.debug)
	mux.HandleFunc("/api/v1/sessions", h.sessions)
	mux.HandleFunc("/api/v1/sessions/", h.sessionByID)
	return mux
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": h.mgr.ActiveSessionsCount(),
	})
}

func (h *Handler) assets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, catalog.Assets())
}

func (h *Handler) timeframes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, catalog.Timeframes())
}

// debug computes a signal for any (symbol, timeframe) on demand, with
// or without a session on that pair. GET /debug?symbol=R_50&timeframe=60.
func (h *Handler) debug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	timeframe := queryInt(r, "timeframe", 0)
	if timeframe <= 0 {
		writeError(w, http.StatusBadRequest, "timeframe is required")
		return
	}
	res, err := h.mgr.DebugSignalFor(r.Context(), symbol, timeframe)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// startRequest is the POST /sessions body. ID is optional.
type startRequest struct {
	ID        string                `json:"id,omitempty"`
	ChatID    string                `json:"chat_id"`
	Symbol    string                `json:"symbol"`
	Timeframe int                   `json:"timeframe"`
	Options   *model.SessionOptions `json:"options,omitempty"`
}

func (h *Handler) sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		chatID := r.URL.Query().Get("chat_id")
		if chatID == "" {
			writeJSON(w, http.StatusOK, map[string]any{"active_sessions": h.mgr.ActiveSessionsCount()})
			return
		}
		sess, ok := h.mgr.GetSessionByChatID(chatID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no active session for chat %s", chatID))
			return
		}
		writeJSON(w, http.StatusOK, sess)

	case http.MethodPost:
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ChatID == "" || req.Symbol == "" || req.Timeframe <= 0 {
			writeError(w, http.StatusBadRequest, "chat_id, symbol and timeframe are required")
			return
		}
		if req.ID == "" {
			req.ID = fmt.Sprintf("sess-%d", time.Now().UnixNano())
		}
		sess, err := h.mgr.StartSession(r.Context(), req.ID, req.ChatID, req.Symbol, req.Timeframe, req.Options)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		log.Printf("[api] session %s started via HTTP for chat %s", sess.ID, sess.ChatID)
		writeJSON(w, http.StatusCreated, sess)

	default:
		methodNotAllowed(w)
	}
}

// sessionByID handles /sessions/{id} and its sub-resources:
// DELETE /sessions/{id}, GET /sessions/{id}/signals, /candles, /stats,
// POST /sessions/{id}/debug.
func (h *Handler) sessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id missing")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		sess, err := h.mgr.StopSession(id)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		log.Printf("[api] session %s stopped via HTTP", id)
		writeJSON(w, http.StatusOK, sess)

	case sub == "signals" && r.Method == http.MethodGet:
		if h.reader == nil {
			writeError(w, http.StatusServiceUnavailable, "signal log disabled")
			return
		}
		sigs, err := h.reader.RecentSignals(id, queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sigs)

	case sub == "stats" && r.Method == http.MethodGet:
		if h.reader == nil {
			writeError(w, http.StatusServiceUnavailable, "signal log disabled")
			return
		}
		counts, err := h.reader.DirectionCounts(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, counts)

	case sub == "candles" && r.Method == http.MethodGet:
		candles, err := h.mgr.SessionCandles(id, queryInt(r, "n", h.chartCandles))
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, candles)

	case sub == "debug" && r.Method == http.MethodPost:
		res, err := h.mgr.DebugSignal(id)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	default:
		methodNotAllowed(w)
	}
}

// writeManagerError maps session manager errors onto HTTP statuses.
func writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrSessionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrUnknownSymbol),
		errors.Is(err, catalog.ErrUnsupportedTimeframe),
		errors.Is(err, session.ErrMarketClosed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
