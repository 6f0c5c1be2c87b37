package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	gameapp "boardquest/internal/app/game"
	"boardquest/internal/app/ledger"
	"boardquest/internal/app/seat"
	domain "boardquest/internal/domain/game"
)

// SeatParser verifies the bearer token a human player acts with.
type SeatParser interface {
	Parse(token string) (seat.Seat, error)
}

// TotalsReader serves ledger totals. It is nil when the ledger is down.
type TotalsReader interface {
	Totals(ctx context.Context, playerID uuid.UUID) (ledger.Totals, error)
}

type Handler struct {
	logger      zerolog.Logger
	games       *gameapp.Manager
	seats       SeatParser
	totals      TotalsReader
	ready       func(context.Context) error
	corsOrigin  string
	maxBodySize int64
}

type contextKey string

const seatContextKey contextKey = "seat"

func NewHandler(logger zerolog.Logger, games *gameapp.Manager, seats SeatParser, totals TotalsReader, ready func(context.Context) error, corsOrigin string, maxBodySize int64) *Handler {
	return &Handler{
		logger:      logger,
		games:       games,
		seats:       seats,
		totals:      totals,
		ready:       ready,
		corsOrigin:  corsOrigin,
		maxBodySize: maxBodySize,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.cors)

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.readiness)

	r.Route("/v1", func(v1 chi.Router) {
		// Websocket connections outlive the request timeout.
		v1.Get("/games/{gameID}/ws", h.gameWS)

		v1.Group(func(rest chi.Router) {
			rest.Use(middleware.Timeout(20 * time.Second))
			rest.Post("/games", h.createGame)
			rest.Get("/games/{gameID}", h.getGame)
			rest.Delete("/games/{gameID}", h.deleteGame)
			rest.Get("/ledger/{playerID}", h.ledgerTotals)

			rest.Group(func(seated chi.Router) {
				seated.Use(h.seatMiddleware)
				seated.Post("/games/{gameID}/actions", h.dispatch)
				seated.Post("/games/{gameID}/restart", h.restart)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "sessions": h.games.Len()})
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req gameapp.NewGameConfig
	if !h.decodeBody(w, r, &req) {
		return
	}
	s, seats, err := h.games.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, gameapp.ErrInvalidPlayers):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		case errors.Is(err, gameapp.ErrTooManySessions):
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		default:
			h.logger.Error().Err(err).Msg("create game failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": s.ID(), "state": s.Snapshot(), "seats": seats})
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) deleteGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid game id"})
		return
	}
	if err := h.games.Remove(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "game not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// actionRequest is the wire form of an action. The actor always comes from
// the seat token, never from the body.
type actionRequest struct {
	Type     gameapp.ActionType `json:"type"`
	Position *int               `json:"position,omitempty"`
	ItemID   string             `json:"item_id,omitempty"`
	Slot     domain.Slot        `json:"slot,omitempty"`
}

func (req actionRequest) toAction(playerID uuid.UUID) (gameapp.Action, error) {
	if !req.Type.Valid() {
		return gameapp.Action{}, errors.New("unknown action type")
	}
	a := gameapp.Action{Type: req.Type, PlayerID: playerID, Position: req.Position, Slot: req.Slot}
	if req.ItemID != "" {
		id, err := uuid.Parse(req.ItemID)
		if err != nil {
			return gameapp.Action{}, errors.New("invalid item_id")
		}
		a.ItemID = id
	}
	return a, nil
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.seatedSession(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	st, _ := seatFromCtx(r.Context())
	a, err := req.toAction(st.PlayerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.Dispatch(a))
}

func (h *Handler) restart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.seatedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Restart())
}

func (h *Handler) ledgerTotals(w http.ResponseWriter, r *http.Request) {
	if h.totals == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "ledger unavailable"})
		return
	}
	pid, err := uuid.Parse(chi.URLParam(r, "playerID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid player id"})
		return
	}
	t, err := h.totals.Totals(r.Context(), pid)
	if err != nil {
		h.logger.Error().Err(err).Str("player_id", pid.String()).Msg("ledger totals failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*gameapp.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid game id"})
		return nil, false
	}
	s, err := h.games.Get(id)
	if err != nil {
		if errors.Is(err, gameapp.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "game not found"})
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return nil, false
	}
	return s, true
}

// seatedSession resolves the session and checks the seat belongs to it.
func (h *Handler) seatedSession(w http.ResponseWriter, r *http.Request) (*gameapp.Session, bool) {
	s, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	st, ok := seatFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return nil, false
	}
	if st.SessionID != s.ID() {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "seat belongs to another game"})
		return nil, false
	}
	return s, true
}

func (h *Handler) seatMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing bearer token"})
			return
		}
		st, err := h.seats.Parse(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), seatContextKey, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func seatFromCtx(ctx context.Context) (seat.Seat, bool) {
	st, ok := ctx.Value(seatContextKey).(seat.Seat)
	return st, ok
}

func (h *Handler) cors(next http.Handler) http.Handler {
	origin := h.corsOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
