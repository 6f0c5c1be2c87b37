package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	gameapp "boardquest/internal/app/game"
	"boardquest/internal/app/seat"
	domain "boardquest/internal/domain/game"
)

const (
	wsSendBuffer = 32
	wsReadLimit  = 2048
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsClient is one websocket watching a session. Without a seat it can only
// watch.
type wsClient struct {
	conn *websocket.Conn
	seat *seat.Seat
	send chan []byte
	done chan struct{}

	mu      sync.Mutex
	sent    bool
	version uint64
}

// wsMessage is {"type":"action","action":"select_tile","position":7}. The
// embedded request's own type field is shadowed by the envelope type.
type wsMessage struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	actionRequest
}

func (h *Handler) gameWS(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var st *seat.Seat
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	if token != "" {
		parsed, err := h.seats.Parse(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
			return
		}
		if parsed.SessionID != s.ID() {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "seat belongs to another game"})
			return
		}
		st = &parsed
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &wsClient{
		conn: conn,
		seat: st,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}

	unsubscribe := s.Subscribe(client.pushState)
	client.pushState(s.Snapshot())

	log := h.logger.With().Str("session_id", s.ID().String()).Bool("seated", st != nil).Logger()
	log.Debug().Msg("websocket connected")

	go h.writePump(client)
	h.readPump(client, func(a wsMessage) {
		if client.seat == nil {
			client.push(errorMessage("watching only; connect with a seat token to act"))
			return
		}
		req := a.actionRequest
		req.Type = gameapp.ActionType(a.Action)
		action, err := req.toAction(client.seat.PlayerID)
		if err != nil {
			client.push(errorMessage(err.Error()))
			return
		}
		// Accepted actions reach this client through the subscription.
		s.Dispatch(action)
	})

	unsubscribe()
	close(client.done)
	log.Debug().Msg("websocket closed")
}

func (h *Handler) readPump(client *wsClient, onAction func(wsMessage)) {
	client.conn.SetReadLimit(wsReadLimit)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var msg wsMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "action":
			onAction(msg)
		case "ping":
			client.push([]byte(`{"type":"pong"}`))
		default:
			client.push(errorMessage("unknown message type"))
		}
	}
}

func (h *Handler) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	defer client.conn.Close()
	for {
		select {
		case <-client.done:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push drops the message when the client is gone or too slow.
func (c *wsClient) push(b []byte) {
	if b == nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
	}
}

// pushState queues a snapshot unless a newer or equal version was already
// queued. Observers run on whichever goroutine changed the session, so
// snapshots can arrive out of order.
func (c *wsClient) pushState(gs domain.GameState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent && gs.Version <= c.version {
		return
	}
	c.sent, c.version = true, gs.Version
	c.push(stateMessage(gs))
}

func stateMessage(gs domain.GameState) []byte {
	b, err := json.Marshal(map[string]any{"type": "state", "state": gs})
	if err != nil {
		return nil
	}
	return b
}

func errorMessage(msg string) []byte {
	b, err := json.Marshal(map[string]any{"type": "error", "message": msg})
	if err != nil {
		return nil
	}
	return b
}
