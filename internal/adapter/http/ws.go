package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 10
	sendBuffer     = 16
)

// Message types on the WebSocket feed.
const (
	msgTypeState  = "state"
	msgTypeError  = "error"
	msgTypeSelect = "select"
)

type wsOutbound struct {
	Type    string               `json:"type"`
	Payload *domain.DisplayState `json:"payload,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type wsInbound struct {
	Type string `json:"type"`
	selectRequest
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes display-state transitions to every connected map client and
// accepts selections from them.
type Hub struct {
	selector Selector
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    *domain.DisplayState // most recent broadcast state
}

// NewHub creates a hub. Connections are accepted from allowedOrigins, from
// any origin when the list contains "*", and always from same-origin
// requests that carry no Origin header.
func NewHub(selector Selector, limiter *rate.Limiter, allowedOrigins []string, metrics *observability.Metrics, logger *slog.Logger) *Hub {
	h := &Hub{
		selector: selector,
		limiter:  limiter,
		metrics:  metrics,
		logger:   logger,
		clients:  make(map[*wsClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin) {
				return true
			}
			logger.Warn("websocket origin rejected", "origin", origin)
			return false
		},
	}
	return h
}

// Broadcast queues s for every client. It is registered as a selection
// listener and never blocks: clients that cannot keep up are disconnected.
func (h *Hub) Broadcast(s domain.DisplayState) {
	data, err := json.Marshal(wsOutbound{Type: msgTypeState, Payload: &s})
	if err != nil {
		h.logger.Error("encode state", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil || !olderState(s, *h.last) {
		h.last = &s
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// ServeWS upgrades the request and starts the client's pumps. The current
// state is sent immediately after connecting.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.WebsocketClients.Inc()
	h.logger.Debug("websocket connected", "remote", r.RemoteAddr)

	h.sendSnapshot(c, h.selector.Current())

	go h.writePump(c)
	go h.readPump(c)
}

// sendSnapshot queues the state read at connect time unless a newer
// transition was broadcast after the client registered. Such a transition has
// already been queued for the client and must stay the last one it sees.
func (h *Hub) sendSnapshot(c *wsClient, s domain.DisplayState) {
	data, err := json.Marshal(wsOutbound{Type: msgTypeState, Payload: &s})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last != nil && olderState(s, *h.last) {
		return
	}
	h.queueLocked(c, data)
}

// olderState reports whether a precedes b in the selection lifecycle.
func olderState(a, b domain.DisplayState) bool {
	if a.Generation != b.Generation {
		return a.Generation < b.Generation
	}
	return !a.Phase.Settled() && b.Phase.Settled()
}

func (h *Hub) reply(c *wsClient, msg wsOutbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queueLocked(c, data)
}

func (h *Hub) queueLocked(c *wsClient, data []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.removeLocked(c)
	}
}

func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in wsInbound
		if err := c.conn.ReadJSON(&in); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.reply(c, wsOutbound{Type: msgTypeError, Error: "invalid JSON message"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", "error", err)
			}
			return
		}
		h.handleInbound(c, in)
	}
}

func (h *Hub) handleInbound(c *wsClient, in wsInbound) {
	if in.Type != msgTypeSelect {
		h.reply(c, wsOutbound{Type: msgTypeError, Error: "unknown message type " + in.Type})
		return
	}
	coord, ok := in.coordinate()
	if !ok {
		h.reply(c, wsOutbound{Type: msgTypeError, Error: msgMissingCoordinate})
		return
	}
	if !h.limiter.Allow() {
		h.reply(c, wsOutbound{Type: msgTypeError, Error: "too many selections, slow down"})
		return
	}
	// The resulting loading state reaches this client through Broadcast.
	if _, err := h.selector.Select(coord); err != nil {
		h.reply(c, wsOutbound{Type: msgTypeError, Error: err.Error()})
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.WebsocketClients.Dec()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
