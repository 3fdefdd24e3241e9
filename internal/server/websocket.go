package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Code payloads can be large.
	maxMessageSize = 1 << 20

	defaultSendBuffer = 256
)

var errMissingIDProvider = errors.New("id provider dependency required")

// Dispatcher receives decoded inbound events and connection lifecycle
// signals from the transport.
type Dispatcher interface {
	Dispatch(senderID, event string, data json.RawMessage)
	Disconnect(connectionID string)
}

// IDProvider issues server-assigned socket identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ConnectionMetrics counts websocket lifecycle events.
type ConnectionMetrics interface {
	ConnectionOpened()
	ConnectionClosed()
}

// frame is the wire format in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// HubConfig describes the transport dependencies.
type HubConfig struct {
	IDProvider     IDProvider
	Metrics        ConnectionMetrics
	AllowedOrigins []string
	SendBuffer     int
	Logger         *zap.Logger
}

// Hub owns the live websocket connections of this instance and implements
// the relay's Emitter: outbound events are resolved to a connection's send
// queue here. Sends never block; a peer whose queue is full misses the
// event, which matches the relay's fire-and-forget delivery contract.
type Hub struct {
	upgrader   websocket.Upgrader
	idProvider IDProvider
	metrics    ConnectionMetrics
	sendBuffer int
	logger     *zap.Logger

	dispatcher Dispatcher

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub constructs the hub. The relay dispatcher is attached afterwards
// with Bind, because the relay service itself needs the hub as its emitter.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		idProvider: cfg.IDProvider,
		metrics:    cfg.Metrics,
		sendBuffer: sendBuffer,
		logger:     logger,
		clients:    make(map[string]*client),
	}, nil
}

// Bind attaches the relay dispatcher. Must be called before ServeWS.
func (h *Hub) Bind(dispatcher Dispatcher) {
	h.dispatcher = dispatcher
}

// ServeWS upgrades the request and runs the connection's read and write
// pumps. The socket identifier is server-assigned and immutable for the
// connection's lifetime.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		http.Error(w, "relay not ready", http.StatusServiceUnavailable)
		return
	}
	socketID, err := h.idProvider.NewID()
	if err != nil {
		h.logger.Error("failed to assign socket id", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   socketID,
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}
	h.register(c)
	if h.metrics != nil {
		h.metrics.ConnectionOpened()
	}
	h.logger.Info("connection opened", zap.String("socket_id", socketID))

	go c.writePump()
	go c.readPump()
}

// Send implements the relay's Emitter. Unknown connection ids are a no-op:
// the peer disconnected after membership was read.
func (h *Hub) Send(connectionID, event string, payload any) {
	h.mu.RLock()
	c := h.clients[connectionID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	raw, err := json.Marshal(outboundFrame{Event: event, Data: payload})
	if err != nil {
		h.logger.Warn("failed to encode outbound frame", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- raw:
	default:
		h.logger.Warn("dropping outbound frame, send queue full",
			zap.String("socket_id", connectionID),
			zap.String("event", event))
	}
}

// ClientCount reports the number of live connections on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// drop detaches the client from the hub and runs the relay's disconnect
// cascade exactly once. The send queue is never closed: a Send that
// resolved the client just before the drop may still enqueue, and the
// frame simply goes undelivered. Closing done stops the write pump.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	h.mu.Unlock()

	h.dispatcher.Disconnect(c.id)
	close(c.done)
	if h.metrics != nil {
		h.metrics.ConnectionClosed()
	}
	h.logger.Info("connection closed", zap.String("socket_id", c.id))
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowedSet[origin]
		return ok
	}
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// readPump decodes inbound frames and hands them to the relay dispatcher.
// It exits on any read error, which triggers the disconnect cascade.
func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.String("socket_id", c.id), zap.Error(err))
			}
			return
		}
		var f frame
		if err := json.Unmarshal(message, &f); err != nil || f.Event == "" {
			continue
		}
		c.hub.dispatcher.Dispatch(c.id, f.Event, f.Data)
	}
}

// writePump drains the send queue and keeps the connection alive with
// periodic pings. It exits when drop closes the done channel.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
