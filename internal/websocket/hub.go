// Package websocket pushes live farm data and speech events to browsers and
// relays their inbound events back to the server.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cropwatch/cropwatch/internal/metrics"
)

// Message types exchanged with browsers.
const (
	TypeWelcome         = "welcome"
	TypeSnapshot        = "snapshot"
	TypeRequestSnapshot = "requestSnapshot"
	TypePing            = "ping"
	TypePong            = "pong"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

// Message represents a WebSocket message
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler receives inbound messages the hub does not answer itself.
type Handler func(clientID string, msg Message)

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub maintains active WebSocket clients and broadcasts messages
type Hub struct {
	clients    map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	getState     func() interface{}
	handler      Handler
	onDisconnect func(clientID string)
	origins  []string
	upgrader websocket.Upgrader
}

// NewHub creates a new WebSocket hub. getState supplies the snapshot sent to
// newly connected clients.
func NewHub(getState func() interface{}) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		getState:   getState,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024 * 16,
		WriteBufferSize: 1024 * 16,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// SetHandler sets the inbound message handler.
func (h *Hub) SetHandler(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// SetDisconnectHandler sets a callback run after a client leaves the hub,
// whether it closed the connection or was dropped as too slow.
func (h *Hub) SetDisconnectHandler(fn func(clientID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnect = fn
}

func (h *Hub) disconnected(ids ...string) {
	h.mu.RLock()
	fn := h.onDisconnect
	h.mu.RUnlock()
	if fn == nil {
		return
	}
	for _, id := range ids {
		fn(id)
	}
}

// SetAllowedOrigins replaces the cross-origin patterns, e.g.
// "https://*.example.com". "*" allows every origin.
func (h *Hub) SetAllowedOrigins(patterns []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = append([]string(nil), patterns...)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, pattern := range h.origins {
		if wildcard.Match(pattern, origin) {
			return true
		}
	}
	log.Warn().Str("origin", origin).Str("host", r.Host).Msg("Rejected WebSocket origin")
	return false
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			metrics.SetWebsocketClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			count := len(h.clients)
			h.mu.Unlock()
			metrics.SetWebsocketClients(count)
			log.Info().Str("client", client.id).Msg("WebSocket client connected")

			h.queue(client, TypeWelcome, map[string]string{"clientId": client.id})
			if h.getState != nil {
				h.queue(client, TypeSnapshot, h.getState())
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.id]
			if ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.SetWebsocketClients(count)
			log.Info().Str("client", client.id).Msg("WebSocket client disconnected")
			if ok {
				h.disconnected(client.id)
			}

		case message := <-h.broadcast:
			var dropped []string
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop it
					delete(h.clients, id)
					close(client.send)
					dropped = append(dropped, id)
				}
			}
			count := len(h.clients)
			h.mu.Unlock()
			if len(dropped) > 0 {
				metrics.SetWebsocketClients(count)
				h.disconnected(dropped...)
			}

		case <-pingTicker.C:
			h.Broadcast(TypePing, map[string]int64{"timestamp": time.Now().Unix()})
		}
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Broadcast sends a typed message to every client.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := encode(msgType, data)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		log.Warn().Str("type", msgType).Msg("WebSocket broadcast channel full")
	}
}

// SendTo sends a typed message to one client.
func (h *Hub) SendTo(clientID, msgType string, data interface{}) error {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("websocket client %s not connected", clientID)
	}
	if !h.queue(client, msgType, data) {
		return fmt.Errorf("websocket client %s send buffer full", clientID)
	}
	return nil
}

func (h *Hub) queue(client *Client, msgType string, data interface{}) (ok bool) {
	payload, err := encode(msgType, data)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return false
	}

	// the client may have been dropped concurrently
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case client.send <- payload:
		return true
	default:
		log.Warn().Str("client", client.id).Str("type", msgType).Msg("Client send buffer full")
		return false
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(msgType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(sanitizeData(data))
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Data: raw})
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("client", c.id).Msg("WebSocket read error")
			} else {
				log.Debug().Err(err).Str("client", c.id).Msg("WebSocket closed")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Str("client", c.id).Msg("Failed to unmarshal WebSocket message")
			continue
		}

		switch msg.Type {
		case TypePing:
			c.hub.queue(c, TypePong, map[string]int64{"timestamp": time.Now().Unix()})
		case TypeRequestSnapshot:
			if c.hub.getState != nil {
				c.hub.queue(c, TypeSnapshot, c.hub.getState())
			}
		default:
			c.hub.mu.RLock()
			handler := c.hub.handler
			c.hub.mu.RUnlock()
			if handler != nil {
				handler(c.id, msg)
			} else {
				log.Debug().Str("client", c.id).Str("type", msg.Type).Msg("Unhandled WebSocket message")
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client", c.id).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sanitizeData converts data to JSON-compatible values and replaces NaN/Inf with nil.
func sanitizeData(data interface{}) interface{} {
	if f, ok := data.(float64); ok {
		return sanitizeValue(f)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return sanitizeValue(data)
	}

	var jsonData interface{}
	if err := json.Unmarshal(jsonBytes, &jsonData); err != nil {
		return data
	}
	return sanitizeValue(jsonData)
}

func sanitizeValue(data interface{}) interface{} {
	switch v := data.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil
		}
		return v
	case map[string]interface{}:
		sanitized := make(map[string]interface{}, len(v))
		for k, val := range v {
			sanitized[k] = sanitizeValue(val)
		}
		return sanitized
	case []interface{}:
		sanitized := make([]interface{}, len(v))
		for i, val := range v {
			sanitized[i] = sanitizeValue(val)
		}
		return sanitized
	default:
		return v
	}
}
