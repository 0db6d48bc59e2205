package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/turn-service/internal/config"
	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

// DisconnectHandler is called when a client disconnects.
type DisconnectHandler func(*Client)

// Client represents a connected WebSocket client.
type Client struct {
	ID                string
	Hub               *Hub
	Conn              *websocket.Conn
	Send              chan []byte
	Session           *domain.Session
	disconnectHandler DisconnectHandler

	evicting atomic.Bool
}

// NewClient wraps conn with a send queue sized from the hub config.
func NewClient(h *Hub, conn *websocket.Conn, id string) *Client {
	return &Client{
		ID:      id,
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, h.config.SendBuffer),
		Session: domain.NewSession(id),
	}
}

// SetDisconnectHandler sets the handler to be called on disconnect.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.disconnectHandler = handler
}

// Hub manages all WebSocket connections and fans room events out to them.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[string]*Client // roomID -> clientID -> client
	mu      sync.RWMutex
	config  config.WebSocketConfig

	dropped atomic.Uint64
}

// NewHub creates a new Hub.
func NewHub(cfg config.WebSocketConfig) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		config:  cfg,
	}
}

// Run blocks until ctx is done, then closes every client queue so the write
// pumps send a close frame.
func (h *Hub) Run(ctx context.Context) error {
	l := pkglog.Ctx(ctx)
	<-ctx.Done()

	h.mu.Lock()
	n := len(h.clients)
	for _, client := range h.clients {
		h.removeLocked(client)
	}
	h.mu.Unlock()

	l.Info().Int("clients", n).Msg("hub stopped")
	return nil
}

// Register adds a client to the hub. The client is addressable as soon as
// Register returns.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	l := pkglog.L()
	l.Debug().Str(pkglog.FieldConnectionID, client.ID).Msg("client registered")
}

// Unregister removes a client from the hub. It is safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	h.mu.Unlock()

	if removed {
		l := pkglog.L()
		l.Debug().Str(pkglog.FieldConnectionID, client.ID).Msg("client unregistered")
	}
}

func (h *Hub) removeLocked(client *Client) bool {
	if c, ok := h.clients[client.ID]; !ok || c != client {
		return false
	}
	for roomID, roomClients := range h.rooms {
		delete(roomClients, client.ID)
		if len(roomClients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
	return true
}

// JoinRoom adds a client to a room's fan-out set.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
}

// LeaveRoom removes a client from a room's fan-out set.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if roomClients, ok := h.rooms[roomID]; ok {
		delete(roomClients, client.ID)
		if len(roomClients) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Publish encodes each event and queues it for its recipients without
// blocking. A client whose queue is full misses the event and is evicted.
func (h *Hub) Publish(roomID string, events []domain.Event) {
	l := pkglog.L()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ev := range events {
		data, err := json.Marshal(ev.Message)
		if err != nil {
			l.Error().Err(err).Str(pkglog.FieldRoomID, roomID).Str(pkglog.FieldEventType, ev.Message.MessageType()).Msg("failed to encode event")
			continue
		}

		if ev.IsDirect() {
			if client, ok := h.clients[ev.Target]; ok {
				h.offer(client, data)
			}
			continue
		}
		for clientID, client := range h.rooms[roomID] {
			if clientID == ev.Exclude {
				continue
			}
			h.offer(client, data)
		}
	}
}

// SendToClient queues message for one client.
func (h *Hub) SendToClient(clientID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[clientID]; ok {
		h.offer(client, data)
	}
	return nil
}

// offer requires h.mu held for reading.
func (h *Hub) offer(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.dropped.Add(1)
		if client.evicting.CompareAndSwap(false, true) {
			go h.evict(client)
		}
	}
}

func (h *Hub) evict(client *Client) {
	l := pkglog.L()
	l.Warn().Str(pkglog.FieldConnectionID, client.ID).Msg("send queue full, evicting slow client")
	h.Unregister(client)
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomMembers returns the ids of the clients joined to roomID.
func (h *Hub) RoomMembers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		ids = append(ids, id)
	}
	return ids
}

// Dropped returns how many events were discarded because a queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// ReadPump pumps messages from the WebSocket connection to handler.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		// Call disconnect handler before unregistering
		if c.disconnectHandler != nil {
			c.disconnectHandler(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l := pkglog.L()
				l.Warn().Err(err).Str(pkglog.FieldConnectionID, c.ID).Msg("websocket error")
			}
			break
		}

		c.Session.UpdateActivity()
		handler(c, message)
	}
}

// WritePump pumps messages from the send queue to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
