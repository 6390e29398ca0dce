package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/notify"
)

// Envelope is the frame shape every server->client message rides in.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Client is one authenticated websocket session. It implements
// notify.Endpoint, so registering it makes the user reachable on the
// live channel.
type Client struct {
	ID     uuid.UUID
	UserID uint
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub

	// mu orders Emit against shutdown: a fan-out that looked the client
	// up just before its disconnect was processed must get a refusal,
	// not a send on a closed channel.
	mu     sync.Mutex
	closed bool
}

// Emit queues an event frame for the client's write pump. A full buffer
// means the client is dead or too slow; the send is refused rather than
// blocking a fan-out in flight.
func (c *Client) Emit(event string, payload any) error {
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client %s disconnected", c.ID)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("client %s send buffer full", c.ID)
	}
}

// shutdown closes the send channel exactly once, stopping the write
// pump. Safe against concurrent Emit calls.
func (c *Client) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// Hub owns the client lifecycle: it serializes connect/disconnect
// bookkeeping and keeps the connection registry in sync so dispatcher
// lookups always see the latest endpoint per user.
type Hub struct {
	registry   *notify.Registry
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger
}

func NewHub(registry *notify.Registry, logger *zap.Logger) *Hub {
	return &Hub{
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes register/unregister events until ctx is cancelled.
// Start it once at process start.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.registry.Register(client.UserID, client)
			h.logger.Debug("client registered",
				zap.String("client_id", client.ID.String()),
				zap.Uint("user_id", client.UserID),
				zap.Int("online", h.registry.Online()))
		case client := <-h.unregister:
			// Scoped unregister: if the user reconnected already, the
			// newer endpoint keeps the slot.
			h.registry.Unregister(client.UserID, client)
			client.shutdown()
			h.logger.Debug("client unregistered",
				zap.String("client_id", client.ID.String()),
				zap.Uint("user_id", client.UserID),
				zap.Int("online", h.registry.Online()))
		}
	}
}

// NewClient wraps an upgraded connection for an authenticated user.
func (h *Hub) NewClient(conn *websocket.Conn, userID uint) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    h,
	}
}

// Register hands the client to the hub loop.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// ReadPump drains inbound frames until the peer goes away. The protocol
// is push-only server->client; a client "logout" frame or any read error
// tears the session down.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}
		if env.Event == "logout" {
			return
		}
	}
}

// WritePump flushes queued frames to the connection until the send
// channel closes.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
