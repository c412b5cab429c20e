package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound buffer size per connection.
	sendBufferSize = 256
)

// Client is one live, authenticated, bidirectional connection. Its ID
// is unique per connection, not per user.
type Client struct {
	// ID identifies this connection in the hub registry.
	ID uuid.UUID

	// UserID is the authenticated user behind the connection.
	UserID uuid.UUID

	CreatedAt time.Time

	hub  *Hub
	conn *websocket.Conn

	// send carries pre-serialized frames to the write pump.
	send chan []byte

	// closeOnce ensures the send channel is only closed once
	closeOnce sync.Once

	// mu protects subscriptions
	mu sync.RWMutex

	// subscriptions mirrors the hub's topic index for this client so
	// disconnect cleanup and presence events know what it followed.
	subscriptions map[string]bool

	logger *slog.Logger
}

// NewClient creates a client for an upgraded, authenticated connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:            id,
		UserID:        userID,
		CreatedAt:     time.Now().UTC(),
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		subscriptions: make(map[string]bool),
		logger:        logger.With("conn_id", id.String(), "user_id", userID.String()),
	}
}

// SendConnected queues the acknowledgement frame carrying the resolved
// user ID. Sent once, right after registration.
func (c *Client) SendConnected() {
	c.TrySend(marshalConnected(c.UserID))
}

// TrySend queues a frame without blocking. Returns false when the
// buffer is full and the frame was dropped.
func (c *Client) TrySend(frame []byte) bool {
	defer func() {
		// Send on a closed channel means the client raced a teardown;
		// the frame is lost, which is fine for a closing connection.
		_ = recover()
	}()

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// CloseSend safely closes the send channel exactly once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) addSubscription(topic string) {
	c.mu.Lock()
	c.subscriptions[topic] = true
	c.mu.Unlock()
}

func (c *Client) removeSubscription(topic string) {
	c.mu.Lock()
	delete(c.subscriptions, topic)
	c.mu.Unlock()
}

// Subscriptions returns a copy of the topics this client follows.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}
	return topics
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps frames from the send channel to the websocket
// connection. This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// handleIncomingMessage processes one frame received from the client.
// Malformed or unknown frames get an error reply; the connection stays
// open either way.
func (c *Client) handleIncomingMessage(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic handling client message", "panic", r)
			c.TrySend(marshalError(CodeInternalError, "internal error"))
		}
	}()

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		c.TrySend(marshalError(CodeInvalidMessage, "malformed message"))
		return
	}

	switch msg.Type {
	case MessageSubscribe:
		c.handleSubscribe(msg)

	case MessageUnsubscribe:
		c.hub.Unsubscribe(c, domain.EventScope(msg.Scope), msg.ID)
		c.TrySend(marshalAck())

	case MessagePing:
		c.TrySend(marshalPong())

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
		c.TrySend(marshalError(CodeInvalidMessage, "unknown message type: "+msg.Type))
	}
}

func (c *Client) handleSubscribe(msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	err := c.hub.Subscribe(ctx, c, domain.EventScope(msg.Scope), msg.ID)
	switch {
	case err == nil:
		c.TrySend(marshalAck())
	case errors.Is(err, apperrors.ErrForbidden):
		c.TrySend(marshalError(CodeForbidden, "not authorized to subscribe to this topic"))
	case errors.Is(err, apperrors.ErrBadRequest):
		c.TrySend(marshalError(CodeInvalidMessage, "invalid subscription target"))
	default:
		c.logger.Error("subscribe failed", "scope", msg.Scope, "id", msg.ID, "error", err)
		c.TrySend(marshalError(CodeInternalError, "subscription failed"))
	}
}
