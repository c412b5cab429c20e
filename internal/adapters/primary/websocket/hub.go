package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
	"github.com/corklane/board-backend/internal/core/ports"
)

// Hub is the realtime service: it owns the registry of live
// connections and the topic subscription index, and implements the
// authorization-gated broadcast.
//
// Authorization is a live property: it is evaluated against current
// membership state at subscribe time AND again for every candidate
// connection at broadcast time. A user who loses board access
// mid-session stops receiving that board's events on the very next
// broadcast without being disconnected.
type Hub struct {
	// clients maps connection IDs to clients. One user may hold many
	// connections (tabs, devices), each with its own ID.
	clients map[uuid.UUID]*Client

	// topics maps topic strings to the set of subscribed clients.
	// gorilla/websocket has no native pub/sub, so the index is
	// maintained here under the same lock as the registry.
	topics map[string]map[*Client]bool

	// mu protects clients and topics
	mu sync.RWMutex

	closed bool

	authzSvc ports.AuthorizationService
	logger   *slog.Logger
}

// Ensure Hub implements the Broadcaster interface.
var _ ports.Broadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub.
func NewHub(authzSvc ports.AuthorizationService, logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]*Client),
		topics:   make(map[string]map[*Client]bool),
		authzSvc: authzSvc,
		logger:   logger.With("component", "websocket_hub"),
	}
}

// Register adds an authenticated client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.CloseSend()
		return
	}
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client registered",
		"conn_id", client.ID,
		"user_id", client.UserID,
		"total_connections", total,
	)
}

// Unregister removes a client from the registry and every topic it was
// subscribed to. Idempotent: unregistering twice has no further effect.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	for topic, subscribers := range h.topics {
		if subscribers[client] {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()

	client.CloseSend()
	go h.publishPresence(domain.EventPresenceLeave, client)

	h.logger.Info("client unregistered",
		"conn_id", client.ID,
		"user_id", client.UserID,
	)
}

// Subscribe authorizes and establishes a topic subscription for the
// client. The authorization rule depends on the scope: board requires
// view access, user requires the client's own user ID, team and global
// only require authentication. Returns ErrForbidden when the check
// fails; no subscription is established in that case.
func (h *Hub) Subscribe(ctx context.Context, client *Client, scope domain.EventScope, id string) error {
	topic, err := h.authorizeSubscribe(ctx, client, scope, id)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		// A subscribe racing teardown must not repopulate the reset
		// topic index.
		h.mu.Unlock()
		return apperrors.ErrForbidden
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
	h.mu.Unlock()

	client.addSubscription(topic)

	h.logger.Debug("client subscribed",
		"conn_id", client.ID,
		"user_id", client.UserID,
		"topic", topic,
	)

	if scope == domain.ScopeBoard {
		go h.publishPresenceToBoard(domain.EventPresenceJoin, client, id)
	}
	return nil
}

// Unsubscribe removes the client from the topic. Leaving a topic needs
// no authorization check.
func (h *Hub) Unsubscribe(client *Client, scope domain.EventScope, id string) {
	topic := Topic(scope, id)
	if scope == domain.ScopeGlobal {
		topic = domain.GlobalTopic
	}

	h.mu.Lock()
	removed := false
	if subscribers, ok := h.topics[topic]; ok && subscribers[client] {
		delete(subscribers, client)
		removed = true
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()

	client.removeSubscription(topic)

	if removed && scope == domain.ScopeBoard {
		go h.publishPresenceToBoard(domain.EventPresenceLeave, client, id)
	}
}

// authorizeSubscribe validates the scope/id pair and runs the
// scope-specific authorization check, returning the resolved topic.
func (h *Hub) authorizeSubscribe(ctx context.Context, client *Client, scope domain.EventScope, id string) (string, error) {
	switch scope {
	case domain.ScopeBoard:
		boardID, err := uuid.Parse(id)
		if err != nil {
			return "", apperrors.ErrBadRequest
		}
		allowed, err := h.authzSvc.CanViewBoard(ctx, boardID, &client.UserID, "")
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", apperrors.ErrForbidden
		}
		return Topic(scope, id), nil

	case domain.ScopeUser:
		if id != client.UserID.String() {
			return "", apperrors.ErrForbidden
		}
		return Topic(scope, id), nil

	case domain.ScopeTeam:
		// Authenticated users may follow any team feed; there is no
		// finer-grained team membership model.
		if id == "" {
			return "", apperrors.ErrBadRequest
		}
		return Topic(scope, id), nil

	case domain.ScopeGlobal:
		return domain.GlobalTopic, nil

	default:
		return "", apperrors.ErrBadRequest
	}
}

// Broadcast implements ports.Broadcaster. It resolves the event's
// topic, serializes the event frame once, and delivers it to every
// subscribed connection that passes a fresh authorization check. Only
// topic resolution failure propagates; per-connection failures are
// logged and do not affect sibling connections.
func (h *Hub) Broadcast(ctx context.Context, event domain.Event) error {
	topic, err := event.Topic()
	if err != nil {
		return err
	}
	return h.broadcastToTopic(ctx, topic, event, nil)
}

// broadcastToTopic fans one event out to a topic's subscribers,
// skipping exclude when non-nil.
func (h *Hub) broadcastToTopic(ctx context.Context, topic string, event domain.Event, exclude *Client) error {
	frame, err := marshalEvent(event)
	if err != nil {
		return err
	}

	// Snapshot the subscriber set so sends happen outside the lock.
	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.topics[topic]))
	for client := range h.topics[topic] {
		if client != exclude {
			subscribers = append(subscribers, client)
		}
	}
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return nil
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"topic", topic,
		"candidate_count", len(subscribers),
	)

	for _, client := range subscribers {
		authorized, err := h.authorizeDelivery(ctx, event, client)
		if err != nil {
			// Fail closed: an authorization error must not leak the
			// event to a possibly-revoked connection.
			h.logger.Error("delivery authorization check failed",
				"conn_id", client.ID,
				"user_id", client.UserID,
				"event_type", event.Type,
				"error", err,
			)
			continue
		}
		if !authorized {
			continue
		}

		if !client.TrySend(frame) {
			h.logger.Warn("client send buffer full, dropping event",
				"conn_id", client.ID,
				"user_id", client.UserID,
				"event_type", event.Type,
			)
		}
	}
	return nil
}

// authorizeDelivery re-evaluates authorization for one candidate
// connection at send time, against current state rather than anything
// captured when the subscription was made.
func (h *Hub) authorizeDelivery(ctx context.Context, event domain.Event, client *Client) (bool, error) {
	switch event.Scope {
	case domain.ScopeBoard:
		if event.Meta.BoardID == nil {
			return false, nil
		}
		return h.authzSvc.CanViewBoard(ctx, *event.Meta.BoardID, &client.UserID, "")
	case domain.ScopeUser:
		return event.AddressedUserID() == client.UserID, nil
	default:
		// Team and global events carry no per-user restriction.
		return true, nil
	}
}

// publishPresenceToBoard tells a board topic's other subscribers that a
// connection joined or left the board feed. Best effort.
func (h *Hub) publishPresenceToBoard(eventType domain.EventType, client *Client, boardID string) {
	id, err := uuid.Parse(boardID)
	if err != nil {
		return
	}

	event := domain.NewEvent(eventType, domain.ScopeBoard, domain.EventActor{UserID: client.UserID})
	event.Meta.BoardID = &id
	event.Entity = domain.EventEntity{Kind: "connection", ID: client.ID}

	if err := h.broadcastToTopic(context.Background(), Topic(domain.ScopeBoard, boardID), event, client); err != nil {
		h.logger.Warn("presence broadcast failed", "board_id", boardID, "error", err)
	}
}

// publishPresence emits leave events for every board topic the client
// was subscribed to when it disconnected.
func (h *Hub) publishPresence(eventType domain.EventType, client *Client) {
	for _, topic := range client.Subscriptions() {
		scope, id, ok := splitTopic(topic)
		if ok && scope == domain.ScopeBoard {
			h.publishPresenceToBoard(eventType, client, id)
		}
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TopicSubscriberCount returns the number of connections subscribed to
// a topic. Diagnostics only.
func (h *Hub) TopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// IsUserConnected checks if a user has any active connections.
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID == userID {
			return true
		}
	}
	return false
}

// Close tears the hub down: every live connection's send channel is
// closed (which ends its write pump) and both maps are cleared. The
// hub accepts no registrations afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.topics = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.CloseSend()
	}

	h.logger.Info("hub closed", "connections_closed", len(clients))
}
