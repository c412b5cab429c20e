package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
)

// fakeAuthz is a controllable authorization service for hub tests. Its
// view grants can be revoked mid-test to exercise the live re-check.
type fakeAuthz struct {
	mu      sync.Mutex
	allowed map[string]bool // "boardID:userID" -> may view
}

func newFakeAuthz() *fakeAuthz {
	return &fakeAuthz{allowed: make(map[string]bool)}
}

func (f *fakeAuthz) grant(boardID, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed[boardID.String()+":"+userID.String()] = true
}

func (f *fakeAuthz) revoke(boardID, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.allowed, boardID.String()+":"+userID.String())
}

func (f *fakeAuthz) CanViewBoard(_ context.Context, boardID uuid.UUID, userID *uuid.UUID, _ string) (bool, error) {
	if userID == nil {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allowed[boardID.String()+":"+userID.String()], nil
}

func (f *fakeAuthz) GetUserBoardRole(ctx context.Context, userID, boardID uuid.UUID) (domain.Role, error) {
	allowed, _ := f.CanViewBoard(ctx, boardID, &userID, "")
	if allowed {
		return domain.RoleViewer, nil
	}
	return domain.RoleNone, nil
}

func (f *fakeAuthz) RequireBoardRole(ctx context.Context, userID, boardID uuid.UUID, _ domain.Role) error {
	allowed, _ := f.CanViewBoard(ctx, boardID, &userID, "")
	if !allowed {
		return apperrors.ErrForbidden
	}
	return nil
}

func (f *fakeAuthz) RequireBoardEditor(ctx context.Context, userID, boardID uuid.UUID) error {
	return f.RequireBoardRole(ctx, userID, boardID, domain.RoleEditor)
}

func (f *fakeAuthz) RequireBoardAdmin(ctx context.Context, userID, boardID uuid.UUID) error {
	return f.RequireBoardRole(ctx, userID, boardID, domain.RoleAdmin)
}

func newTestHub(t *testing.T) (*Hub, *fakeAuthz) {
	t.Helper()
	authz := newFakeAuthz()
	hub := NewHub(authz, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return hub, authz
}

func newTestClient(t *testing.T, hub *Hub, userID uuid.UUID) *Client {
	t.Helper()
	client := NewClient(hub, nil, userID, slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Register(client)
	return client
}

// receivedFrame decodes just enough of a frame to classify it.
type receivedFrame struct {
	Type  string       `json:"type"`
	Event domain.Event `json:"event"`
}

// nextEventFrame drains the client's queue until an event frame appears
// or the timeout elapses.
func nextEventFrame(t *testing.T, client *Client, timeout time.Duration) (receivedFrame, bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case raw, ok := <-client.send:
			if !ok {
				return receivedFrame{}, false
			}
			var frame receivedFrame
			require.NoError(t, json.Unmarshal(raw, &frame))
			if frame.Type == FrameEvent {
				return frame, true
			}
		case <-deadline:
			return receivedFrame{}, false
		}
	}
}

func boardEvent(eventType domain.EventType, boardID, actorID uuid.UUID) domain.Event {
	event := domain.NewEvent(eventType, domain.ScopeBoard, domain.EventActor{UserID: actorID})
	event.Meta.BoardID = &boardID
	return event
}

func TestHub_SubscribeBoard_Authorized(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	client := newTestClient(t, hub, uuid.New())

	authz.grant(boardID, client.UserID)

	err := hub.Subscribe(context.Background(), client, domain.ScopeBoard, boardID.String())
	require.NoError(t, err)

	topic := Topic(domain.ScopeBoard, boardID.String())
	assert.Equal(t, 1, hub.TopicSubscriberCount(topic))
	assert.Contains(t, client.Subscriptions(), topic)
}

func TestHub_SubscribeBoard_Forbidden(t *testing.T) {
	hub, _ := newTestHub(t)
	boardID := uuid.New()
	client := newTestClient(t, hub, uuid.New())

	err := hub.Subscribe(context.Background(), client, domain.ScopeBoard, boardID.String())
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	// A failed subscribe must leave no trace in the topic index.
	assert.Zero(t, hub.TopicSubscriberCount(Topic(domain.ScopeBoard, boardID.String())))
	assert.Empty(t, client.Subscriptions())
}

func TestHub_SubscribeBoard_InvalidID(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	err := hub.Subscribe(context.Background(), client, domain.ScopeBoard, "not-a-uuid")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestHub_SubscribeUser_OwnChannelOnly(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	err := hub.Subscribe(context.Background(), client, domain.ScopeUser, client.UserID.String())
	require.NoError(t, err)

	err = hub.Subscribe(context.Background(), client, domain.ScopeUser, uuid.NewString())
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestHub_SubscribeGlobal(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	err := hub.Subscribe(context.Background(), client, domain.ScopeGlobal, "")
	require.NoError(t, err)

	assert.Equal(t, 1, hub.TopicSubscriberCount(domain.GlobalTopic))
}

func TestHub_SubscribeUnknownScope(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	err := hub.Subscribe(context.Background(), client, domain.EventScope("bogus"), "x")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestHub_Broadcast_DeliversToSubscriber(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	actorID := uuid.New()
	client := newTestClient(t, hub, uuid.New())

	authz.grant(boardID, client.UserID)
	require.NoError(t, hub.Subscribe(context.Background(), client, domain.ScopeBoard, boardID.String()))

	event := boardEvent(domain.EventBlockCreated, boardID, actorID)
	require.NoError(t, hub.Broadcast(context.Background(), event))

	frame, ok := nextEventFrame(t, client, time.Second)
	require.True(t, ok, "expected an event frame")
	assert.Equal(t, domain.EventBlockCreated, frame.Event.Type)
	assert.Equal(t, event.ID, frame.Event.ID)
}

func TestHub_Broadcast_SkipsNonSubscribers(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	subscribed := newTestClient(t, hub, uuid.New())
	bystander := newTestClient(t, hub, uuid.New())

	authz.grant(boardID, subscribed.UserID)
	authz.grant(boardID, bystander.UserID)
	require.NoError(t, hub.Subscribe(context.Background(), subscribed, domain.ScopeBoard, boardID.String()))

	require.NoError(t, hub.Broadcast(context.Background(), boardEvent(domain.EventBoardUpdated, boardID, uuid.New())))

	_, ok := nextEventFrame(t, subscribed, time.Second)
	assert.True(t, ok)

	_, ok = nextEventFrame(t, bystander, 50*time.Millisecond)
	assert.False(t, ok, "connection that never subscribed must not receive the event")
}

func TestHub_Broadcast_RechecksAuthorization(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	client := newTestClient(t, hub, uuid.New())

	authz.grant(boardID, client.UserID)
	require.NoError(t, hub.Subscribe(context.Background(), client, domain.ScopeBoard, boardID.String()))

	// Revoke access after the subscription was established. The stale
	// subscription must not deliver anything.
	authz.revoke(boardID, client.UserID)

	require.NoError(t, hub.Broadcast(context.Background(), boardEvent(domain.EventBlockUpdated, boardID, uuid.New())))

	_, ok := nextEventFrame(t, client, 50*time.Millisecond)
	assert.False(t, ok, "revoked client must not receive the event")

	// The connection itself survives the revocation.
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHub_Broadcast_UserScopeAddressing(t *testing.T) {
	hub, _ := newTestHub(t)
	recipient := newTestClient(t, hub, uuid.New())

	require.NoError(t, hub.Subscribe(context.Background(), recipient, domain.ScopeUser, recipient.UserID.String()))

	event := domain.NewEvent(domain.EventUserUpdated, domain.ScopeUser, domain.EventActor{UserID: recipient.UserID})
	require.NoError(t, hub.Broadcast(context.Background(), event))

	frame, ok := nextEventFrame(t, recipient, time.Second)
	require.True(t, ok)
	assert.Equal(t, domain.EventUserUpdated, frame.Event.Type)
}

func TestHub_Broadcast_MissingBoardID(t *testing.T) {
	hub, _ := newTestHub(t)

	event := domain.NewEvent(domain.EventBoardUpdated, domain.ScopeBoard, domain.EventActor{UserID: uuid.New()})
	err := hub.Broadcast(context.Background(), event)
	require.ErrorIs(t, err, apperrors.ErrEventMissingBoardID)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	client := newTestClient(t, hub, uuid.New())

	authz.grant(boardID, client.UserID)
	require.NoError(t, hub.Subscribe(context.Background(), client, domain.ScopeBoard, boardID.String()))

	topic := Topic(domain.ScopeBoard, boardID.String())
	require.Equal(t, 1, hub.TopicSubscriberCount(topic))

	hub.Unsubscribe(client, domain.ScopeBoard, boardID.String())
	assert.Zero(t, hub.TopicSubscriberCount(topic))
	assert.NotContains(t, client.Subscriptions(), topic)

	// Unsubscribing again is a no-op.
	hub.Unsubscribe(client, domain.ScopeBoard, boardID.String())
	assert.Zero(t, hub.TopicSubscriberCount(topic))
}

func TestHub_Unregister_CleansUpSubscriptions(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	client := newTestClient(t, hub, uuid.New())

	authz.grant(boardID, client.UserID)
	require.NoError(t, hub.Subscribe(context.Background(), client, domain.ScopeBoard, boardID.String()))
	require.NoError(t, hub.Subscribe(context.Background(), client, domain.ScopeGlobal, ""))

	require.Equal(t, 1, hub.ConnectionCount())

	hub.Unregister(client)

	assert.Zero(t, hub.ConnectionCount())
	assert.Zero(t, hub.TopicSubscriberCount(Topic(domain.ScopeBoard, boardID.String())))
	assert.Zero(t, hub.TopicSubscriberCount(domain.GlobalTopic))

	// Idempotent.
	hub.Unregister(client)
	assert.Zero(t, hub.ConnectionCount())
}

func TestHub_PresenceJoin_NotifiesOtherSubscribers(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	first := newTestClient(t, hub, uuid.New())
	second := newTestClient(t, hub, uuid.New())

	authz.grant(boardID, first.UserID)
	authz.grant(boardID, second.UserID)

	require.NoError(t, hub.Subscribe(context.Background(), first, domain.ScopeBoard, boardID.String()))
	require.NoError(t, hub.Subscribe(context.Background(), second, domain.ScopeBoard, boardID.String()))

	frame, ok := nextEventFrame(t, first, time.Second)
	require.True(t, ok, "existing subscriber should see the join")
	assert.Equal(t, domain.EventPresenceJoin, frame.Event.Type)
	assert.Equal(t, second.UserID, frame.Event.Actor.UserID)

	// The joining client does not see its own join.
	_, ok = nextEventFrame(t, second, 50*time.Millisecond)
	assert.False(t, ok)
}

func TestHub_IsUserConnected(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	assert.True(t, hub.IsUserConnected(client.UserID))
	assert.False(t, hub.IsUserConnected(uuid.New()))

	hub.Unregister(client)
	assert.False(t, hub.IsUserConnected(client.UserID))
}

func TestHub_Close_RejectsNewRegistrations(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	hub.Close()
	assert.Zero(t, hub.ConnectionCount())

	// The closed channel ends the client's write pump.
	_, open := <-client.send
	assert.False(t, open)

	late := NewClient(hub, nil, uuid.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Register(late)
	assert.Zero(t, hub.ConnectionCount())
}

func TestHub_Close_RejectsNewSubscriptions(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	client := newTestClient(t, hub, uuid.New())
	authz.grant(boardID, client.UserID)

	hub.Close()

	// A subscribe racing teardown must not land in the reset topic index.
	err := hub.Subscribe(context.Background(), client, domain.ScopeBoard, boardID.String())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Zero(t, hub.TopicSubscriberCount(Topic(domain.ScopeBoard, boardID.String())))
}

func TestClient_TrySend_DropsWhenFull(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	frame := []byte(`{"type":"event"}`)
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, client.TrySend(frame))
	}

	// Buffer is full: the send must not block, only report the drop.
	assert.False(t, client.TrySend(frame))
}

func TestClient_HandleMessage_Ping(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	client.handleIncomingMessage([]byte(`{"type":"ping"}`))

	raw := <-client.send
	var frame pongFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, FramePong, frame.Type)
	assert.InDelta(t, time.Now().UnixMilli(), frame.Timestamp, 5000)
}

func TestClient_HandleMessage_Malformed(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	client.handleIncomingMessage([]byte(`{not json`))

	raw := <-client.send
	var frame errorFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, CodeInvalidMessage, frame.Code)
}

func TestClient_HandleMessage_UnknownType(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	client.handleIncomingMessage([]byte(`{"type":"dance"}`))

	raw := <-client.send
	var frame errorFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, CodeInvalidMessage, frame.Code)
}

func TestClient_HandleMessage_SubscribeForbidden(t *testing.T) {
	hub, _ := newTestHub(t)
	client := newTestClient(t, hub, uuid.New())

	msg, err := json.Marshal(ClientMessage{Type: MessageSubscribe, Scope: "board", ID: uuid.NewString()})
	require.NoError(t, err)
	client.handleIncomingMessage(msg)

	raw := <-client.send
	var frame errorFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, CodeForbidden, frame.Code)
}

func TestClient_HandleMessage_SubscribeAck(t *testing.T) {
	hub, authz := newTestHub(t)
	boardID := uuid.New()
	client := newTestClient(t, hub, uuid.New())
	authz.grant(boardID, client.UserID)

	msg, err := json.Marshal(ClientMessage{Type: MessageSubscribe, Scope: "board", ID: boardID.String()})
	require.NoError(t, err)
	client.handleIncomingMessage(msg)

	raw := <-client.send
	var frame ackFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, FrameAck, frame.Type)
	assert.True(t, frame.Success)
}
