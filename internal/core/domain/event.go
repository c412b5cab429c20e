package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/corklane/board-backend/internal/core/errors"
)

// EventType identifies the kind of state transition an event describes.
// Types are named <entity>.<action>.
type EventType string

const (
	EventBoardCreated EventType = "board.created"
	EventBoardUpdated EventType = "board.updated"
	EventBoardDeleted EventType = "board.deleted"

	EventBlockCreated EventType = "block.created"
	EventBlockUpdated EventType = "block.updated"
	EventBlockDeleted EventType = "block.deleted"

	EventMemberAdded   EventType = "member.added"
	EventMemberUpdated EventType = "member.updated"
	EventMemberRemoved EventType = "member.removed"

	// Dependency and category mutations are owned by surfaces built on
	// top of the block store. Their types are reserved here so the
	// vocabulary stays closed.
	EventDependencyCreated EventType = "dependency.created"
	EventDependencyDeleted EventType = "dependency.deleted"

	EventCategoryCreated EventType = "category.created"
	EventCategoryUpdated EventType = "category.updated"
	EventCategoryDeleted EventType = "category.deleted"

	EventPresenceJoin  EventType = "presence.join"
	EventPresenceLeave EventType = "presence.leave"

	EventUserUpdated EventType = "user.updated"
)

// EventScope determines which topic an event is routed to.
type EventScope string

const (
	ScopeBoard  EventScope = "board"
	ScopeUser   EventScope = "user"
	ScopeTeam   EventScope = "team"
	ScopeGlobal EventScope = "global"
)

// GlobalTopic is the single topic shared by all global-scope events.
const GlobalTopic = "global:*"

// EventActor identifies the user who triggered an event.
type EventActor struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
}

// EventMeta carries the routing-relevant identifiers for an event.
// At minimum the field needed to resolve the topic for the event's
// scope must be set.
type EventMeta struct {
	BoardID *uuid.UUID `json:"boardId,omitempty"`
	TeamID  *uuid.UUID `json:"teamId,omitempty"`
	BlockID *uuid.UUID `json:"blockId,omitempty"`
	// ParentID is the containing block for nested block events.
	ParentID *uuid.UUID `json:"parentId,omitempty"`
	// UserID overrides the addressed user for user-scope events.
	// When nil the actor is the addressed user.
	UserID *uuid.UUID `json:"userId,omitempty"`
}

// EventEntity tags the object the event is about.
type EventEntity struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// EventChanges holds the before/after snapshots of the affected object.
// Before is nil for creates, After is nil for deletes.
type EventChanges struct {
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
	Diff   json.RawMessage `json:"diff,omitempty"`
}

// Event is an immutable record of one committed state transition. A new
// event is constructed per transition; events are never mutated after
// construction.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Scope     EventScope   `json:"scope"`
	Timestamp int64        `json:"timestamp"` // epoch milliseconds
	Actor     EventActor   `json:"actor"`
	Meta      EventMeta    `json:"meta"`
	Entity    EventEntity  `json:"entity"`
	Changes   EventChanges `json:"changes"`
}

// NewEvent builds an event with a fresh ID and the current timestamp.
func NewEvent(eventType EventType, scope EventScope, actor EventActor) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Scope:     scope,
		Timestamp: time.Now().UnixMilli(),
		Actor:     actor,
	}
}

// AddressedUserID returns the user a user-scope event is addressed to:
// the meta override when present, otherwise the actor.
func (e Event) AddressedUserID() uuid.UUID {
	if e.Meta.UserID != nil {
		return *e.Meta.UserID
	}
	return e.Actor.UserID
}

// Topic resolves the broadcast topic for the event from its scope and
// metadata. It fails when the scope's required identifier is missing.
func (e Event) Topic() (string, error) {
	switch e.Scope {
	case ScopeBoard:
		if e.Meta.BoardID == nil {
			return "", apperrors.ErrEventMissingBoardID
		}
		return string(ScopeBoard) + ":" + e.Meta.BoardID.String(), nil
	case ScopeUser:
		return string(ScopeUser) + ":" + e.AddressedUserID().String(), nil
	case ScopeTeam:
		if e.Meta.TeamID == nil {
			return "", apperrors.ErrEventMissingTeamID
		}
		return string(ScopeTeam) + ":" + e.Meta.TeamID.String(), nil
	case ScopeGlobal:
		return GlobalTopic, nil
	default:
		return "", apperrors.ErrEventInvalidScope
	}
}

// DefaultListenerPriority is assigned to listeners registered without an
// explicit priority. Lower priorities run earlier.
const DefaultListenerPriority = 100

// ListenerFunc handles one published event. A non-nil error is logged by
// the publish pipeline and does not stop other listeners.
type ListenerFunc func(ctx context.Context, event Event) error

// Listener is a registered interest in one or more event types.
type Listener struct {
	// ID is the idempotency and removal key. Registering a second
	// listener with the same ID replaces the first.
	ID         string
	EventTypes []EventType
	Priority   int
	Handler    ListenerFunc
}

// Matches reports whether the listener is interested in the given type.
func (l Listener) Matches(eventType EventType) bool {
	for _, t := range l.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
