package websocket

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/core/domain"
)

// Client-to-server message types. One JSON object per frame.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessagePing        = "ping"
)

// Server-to-client frame types.
const (
	FrameConnected = "connected"
	FrameEvent     = "event"
	FrameAck       = "ack"
	FrameError     = "error"
	FramePong      = "pong"
)

// Error codes carried in error frames.
const (
	CodeForbidden      = "FORBIDDEN"
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeInternalError  = "INTERNAL_ERROR"
)

// ClientMessage is the structure of frames sent by the client.
type ClientMessage struct {
	Type  string `json:"type"`
	Scope string `json:"scope,omitempty"`
	ID    string `json:"id,omitempty"`
}

type connectedFrame struct {
	Type   string    `json:"type"`
	UserID uuid.UUID `json:"userId"`
}

type eventFrame struct {
	Type  string       `json:"type"`
	Event domain.Event `json:"event"`
}

type ackFrame struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type pongFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func marshalConnected(userID uuid.UUID) []byte {
	return mustMarshal(connectedFrame{Type: FrameConnected, UserID: userID})
}

func marshalEvent(event domain.Event) ([]byte, error) {
	return json.Marshal(eventFrame{Type: FrameEvent, Event: event})
}

func marshalAck() []byte {
	return mustMarshal(ackFrame{Type: FrameAck, Success: true})
}

func marshalError(code, message string) []byte {
	return mustMarshal(errorFrame{Type: FrameError, Code: code, Message: message})
}

func marshalPong() []byte {
	return mustMarshal(pongFrame{Type: FramePong, Timestamp: time.Now().UnixMilli()})
}

// mustMarshal is only used for frame types with no marshal failure mode.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Topic builds the "<scope>:<id>" topic string.
func Topic(scope domain.EventScope, id string) string {
	return string(scope) + ":" + id
}

// splitTopic breaks a topic string back into scope and id.
func splitTopic(topic string) (domain.EventScope, string, bool) {
	idx := strings.IndexByte(topic, ':')
	if idx < 0 {
		return "", "", false
	}
	return domain.EventScope(topic[:idx]), topic[idx+1:], true
}
