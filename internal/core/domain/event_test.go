package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corklane/board-backend/internal/core/domain"
	apperrors "github.com/corklane/board-backend/internal/core/errors"
)

func TestNewEvent(t *testing.T) {
	actor := domain.EventActor{UserID: uuid.New(), DisplayName: "alice"}

	before := time.Now().UnixMilli()
	event := domain.NewEvent(domain.EventBoardCreated, domain.ScopeBoard, actor)
	after := time.Now().UnixMilli()

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, domain.EventBoardCreated, event.Type)
	assert.Equal(t, domain.ScopeBoard, event.Scope)
	assert.Equal(t, actor, event.Actor)
	assert.GreaterOrEqual(t, event.Timestamp, before)
	assert.LessOrEqual(t, event.Timestamp, after)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	actor := domain.EventActor{UserID: uuid.New()}

	a := domain.NewEvent(domain.EventBlockCreated, domain.ScopeBoard, actor)
	b := domain.NewEvent(domain.EventBlockCreated, domain.ScopeBoard, actor)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestEvent_Topic(t *testing.T) {
	boardID := uuid.New()
	teamID := uuid.New()
	actorID := uuid.New()

	tests := []struct {
		name      string
		event     domain.Event
		wantTopic string
		wantErr   error
	}{
		{
			name: "board scope uses board ID",
			event: domain.Event{
				Scope: domain.ScopeBoard,
				Meta:  domain.EventMeta{BoardID: &boardID},
			},
			wantTopic: "board:" + boardID.String(),
		},
		{
			name:    "board scope without board ID fails",
			event:   domain.Event{Scope: domain.ScopeBoard},
			wantErr: apperrors.ErrEventMissingBoardID,
		},
		{
			name: "user scope defaults to actor",
			event: domain.Event{
				Scope: domain.ScopeUser,
				Actor: domain.EventActor{UserID: actorID},
			},
			wantTopic: "user:" + actorID.String(),
		},
		{
			name: "team scope uses team ID",
			event: domain.Event{
				Scope: domain.ScopeTeam,
				Meta:  domain.EventMeta{TeamID: &teamID},
			},
			wantTopic: "team:" + teamID.String(),
		},
		{
			name:    "team scope without team ID fails",
			event:   domain.Event{Scope: domain.ScopeTeam},
			wantErr: apperrors.ErrEventMissingTeamID,
		},
		{
			name:      "global scope uses the shared topic",
			event:     domain.Event{Scope: domain.ScopeGlobal},
			wantTopic: domain.GlobalTopic,
		},
		{
			name:    "unknown scope fails",
			event:   domain.Event{Scope: domain.EventScope("workspace")},
			wantErr: apperrors.ErrEventInvalidScope,
		},
		{
			name:    "empty scope fails",
			event:   domain.Event{},
			wantErr: apperrors.ErrEventInvalidScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, err := tt.event.Topic()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, topic)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTopic, topic)
		})
	}
}

func TestEvent_AddressedUserID(t *testing.T) {
	actorID := uuid.New()
	otherID := uuid.New()

	event := domain.Event{
		Scope: domain.ScopeUser,
		Actor: domain.EventActor{UserID: actorID},
	}
	assert.Equal(t, actorID, event.AddressedUserID())

	event.Meta.UserID = &otherID
	assert.Equal(t, otherID, event.AddressedUserID())

	topic, err := event.Topic()
	require.NoError(t, err)
	assert.Equal(t, "user:"+otherID.String(), topic)
}

func TestListener_Matches(t *testing.T) {
	listener := domain.Listener{
		ID:         "test",
		EventTypes: []domain.EventType{domain.EventBlockCreated, domain.EventBlockUpdated},
	}

	assert.True(t, listener.Matches(domain.EventBlockCreated))
	assert.True(t, listener.Matches(domain.EventBlockUpdated))
	assert.False(t, listener.Matches(domain.EventBlockDeleted))
	assert.False(t, listener.Matches(domain.EventBoardCreated))

	empty := domain.Listener{ID: "empty"}
	assert.False(t, empty.Matches(domain.EventBlockCreated))
}
