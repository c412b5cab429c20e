package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/corklane/board-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// AuthorizationService defines the port for board access checks. All
// checks read current membership state; nothing is cached, so a
// revoked membership takes effect on the next call.
type AuthorizationService interface {
	// GetUserBoardRole derives the user's effective role from their
	// membership row. An absent row yields domain.RoleNone.
	GetUserBoardRole(ctx context.Context, userID, boardID uuid.UUID) (domain.Role, error)

	// CanViewBoard reports whether a user or a share-token holder may
	// view the board. userID and shareToken are independent branches;
	// either, both, or neither may be supplied.
	CanViewBoard(ctx context.Context, boardID uuid.UUID, userID *uuid.UUID, shareToken string) (bool, error)

	// RequireBoardRole returns apperrors.ErrForbidden when the user's
	// role on the board is below minRole.
	RequireBoardRole(ctx context.Context, userID, boardID uuid.UUID, minRole domain.Role) error
	RequireBoardEditor(ctx context.Context, userID, boardID uuid.UUID) error
	RequireBoardAdmin(ctx context.Context, userID, boardID uuid.UUID) error
}

// Broadcaster fans a published event out to live recipients.
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.Event) error
}

// PublishOptions controls a single Publish call.
type PublishOptions struct {
	// SkipBroadcast runs listeners without fanning the event out.
	SkipBroadcast bool
}

// PublishOption mutates PublishOptions.
type PublishOption func(*PublishOptions)

// WithSkipBroadcast suppresses the broadcast step of a publish.
func WithSkipBroadcast() PublishOption {
	return func(o *PublishOptions) {
		o.SkipBroadcast = true
	}
}

// EventService defines the port for the publish pipeline.
type EventService interface {
	// RegisterListener stores the listener and returns a closure that
	// removes it. Registering the same ID again replaces the previous
	// listener; removal is idempotent.
	RegisterListener(listener domain.Listener) func()
	UnregisterListener(id string)

	// SetBroadcaster wires the fan-out target. Last write wins.
	SetBroadcaster(b Broadcaster)

	// Publish runs matching listeners in ascending priority order and
	// then hands the event to the broadcaster. Listener failures are
	// logged and isolated; a broadcaster failure propagates.
	Publish(ctx context.Context, event domain.Event, opts ...PublishOption) error
}

// CreateBoardParams defines the input for creating a board.
type CreateBoardParams struct {
	Title       string
	Description string
	Type        domain.BoardType
	TeamID      *uuid.UUID
	ActorID     uuid.UUID
}

// UpdateBoardParams defines the input for updating a board.
type UpdateBoardParams struct {
	BoardID     uuid.UUID
	Title       *string
	Description *string
	Type        *domain.BoardType
	ActorID     uuid.UUID
}

// SetMemberParams defines the input for adding or updating a member.
type SetMemberParams struct {
	BoardID uuid.UUID
	UserID  uuid.UUID
	Role    domain.Role
	ActorID uuid.UUID
}

// BoardService defines the port for board mutations. Every successful
// mutation publishes a typed event after the write commits.
type BoardService interface {
	CreateBoard(ctx context.Context, params CreateBoardParams) (*domain.Board, error)
	GetBoard(ctx context.Context, boardID, viewerID uuid.UUID) (*domain.Board, error)
	ListBoards(ctx context.Context, viewerID uuid.UUID) ([]*domain.Board, error)
	UpdateBoard(ctx context.Context, params UpdateBoardParams) (*domain.Board, error)
	DeleteBoard(ctx context.Context, boardID, actorID uuid.UUID) error
	SetMember(ctx context.Context, params SetMemberParams) (*domain.BoardMembership, error)
	RemoveMember(ctx context.Context, boardID, userID, actorID uuid.UUID) error
	ListMembers(ctx context.Context, boardID, viewerID uuid.UUID) ([]*domain.BoardMembership, error)
}

// CreateBlockParams defines the input for creating a block.
type CreateBlockParams struct {
	BoardID  uuid.UUID
	ParentID *uuid.UUID
	Type     domain.BlockType
	Title    string
	Fields   []byte
	ActorID  uuid.UUID
}

// UpdateBlockParams defines the input for updating a block.
type UpdateBlockParams struct {
	BlockID uuid.UUID
	Title   *string
	Fields  []byte
	ActorID uuid.UUID
}

// BlockService defines the port for block mutations.
type BlockService interface {
	CreateBlock(ctx context.Context, params CreateBlockParams) (*domain.Block, error)
	UpdateBlock(ctx context.Context, params UpdateBlockParams) (*domain.Block, error)
	DeleteBlock(ctx context.Context, blockID, actorID uuid.UUID) error
	ListBlocks(ctx context.Context, boardID, viewerID uuid.UUID) ([]*domain.Block, error)
}
